package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/filex"
	"github.com/gabriel-vasile/mimetype"
)

// DiskStore keeps attachments as files in a single directory.
type DiskStore struct {
	dir string
}

// NewDiskStore creates dir if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &DiskStore{dir: abs}, nil
}

func (d *DiskStore) Dir() string { return d.dir }

// Put writes to a temp file in the same directory and hard-links it into
// place, so readers never observe a partial file and an existing name is
// never replaced.
func (d *DiskStore) Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	written, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if written != size {
		cleanup()
		return fmt.Errorf("write temp file: wrote %d of %d bytes", written, size)
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return err
	}

	final := filepath.Join(d.dir, name)
	err = os.Link(tmpName, final)
	cleanup()
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("link %s: %w", name, ErrExists)
	}
	if err != nil {
		return fmt.Errorf("link %s: %w", name, err)
	}
	_ = os.Chmod(final, 0o644)
	return nil
}

func (d *DiskStore) Get(ctx context.Context, name string) (*Object, error) {
	full := filepath.Join(d.dir, name)
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if fi.IsDir() {
		_ = f.Close()
		return nil, common.ErrorNotFound
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("detect %s: %w", name, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rewind %s: %w", name, err)
	}

	return &Object{Body: f, Size: fi.Size(), ContentType: mt.String()}, nil
}

func (d *DiskStore) Delete(ctx context.Context, name string) error {
	err := os.Remove(filepath.Join(d.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

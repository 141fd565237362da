// Package attachments stores uploaded book images. A Service validates and
// names each upload and hands the bytes to a Store backend (local disk or
// S3-compatible object storage).
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/filex"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// PathPrefix is prepended to stored names to form the persisted image path.
// It is also the URL prefix attachments are served under.
const PathPrefix = "uploads/"

var (
	ErrTooLarge  = errors.New("file too large")
	ErrEmptyFile = errors.New("empty file")

	// ErrExists is returned by a Store when name is already taken.
	ErrExists = errors.New("attachment already exists")
)

// maxNameAttempts bounds how many names Save tries when a Store reports
// ErrExists.
const maxNameAttempts = 5

// Upload is a single incoming file.
type Upload struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

// Object is a stored attachment opened for reading. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// Store is the blob backend behind a Service.
type Store interface {
	// Put writes a new blob. It never replaces an existing name and returns
	// ErrExists instead.
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, name string) (*Object, error)
	// Delete removes name. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error
}

type Service struct {
	store   Store
	maxSize int64
	now     func() time.Time
}

func NewService(store Store, maxSize int64) *Service {
	return &Service{store: store, maxSize: maxSize, now: time.Now}
}

// Save stores up and returns its persisted path ("uploads/<name>").
// Files over the size limit return ErrTooLarge before anything is written.
func (s *Service) Save(ctx context.Context, up Upload) (string, error) {
	if up.Size > s.maxSize {
		return "", ErrTooLarge
	}
	if up.Size <= 0 || up.Content == nil {
		return "", ErrEmptyFile
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(up.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	contentType := mimetype.Detect(head[:n]).String()

	base := StoredName(s.now(), up.Filename)
	name := base
	for attempt := 1; ; attempt++ {
		if _, err := up.Content.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("rewind upload: %w", err)
		}

		err := s.store.Put(ctx, name, io.LimitReader(up.Content, up.Size), up.Size, contentType)
		if err == nil {
			return PathPrefix + name, nil
		}
		if !errors.Is(err, ErrExists) || attempt >= maxNameAttempts {
			return "", fmt.Errorf("store upload: %w", err)
		}
		name = withSuffix(base, uuid.NewString()[:8])
	}
}

// Remove deletes the attachment behind a persisted path. Paths outside
// PathPrefix are ignored.
func (s *Service) Remove(ctx context.Context, storedPath string) error {
	name, ok := strings.CutPrefix(storedPath, PathPrefix)
	if !ok || !filex.SafeName(name) {
		return nil
	}
	return s.store.Delete(ctx, name)
}

// Open returns the attachment stored under name (without PathPrefix).
// Unknown or unsafe names yield common.ErrorNotFound.
func (s *Service) Open(ctx context.Context, name string) (*Object, error) {
	if !filex.SafeName(name) {
		return nil, common.ErrorNotFound
	}
	return s.store.Get(ctx, name)
}

// withSuffix inserts "-suffix" before the extension of name.
func withSuffix(name, suffix string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + suffix + ext
}

// StoredName derives the blob name for filename: the upload time in unix
// milliseconds, a hyphen, then the base name lower-cased with spaces
// replaced by hyphens.
func StoredName(now time.Time, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = strings.ReplaceAll(strings.ToLower(base), " ", "-")
	if base == "." || base == "/" || base == ".." || base == "" {
		base = "file"
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), base)
}

package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/dbx"
	"github.com/dmitrijs2005/bookshelf/internal/server/attachments"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
	"github.com/dmitrijs2005/bookshelf/internal/server/repositories/books"
	"github.com/dmitrijs2005/bookshelf/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// --- users ---

type memUsersRepo struct {
	mu     sync.Mutex
	nextID int64
	byMail map[string]*models.User

	calls     int
	createErr error
	getErr    error
}

func newMemUsersRepo() *memUsersRepo {
	return &memUsersRepo{byMail: map[string]*models.User{}}
}

func (r *memUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, ok := r.byMail[u.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	r.nextID++
	stored := *u
	stored.ID = r.nextID
	r.byMail[u.Email] = &stored
	u.ID = stored.ID
	return u, nil
}

func (r *memUsersRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.byMail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

// --- books ---

type memBooksRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]models.Book

	createErr error
	listErr   error
	getErr    error
	updateErr error
	deleteErr error
}

func newMemBooksRepo() *memBooksRepo {
	return &memBooksRepo{rows: map[int64]models.Book{}}
}

func (r *memBooksRepo) Create(ctx context.Context, b *models.Book) (*models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	b.ID = r.nextID
	r.rows[b.ID] = *b
	return b, nil
}

func (r *memBooksRepo) List(ctx context.Context) ([]models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]models.Book, 0, len(r.rows))
	for _, b := range r.rows {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memBooksRepo) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	b, ok := r.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &b, nil
}

func (r *memBooksRepo) Update(ctx context.Context, b *models.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	cur, ok := r.rows[b.ID]
	if !ok {
		return nil
	}
	cur.Title, cur.Author, cur.Publisher, cur.Year, cur.Pages = b.Title, b.Author, b.Publisher, b.Year, b.Pages
	r.rows[b.ID] = cur
	return nil
}

func (r *memBooksRepo) Delete(ctx context.Context, id int64) (*string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return nil, r.deleteErr
	}
	b, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	delete(r.rows, id)
	return b.Image, nil
}

// --- manager ---

type fakeRepoManager struct {
	u *memUsersRepo
	b *memBooksRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository         { return m.u }
func (m *fakeRepoManager) Books(db dbx.DBTX) books.Repository         { return m.b }

// --- attachments ---

type fakeFiles struct {
	mu        sync.Mutex
	n         int
	saved     []string
	removed   []string
	rmCtxErrs []error
	saveErr   error
	rmErr     error
}

func (f *fakeFiles) Save(ctx context.Context, up attachments.Upload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.n++
	p := attachments.PathPrefix + attachments.StoredName(fakeTime(f.n), up.Filename)
	f.saved = append(f.saved, p)
	return p, nil
}

func (f *fakeFiles) Remove(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, path)
	f.rmCtxErrs = append(f.rmCtxErrs, ctx.Err())
	return f.rmErr
}

func fakeTime(n int) time.Time { return time.UnixMilli(1700000000000 + int64(n)) }

package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/logging"
	"github.com/dmitrijs2005/bookshelf/internal/server/attachments"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookFixture struct {
	svc   *BookService
	mock  sqlmock.Sqlmock
	repo  *memBooksRepo
	files *fakeFiles
}

func newBookFixture(t *testing.T) *bookFixture {
	t.Helper()
	db, mock := newSQLMockDB(t)
	repo := newMemBooksRepo()
	files := &fakeFiles{}
	svc := NewBookService(db, &fakeRepoManager{b: repo}, files, logging.NewNop())
	return &bookFixture{svc: svc, mock: mock, repo: repo, files: files}
}

func (f *bookFixture) expectTx(n int) {
	for i := 0; i < n; i++ {
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
	}
}

func upload(name string) *attachments.Upload {
	return &attachments.Upload{Filename: name, Size: 5, Content: strings.NewReader("bytes")}
}

func validInput() models.BookInput {
	return models.BookInput{Title: "Dune", Author: "Herbert", Publisher: "Chilton", Year: 1965, Pages: 412}
}

func TestBookCreate_RoundTrip(t *testing.T) {
	f := newBookFixture(t)
	f.expectTx(1)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, 7, validInput(), upload("Dune Cover.png"))
	require.NoError(t, err)
	require.NotNil(t, created.Image)
	assert.True(t, strings.HasPrefix(*created.Image, "uploads/"))
	assert.True(t, strings.HasSuffix(*created.Image, "-dune-cover.png"))

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, *created, *got)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, 412, got.Pages)

	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestBookCreate_InvalidInputWritesNothing(t *testing.T) {
	f := newBookFixture(t)

	_, err := f.svc.Create(context.Background(), 1, models.BookInput{Author: "x"}, upload("a.png"))
	require.ErrorIs(t, err, common.ErrorValidation)
	assert.Empty(t, f.files.saved)
	assert.Empty(t, f.repo.rows)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestBookCreate_MissingImage(t *testing.T) {
	f := newBookFixture(t)

	_, err := f.svc.Create(context.Background(), 1, validInput(), nil)
	require.ErrorIs(t, err, common.ErrorValidation)
	assert.Contains(t, err.Error(), "image is required")
	assert.Empty(t, f.repo.rows)
}

func TestBookCreate_TooLargePropagates(t *testing.T) {
	f := newBookFixture(t)
	f.files.saveErr = attachments.ErrTooLarge

	_, err := f.svc.Create(context.Background(), 1, validInput(), upload("a.png"))
	require.ErrorIs(t, err, attachments.ErrTooLarge)
	assert.Empty(t, f.repo.rows)
}

func TestBookCreate_InsertFailureRemovesImage(t *testing.T) {
	f := newBookFixture(t)
	f.repo.createErr = errBoom{}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Create(context.Background(), 1, validInput(), upload("a.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error creating book")
	require.Len(t, f.files.saved, 1)
	assert.Equal(t, f.files.saved, f.files.removed)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestBookCreate_CommitFailureRemovesImage(t *testing.T) {
	f := newBookFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit().WillReturnError(errors.New("commit lost"))

	_, err := f.svc.Create(context.Background(), 1, validInput(), upload("a.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit lost")
	assert.Equal(t, f.files.saved, f.files.removed)
}

func TestBookCreate_BeginFailureRemovesImage(t *testing.T) {
	f := newBookFixture(t)
	f.mock.ExpectBegin().WillReturnError(errors.New("no conn"))

	_, err := f.svc.Create(context.Background(), 1, validInput(), upload("a.png"))
	require.Error(t, err)
	assert.Equal(t, f.files.saved, f.files.removed)
}

func TestBookList_CountsAfterCreatesAndDeletes(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()
	const n, m = 5, 2
	f.expectTx(n)

	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		b, err := f.svc.Create(ctx, 1, validInput(), upload("c.png"))
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}
	for _, id := range ids[:m] {
		require.NoError(t, f.svc.Delete(ctx, 1, id))
	}

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, n-m)
	for i, b := range list {
		assert.Equal(t, ids[m+i], b.ID, "list must follow insertion order")
	}
	assert.Len(t, f.files.removed, m, "deleted books drop their images")
}

func TestBookList_EmptyIsNotNil(t *testing.T) {
	f := newBookFixture(t)

	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.NotNil(t, list)
	assert.Empty(t, list)
}

func TestBookList_StoreError(t *testing.T) {
	f := newBookFixture(t)
	f.repo.listErr = errBoom{}

	_, err := f.svc.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error listing books")
}

func TestBookGet_NotFound(t *testing.T) {
	f := newBookFixture(t)

	_, err := f.svc.Get(context.Background(), 42)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestBookUpdate_PreservesImage(t *testing.T) {
	f := newBookFixture(t)
	f.expectTx(1)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, 1, validInput(), upload("cover.png"))
	require.NoError(t, err)
	image := *created.Image

	err = f.svc.Update(ctx, 1, created.ID, models.BookInput{Title: "Dune Messiah", Author: "Herbert", Year: 1969, Pages: 256})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", got.Title)
	assert.Equal(t, 1969, got.Year)
	assert.Equal(t, "", got.Publisher)
	require.NotNil(t, got.Image)
	assert.Equal(t, image, *got.Image)
	assert.Empty(t, f.files.removed)
}

func TestBookUpdate_MissingIDSucceeds(t *testing.T) {
	f := newBookFixture(t)

	require.NoError(t, f.svc.Update(context.Background(), 1, 999, validInput()))
	assert.Empty(t, f.repo.rows)
}

func TestBookUpdate_Invalid(t *testing.T) {
	f := newBookFixture(t)

	err := f.svc.Update(context.Background(), 1, 1, models.BookInput{Title: "t", Author: "a", Pages: -1})
	require.ErrorIs(t, err, common.ErrorValidation)
}

func TestBookUpdate_StoreError(t *testing.T) {
	f := newBookFixture(t)
	f.repo.updateErr = errBoom{}

	err := f.svc.Update(context.Background(), 1, 1, validInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error updating book")
}

func TestBookDelete_MissingIDSucceeds(t *testing.T) {
	f := newBookFixture(t)

	require.NoError(t, f.svc.Delete(context.Background(), 1, 12345))
	assert.Empty(t, f.files.removed)
}

func TestBookDelete_ImageRemovalFailureIsNotFatal(t *testing.T) {
	f := newBookFixture(t)
	f.expectTx(1)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, 1, validInput(), upload("cover.png"))
	require.NoError(t, err)

	f.files.rmErr = errors.New("permission denied")
	require.NoError(t, f.svc.Delete(ctx, 1, created.ID))

	_, err = f.svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestBookDelete_RemovesImageAfterClientCancel(t *testing.T) {
	f := newBookFixture(t)
	f.expectTx(1)

	created, err := f.svc.Create(context.Background(), 1, validInput(), upload("cover.png"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.svc.Delete(ctx, 1, created.ID))

	require.Equal(t, []string{*created.Image}, f.files.removed)
	assert.NoError(t, f.files.rmCtxErrs[0])
}

func TestBookDelete_StoreError(t *testing.T) {
	f := newBookFixture(t)
	f.repo.deleteErr = errBoom{}

	err := f.svc.Delete(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error deleting book")
}

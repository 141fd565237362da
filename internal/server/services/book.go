package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/dbx"
	"github.com/dmitrijs2005/bookshelf/internal/logging"
	"github.com/dmitrijs2005/bookshelf/internal/server/attachments"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
	"github.com/dmitrijs2005/bookshelf/internal/server/repositories/repomanager"
)

// Attachments stores and removes book images.
type Attachments interface {
	Save(ctx context.Context, up attachments.Upload) (string, error)
	Remove(ctx context.Context, path string) error
}

// BookService implements the book lifecycle on top of the books repository
// and the attachment store.
type BookService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	files       Attachments
	logger      logging.Logger
}

func NewBookService(db *sql.DB, m repomanager.RepositoryManager, files Attachments, l logging.Logger) *BookService {
	return &BookService{
		db:          db,
		repomanager: m,
		files:       files,
		logger:      l.With("module", "book_service"),
	}
}

// Create validates in, stores the image and inserts the record. Nothing is
// written when validation fails. If the insert fails the stored image is
// removed again.
func (s *BookService) Create(ctx context.Context, userID int64, in models.BookInput, up *attachments.Upload) (*models.Book, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if up == nil {
		return nil, fmt.Errorf("%w: image is required", common.ErrorValidation)
	}

	path, err := s.files.Save(ctx, *up)
	if err != nil {
		return nil, fmt.Errorf("error saving image: %w", err)
	}

	book := &models.Book{Image: &path}
	in.Apply(book)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := s.repomanager.Books(tx).Create(ctx, book)
		return err
	})
	if err != nil {
		if rmErr := s.files.Remove(context.WithoutCancel(ctx), path); rmErr != nil {
			s.logger.Warn(ctx, "orphaned image after failed insert", "path", path, "error", rmErr)
		}
		return nil, fmt.Errorf("error creating book: %w", err)
	}

	s.logger.Info(ctx, "book created", "book_id", book.ID, "user_id", userID)
	return book, nil
}

// List returns all books in insertion order. The result is never nil.
func (s *BookService) List(ctx context.Context) ([]models.Book, error) {
	list, err := s.repomanager.Books(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing books: %w", err)
	}
	if list == nil {
		list = []models.Book{}
	}
	return list, nil
}

// Get returns one book or common.ErrorNotFound.
func (s *BookService) Get(ctx context.Context, id int64) (*models.Book, error) {
	b, err := s.repomanager.Books(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching book: %w", err)
	}
	return b, nil
}

// Update overwrites the descriptive fields of book id. The image is kept.
// Updating a missing id succeeds without effect.
func (s *BookService) Update(ctx context.Context, userID, id int64, in models.BookInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	book := &models.Book{ID: id}
	in.Apply(book)

	if err := s.repomanager.Books(s.db).Update(ctx, book); err != nil {
		return fmt.Errorf("error updating book: %w", err)
	}

	s.logger.Info(ctx, "book updated", "book_id", id, "user_id", userID)
	return nil
}

// Delete removes book id and its image. Deleting a missing id succeeds.
// Image removal is best effort and only logged on failure.
func (s *BookService) Delete(ctx context.Context, userID, id int64) error {
	image, err := s.repomanager.Books(s.db).Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("error deleting book: %w", err)
	}

	if image != nil {
		if err := s.files.Remove(context.WithoutCancel(ctx), *image); err != nil {
			s.logger.Warn(ctx, "failed to remove image", "book_id", id, "path", *image, "error", err)
		}
	}

	s.logger.Info(ctx, "book deleted", "book_id", id, "user_id", userID)
	return nil
}

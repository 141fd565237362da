package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/dbx"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, book *models.Book) (*models.Book, error) {

	query :=
		`INSERT INTO book (title, author, publisher, year, pages, image)
         VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		book.Title, book.Author, book.Publisher, book.Year, book.Pages, book.Image).Scan(&book.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return book, nil
}

// List returns every book ordered by id. The result is never nil.
func (r *PostgresRepository) List(ctx context.Context) ([]models.Book, error) {
	query :=
		`SELECT id, title, author, publisher, year, pages, image FROM book
		 ORDER BY id
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Book, 0)
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Publisher, &b.Year, &b.Pages, &b.Image); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	query :=
		`SELECT id, title, author, publisher, year, pages, image FROM book
		 WHERE id = $1
		 `

	b := &models.Book{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.Title, &b.Author, &b.Publisher, &b.Year, &b.Pages, &b.Image)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return b, nil
}

// Update overwrites the descriptive fields of book.ID. The image column is
// never touched. Updating a missing id is not an error.
func (r *PostgresRepository) Update(ctx context.Context, book *models.Book) error {
	query :=
		`UPDATE book SET title = $1, author = $2, publisher = $3, year = $4, pages = $5
		 WHERE id = $6
		 `

	if _, err := r.db.ExecContext(ctx, query,
		book.Title, book.Author, book.Publisher, book.Year, book.Pages, book.ID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// Delete removes the record and returns its image path so the caller can
// drop the attachment. A missing id returns (nil, nil).
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (*string, error) {
	query :=
		`DELETE FROM book
		 WHERE id = $1
		 RETURNING image
		 `

	var image *string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&image)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return image, nil
}

package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/librisys/librisys/internal/platform/db"
)

// Repository persists book titles and their copy counts in PostgreSQL.
// Availability mutations are single conditional statements so concurrent
// callers are linearized by the store, never resolved client-side.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a Repository over a connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// InTx returns a Repository bound to the given transaction.
func (r *Repository) InTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

// CreateTitle registers a title with all copies available.
func (r *Repository) CreateTitle(ctx context.Context, title BookTitle) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO book_titles (isbn, title, author, total_copies, available_copies)
		VALUES ($1, $2, $3, $4, $4)`,
		title.ISBN, title.Title, title.Author, title.TotalCopies)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateTitle
		}
		return err
	}
	return nil
}

// GetTitle fetches a title by ISBN.
func (r *Repository) GetTitle(ctx context.Context, isbn string) (BookTitle, error) {
	var t BookTitle
	err := r.db.QueryRow(ctx, `
		SELECT isbn, title, author, total_copies, available_copies
		FROM book_titles WHERE isbn = $1`, isbn).
		Scan(&t.ISBN, &t.Title, &t.Author, &t.TotalCopies, &t.AvailableCopies)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BookTitle{}, ErrTitleNotFound
		}
		return BookTitle{}, err
	}
	return t, nil
}

// ListTitles returns the catalog ordered by title.
func (r *Repository) ListTitles(ctx context.Context) ([]BookTitle, error) {
	rows, err := r.db.Query(ctx, `
		SELECT isbn, title, author, total_copies, available_copies
		FROM book_titles ORDER BY title, isbn`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var titles []BookTitle
	for rows.Next() {
		var t BookTitle
		if err := rows.Scan(&t.ISBN, &t.Title, &t.Author, &t.TotalCopies, &t.AvailableCopies); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// IssueCopy atomically claims one available copy. Two simultaneous attempts
// on the last copy resolve to exactly one success; the loser sees
// ErrNoCopiesAvailable.
func (r *Repository) IssueCopy(ctx context.Context, isbn string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE book_titles
		SET available_copies = available_copies - 1
		WHERE isbn = $1 AND available_copies > 0`, isbn)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM book_titles WHERE isbn = $1)`, isbn).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrTitleNotFound
	}
	return ErrNoCopiesAvailable
}

// ReturnCopy atomically restores one copy, clamped at total_copies so a
// defect elsewhere can never push availability above the physical total.
func (r *Repository) ReturnCopy(ctx context.Context, isbn string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE book_titles
		SET available_copies = LEAST(available_copies + 1, total_copies)
		WHERE isbn = $1`, isbn)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTitleNotFound
	}
	return nil
}

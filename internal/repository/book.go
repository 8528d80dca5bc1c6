package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/attaboy/lifestats/internal/domain"
	"github.com/attaboy/lifestats/internal/source"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BookRepo is a pgx-backed source.BookStore over book_records.
type BookRepo struct {
	*source.Broadcaster
	db DBTX
}

// NewBookRepository returns a book store notifying through b.
func NewBookRepository(db DBTX, b *source.Broadcaster) *BookRepo {
	if b == nil {
		b = source.NewBroadcaster()
	}
	return &BookRepo{Broadcaster: b, db: db}
}

func (r *BookRepo) Books(ctx context.Context) ([]domain.BookRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, title, status, created_at
		FROM book_records ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return scanAll(rows, scanBook)
}

func (r *BookRepo) AddBook(ctx context.Context, b domain.BookRecord) (domain.BookRecord, error) {
	if err := domain.ValidateBookStatus(b.Status); err != nil {
		return domain.BookRecord{}, domain.ErrValidation(err.Error())
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO book_records (id, title, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, title, status, created_at`,
		b.ID, b.Title, string(b.Status), b.CreatedAt)
	out, err := scanBook(row)
	if err != nil {
		return domain.BookRecord{}, err
	}
	r.Notify()
	return out, nil
}

func (r *BookRepo) SetBookStatus(ctx context.Context, id uuid.UUID, status domain.BookStatus) error {
	if err := domain.ValidateBookStatus(status); err != nil {
		return domain.ErrValidation(err.Error())
	}
	tag, err := r.db.Exec(ctx, `UPDATE book_records SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("book", id.String())
	}
	r.Notify()
	return nil
}

func (r *BookRepo) DeleteBook(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM book_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("book", id.String())
	}
	r.Notify()
	return nil
}

func scanBook(row pgx.Row) (domain.BookRecord, error) {
	var b domain.BookRecord
	var status string
	if err := row.Scan(&b.ID, &b.Title, &status, &b.CreatedAt); err != nil {
		return domain.BookRecord{}, fmt.Errorf("scan book: %w", err)
	}
	b.Status = domain.BookStatus(status)
	return b, nil
}

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate is returned when a row with the same key already exists
var ErrDuplicate = errors.New("duplicate key")

const uniqueViolation = "23505"

// Migrate creates the schema if it does not exist
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// InsertBook inserts a new book. It never overwrites an existing row.
func (db *DB) InsertBook(ctx context.Context, name, content string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO books (name, content) VALUES ($1, $2)`,
		name, content,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert book: %w", err)
	}
	return nil
}

// GetBook retrieves a book by name, or nil if there is none
func (db *DB) GetBook(ctx context.Context, name string) (*Book, error) {
	var book Book
	err := db.pool.QueryRow(ctx,
		`SELECT name, content, created_at FROM books WHERE name = $1`,
		name,
	).Scan(&book.Name, &book.Content, &book.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &book, nil
}

// ListBookNames returns all book names in name order
func (db *DB) ListBookNames(ctx context.Context) ([]string, error) {
	rows, err := db.pool.Query(ctx, `SELECT name FROM books ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

package books

import (
	"context"
	"errors"

	"github.com/textbook-chat/cli/internal/db"
)

// PostgresStore keeps books in the books table
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(database *db.DB) *PostgresStore {
	return &PostgresStore{db: database}
}

func (s *PostgresStore) Save(ctx context.Context, name, content string) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}
	err = s.db.InsertBook(ctx, name, content)
	if errors.Is(err, db.ErrDuplicate) {
		return ErrNameCollision
	}
	return err
}

func (s *PostgresStore) Load(ctx context.Context, name string) (string, error) {
	name, err := CleanName(name)
	if err != nil {
		return "", err
	}
	book, err := s.db.GetBook(ctx, name)
	if err != nil {
		return "", err
	}
	if book == nil {
		return "", ErrNotFound
	}
	return book.Content, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	names, err := s.db.ListBookNames(ctx)
	if names == nil && err == nil {
		names = []string{}
	}
	return names, err
}

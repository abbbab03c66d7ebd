// Package books persists extracted book text under unique, write-once names.
package books

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrInvalidName   = errors.New("invalid book name")
	ErrNameCollision = errors.New("a book with this name already exists")
	ErrNotFound      = errors.New("book not found")
)

// Store is a flat namespace of books. Save never overwrites.
type Store interface {
	Save(ctx context.Context, name, content string) error
	Load(ctx context.Context, name string) (string, error)
	List(ctx context.Context) ([]string, error)
}

// CleanName trims name and rejects names that are empty or could escape
// a flat namespace.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "", name == ".", name == "..":
		return "", ErrInvalidName
	case strings.ContainsAny(name, "/\\\x00"):
		return "", ErrInvalidName
	}
	return name, nil
}

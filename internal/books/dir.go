package books

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const ext = ".txt"

// DirStore keeps one UTF-8 <name>.txt file per book in a single directory
type DirStore struct {
	dir string
}

// NewDirStore creates dir if needed
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create books directory: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

func (s *DirStore) path(name string) string {
	return filepath.Join(s.dir, name+ext)
}

func (s *DirStore) Save(_ context.Context, name, content string) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}

	// O_EXCL makes the existence check and the create one step
	f, err := os.OpenFile(s.path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return ErrNameCollision
	}
	if err != nil {
		return fmt.Errorf("failed to create book file: %w", err)
	}

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("failed to write book: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("failed to write book: %w", err)
	}
	return nil
}

func (s *DirStore) Load(_ context.Context, name string) (string, error) {
	name, err := CleanName(name)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read book: %w", err)
	}
	return string(data), nil
}

// List returns book names sorted by name
func (s *DirStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ext))
	}
	return names, nil
}

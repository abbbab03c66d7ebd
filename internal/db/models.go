package db

import (
	"time"
)

// Book is one stored book row
type Book struct {
	Name      string
	Content   string
	CreatedAt time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS books (
	name       TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

package documents

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

var (
	// ErrUnsupportedType is returned by ReadFile for anything but PDF or EPUB
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrUnreadableDocument means the bytes could not be parsed as a document
	ErrUnreadableDocument = errors.New("unreadable document")
)

// Document is an opened, paged document
type Document interface {
	NumPage() int
	// Text returns the embedded text layer of page i (0-based)
	Text(i int) (string, error)
	// Image rasterizes page i at dpi
	Image(i int, dpi float64) (image.Image, error)
	Close() error
}

// Opener turns raw bytes into a Document
type Opener interface {
	Open(data []byte) (Document, error)
}

// FitzOpener opens PDF and EPUB bytes with MuPDF
type FitzOpener struct{}

func (FitzOpener) Open(data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) NumPage() int {
	return d.doc.NumPage()
}

// Text trims trailing whitespace so each page contributes exactly one
// newline-terminated block.
func (d *fitzDocument) Text(i int) (string, error) {
	text, err := d.doc.Text(i)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(text, " \t\r\n\f"), nil
}

func (d *fitzDocument) Image(i int, dpi float64) (image.Image, error) {
	return d.doc.ImageDPI(i, dpi)
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}

// ReadFile loads a PDF or EPUB from disk
func ReadFile(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".epub":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return data, nil
}

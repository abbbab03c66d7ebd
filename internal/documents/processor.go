package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/textbook-chat/cli/internal/llm"
	"github.com/textbook-chat/cli/internal/logx"
	"github.com/textbook-chat/cli/internal/remote"
)

// ErrEmptyDocument is returned when there are no bytes to extract from
var ErrEmptyDocument = errors.New("empty document")

// Extraction is the text pulled from one document
type Extraction struct {
	Text     string
	Pages    int
	UsedOCR  bool
	Failures []PageFailure
}

// PageFailure records a page that contributed no text. It never aborts
// the extraction.
type PageFailure struct {
	Page  int // 1-based
	Stage string
	Err   error
}

func (f PageFailure) Error() string {
	return fmt.Sprintf("page %d (%s): %v", f.Page, f.Stage, f.Err)
}

// Options tunes the OCR fallback
type Options struct {
	DPI         float64
	MaxWidth    int
	MaxHeight   int
	Prompt      string
	MaxTokens   int
	VisionModel string
	Policy      remote.Policy
	// Progress, when set, is called before each OCR page
	Progress func(page, total int)
}

// DefaultOptions matches the settings the OCR prompt was tuned with
func DefaultOptions() Options {
	return Options{
		DPI:       100,
		MaxWidth:  1024,
		MaxHeight: 1024,
		Prompt:    "Extract all readable text from this image.",
		MaxTokens: 1000,
		Policy:    remote.DefaultPolicy(),
	}
}

// Extractor pulls plain text out of documents, falling back to page OCR
// when there is no embedded text layer
type Extractor struct {
	opener Opener
	reader llm.ImageReader
	opts   Options
}

// NewExtractor creates a new extractor
func NewExtractor(opener Opener, reader llm.ImageReader, opts Options) *Extractor {
	return &Extractor{
		opener: opener,
		reader: reader,
		opts:   opts,
	}
}

// SetProgress replaces the OCR progress callback. Call it before Extract.
func (e *Extractor) SetProgress(fn func(page, total int)) {
	e.opts.Progress = fn
}

// Extract returns the document's text. Pages that fail are skipped and
// listed in Failures.
func (e *Extractor) Extract(ctx context.Context, data []byte) (*Extraction, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	doc, err := e.opener.Open(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	ext := &Extraction{Pages: doc.NumPage()}

	var text strings.Builder
	for i := 0; i < ext.Pages; i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			ext.Failures = append(ext.Failures, PageFailure{Page: i + 1, Stage: "text", Err: err})
			continue
		}
		if pageText != "" {
			text.WriteString(pageText)
			text.WriteString("\n")
		}
	}

	if strings.TrimSpace(text.String()) != "" {
		ext.Text = text.String()
		return ext, nil
	}

	logx.Info().Int("pages", ext.Pages).Msg("no embedded text, falling back to OCR")
	ext.UsedOCR = true
	ext.Text, err = e.ocr(ctx, doc, ext)
	if err != nil {
		return nil, err
	}
	return ext, nil
}

func (e *Extractor) ocr(ctx context.Context, doc Document, ext *Extraction) (string, error) {
	var text strings.Builder

	callOpts := []llm.Option{llm.WithMaxTokens(e.opts.MaxTokens)}
	if e.opts.VisionModel != "" {
		callOpts = append(callOpts, llm.WithModel(e.opts.VisionModel))
	}

	for i := 0; i < ext.Pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if e.opts.Progress != nil {
			e.opts.Progress(i+1, ext.Pages)
		}

		img, err := doc.Image(i, e.opts.DPI)
		if err != nil {
			ext.Failures = append(ext.Failures, PageFailure{Page: i + 1, Stage: "rasterize", Err: err})
			continue
		}
		png, err := encodePNG(Downscale(img, e.opts.MaxWidth, e.opts.MaxHeight))
		if err != nil {
			ext.Failures = append(ext.Failures, PageFailure{Page: i + 1, Stage: "encode", Err: err})
			continue
		}

		res := remote.Do(ctx, e.opts.Policy, func(ctx context.Context) (string, error) {
			return e.reader.ReadImage(ctx, png, e.opts.Prompt, callOpts...)
		})
		if !res.OK() {
			logx.Warn().Err(res.Err).Int("page", i+1).Str("outcome", res.Outcome.String()).Msg("OCR failed, skipping page")
			ext.Failures = append(ext.Failures, PageFailure{Page: i + 1, Stage: "ocr", Err: res.Err})
			continue
		}

		text.WriteString(res.Value)
		text.WriteString("\n\n")
	}

	return text.String(), nil
}

// Package app wires configuration into the ingestion and chat pipeline
// shared by the CLI, the TUI and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/textbook-chat/cli/config"
	"github.com/textbook-chat/cli/internal/books"
	"github.com/textbook-chat/cli/internal/budget"
	"github.com/textbook-chat/cli/internal/chat"
	"github.com/textbook-chat/cli/internal/db"
	"github.com/textbook-chat/cli/internal/documents"
	"github.com/textbook-chat/cli/internal/llm"
	"github.com/textbook-chat/cli/internal/llm/factory"
	"github.com/textbook-chat/cli/internal/logx"
	"github.com/textbook-chat/cli/internal/remote"
)

// App holds the pipeline components. Fields are exported so surfaces and
// tests can assemble an App from fakes.
type App struct {
	Config    *config.Config
	Store     books.Store
	Gate      *budget.Gate
	Provider  llm.Provider
	Extractor *documents.Extractor
	Session   *chat.Session

	closers []func()
}

// New builds every component from cfg
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	gate := budget.NewGate(NewCounter(cfg.Budget.Model), cfg.Budget.Ceiling)

	sel, err := factory.New(ctx, cfg)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("failed to initialize provider: %w", err)
	}

	policy := Policy(cfg)

	extractor := documents.NewExtractor(documents.FitzOpener{}, sel.Provider, documents.Options{
		DPI:         cfg.OCR.DPI,
		MaxWidth:    cfg.OCR.MaxWidth,
		MaxHeight:   cfg.OCR.MaxHeight,
		Prompt:      cfg.OCR.Prompt,
		MaxTokens:   cfg.OCR.MaxTokens,
		VisionModel: sel.VisionModel,
		Policy:      policy,
	})

	session := chat.NewSession(store, gate, sel.Provider, chat.Options{
		Temperature: cfg.Provider.Temperature,
		Policy:      policy,
	})

	logx.Debug().
		Str("provider", sel.Provider.Name()).
		Str("storage", cfg.Storage.Backend).
		Int("ceiling", gate.Ceiling()).
		Str("session", session.SessionID().String()).
		Msg("app initialized")

	return &App{
		Config:    cfg,
		Store:     store,
		Gate:      gate,
		Provider:  sel.Provider,
		Extractor: extractor,
		Session:   session,
		closers:   []func(){closeStore},
	}, nil
}

// Policy converts the retry section into a remote.Policy
func Policy(cfg *config.Config) remote.Policy {
	return remote.Policy{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		WarmupDelay:    cfg.Retry.WarmupDelay,
		TransportDelay: cfg.Retry.TransportDelay,
	}
}

// NewCounter returns a tiktoken counter for model, or an approximation
// when the tokenizer cannot be loaded (it downloads its ranks on first use).
func NewCounter(model string) budget.Counter {
	counter, err := budget.NewTiktokenCounter(model)
	if err != nil {
		logx.Warn().Err(err).Msg("tokenizer unavailable, estimating token counts")
		return budget.ApproxCounter{}
	}
	return counter
}

// OpenStore opens the configured book store. The returned func releases
// its connections.
func OpenStore(ctx context.Context, cfg *config.Config) (books.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "dir":
		store, err := books.NewDirStore(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	case "postgres":
		database, err := db.New(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return books.NewPostgresStore(database), database.Close, nil

	case "redis":
		rdb, err := books.NewRedisClient(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return books.NewRedisStore(rdb, cfg.Storage.RedisPrefix), func() { rdb.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// Migrate creates the Postgres schema
func Migrate(ctx context.Context, cfg *config.Config) error {
	database, err := db.New(ctx, cfg.Storage.PostgresURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	return database.Migrate(ctx)
}

// Extract reads a PDF or EPUB file and returns its text
func (a *App) Extract(ctx context.Context, path string) (*documents.Extraction, error) {
	data, err := documents.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return a.Extractor.Extract(ctx, data)
}

// Ingest extracts path and saves the text as a new book
func (a *App) Ingest(ctx context.Context, path, name string) (*documents.Extraction, error) {
	if _, err := a.checkName(ctx, name); err != nil {
		return nil, err
	}
	data, err := documents.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return a.IngestBytes(ctx, data, name)
}

// IngestBytes extracts data and saves the text as a new book. The name is
// checked first so a collision does not cost an OCR run.
func (a *App) IngestBytes(ctx context.Context, data []byte, name string) (*documents.Extraction, error) {
	name, err := a.checkName(ctx, name)
	if err != nil {
		return nil, err
	}

	ext, err := a.Extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}

	if err := a.Store.Save(ctx, name, ext.Text); err != nil {
		return ext, err
	}

	logx.Info().Str("book", name).Int("pages", ext.Pages).Bool("ocr", ext.UsedOCR).
		Int("failed_pages", len(ext.Failures)).Msg("book saved")
	return ext, nil
}

func (a *App) checkName(ctx context.Context, name string) (string, error) {
	name, err := books.CleanName(name)
	if err != nil {
		return "", err
	}
	_, err = a.Store.Load(ctx, name)
	switch {
	case err == nil:
		return "", books.ErrNameCollision
	case errors.Is(err, books.ErrNotFound):
		return name, nil
	default:
		return "", err
	}
}

// Close releases store connections
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
}

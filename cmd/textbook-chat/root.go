package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/textbook-chat/cli/config"
	"github.com/textbook-chat/cli/internal/app"
	"github.com/textbook-chat/cli/internal/logx"
)

var (
	configPath string
	verbose    bool

	version = "dev"

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "textbook-chat",
	Short: "Chat with a language model about a PDF or EPUB book",
	Long: `Extract the text of a PDF or EPUB (falling back to OCR for scanned pages),
store it under a unique name, then ask questions about it with the whole
book loaded into the model's context.

Quick Start:
  textbook-chat ingest biology.pdf --name biology
  textbook-chat chat --book biology
  textbook-chat tui`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		initLogging("")
		return nil
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.textbook-chat/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(extractCmd, ingestCmd, booksCmd, chatCmd, migrateCmd, tuiCmd, serveCmd)
}

// initLogging configures logx from cfg. file overrides cfg.Log.File.
func initLogging(file string) {
	if file == "" {
		file = cfg.Log.File
	}
	logx.Init(logx.Options{
		Environment: logx.ParseEnvironment(cfg.Log.Environment),
		Level:       cfg.Log.Level,
		File:        file,
	})
}

// defaultLogFile is where the TUI logs when log.file is unset
func defaultLogFile() string {
	return filepath.Join(config.Dir(), "textbook-chat.log")
}

// newApp builds the pipeline. The caller must Close it.
func newApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}

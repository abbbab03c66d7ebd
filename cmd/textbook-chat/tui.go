package main

import (
	"github.com/spf13/cobra"

	"github.com/textbook-chat/cli/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal interface",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The TUI owns the terminal, so logs go to a file
		if cfg.Log.File == "" {
			initLogging(defaultLogFile())
		}

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		return tui.NewApp(ctx, a, configPath).Run()
	},
}

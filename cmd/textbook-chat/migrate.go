package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/textbook-chat/cli/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the Postgres schema for the postgres storage backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Migrate(cmd.Context(), cfg); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		fmt.Println("Migrations completed successfully")
		return nil
	},
}

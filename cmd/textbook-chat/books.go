package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/textbook-chat/cli/internal/app"
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List stored books",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		// Listing needs only the store, not a provider
		store, closeStore, err := app.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		names, err := store.List(ctx)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No books yet. Add one with: textbook-chat ingest <file> --name <book>")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

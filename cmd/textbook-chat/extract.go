package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/textbook-chat/cli/internal/logx"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print the text of a PDF or EPUB",
	Long: `Print the extracted text of a PDF or EPUB to stdout without storing it.
Scanned documents with no text layer are sent page by page to the vision
model for OCR.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		a.Extractor.SetProgress(func(page, total int) {
			logx.Info().Int("page", page).Int("total", total).Msg("running OCR")
		})

		ext, err := a.Extract(ctx, args[0])
		if err != nil {
			return err
		}
		for _, f := range ext.Failures {
			logx.Warn().Err(f.Err).Int("page", f.Page).Str("stage", f.Stage).Msg("page skipped")
		}

		fmt.Fprint(os.Stdout, ext.Text)
		return nil
	},
}

package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/textbook-chat/cli/internal/logx"
)

var ingestName string

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file> --name <book>",
	Short: "Extract a PDF or EPUB and store it as a book",
	Long: `Extract a PDF or EPUB and store its text under a unique name.
Names are write-once: ingesting under an existing name fails and leaves
the stored book untouched.`,
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

		ext, err := a.Ingest(ctx, args[0], ingestName)
		if err != nil {
			return err
		}

		msg := fmt.Sprintf("Saved %q (%d pages", ingestName, ext.Pages)
		if ext.UsedOCR {
			msg += ", OCR"
		}
		fmt.Println(okStyle.Render(msg + ")"))
		for _, f := range ext.Failures {
			fmt.Println(warnStyle.Render(fmt.Sprintf("  skipped %s", f.Error())))
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestName, "name", "n", "", "Unique name for the book")
	_ = ingestCmd.MarkFlagRequired("name")
}

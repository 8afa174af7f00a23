package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nexus-extract",
		Short: "Extract line items from scanned invoice PDFs with a vision LLM",
		Long: `nexus-extract rasterizes invoice PDFs, sends each page to a
vision-capable LLM endpoint (Ollama local/tunneled or any OpenAI-compatible
endpoint) with a document-type template, reconciles the answers into a
deduplicated line-item table and exports it as XLSX, CSV or SQLite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newExtractCmd())
	root.AddCommand(newTemplatesCmd())
	return root
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

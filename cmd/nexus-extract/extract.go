package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/nexus-extract/invoice-pipeline/constants"
	"github.com/nexus-extract/invoice-pipeline/internal/common"
	"github.com/nexus-extract/invoice-pipeline/internal/export"
	"github.com/nexus-extract/invoice-pipeline/internal/llm"
	"github.com/nexus-extract/invoice-pipeline/internal/llm/ollama"
	"github.com/nexus-extract/invoice-pipeline/internal/llm/openai"
	"github.com/nexus-extract/invoice-pipeline/internal/pipeline"
	"github.com/nexus-extract/invoice-pipeline/internal/raster"
	"github.com/nexus-extract/invoice-pipeline/internal/templates"
)

func newExtractCmd() *cobra.Command {
	var (
		templateKey   string
		templatesFile string
		out           string
		format        string
		provider      string
		model         string
		timeout       time.Duration
		dpi           int
		verbose       bool
	)

	cmd := &cobra.Command{
		Use:   "extract [files or directories...]",
		Short: "Process invoice PDFs and export the reconciled line items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(verbose)

			cfg := common.LoadConfig()
			if provider != "" {
				cfg.LLM.Provider = provider
			}
			if model != "" {
				cfg.LLM.Model = model
			}
			if timeout > 0 {
				cfg.LLM.Timeout = timeout
			}
			if dpi > 0 {
				cfg.Raster.DPI = dpi
			}
			if format != "" {
				cfg.Export.Format = format
			}
			if out != "" {
				cfg.Export.Out = out
			}
			if cfg.Export.Out == "" {
				cfg.Export.Out = "Reporte_Facturas." + extFor(cfg.Export.Format)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			registry, err := templates.NewRegistry(templatesFile)
			if err != nil {
				return err
			}
			tmpl, ok := registry.Get(templateKey)
			if !ok {
				return fmt.Errorf("unknown template %q (see 'nexus-extract templates')", templateKey)
			}

			files, err := collectFiles(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return errors.New("no PDF files found in the given paths")
			}

			var transport llm.Transport
			switch cfg.LLM.Provider {
			case "ollama":
				transport = ollama.NewClient(ollama.Config{
					Host:        cfg.LLM.OllamaHost,
					Model:       cfg.LLM.Model,
					Temperature: cfg.LLM.Temperature,
					Timeout:     cfg.LLM.Timeout,
				}, logger)
			case "openai":
				transport = openai.NewClient(openai.Config{
					APIKey:      cfg.LLM.APIKey,
					BaseURL:     cfg.LLM.BaseURL,
					Model:       cfg.LLM.Model,
					Temperature: cfg.LLM.Temperature,
					Timeout:     cfg.LLM.Timeout,
				}, logger)
			}

			adapter := llm.NewAdapter(transport, cfg.LLM.Timeout, logger)
			converter := raster.NewConverter(raster.Config{
				DPI:      cfg.Raster.DPI,
				Quality:  cfg.Raster.Quality,
				MaxEdge:  cfg.Raster.MaxEdge,
				MaxPages: cfg.Raster.MaxPages,
			}, logger)

			progress := newProgressReporter()
			pipe := pipeline.New(adapter, logger, progress.report)
			batch := pipeline.NewBatch(pipe, converter, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := batch.Run(ctx, files, tmpl)
			progress.finish()
			if err != nil {
				return err
			}

			printDiagnostics(cmd, result)

			if result.Empty() {
				cmd.Println("Sin datos extraíbles: nothing to export.")
				return nil
			}

			svc := export.NewService(logger)
			switch cfg.Export.Format {
			case "xlsx":
				err = svc.WriteXLSX(result.Items, result.Summaries, cfg.Export.Out)
			case "csv":
				err = svc.WriteCSV(result.Items, cfg.Export.Out)
			case "sqlite":
				err = svc.WriteSQLite(ctx, result.Items, result.Summaries, cfg.Export.Out)
			default:
				err = fmt.Errorf("unknown export format %q", cfg.Export.Format)
			}
			if err != nil {
				return err
			}

			cmd.Printf("%d items, %d facturas -> %s\n",
				len(result.Items), len(result.Summaries), cfg.Export.Out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&templateKey, "template", "t", "international", "template key for this batch")
	cmd.Flags().StringVar(&templatesFile, "templates-file", "", "TOML file with additional templates")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file path")
	cmd.Flags().StringVarP(&format, "format", "f", "", "export format: xlsx, csv or sqlite")
	cmd.Flags().StringVar(&provider, "provider", "", "model provider: ollama or openai")
	cmd.Flags().StringVar(&model, "model", "", "model identifier")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-page model timeout (max 600s)")
	cmd.Flags().IntVar(&dpi, "dpi", 0, "rasterization DPI")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	return cmd
}

// collectFiles expands the args into PDF paths: files are taken as-is,
// directories are walked one level deep.
func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			if constants.AllowedExt(filepath.Ext(arg)) {
				files = append(files, arg)
			}
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !constants.AllowedExt(filepath.Ext(e.Name())) {
				continue
			}
			files = append(files, filepath.Join(arg, e.Name()))
		}
	}
	return files, nil
}

func extFor(format string) string {
	switch format {
	case "csv":
		return "csv"
	case "sqlite":
		return "db"
	default:
		return "xlsx"
	}
}

func printDiagnostics(cmd *cobra.Command, result *pipeline.BatchResult) {
	for _, doc := range result.Documents {
		if doc.Err != nil {
			cmd.PrintErrf("Error %s: %v\n", doc.File, doc.Err)
		}
		for _, pe := range doc.PageErrors {
			cmd.PrintErrf("Error %s pág %d: %v\n", pe.File, pe.Page, pe.Err)
		}
	}
}

// progressReporter renders one bar per document as pages complete.
type progressReporter struct {
	file string
	bar  *progressbar.ProgressBar
}

func newProgressReporter() *progressReporter { return &progressReporter{} }

func (p *progressReporter) report(file string, done, total int) {
	if p.file != file {
		p.finish()
		p.file = file
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription(file),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("pages"),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	_ = p.bar.Set(done)
}

func (p *progressReporter) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

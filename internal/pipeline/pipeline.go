// Package pipeline drives the extraction adapter across all pages of a
// document and reconciles the per-page records into deduplicated output.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nexus-extract/invoice-pipeline/constants"
	"github.com/nexus-extract/invoice-pipeline/internal/llm"
	"github.com/nexus-extract/invoice-pipeline/internal/raster"
	"github.com/nexus-extract/invoice-pipeline/internal/templates"
)

// SummaryRow is one row per distinct (file, resolved invoice number) pair.
type SummaryRow struct {
	File     string
	Invoice  string
	Total    *float64
	Customer string
}

// PageError is a per-page extraction failure, attributed for diagnostics.
// It never aborts the document.
type PageError struct {
	File string
	Page int
	Err  error
}

// ProgressFunc is called after each page with the pages completed so far and
// the total. Purely observational.
type ProgressFunc func(file string, done, total int)

// Pipeline reconciles per-page model records. It owns the carry-over state
// for the duration of one document and discards it after.
type Pipeline struct {
	extractor llm.PageExtractor
	logger    *slog.Logger
	progress  ProgressFunc
}

func New(extractor llm.PageExtractor, logger *slog.Logger, progress ProgressFunc) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{extractor: extractor, logger: logger, progress: progress}
}

// ProcessDocument walks the pages strictly in order: page N's carry-over
// state feeds page N+1, so no concurrent extraction happens within one
// document. Per-page failures are collected, never fatal.
func (p *Pipeline) ProcessDocument(
	ctx context.Context,
	pages []raster.PageImage,
	fileName string,
	tmpl templates.Template,
) (summaries []SummaryRow, items []llm.LineItem, pageErrs []PageError, err error) {
	start := time.Now()
	lastInvoice := constants.UnknownInvoice

	for i, page := range pages {
		if cerr := ctx.Err(); cerr != nil {
			return summaries, items, pageErrs, cerr
		}

		rec, exErr := p.extractor.Extract(ctx, page.JPEG, tmpl.Instruction)
		if exErr != nil {
			p.logger.Error("pipeline.page.extract_error",
				"file", fileName, "page", page.Number, "error", exErr)
			pageErrs = append(pageErrs, PageError{File: fileName, Page: page.Number, Err: exErr})
			p.report(fileName, i+1, len(pages))
			continue
		}

		if rec.Empty() || constants.IsCopyDocument(rec.DocumentKind) {
			p.logger.Info("pipeline.page.skip_copy",
				"file", fileName, "page", page.Number, "document_kind", rec.DocumentKind)
			p.report(fileName, i+1, len(pages))
			continue
		}

		invoice := strings.TrimSpace(rec.InvoiceNumber)
		if constants.IsPlaceholderInvoice(invoice) {
			// continuation page: inherit from the most recent page that
			// carried a real number
			invoice = lastInvoice
		} else {
			lastInvoice = invoice
		}

		for _, item := range rec.Items {
			items = append(items, normalizeItem(item, invoice, fileName))
		}

		summaries = upsertSummary(summaries, SummaryRow{
			File:     fileName,
			Invoice:  invoice,
			Total:    rec.Total,
			Customer: rec.Customer,
		})

		p.report(fileName, i+1, len(pages))
	}

	p.logger.Info("pipeline.document.ok",
		"file", fileName,
		"pages", len(pages),
		"items", len(items),
		"summaries", len(summaries),
		"page_errors", len(pageErrs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return summaries, items, pageErrs, nil
}

func (p *Pipeline) report(file string, done, total int) {
	if p.progress != nil {
		p.progress(file, done, total)
	}
}

// normalizeItem injects provenance and fills the optional fields the model
// frequently omits. Every item that reaches the output carries non-empty
// provenance.
func normalizeItem(item llm.LineItem, invoice, fileName string) llm.LineItem {
	item.Model = strings.TrimSpace(item.Model)
	item.Description = strings.TrimSpace(item.Description)
	item.Origin = strings.TrimSpace(item.Origin)
	item.SourceInvoice = invoice
	item.SourceFile = fileName
	return item
}

// upsertSummary inserts a row keyed by (file, invoice) unless one already
// exists, or the invoice never resolved past the sentinel. Dedup is enforced
// at insertion time, scoped to this document's summary set.
func upsertSummary(rows []SummaryRow, row SummaryRow) []SummaryRow {
	if row.Invoice == constants.UnknownInvoice {
		return rows
	}
	for _, r := range rows {
		if r.File == row.File && r.Invoice == row.Invoice {
			return rows
		}
	}
	return append(rows, row)
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nexus-extract/invoice-pipeline/internal/llm"
	"github.com/nexus-extract/invoice-pipeline/internal/raster"
	"github.com/nexus-extract/invoice-pipeline/internal/templates"
)

// Rasterizer turns a staged file into an ordered, finite sequence of page
// images.
type Rasterizer interface {
	Convert(ctx context.Context, path string) ([]raster.PageImage, error)
}

// DocumentResult is the outcome of one document in the batch.
type DocumentResult struct {
	File       string
	Summaries  []SummaryRow
	Items      []llm.LineItem
	PageErrors []PageError
	Err        error // rasterization failure, document-scoped
}

// BatchResult accumulates across all documents. Items are concatenated in
// document order; no cross-document deduplication.
type BatchResult struct {
	Documents []DocumentResult
	Items     []llm.LineItem
	Summaries []SummaryRow
}

// Empty reports the "nothing to export" end state.
func (r *BatchResult) Empty() bool { return len(r.Items) == 0 }

// Batch drives the pipeline over a set of uploaded documents, one at a time.
type Batch struct {
	pipeline *Pipeline
	raster   Rasterizer
	logger   *slog.Logger
}

func NewBatch(p *Pipeline, r Rasterizer, logger *slog.Logger) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{pipeline: p, raster: r, logger: logger}
}

// Run processes every file under the single active template. Failures are
// document-scoped: a corrupt PDF is reported once on its DocumentResult and
// the rest of the batch still processes. Only cancellation stops the run.
func (b *Batch) Run(ctx context.Context, paths []string, tmpl templates.Template) (*BatchResult, error) {
	start := time.Now()
	result := &BatchResult{}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		doc := b.processOne(ctx, path, tmpl)
		if errors.Is(doc.Err, context.Canceled) || errors.Is(doc.Err, context.DeadlineExceeded) {
			result.Documents = append(result.Documents, doc)
			return result, doc.Err
		}
		result.Documents = append(result.Documents, doc)
		result.Items = append(result.Items, doc.Items...)
		result.Summaries = append(result.Summaries, doc.Summaries...)
	}

	b.logger.Info("batch.run.ok",
		"documents", len(result.Documents),
		"items", len(result.Items),
		"summaries", len(result.Summaries),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (b *Batch) processOne(ctx context.Context, path string, tmpl templates.Template) DocumentResult {
	fileName := filepath.Base(path)
	doc := DocumentResult{File: fileName}

	// Rasterization works on a temporary copy which is always removed
	// afterwards, error paths included.
	staged, cleanup, err := stageFile(path)
	if err != nil {
		doc.Err = fmt.Errorf("stage %s: %w", fileName, err)
		b.logger.Error("batch.document.stage_error", "file", fileName, "error", err)
		return doc
	}

	pages, err := b.raster.Convert(ctx, staged)
	cleanup()
	if err != nil {
		doc.Err = fmt.Errorf("rasterize %s: %w", fileName, err)
		b.logger.Error("batch.document.raster_error", "file", fileName, "error", err)
		return doc
	}

	doc.Summaries, doc.Items, doc.PageErrors, doc.Err = b.pipeline.ProcessDocument(ctx, pages, fileName, tmpl)
	return doc
}

// stageFile copies src into a temp file and returns its path plus a cleanup
// func. The cleanup is safe to call exactly once.
func stageFile(src string) (string, func(), error) {
	in, err := os.Open(src)
	if err != nil {
		return "", nil, err
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp("", "nexus-extract-*.pdf")
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", nil, err
	}

	name := tmp.Name()
	return name, func() { _ = os.Remove(name) }, nil
}

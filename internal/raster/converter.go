// Package raster converts invoice PDFs into ordered page images for the
// extraction pipeline.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"

	"github.com/nexus-extract/invoice-pipeline/internal/common"
)

// PageImage is one rasterized PDF page, JPEG-encoded. Ordering within a
// document is significant: page N is processed before page N+1.
type PageImage struct {
	Number int // 1-based
	JPEG   []byte
	Width  int
	Height int
}

// Config holds rasterization settings.
type Config struct {
	DPI      int // render resolution, default 200
	Quality  int // JPEG quality, default 85
	MaxEdge  int // downscale pages whose longest edge exceeds this, 0 = off
	MaxPages int // 0 = no limit
}

// Converter rasterizes PDFs with go-fitz.
type Converter struct {
	cfg    Config
	logger *slog.Logger
}

func NewConverter(cfg Config, logger *slog.Logger) *Converter {
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	if cfg.Quality <= 0 {
		cfg.Quality = 85
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{cfg: cfg, logger: logger}
}

// Convert renders every page of the PDF at path into a JPEG page image.
// A failure here is fatal to this document only, never to the batch.
func (c *Converter) Convert(ctx context.Context, path string) ([]PageImage, error) {
	start := time.Now()

	doc, err := fitz.New(path)
	if err != nil {
		return nil, common.NewAppError("RASTER_OPEN", fmt.Sprintf("open pdf %s", path), common.ErrRasterization)
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			c.logger.Warn("raster.close_error", "path", path, "error", cerr)
		}
	}()

	total := doc.NumPage()
	if total == 0 {
		return nil, common.NewAppError("RASTER_EMPTY", fmt.Sprintf("pdf %s has no pages", path), common.ErrRasterization)
	}
	if c.cfg.MaxPages > 0 && total > c.cfg.MaxPages {
		c.logger.Warn("raster.page_cap", "path", path, "pages", total, "cap", c.cfg.MaxPages)
		total = c.cfg.MaxPages
	}

	pages := make([]PageImage, 0, total)
	for n := 0; n < total; n++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(n, float64(c.cfg.DPI))
		if err != nil {
			return nil, common.NewAppError("RASTER_PAGE",
				fmt.Sprintf("render page %d of %s", n+1, path), common.ErrRasterization)
		}

		encoded, w, h, err := c.encode(img)
		if err != nil {
			return nil, common.NewAppError("RASTER_ENCODE",
				fmt.Sprintf("encode page %d of %s", n+1, path), common.ErrRasterization)
		}
		pages = append(pages, PageImage{Number: n + 1, JPEG: encoded, Width: w, Height: h})
	}

	c.logger.Info("raster.convert.ok",
		"path", path,
		"pages", len(pages),
		"dpi", c.cfg.DPI,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pages, nil
}

// encode downscales oversized pages and writes JPEG bytes. Bounding the edge
// keeps model payloads small without hurting table legibility.
func (c *Converter) encode(img image.Image) ([]byte, int, int, error) {
	if c.cfg.MaxEdge > 0 {
		b := img.Bounds()
		if b.Dx() > c.cfg.MaxEdge || b.Dy() > c.cfg.MaxEdge {
			img = imaging.Fit(img, c.cfg.MaxEdge, c.cfg.MaxEdge, imaging.Lanczos)
		}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(c.cfg.Quality)); err != nil {
		return nil, 0, 0, err
	}
	b := img.Bounds()
	return buf.Bytes(), b.Dx(), b.Dy(), nil
}

// Package export writes the accumulated line-item table to XLSX, CSV or a
// SQLite artifact.
package export

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite"

	"github.com/nexus-extract/invoice-pipeline/internal/llm"
	"github.com/nexus-extract/invoice-pipeline/internal/pipeline"
)

// itemHeaders is the column order of the output table. It mirrors the
// spreadsheet the tool has always produced.
var itemHeaders = []string{
	"modelo", "descripcion", "cantidad", "precio_unitario", "origen",
	"Factura_Origen", "Archivo_Origen",
}

var summaryHeaders = []string{"Archivo", "Factura", "Total", "Cliente"}

// Service turns batch results into export artifacts.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// WriteXLSX writes an Items sheet plus a Resumen sheet.
func (s *Service) WriteXLSX(items []llm.LineItem, summaries []pipeline.SummaryRow, path string) error {
	start := time.Now()

	f := excelize.NewFile()
	const itemSheet = "Items"
	const summarySheet = "Resumen"

	idx, err := f.NewSheet(itemSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	for i, h := range itemHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(itemSheet, cell, h)
	}
	for r, item := range items {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, r+2)
			_ = f.SetCellValue(itemSheet, cell, v)
		}
		write(1, item.Model)
		write(2, item.Description)
		write(3, item.Quantity)
		write(4, item.UnitPrice)
		write(5, item.Origin)
		write(6, item.SourceInvoice)
		write(7, item.SourceFile)
	}
	// wide description column, like the original report
	_ = f.SetColWidth(itemSheet, "B", "B", 50)
	_ = f.SetColWidth(itemSheet, "F", "G", 22)

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	for i, h := range summaryHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(summarySheet, cell, h)
	}
	for r, row := range summaries {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, r+2)
			_ = f.SetCellValue(summarySheet, cell, v)
		}
		write(1, row.File)
		write(2, row.Invoice)
		if row.Total != nil {
			write(3, *row.Total)
		}
		write(4, row.Customer)
	}

	// the default sheet excelize creates is not part of the report
	_ = f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"path", path,
		"items", len(items),
		"summaries", len(summaries),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// WriteCSV writes the item table as delimited text, one row per LineItem.
func (s *Service) WriteCSV(items []llm.LineItem, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(itemHeaders); err != nil {
		return err
	}
	for _, item := range items {
		rec := []string{
			item.Model,
			item.Description,
			strconv.FormatFloat(item.Quantity, 'f', -1, 64),
			strconv.FormatFloat(item.UnitPrice, 'f', -1, 64),
			item.Origin,
			item.SourceInvoice,
			item.SourceFile,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}

	s.logger.Info("export.csv.ok", "path", path, "items", len(items))
	return nil
}

// WriteSQLite writes items and summaries tables into a fresh database file.
// This is an export artifact like the spreadsheet, not a store the tool
// reads back.
func (s *Service) WriteSQLite(ctx context.Context, items []llm.LineItem, summaries []pipeline.SummaryRow, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("sqlite export: %s already exists", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("sqlite open: %w", err)
	}
	defer func() { _ = db.Close() }()

	const schema = `
CREATE TABLE items (
	modelo          TEXT NOT NULL,
	descripcion     TEXT NOT NULL,
	cantidad        REAL NOT NULL,
	precio_unitario REAL NOT NULL,
	origen          TEXT NOT NULL,
	factura_origen  TEXT NOT NULL,
	archivo_origen  TEXT NOT NULL
);
CREATE TABLE summaries (
	archivo TEXT NOT NULL,
	factura TEXT NOT NULL,
	total   REAL,
	cliente TEXT NOT NULL,
	UNIQUE (archivo, factura)
);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO items VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.Model, item.Description, item.Quantity, item.UnitPrice,
			item.Origin, item.SourceInvoice, item.SourceFile,
		); err != nil {
			return fmt.Errorf("sqlite insert item: %w", err)
		}
	}
	for _, row := range summaries {
		var total any
		if row.Total != nil {
			total = *row.Total
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO summaries VALUES (?, ?, ?, ?)`,
			row.File, row.Invoice, total, row.Customer,
		); err != nil {
			return fmt.Errorf("sqlite insert summary: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info("export.sqlite.ok", "path", path, "items", len(items), "summaries", len(summaries))
	return nil
}

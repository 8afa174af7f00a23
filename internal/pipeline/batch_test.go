package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-extract/invoice-pipeline/internal/common"
	"github.com/nexus-extract/invoice-pipeline/internal/llm"
	"github.com/nexus-extract/invoice-pipeline/internal/raster"
)

// fakeRasterizer fails for staged files whose content carries the failFor
// marker (the staged copy has a random name, so the path is useless here)
// and otherwise returns a fixed page count.
type fakeRasterizer struct {
	pagesPerDoc int
	failFor     string
	calls       int
}

func (f *fakeRasterizer) Convert(_ context.Context, path string) ([]raster.PageImage, error) {
	f.calls++
	if f.failFor != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if strings.Contains(string(data), f.failFor) {
			return nil, common.NewAppError("RASTER_OPEN", "open pdf "+path, common.ErrRasterization)
		}
	}
	return makePages(f.pagesPerDoc), nil
}

func writeTempPDF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 "+name), 0o644))
	return path
}

func TestBatchAccumulatesAcrossDocuments(t *testing.T) {
	dir := t.TempDir()
	fileA := writeTempPDF(t, dir, "a.pdf")
	fileB := writeTempPDF(t, dir, "b.pdf")

	fe := &fakeExtractor{steps: []pageStep{
		{rec: original("INV-100", llm.LineItem{Model: "A1"})},
		{rec: original("INV-100", llm.LineItem{Model: "B1"})},
	}}
	b := NewBatch(New(fe, nil, nil), &fakeRasterizer{pagesPerDoc: 1}, nil)

	result, err := b.Run(context.Background(), []string{fileA, fileB}, testTemplate)
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	assert.Equal(t, "a.pdf", result.Items[0].SourceFile)
	assert.Equal(t, "b.pdf", result.Items[1].SourceFile)

	// same invoice number in two files stays two summary rows: dedup never
	// merges across files
	require.Len(t, result.Summaries, 2)
	assert.False(t, result.Empty())
}

func TestBatchRasterizationFailureIsDocumentScoped(t *testing.T) {
	dir := t.TempDir()
	bad := writeTempPDF(t, dir, "corrupt.pdf")
	good := writeTempPDF(t, dir, "good.pdf")

	fe := &fakeExtractor{steps: []pageStep{
		{rec: original("INV-200", llm.LineItem{Model: "G1"})},
	}}
	b := NewBatch(New(fe, nil, nil), &fakeRasterizer{pagesPerDoc: 1, failFor: "corrupt"}, nil)

	result, err := b.Run(context.Background(), []string{bad, good}, testTemplate)
	require.NoError(t, err)

	require.Len(t, result.Documents, 2)
	require.Error(t, result.Documents[0].Err)
	assert.True(t, errors.Is(result.Documents[0].Err, common.ErrRasterization))
	assert.NoError(t, result.Documents[1].Err)

	require.Len(t, result.Items, 1)
	assert.Equal(t, "good.pdf", result.Items[0].SourceFile)
}

func TestBatchMissingFile(t *testing.T) {
	fe := &fakeExtractor{}
	b := NewBatch(New(fe, nil, nil), &fakeRasterizer{pagesPerDoc: 1}, nil)

	result, err := b.Run(context.Background(), []string{"/does/not/exist.pdf"}, testTemplate)
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	require.Error(t, result.Documents[0].Err)
	assert.True(t, result.Empty())
}

func TestBatchEmptyResultState(t *testing.T) {
	dir := t.TempDir()
	file := writeTempPDF(t, dir, "copies.pdf")

	fe := &fakeExtractor{steps: []pageStep{
		{rec: llm.InvoiceRecord{DocumentKind: "Copia", Items: []llm.LineItem{{Model: "M1"}}}},
	}}
	b := NewBatch(New(fe, nil, nil), &fakeRasterizer{pagesPerDoc: 1}, nil)

	result, err := b.Run(context.Background(), []string{file}, testTemplate)
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestBatchCancellation(t *testing.T) {
	dir := t.TempDir()
	file := writeTempPDF(t, dir, "a.pdf")

	fr := &fakeRasterizer{pagesPerDoc: 1}
	b := NewBatch(New(&fakeExtractor{}, nil, nil), fr, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Run(ctx, []string{file, file}, testTemplate)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fr.calls)
}

func TestStageFileCleanup(t *testing.T) {
	dir := t.TempDir()
	src := writeTempPDF(t, dir, "a.pdf")

	staged, cleanup, err := stageFile(src)
	require.NoError(t, err)
	require.FileExists(t, staged)

	data, err := os.ReadFile(staged)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 a.pdf", string(data))

	cleanup()
	assert.NoFileExists(t, staged)
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Adapter wraps a single model call: one page image plus one instruction in,
// a parsed InvoiceRecord or a classified failure out. It owns response
// cleaning and parse validation; it does NOT validate business-field
// completeness (that is the pipeline's normalization job).
type Adapter struct {
	transport Transport
	timeout   time.Duration
	schema    map[string]any
	logger    *slog.Logger
}

// NewAdapter builds an adapter around a transport. timeout bounds each model
// call; zero means 120s.
func NewAdapter(transport Transport, timeout time.Duration, logger *slog.Logger) *Adapter {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		transport: transport,
		timeout:   timeout,
		schema:    BuildInvoiceJSONSchema(),
		logger:    logger,
	}
}

// Extract sends one page image to the model and parses its answer.
// Errors are always one of the typed failure classes; nothing raises past
// this boundary.
func (a *Adapter) Extract(ctx context.Context, image []byte, instruction string) (InvoiceRecord, error) {
	rid := uuid.New().String()
	start := time.Now()

	a.logger.Info("llm.extract.start",
		"req_id", rid,
		"image_bytes", len(image),
		"timeout", a.timeout.String(),
	)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.transport.Send(ctx, image, instruction)
	if err != nil {
		kind := ErrTransport
		if errors.Is(err, context.DeadlineExceeded) {
			kind = ErrTimeout
		}
		a.logger.Error("llm.extract.transport_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return InvoiceRecord{}, fmt.Errorf("%w: %v", kind, err)
	}

	cleaned := StripFences(raw)
	rec, err := DecodeRecord(cleaned)
	if err != nil {
		a.logger.Error("llm.extract.parse_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return InvoiceRecord{}, err
	}

	// Advisory only: the schema catches drifting shapes early in the logs,
	// but a violation never fails a page that parsed.
	if vErr := ValidateJSONAgainstSchema(a.schema, []byte(cleaned)); vErr != nil {
		a.logger.Warn("llm.extract.schema_mismatch", "req_id", rid, "error", vErr)
	}

	a.logger.Info("llm.extract.ok",
		"req_id", rid,
		"document_kind", rec.DocumentKind,
		"invoice_number", rec.InvoiceNumber,
		"items", len(rec.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

package llm

import "context"

// LineItem is one line of an invoice. SourceInvoice and SourceFile are
// provenance fields injected by the pipeline, never by the model.
type LineItem struct {
	Model         string  `json:"modelo"`
	Description   string  `json:"descripcion"`
	Quantity      float64 `json:"cantidad"`
	UnitPrice     float64 `json:"precio_unitario"`
	Origin        string  `json:"origen"`
	SourceInvoice string  `json:"factura_origen,omitempty"`
	SourceFile    string  `json:"archivo_origen,omitempty"`
}

// InvoiceRecord is the normalized shape we want from the model for one page.
type InvoiceRecord struct {
	DocumentKind  string     `json:"tipo_documento"`
	InvoiceNumber string     `json:"numero_factura"`
	Date          string     `json:"fecha,omitempty"`
	PurchaseOrder string     `json:"orden_compra,omitempty"`
	Vendor        string     `json:"proveedor,omitempty"`
	Customer      string     `json:"cliente,omitempty"`
	Items         []LineItem `json:"items"`
	Total         *float64   `json:"total_factura,omitempty"`
}

// Empty reports whether the record carries nothing usable.
func (r InvoiceRecord) Empty() bool {
	return r.DocumentKind == "" && r.InvoiceNumber == "" && len(r.Items) == 0 && r.Total == nil
}

// Transport sends one page image plus an instruction to the model and
// returns its raw text response. Implementations own endpoint, auth and
// encoding details; latency bounds come from ctx.
type Transport interface {
	Send(ctx context.Context, image []byte, instruction string) (string, error)
}

// PageExtractor is the interface the pipeline depends on.
type PageExtractor interface {
	Extract(ctx context.Context, image []byte, instruction string) (InvoiceRecord, error)
}

package llm

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StripFences removes markdown code-fence wrapping from a model response.
// The model is known to wrap valid JSON in ``` or ```json fences despite
// instructions not to.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop an optional language tag on the fence line
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		first := strings.TrimSpace(s[:nl])
		if first == "" || strings.EqualFold(first, "json") {
			s = s[nl+1:]
		}
	} else {
		s = strings.TrimSpace(strings.TrimPrefix(s, "json"))
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// DecodeRecord parses cleaned model output into an InvoiceRecord. It is
// deliberately lenient: numbers may arrive as strings, optional keys may be
// missing, and unknown keys are ignored. Syntactic validity is all that is
// required here; business-field normalization happens in the pipeline.
func DecodeRecord(cleaned string) (InvoiceRecord, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(cleaned), &m); err != nil {
		// tolerate trailing prose around a single JSON object
		start := strings.IndexByte(cleaned, '{')
		end := strings.LastIndexByte(cleaned, '}')
		if start < 0 || end <= start {
			return InvoiceRecord{}, &MalformedResponseError{Raw: cleaned, Err: err}
		}
		if err2 := json.Unmarshal([]byte(cleaned[start:end+1]), &m); err2 != nil {
			return InvoiceRecord{}, &MalformedResponseError{Raw: cleaned, Err: err2}
		}
	}

	rec := InvoiceRecord{
		DocumentKind:  asString(m["tipo_documento"]),
		InvoiceNumber: asString(m["numero_factura"]),
		Date:          asString(m["fecha"]),
		PurchaseOrder: asString(m["orden_compra"]),
		Vendor:        asString(m["proveedor"]),
		Customer:      asString(m["cliente"]),
	}
	if f, ok := asFloat(m["total_factura"]); ok {
		rec.Total = &f
	}

	items, ok := m["items"].([]any)
	if !ok {
		return rec, nil
	}
	for _, it := range items {
		im, ok := it.(map[string]any)
		if !ok {
			continue
		}
		li := LineItem{
			Model:       asString(im["modelo"]),
			Description: asString(im["descripcion"]),
			Origin:      asString(im["origen"]),
		}
		if q, ok := asFloat(im["cantidad"]); ok {
			li.Quantity = q
		}
		if p, ok := asFloat(im["precio_unitario"]); ok {
			li.UnitPrice = p
		}
		rec.Items = append(rec.Items, li)
	}
	return rec, nil
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}

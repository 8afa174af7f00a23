package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map describing the page record shape. The two shape families the
// templates produce differ only in optional item keys, so "origen" stays
// optional and unknown keys are allowed.
func BuildInvoiceJSONSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"modelo":          map[string]any{"type": "string"},
			"descripcion":     map[string]any{"type": "string"},
			"cantidad":        numericProp(),
			"precio_unitario": numericProp(),
			"origen":          map[string]any{"type": "string"},
		},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tipo_documento": map[string]any{"type": "string"},
			"numero_factura": map[string]any{"type": []string{"string", "number", "null"}},
			"fecha":          map[string]any{"type": []string{"string", "null"}},
			"orden_compra":   map[string]any{"type": []string{"string", "null"}},
			"proveedor":      map[string]any{"type": []string{"string", "null"}},
			"cliente":        map[string]any{"type": []string{"string", "null"}},
			"items":          map[string]any{"type": "array", "items": item},
			"total_factura":  map[string]any{"type": []string{"number", "string", "null"}},
		},
	}
}

func numericProp() map[string]any {
	// the model emits numbers or numeric strings interchangeably
	return map[string]any{"type": []string{"number", "string"}}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := BuildInvoiceJSONSchema()

	// shape family with origen
	err := ValidateJSONAgainstSchema(schema, []byte(`{
		"tipo_documento": "Original",
		"numero_factura": "INV-100",
		"items": [{"modelo": "M1", "cantidad": 2, "precio_unitario": 5.0, "origen": "Brazil"}],
		"total_factura": 10.0
	}`))
	assert.NoError(t, err)

	// shape family without origen, numeric strings
	err = ValidateJSONAgainstSchema(schema, []byte(`{
		"tipo_documento": "Original",
		"numero_factura": 12345,
		"items": [{"modelo": "M1", "cantidad": "2", "precio_unitario": "5.00"}],
		"total_factura": "10.00"
	}`))
	assert.NoError(t, err)

	// unknown keys are tolerated
	err = ValidateJSONAgainstSchema(schema, []byte(`{
		"tipo_documento": "Original",
		"items": [{"modelo": "M1", "total_linea": 10.0}]
	}`))
	assert.NoError(t, err)

	// structurally wrong shapes are flagged
	err = ValidateJSONAgainstSchema(schema, []byte(`{"items": {"modelo": "M1"}}`))
	require.Error(t, err)

	err = ValidateJSONAgainstSchema(schema, []byte(`{"tipo_documento": 5}`))
	require.Error(t, err)
}

package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	plain := `{"tipo_documento": "Original"}`

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", plain, plain},
		{"bare fences", "```\n" + plain + "\n```", plain},
		{"json tag", "```json\n" + plain + "\n```", plain},
		{"json tag uppercase", "```JSON\n" + plain + "\n```", plain},
		{"single line", "```json " + plain + "```", plain},
		{"surrounding whitespace", "  \n```json\n" + plain + "\n```\n  ", plain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestDecodeRecord_FullShape(t *testing.T) {
	rec, err := DecodeRecord(`{
		"tipo_documento": "Original",
		"numero_factura": "INV-100",
		"fecha": "2024-06-01",
		"orden_compra": "PO-7",
		"proveedor": "Goodyear",
		"cliente": "Importadora XYZ",
		"items": [
			{"modelo": "M1", "descripcion": "Tire", "cantidad": 2, "precio_unitario": 5.0, "origen": "Brazil"}
		],
		"total_factura": 10.0
	}`)
	require.NoError(t, err)

	assert.Equal(t, "Original", rec.DocumentKind)
	assert.Equal(t, "INV-100", rec.InvoiceNumber)
	assert.Equal(t, "2024-06-01", rec.Date)
	assert.Equal(t, "PO-7", rec.PurchaseOrder)
	assert.Equal(t, "Goodyear", rec.Vendor)
	assert.Equal(t, "Importadora XYZ", rec.Customer)
	require.NotNil(t, rec.Total)
	assert.Equal(t, 10.0, *rec.Total)
	require.Len(t, rec.Items, 1)
	assert.Equal(t, "M1", rec.Items[0].Model)
	assert.Equal(t, 2.0, rec.Items[0].Quantity)
	assert.Equal(t, 5.0, rec.Items[0].UnitPrice)
	assert.Equal(t, "Brazil", rec.Items[0].Origin)
}

func TestDecodeRecord_OmittedOptionalFields(t *testing.T) {
	// the model frequently omits fields rather than emitting nulls
	rec, err := DecodeRecord(`{
		"tipo_documento": "Original",
		"numero_factura": "INV-200",
		"items": [{"modelo": "M2"}]
	}`)
	require.NoError(t, err)

	require.Len(t, rec.Items, 1)
	assert.Equal(t, "", rec.Items[0].Description)
	assert.Equal(t, "", rec.Items[0].Origin)
	assert.Equal(t, 0.0, rec.Items[0].Quantity)
	assert.Equal(t, 0.0, rec.Items[0].UnitPrice)
	assert.Nil(t, rec.Total)
}

func TestDecodeRecord_NumbersAsStrings(t *testing.T) {
	rec, err := DecodeRecord(`{
		"numero_factura": 12345,
		"items": [{"modelo": "M3", "cantidad": "4", "precio_unitario": "2.50"}],
		"total_factura": "10.00"
	}`)
	require.NoError(t, err)

	assert.Equal(t, "12345", rec.InvoiceNumber)
	require.Len(t, rec.Items, 1)
	assert.Equal(t, 4.0, rec.Items[0].Quantity)
	assert.Equal(t, 2.5, rec.Items[0].UnitPrice)
	require.NotNil(t, rec.Total)
	assert.Equal(t, 10.0, *rec.Total)
}

func TestDecodeRecord_ItemsNotAList(t *testing.T) {
	rec, err := DecodeRecord(`{"tipo_documento": "Original", "items": "ninguno"}`)
	require.NoError(t, err)
	assert.Empty(t, rec.Items)
}

func TestDecodeRecord_TrailingProse(t *testing.T) {
	rec, err := DecodeRecord(`Here is the extracted data: {"tipo_documento": "Original", "numero_factura": "INV-300"} I hope this helps!`)
	require.NoError(t, err)
	assert.Equal(t, "INV-300", rec.InvoiceNumber)
}

func TestDecodeRecord_Malformed(t *testing.T) {
	_, err := DecodeRecord(`not json at all`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))

	var merr *MalformedResponseError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "not json at all", merr.Raw)
}

func TestDecodeRecord_FencedEqualsUnfenced(t *testing.T) {
	body := `{"tipo_documento": "Original", "numero_factura": "INV-400", "items": [{"modelo": "M4", "cantidad": 1, "precio_unitario": 3.0}]}`

	plain, err := DecodeRecord(StripFences(body))
	require.NoError(t, err)
	fenced, err := DecodeRecord(StripFences("```json\n" + body + "\n```"))
	require.NoError(t, err)

	assert.Equal(t, plain, fenced)
}

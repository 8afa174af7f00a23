// Package templates holds the per-document-type extraction instructions.
// Exactly one template is active per batch run.
package templates

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Template binds an immutable instruction string to a named document-type key.
type Template struct {
	Key         string `toml:"key"`
	Name        string `toml:"name"`
	Instruction string `toml:"instruction"`
}

type templateFile struct {
	Templates []Template `toml:"template"`
}

const jsonShapeHint = `Responde SOLAMENTE con un JSON válido:
{"tipo_documento": "Original/Copia", "numero_factura": "Invoice #", "fecha": "YYYY-MM-DD", "orden_compra": "PO #", "proveedor": "Vendor Name", "cliente": "Sold To", "items": [{"modelo": "Model No", "descripcion": "Description", "cantidad": 0, "precio_unitario": 0.00, "origen": ""}], "total_factura": 0.00}`

// builtin is the fixed template set shipped with the tool.
var builtin = []Template{
	{
		Key:  "international",
		Name: "Factura Internacional (Regal/General)",
		Instruction: `Analiza la imagen de la factura.
REGLA DE FILTRADO:
1. Si el documento dice explícitamente "Duplicado" o "Copia", marca "tipo_documento" como "Copia" y deja "items" vacío.
2. Si dice "Original" o no especifica, extrae todo.
` + jsonShapeHint,
	},
	{
		Key:  "radioshack",
		Name: "Factura RadioShack",
		Instruction: `Analiza esta factura de RadioShack. Extrae datos en JSON. Usa SKU como modelo.
` + jsonShapeHint,
	},
	{
		Key:  "mabe",
		Name: "Factura Mabe",
		Instruction: `Analiza esta factura de Mabe. Extrae datos en JSON. Usa CODIGO MABE como modelo.
` + jsonShapeHint,
	},
	{
		Key:  "goodyear",
		Name: "Factura Goodyear",
		Instruction: `Analiza esta factura de Goodyear.
INSTRUCCIONES:
1. NÚMERO DE FACTURA: Busca "INVOICE NUMBER". Si no aparece, usa "CONTINUACION".
2. TABLA DE ITEMS:
   - Code -> modelo
   - Description -> descripcion
   - Qty -> cantidad
   - Unit Value -> precio_unitario
   - Origin -> origen (Busca columnas "Origin", "Orig", "Ctry". Si no hay, déjalo vacío "").
` + jsonShapeHint,
	},
}

// Registry resolves template keys to templates.
type Registry struct {
	byKey map[string]Template
}

// NewRegistry returns a registry with the built-in templates. If path is
// non-empty, templates from that TOML file are merged in; a user template
// with an existing key overrides the built-in one.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{byKey: make(map[string]Template, len(builtin))}
	for _, t := range builtin {
		r.byKey[t.Key] = t
	}
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates file: %w", err)
	}
	var tf templateFile
	if err := toml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse templates file: %w", err)
	}
	for _, t := range tf.Templates {
		if err := validate(t); err != nil {
			return nil, fmt.Errorf("template %q: %w", t.Key, err)
		}
		t.Key = strings.ToLower(strings.TrimSpace(t.Key))
		r.byKey[t.Key] = t
	}
	return r, nil
}

// Get looks up a template by key.
func (r *Registry) Get(key string) (Template, bool) {
	t, ok := r.byKey[strings.ToLower(strings.TrimSpace(key))]
	return t, ok
}

// List returns all templates sorted by key.
func (r *Registry) List() []Template {
	out := make([]Template, 0, len(r.byKey))
	for _, t := range r.byKey {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func validate(t Template) error {
	if strings.TrimSpace(t.Key) == "" {
		return fmt.Errorf("key is required")
	}
	if strings.TrimSpace(t.Instruction) == "" {
		return fmt.Errorf("instruction is required")
	}
	return nil
}

package boundary

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// structuredAnalysisSchema pins the shape of the structured_analysis
// sub-document. The projection engine only ever reads these fields, so
// rejecting malformed documents at the boundary is what keeps the engine free
// of prose parsing and field guessing.
func structuredAnalysisSchema() map[string]any {
	number := map[string]any{"type": "number"}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recommendation": map[string]any{"type": "string"},
			"action":         map[string]any{"type": "string"},
			"confidence": map[string]any{
				"type":    "number",
				"minimum": 0,
				"maximum": 1,
			},
			"price_levels": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"entry":  number,
					"target": number,
					"stop":   number,
				},
				"additionalProperties": false,
			},
			"trade_parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbol": map[string]any{"type": "string"},
					"side": map[string]any{
						"type": "string",
						"enum": []any{"BUY", "SELL"},
					},
					"instrument_type": map[string]any{
						"type": "string",
						"enum": []any{"equity", "option"},
					},
					"quantity":   number,
					"contracts":  number,
					"price":      number,
					"strike":     number,
					"expiration": map[string]any{"type": "string"},
					"option_type": map[string]any{
						"type": "string",
						"enum": []any{"call", "put"},
					},
					"strategy": map[string]any{"type": "string"},
				},
				"additionalProperties": false,
			},
		},
		"additionalProperties": false,
	}
}

// Validator checks structured_analysis documents against the fixed schema.
type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	raw, err := json.Marshal(structuredAnalysisSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	if err := compiler.AddResource("structured_analysis.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile("structured_analysis.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks a raw structured_analysis document. Nil documents pass;
// producers are not required to send one.
func (v *Validator) Validate(raw json.RawMessage) error {
	if v == nil || len(raw) == 0 {
		return nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("structured_analysis is not valid JSON: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("structured_analysis rejected: %w", err)
	}
	return nil
}

package dashboard

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ConfigValidator checks a form payload against the schema carried by a definition.
type ConfigValidator interface {
	Validate(def WidgetDefinition, payload map[string]any) error
}

// FieldError is one rejected form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors lists every field a payload failed on, sorted by field name.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		if fe.Field == "" {
			parts[i] = fe.Message
			continue
		}
		parts[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(parts, "; ")
}

// JSONSchemaValidator validates payloads with jsonschema v5. Schemas are
// compiled once per definition code.
type JSONSchemaValidator struct {
	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{compiled: map[string]*jsonschema.Schema{}}
}

// Validate returns FieldErrors when payload violates the schema of def.
// Definitions without a schema accept anything.
func (v *JSONSchemaValidator) Validate(def WidgetDefinition, payload map[string]any) error {
	if len(def.Schema) == 0 {
		return nil
	}
	schema, err := v.schema(def)
	if err != nil {
		return err
	}
	doc, err := jsonDocument(payload)
	if err != nil {
		return fmt.Errorf("dashboard: %s payload: %w", def.Code, err)
	}
	err = schema.Validate(doc)
	if verr, ok := err.(*jsonschema.ValidationError); ok {
		return fieldErrors(verr)
	}
	return err
}

// jsonDocument converts payload into the generic form jsonschema expects
// (float64 numbers, map[string]any objects).
func jsonDocument(payload map[string]any) (any, error) {
	if payload == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var doc any
	err = json.Unmarshal(raw, &doc)
	return doc, err
}

func fieldErrors(verr *jsonschema.ValidationError) FieldErrors {
	var out FieldErrors
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, FieldError{
				Field:   strings.TrimPrefix(e.InstanceLocation, "/"),
				Message: e.Message,
			})
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(verr)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func (v *JSONSchemaValidator) schema(def WidgetDefinition) (*jsonschema.Schema, error) {
	v.mu.RLock()
	cached := v.compiled[def.Code]
	v.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	raw, err := json.Marshal(def.Schema)
	if err != nil {
		return nil, fmt.Errorf("dashboard: encode schema %s: %w", def.Code, err)
	}
	compiled, err := jsonschema.CompileString(def.Code+".schema.json", string(raw))
	if err != nil {
		return nil, fmt.Errorf("dashboard: compile schema %s: %w", def.Code, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if existing := v.compiled[def.Code]; existing != nil {
		return existing, nil
	}
	v.compiled[def.Code] = compiled
	return compiled, nil
}

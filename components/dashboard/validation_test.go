package dashboard

import (
	"strings"
	"testing"
)

func TestSettingsSchemaBounds(t *testing.T) {
	validator := NewJSONSchemaValidator()
	def := SettingsDefinition()

	valid := map[string]any{"extra_cost_pct": 12.5, "lead_time_days": 14}
	if err := validator.Validate(def, valid); err != nil {
		t.Fatalf("expected valid settings, got %v", err)
	}
	cases := map[string]map[string]any{
		"negative":     {"extra_cost_pct": -1},
		"too large":    {"lead_time_days": 366},
		"wrong type":   {"slow_mover_min_speed": "fast"},
		"unknown name": {"discount": 5},
	}
	for name, payload := range cases {
		if err := validator.Validate(def, payload); err == nil {
			t.Fatalf("%s: expected validation error for %v", name, payload)
		}
	}
}

func TestJSONSchemaValidatorCachesCompiledSchemas(t *testing.T) {
	validator := NewJSONSchemaValidator()
	def := SettingsDefinition()
	if err := validator.Validate(def, nil); err != nil {
		t.Fatalf("unexpected error validating empty settings: %v", err)
	}
	if err := validator.Validate(def, map[string]any{"extra_cost_pct": 1}); err != nil {
		t.Fatalf("unexpected error on cached validation: %v", err)
	}
	if len(validator.compiled) != 1 {
		t.Fatalf("expected schema cache to contain 1 entry, got %d", len(validator.compiled))
	}
}

func TestValidatorSkipsDefinitionsWithoutSchema(t *testing.T) {
	validator := NewJSONSchemaValidator()
	if err := validator.Validate(WidgetDefinition{Code: InsightBreakeven.WidgetCode()}, map[string]any{"x": 1}); err != nil {
		t.Fatalf("expected schemaless definition to pass, got %v", err)
	}
}

func TestValidatorReportsFailingFields(t *testing.T) {
	validator := NewJSONSchemaValidator()
	err := validator.Validate(SettingsDefinition(), map[string]any{
		"lead_time_days": 900,
		"extra_cost_pct": -3,
	})
	fields, ok := err.(FieldErrors)
	if !ok {
		t.Fatalf("expected FieldErrors, got %T (%v)", err, err)
	}
	if len(fields) != 2 || fields[0].Field != "extra_cost_pct" || fields[1].Field != "lead_time_days" {
		t.Fatalf("unexpected field errors: %+v", fields)
	}
	if !strings.Contains(err.Error(), "lead_time_days: ") {
		t.Fatalf("expected field name in message, got %q", err.Error())
	}
}

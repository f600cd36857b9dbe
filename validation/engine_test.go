package validation

import (
	"testing"

	"github.com/marcelom97/scimprobe/model"
	"github.com/marcelom97/scimprobe/scim"
)

func TestResolvePath(t *testing.T) {
	doc := map[string]any{
		"name": map[string]any{
			"familyName": "Smith",
		},
		"emails": []any{
			map[string]any{"value": "a@example.com"},
			map[string]any{"value": "b@example.com"},
		},
	}

	tests := []struct {
		path string
		want any
		ok   bool
	}{
		{"name.familyName", "Smith", true},
		{"emails[0].value", "a@example.com", true},
		{"emails[1].value", "b@example.com", true},
		{"emails[2].value", nil, false},
		{"missing.path", nil, false},
	}

	for _, tt := range tests {
		got, ok := ResolvePath(doc, tt.path)
		if ok != tt.ok {
			t.Errorf("ResolvePath(%q) ok = %v, want %v", tt.path, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ResolvePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestCheckFormat(t *testing.T) {
	pattern := `^\d{3}$`
	tests := []struct {
		name    string
		format  model.FieldFormat
		value   any
		pattern *string
		wantErr bool
	}{
		{"email valid", model.FormatEmail, "a@example.com", nil, false},
		{"email invalid", model.FormatEmail, "not-an-email", nil, true},
		{"uri valid", model.FormatURI, "https://example.com", nil, false},
		{"uri invalid", model.FormatURI, "example.com", nil, true},
		{"phone valid", model.FormatPhone, "+1-555-0101", nil, false},
		{"phone invalid", model.FormatPhone, "x", nil, true},
		{"boolean valid bool", model.FormatBoolean, true, nil, false},
		{"boolean valid string", model.FormatBoolean, "false", nil, false},
		{"boolean invalid", model.FormatBoolean, "maybe", nil, true},
		{"integer valid float", model.FormatInteger, float64(42), nil, false},
		{"integer invalid float", model.FormatInteger, 3.14, nil, true},
		{"datetime valid", model.FormatDateTime, "2024-01-01T00:00:00Z", nil, false},
		{"datetime invalid", model.FormatDateTime, "not-a-date", nil, true},
		{"regex valid", model.FormatRegex, "123", &pattern, false},
		{"regex no pattern", model.FormatRegex, "123", nil, true},
		{"none always passes", model.FormatNone, nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkFormat(tt.format, tt.value, tt.pattern)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkFormat(%v, %v) error = %v, wantErr %v", tt.format, tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestComputeSummary(t *testing.T) {
	skippedReason := "Skipped: prerequisite failed"
	failReason := "boom"
	results := []model.ValidationResult{
		{Category: "a", Passed: true},
		{Category: "a", Passed: false, FailureReason: &failReason},
		{Category: "b", Passed: false, FailureReason: &skippedReason},
		{Category: "b", Passed: true},
	}

	summary := computeSummary(results, []string{"a", "b"})
	if summary.Total != 4 {
		t.Fatalf("Total = %d, want 4", summary.Total)
	}
	if summary.Passed != 2 {
		t.Fatalf("Passed = %d, want 2", summary.Passed)
	}
	if summary.Skipped != 1 {
		t.Fatalf("Skipped = %d, want 1", summary.Skipped)
	}
	if summary.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", summary.Failed)
	}
	wantScore := 100 * 2.0 / 3.0
	if summary.ComplianceScore != wantScore {
		t.Fatalf("ComplianceScore = %v, want %v", summary.ComplianceScore, wantScore)
	}
	if len(summary.Categories) != 2 {
		t.Fatalf("len(Categories) = %d, want 2", len(summary.Categories))
	}
}

func TestComputeSummaryEmptyDenominator(t *testing.T) {
	skippedReason := "Skipped: none ran"
	results := []model.ValidationResult{
		{Category: "a", Passed: false, FailureReason: &skippedReason},
	}
	summary := computeSummary(results, []string{"a"})
	if summary.ComplianceScore != 0 {
		t.Fatalf("ComplianceScore = %v, want 0 when every test is skipped", summary.ComplianceScore)
	}
}

func TestTestCount(t *testing.T) {
	if got := testCount("schema_discovery", nil, 0); got != 3 {
		t.Errorf("schema_discovery count = %d, want 3", got)
	}
	if got := testCount("field_mapping", nil, 0); got != 1 {
		t.Errorf("field_mapping count with no rules = %d, want 1", got)
	}
	if got := testCount("field_mapping", nil, 5); got != 5 {
		t.Errorf("field_mapping count with rules = %d, want 5", got)
	}
	if got := testCount("custom_schema", nil, 0); got != 1 {
		t.Errorf("custom_schema count with none discovered = %d, want 1", got)
	}

	attrs := []scim.DiscoveredAttribute{
		{SchemaURN: "urn:example:ext", AttrName: "isManager", AttrType: "boolean"},
		{SchemaURN: "urn:example:ext", AttrName: "department", AttrType: "string"},
	}
	if got := testCount("custom_schema", attrs, 0); got != 3 {
		t.Errorf("custom_schema count = %d, want 3 (2 for boolean + 1 for string)", got)
	}
}

package models

import "strings"

// Field type names as produced by the template parser.
const (
	FieldTypeText       = "text"
	FieldTypeDepartment = "department"
	FieldTypeOption     = "option"
	FieldTypeNumber     = "number"
	FieldTypeDate       = "date"
)

// FormField is one flattened template field: its display name, declared
// type and raw value.
type FormField struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// FormData maps field name to field. The template_* approver strategies
// read from it; they never see the raw widget JSON.
type FormData map[string]FormField

// Text returns the trimmed text value of a field, empty when absent.
func (f FormData) Text(name string) string {
	field, ok := f[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(field.Value)
}

// Checked reports whether an option field counts as checked against an
// expected value: exact match, a checkmark glyph, or any non-empty value
// when no expected value is configured.
func (f FormData) Checked(name, expected string) bool {
	value := f.Text(name)
	if value == "" {
		return false
	}
	if expected == "" {
		return true
	}
	if value == expected {
		return true
	}
	return strings.Contains(value, "☑") || strings.Contains(value, "✓")
}

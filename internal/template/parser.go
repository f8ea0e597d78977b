package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/anquanyun/safety-approval/internal/models"
)

// Parser flattens the widget-style form JSON stored on a record into the
// field map the approver strategies read. Records carry their form data
// verbatim from the template editor; only this package understands its
// layout.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a form parser.
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// widget is the wire form of one template field.
type widget struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// Parse turns raw form JSON into FormData keyed by field name. Three
// layouts are accepted: a widget array, an object wrapping a widget array
// under "form" (possibly as a nested JSON string), and a flat key/value
// object. An empty document yields an empty map.
func (p *Parser) Parse(jsonData string) (models.FormData, error) {
	form := models.FormData{}
	trimmed := strings.TrimSpace(jsonData)
	if trimmed == "" || trimmed == "{}" || trimmed == "[]" {
		return form, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var widgets []widget
		if err := json.Unmarshal([]byte(trimmed), &widgets); err != nil {
			return nil, fmt.Errorf("failed to parse form widgets: %w", err)
		}
		p.addWidgets(form, widgets)
		return form, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse form JSON: %w", err)
	}

	if inner, ok := raw["form"]; ok {
		widgets, err := p.decodeFormValue(inner)
		if err != nil {
			return nil, err
		}
		p.addWidgets(form, widgets)
		return form, nil
	}

	// Flat object: every key is a text field.
	for key, value := range raw {
		var v interface{}
		if err := json.Unmarshal(value, &v); err != nil {
			continue
		}
		form[key] = models.FormField{Name: key, Type: models.FieldTypeText, Value: stringify(v)}
	}
	return form, nil
}

// decodeFormValue handles "form" carried either as a widget array or as a
// JSON string containing one.
func (p *Parser) decodeFormValue(raw json.RawMessage) ([]widget, error) {
	var widgets []widget
	if err := json.Unmarshal(raw, &widgets); err == nil {
		return widgets, nil
	}

	var nested string
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("unrecognized form payload")
	}
	if err := json.Unmarshal([]byte(nested), &widgets); err != nil {
		return nil, fmt.Errorf("failed to parse nested form JSON: %w", err)
	}
	return widgets, nil
}

func (p *Parser) addWidgets(form models.FormData, widgets []widget) {
	for _, w := range widgets {
		name := w.Name
		if name == "" {
			name = w.ID
		}
		if name == "" {
			continue
		}
		form[name] = models.FormField{
			Name:  name,
			Type:  mapFieldType(w.Type),
			Value: stringify(w.Value),
		}
	}

	p.logger.Debug("Parsed form fields", zap.Int("count", len(form)))
}

// mapFieldType normalizes template widget types to the small set the
// resolver cares about.
func mapFieldType(widgetType string) string {
	switch strings.ToLower(widgetType) {
	case "department", "departmentselect", "contact_department":
		return models.FieldTypeDepartment
	case "checkbox", "radio", "radiov2", "option", "select":
		return models.FieldTypeOption
	case "number", "amount":
		return models.FieldTypeNumber
	case "date", "datetime":
		return models.FieldTypeDate
	default:
		return models.FieldTypeText
	}
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case bool:
		if val {
			return "true"
		}
		return ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ",")
	case map[string]interface{}:
		if text, ok := val["text"].(string); ok {
			return strings.TrimSpace(text)
		}
		if inner, ok := val["value"]; ok {
			return stringify(inner)
		}
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

package activities

import (
	"fmt"
	"math"
	"time"

	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
)

// ValidateFields checks a template's field schema: unique keys, known types,
// and choices present exactly where the type demands them.
func ValidateFields(fields []TemplateField) error {
	if len(fields) == 0 {
		return httpx.NewFieldError("fields", "a template needs at least one field")
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Key == "" {
			return httpx.NewFieldError("fields", "field keys must not be empty")
		}
		if _, dup := seen[f.Key]; dup {
			return httpx.NewFieldError("fields", fmt.Sprintf("duplicate field key %q", f.Key))
		}
		seen[f.Key] = struct{}{}

		switch f.Type {
		case FieldMCQ, FieldCheckbox:
			if len(f.Choices) == 0 {
				return httpx.NewFieldError("fields", fmt.Sprintf("field %q needs choices", f.Key))
			}
		case FieldText, FieldParagraph, FieldInteger, FieldDecimal, FieldDate:
			if len(f.Choices) > 0 {
				return httpx.NewFieldError("fields", fmt.Sprintf("field %q does not take choices", f.Key))
			}
		default:
			return httpx.NewFieldError("fields", fmt.Sprintf("field %q has unknown type %q", f.Key, f.Type))
		}
	}
	return nil
}

// ValidateResponses checks submitted responses against a field schema:
// required fields present, values matching the declared type, and choice
// membership for mcq/checkbox. Keys outside the schema are rejected.
func ValidateResponses(fields []TemplateField, responses map[string]any) error {
	byKey := make(map[string]TemplateField, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
	}

	for key := range responses {
		if _, known := byKey[key]; !known {
			return httpx.NewFieldError(key, "not part of the template")
		}
	}

	for _, f := range fields {
		value, present := responses[f.Key]
		if !present || value == nil {
			if f.Required {
				return httpx.NewFieldError(f.Key, "this field is required")
			}
			continue
		}
		if err := validateValue(f, value); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(f TemplateField, value any) error {
	switch f.Type {
	case FieldText, FieldParagraph:
		if _, ok := value.(string); !ok {
			return httpx.NewFieldError(f.Key, "expected text")
		}
	case FieldMCQ:
		s, ok := value.(string)
		if !ok || !contains(f.Choices, s) {
			return httpx.NewFieldError(f.Key, "expected one of the listed choices")
		}
	case FieldCheckbox:
		items, ok := value.([]any)
		if !ok {
			return httpx.NewFieldError(f.Key, "expected a list of choices")
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok || !contains(f.Choices, s) {
				return httpx.NewFieldError(f.Key, "expected only listed choices")
			}
		}
	case FieldInteger:
		// JSON numbers decode as float64.
		n, ok := value.(float64)
		if !ok || n != math.Trunc(n) {
			return httpx.NewFieldError(f.Key, "expected a whole number")
		}
	case FieldDecimal:
		if _, ok := value.(float64); !ok {
			return httpx.NewFieldError(f.Key, "expected a number")
		}
	case FieldDate:
		s, ok := value.(string)
		if !ok {
			return httpx.NewFieldError(f.Key, "expected a date")
		}
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return httpx.NewFieldError(f.Key, "expected a date in YYYY-MM-DD form")
		}
	}
	return nil
}

func contains(choices []string, s string) bool {
	for _, c := range choices {
		if c == s {
			return true
		}
	}
	return false
}

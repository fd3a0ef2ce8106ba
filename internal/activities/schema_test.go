package activities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
)

func surveyFields() []TemplateField {
	return []TemplateField{
		{Key: "summary", Label: "Summary", Type: FieldText, Required: true},
		{Key: "details", Label: "Details", Type: FieldParagraph},
		{Key: "venue", Label: "Venue", Type: FieldMCQ, Required: true, Choices: []string{"campus", "online"}},
		{Key: "days", Label: "Days", Type: FieldCheckbox, Choices: []string{"mon", "wed", "fri"}},
		{Key: "attendees", Label: "Attendees", Type: FieldInteger},
		{Key: "budget", Label: "Budget", Type: FieldDecimal},
		{Key: "held_on", Label: "Held On", Type: FieldDate},
	}
}

func fieldErrOn(t *testing.T, err error, key string) {
	t.Helper()
	var fieldErr *httpx.FieldError
	require.True(t, errors.As(err, &fieldErr), "expected field error, got %v", err)
	require.Equal(t, key, fieldErr.Field)
}

func TestValidateFields(t *testing.T) {
	require.NoError(t, ValidateFields(surveyFields()))

	fieldErrOn(t, ValidateFields(nil), "fields")

	dup := surveyFields()
	dup[1].Key = "summary"
	fieldErrOn(t, ValidateFields(dup), "fields")

	noChoices := []TemplateField{{Key: "q", Label: "Q", Type: FieldMCQ}}
	fieldErrOn(t, ValidateFields(noChoices), "fields")

	strayChoices := []TemplateField{{Key: "q", Label: "Q", Type: FieldText, Choices: []string{"a"}}}
	fieldErrOn(t, ValidateFields(strayChoices), "fields")

	unknown := []TemplateField{{Key: "q", Label: "Q", Type: FieldType("rating")}}
	fieldErrOn(t, ValidateFields(unknown), "fields")
}

func TestValidateResponses(t *testing.T) {
	fields := surveyFields()

	t.Run("complete valid submission", func(t *testing.T) {
		err := ValidateResponses(fields, map[string]any{
			"summary":   "Orientation day",
			"details":   "Welcome for the new cohort.",
			"venue":     "campus",
			"days":      []any{"mon", "fri"},
			"attendees": float64(120),
			"budget":    1500.75,
			"held_on":   "2025-09-01",
		})
		require.NoError(t, err)
	})

	t.Run("missing required", func(t *testing.T) {
		err := ValidateResponses(fields, map[string]any{"summary": "x"})
		fieldErrOn(t, err, "venue")
	})

	t.Run("optional may be absent", func(t *testing.T) {
		err := ValidateResponses(fields, map[string]any{"summary": "x", "venue": "online"})
		require.NoError(t, err)
	})

	t.Run("unknown key rejected", func(t *testing.T) {
		err := ValidateResponses(fields, map[string]any{"summary": "x", "venue": "online", "extra": 1})
		fieldErrOn(t, err, "extra")
	})

	t.Run("mcq outside choices", func(t *testing.T) {
		err := ValidateResponses(fields, map[string]any{"summary": "x", "venue": "moon"})
		fieldErrOn(t, err, "venue")
	})

	t.Run("checkbox outside choices", func(t *testing.T) {
		err := ValidateResponses(fields, map[string]any{
			"summary": "x", "venue": "campus", "days": []any{"mon", "sun"},
		})
		fieldErrOn(t, err, "days")
	})

	t.Run("integer rejects fraction", func(t *testing.T) {
		err := ValidateResponses(fields, map[string]any{
			"summary": "x", "venue": "campus", "attendees": 12.5,
		})
		fieldErrOn(t, err, "attendees")
	})

	t.Run("date format", func(t *testing.T) {
		err := ValidateResponses(fields, map[string]any{
			"summary": "x", "venue": "campus", "held_on": "01/09/2025",
		})
		fieldErrOn(t, err, "held_on")
	})

	t.Run("wrong type for text", func(t *testing.T) {
		err := ValidateResponses(fields, map[string]any{"summary": float64(3), "venue": "campus"})
		fieldErrOn(t, err, "summary")
	})
}

// Package activities manages activity templates and the activities filled in
// against them. A template declares a typed field schema; an activity stores
// responses validated against that schema.
package activities

import "time"

// FieldType enumerates the response types a template field may declare.
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldParagraph FieldType = "paragraph"
	FieldMCQ       FieldType = "mcq"
	FieldCheckbox  FieldType = "checkbox"
	FieldInteger   FieldType = "integer"
	FieldDecimal   FieldType = "decimal"
	FieldDate      FieldType = "date"
)

// TemplateField is one entry of a template's field schema.
type TemplateField struct {
	Key      string    `json:"key" validate:"required,max=64"`
	Label    string    `json:"label" validate:"required,max=255"`
	Type     FieldType `json:"type" validate:"required"`
	Required bool      `json:"required"`
	// Choices constrain mcq and checkbox responses; unused otherwise.
	Choices []string `json:"choices,omitempty"`
}

// ActivityTemplate declares a reusable activity form.
type ActivityTemplate struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	FacultyID   *int64          `json:"faculty_id"`
	Fields      []TemplateField `json:"fields"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// EntityID implements crud.Entity.
func (t ActivityTemplate) EntityID() int64 { return t.ID }

// Activity is a filled-in template. The faculty affiliation is optional; an
// unaffiliated activity is reachable only by wide tiers and its author.
type Activity struct {
	ID         int64          `json:"id"`
	TemplateID int64          `json:"template_id"`
	Title      string         `json:"title"`
	AuthorID   int64          `json:"author_id"`
	FacultyID  *int64         `json:"faculty_id"`
	Responses  map[string]any `json:"responses"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// EntityID implements crud.Entity.
func (a Activity) EntityID() int64 { return a.ID }

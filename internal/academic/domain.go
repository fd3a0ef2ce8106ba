// Package academic manages courses, student classes, and teaching schedules.
package academic

import "time"

// Course is a taught subject, optionally affiliated to a faculty and program.
type Course struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Credits   int       `json:"credits"`
	FacultyID *int64    `json:"faculty_id"`
	ProgramID *int64    `json:"program_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityID implements crud.Entity.
func (c Course) EntityID() int64 { return c.ID }

// Class is a cohort of students, optionally affiliated to a faculty and
// program. Membership is many-to-many.
type Class struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	FacultyID  *int64    `json:"faculty_id"`
	ProgramID  *int64    `json:"program_id"`
	StudentIDs []int64   `json:"student_ids"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EntityID implements crud.Entity.
func (c Class) EntityID() int64 { return c.ID }

// Schedule assigns a professor to teach a course to a class in a weekly slot.
// It carries no affiliation columns of its own; visibility scoping reaches
// the course's affiliation through a join.
type Schedule struct {
	ID          int64     `json:"id"`
	CourseID    int64     `json:"course_id"`
	ClassID     int64     `json:"class_id"`
	ProfessorID int64     `json:"professor_id"`
	Weekday     int       `json:"weekday"`
	StartsAt    string    `json:"starts_at"`
	EndsAt      string    `json:"ends_at"`
	Room        string    `json:"room"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EntityID implements crud.Entity.
func (s Schedule) EntityID() int64 { return s.ID }

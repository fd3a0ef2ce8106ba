// Package organization manages the faculty/program reference data and
// enforces the affiliation invariants between them.
package organization

import "time"

// Faculty is the top-level organizational unit.
type Faculty struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Program belongs to exactly one faculty.
type Program struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	FacultyID int64     `json:"faculty_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

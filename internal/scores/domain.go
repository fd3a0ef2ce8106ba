// Package scores manages graded results per student and schedule, including
// the transactional bulk submission professors use after an exam.
package scores

import "time"

// Score is one graded component for a student in a scheduled course.
type Score struct {
	ID         int64     `json:"id"`
	ScheduleID int64     `json:"schedule_id"`
	StudentID  int64     `json:"student_id"`
	Component  string    `json:"component"`
	Value      float64   `json:"value"`
	GradedBy   int64     `json:"graded_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EntityID implements crud.Entity.
func (s Score) EntityID() int64 { return s.ID }

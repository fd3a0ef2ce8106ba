package academic

import (
	"context"

	"github.com/atlas-ums/atlas-ums/internal/crud"
	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
	"github.com/atlas-ums/atlas-ums/internal/rls"
)

// AffiliationChecker validates a faculty/program pair before a write commits.
type AffiliationChecker interface {
	CheckAffiliation(ctx context.Context, facultyID, programID *int64) error
}

// CourseForm carries the mutable fields of a course. Affiliation is absent
// on purpose: it is stamped from the session selection, never submitted.
type CourseForm struct {
	Name    string `json:"name" validate:"required,max=255"`
	Code    string `json:"code" validate:"required,max=32"`
	Credits int    `json:"credits" validate:"gte=0,lte=60"`
}

// ClassForm carries the mutable fields of a class.
type ClassForm struct {
	Name       string  `json:"name" validate:"required,max=255"`
	StudentIDs []int64 `json:"student_ids"`
}

// ScheduleForm carries the mutable fields of a schedule.
type ScheduleForm struct {
	CourseID    int64  `json:"course_id" validate:"required,gt=0"`
	ClassID     int64  `json:"class_id" validate:"required,gt=0"`
	ProfessorID int64  `json:"professor_id" validate:"required,gt=0"`
	Weekday     int    `json:"weekday" validate:"gte=0,lte=6"`
	StartsAt    string `json:"starts_at" validate:"required,datetime=15:04"`
	EndsAt      string `json:"ends_at" validate:"required,datetime=15:04"`
	Room        string `json:"room" validate:"max=64"`
}

func bindCourse(affiliations AffiliationChecker) crud.Binder[Course, CourseForm] {
	return func(ctx context.Context, d rls.Decision, form CourseForm, existing *Course) (Course, error) {
		c := Course{
			Name:    form.Name,
			Code:    form.Code,
			Credits: form.Credits,
		}
		if existing != nil {
			c.ID = existing.ID
		}
		crud.InjectOrg(rls.OrgContextFromContext(ctx), &c.FacultyID, &c.ProgramID)
		if err := affiliations.CheckAffiliation(ctx, c.FacultyID, c.ProgramID); err != nil {
			return Course{}, err
		}
		return c, nil
	}
}

func bindClass(affiliations AffiliationChecker) crud.Binder[Class, ClassForm] {
	return func(ctx context.Context, d rls.Decision, form ClassForm, existing *Class) (Class, error) {
		c := Class{
			Name:       form.Name,
			StudentIDs: form.StudentIDs,
		}
		if existing != nil {
			c.ID = existing.ID
		}
		crud.InjectOrg(rls.OrgContextFromContext(ctx), &c.FacultyID, &c.ProgramID)
		if err := affiliations.CheckAffiliation(ctx, c.FacultyID, c.ProgramID); err != nil {
			return Class{}, err
		}
		return c, nil
	}
}

func bindSchedule() crud.Binder[Schedule, ScheduleForm] {
	return func(ctx context.Context, d rls.Decision, form ScheduleForm, existing *Schedule) (Schedule, error) {
		if form.EndsAt <= form.StartsAt {
			return Schedule{}, httpx.NewFieldError("ends_at", "the slot must end after it starts")
		}
		s := Schedule{
			CourseID:    form.CourseID,
			ClassID:     form.ClassID,
			ProfessorID: form.ProfessorID,
			Weekday:     form.Weekday,
			StartsAt:    form.StartsAt,
			EndsAt:      form.EndsAt,
			Room:        form.Room,
		}
		if existing != nil {
			s.ID = existing.ID
		}
		return s, nil
	}
}

package academic

import (
	"fmt"

	"github.com/atlas-ums/atlas-ums/internal/rls"
)

// Scopes holds the registered visibility scopes of the academic models.
type Scopes struct {
	Course   rls.Scope
	Class    rls.Scope
	Schedule rls.Scope
}

// RegisterScopes declares the academic models in the registry. Courses and
// classes carry direct affiliation columns. Schedules scope through the
// course join and fall back to an owner predicate matching the teaching
// professor or an enrolled student of the class.
func RegisterScopes(reg *rls.Registry) Scopes {
	return Scopes{
		Course: reg.MustRegister(rls.Scope{
			Model:         "academic.course",
			Table:         "courses",
			FacultyColumn: "courses.faculty_id",
			ProgramColumn: "courses.program_id",
		}),
		Class: reg.MustRegister(rls.Scope{
			Model:         "academic.class",
			Table:         "classes",
			FacultyColumn: "classes.faculty_id",
			ProgramColumn: "classes.program_id",
		}),
		Schedule: reg.MustRegister(rls.Scope{
			Model:         "academic.schedule",
			Table:         "schedules",
			FacultyColumn: "c.faculty_id",
			ProgramColumn: "c.program_id",
			Owner:         scheduleOwner,
		}),
	}
}

func scheduleOwner(userID int64, next int) (string, []any) {
	clause := fmt.Sprintf(
		"(schedules.professor_id = $%d OR EXISTS (SELECT 1 FROM class_students cs WHERE cs.class_id = schedules.class_id AND cs.student_id = $%d))",
		next, next)
	return clause, []any{userID}
}

package organization

import (
	"strings"

	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
)

// ValidateEntityAffiliation enforces the entity invariant: when an entity
// carries both a faculty and a program, the program must belong to that
// faculty. A missing side is not a violation.
func ValidateEntityAffiliation(facultyID *int64, program *Program) error {
	if facultyID == nil || program == nil {
		return nil
	}
	if program.FacultyID != *facultyID {
		return httpx.NewFieldError("program", "the selected program does not belong to the assigned faculty")
	}
	return nil
}

// ValidateUserAffiliations enforces the user invariant: every faculty
// reachable from the user's assigned programs must be among the user's
// assigned faculties. programFaculties are the distinct owning faculties of
// the assigned programs; the violation names the missing ones.
//
// This runs at form/service level because many-to-many assignments are not
// observable on the entity before its first save.
func ValidateUserAffiliations(assignedFacultyIDs []int64, programFaculties []Faculty) error {
	assigned := make(map[int64]struct{}, len(assignedFacultyIDs))
	for _, id := range assignedFacultyIDs {
		assigned[id] = struct{}{}
	}

	var missing []string
	for _, f := range programFaculties {
		if _, ok := assigned[f.ID]; !ok {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return httpx.NewFieldError("programs",
			"the selected programs belong to faculties outside the assigned faculties: "+strings.Join(missing, ", "))
	}
	return nil
}

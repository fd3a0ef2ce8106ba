package rls

import "fmt"

// Clause renders the visibility predicate for the decision as a SQL
// condition, with argument placeholders starting at $next. Repositories
// append it to list, export, point-lookup, and bulk-delete queries alike.
func (d Decision) Clause(next int) (string, []any) {
	switch d.Tier {
	case TierAll:
		return "TRUE", nil
	case TierFaculty:
		return fmt.Sprintf("%s = $%d", d.scope.FacultyColumn, next), []any{d.FacultyID}
	case TierProgram:
		return fmt.Sprintf("%s = $%d", d.scope.ProgramColumn, next), []any{d.ProgramID}
	case TierOwner:
		return d.scope.Owner(d.UserID, next)
	default:
		return "FALSE", nil
	}
}

package users

import (
	"fmt"

	"github.com/atlas-ums/atlas-ums/internal/rls"
)

// User visibility cannot go through the column-based resolver: affiliations
// live in join tables, so the tiers render as EXISTS subqueries instead of
// column predicates. The tier order matches the resolver exactly; the one
// deliberate difference is that a scoped tier with no selection narrows to
// unaffiliated accounts rather than to nothing, so administrators can always
// reach users who have not been placed anywhere yet.

// VisibilityClause renders the SQL predicate limiting which user rows the
// principal may see. next is the first free placeholder number.
func VisibilityClause(p rls.Principal, org rls.OrgContext, next int) (string, []any) {
	if !p.IsAuthenticated() {
		return "FALSE", nil
	}
	if p.Superuser || p.HasPerm(rls.PermAccessGlobal) {
		return "TRUE", nil
	}
	if p.HasPerm(rls.PermAccessFacultyWide) {
		if org.FacultyID == nil {
			return "NOT EXISTS (SELECT 1 FROM user_faculties uf WHERE uf.user_id = users.id)", nil
		}
		return fmt.Sprintf(
			"EXISTS (SELECT 1 FROM user_faculties uf WHERE uf.user_id = users.id AND uf.faculty_id = $%d)", next),
			[]any{*org.FacultyID}
	}
	if p.HasPerm(rls.PermAccessProgramWide) {
		if org.ProgramID == nil {
			return "NOT EXISTS (SELECT 1 FROM user_programs up WHERE up.user_id = users.id)", nil
		}
		return fmt.Sprintf(
			"EXISTS (SELECT 1 FROM user_programs up WHERE up.user_id = users.id AND up.program_id = $%d)", next),
			[]any{*org.ProgramID}
	}
	return fmt.Sprintf("users.id = $%d", next), []any{p.UserID}
}

// Package orgcontext manages the session-selected organizational context:
// the "current faculty" and "current program" that scope RLS-filtered reads
// and are injected into writes.
package orgcontext

import (
	"strconv"

	"github.com/atlas-ums/atlas-ums/internal/rls"
	"github.com/atlas-ums/atlas-ums/internal/shared"
)

// Session keys holding the selection. Values are either a decimal id or the
// literal sentinel "None"; an absent key reads the same as the sentinel.
const (
	SessionKeyFaculty = "selected_faculty"
	SessionKeyProgram = "selected_program"

	sentinelNone = "None"
)

// FromSession builds the organizational context from session state.
func FromSession(sess *shared.Session) rls.OrgContext {
	if sess == nil {
		return rls.OrgContext{}
	}
	return rls.OrgContext{
		FacultyID: parseSelection(sess.Get(SessionKeyFaculty)),
		ProgramID: parseSelection(sess.Get(SessionKeyProgram)),
	}
}

func parseSelection(raw string) *int64 {
	if raw == "" || raw == sentinelNone {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func storeSelection(sess *shared.Session, key string, id *int64) {
	if id == nil {
		sess.Set(key, sentinelNone)
		return
	}
	sess.Set(key, strconv.FormatInt(*id, 10))
}

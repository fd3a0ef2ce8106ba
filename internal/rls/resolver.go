package rls

// Decision is a resolved access tier together with the values the predicate
// needs: the scoping faculty/program id or the owner's user id.
type Decision struct {
	Tier      Tier
	UserID    int64
	FacultyID int64
	ProgramID int64

	scope Scope
}

// Resolve determines the access tier for a principal against a model scope,
// in strict precedence order: superuser, global, faculty-wide, program-wide,
// owner, deny. It is deterministic and reads nothing beyond its arguments.
//
// A scoped tier whose session context is unset resolves to TierNone: holding
// faculty-wide access with no faculty selected sees an empty collection.
func Resolve(p Principal, s Scope, org OrgContext) Decision {
	d := Decision{UserID: p.UserID, scope: s}

	switch {
	case p.Superuser:
		d.Tier = TierAll
	case p.HasPerm(PermAccessGlobal):
		d.Tier = TierAll
	case p.HasPerm(PermAccessFacultyWide) && s.HasFaculty():
		if org.FacultyID == nil {
			d.Tier = TierNone
			break
		}
		d.Tier = TierFaculty
		d.FacultyID = *org.FacultyID
	case p.HasPerm(PermAccessProgramWide) && s.HasProgram():
		if org.ProgramID == nil {
			d.Tier = TierNone
			break
		}
		d.Tier = TierProgram
		d.ProgramID = *org.ProgramID
	case s.OwnerScoped() && p.IsAuthenticated():
		d.Tier = TierOwner
	default:
		d.Tier = TierNone
	}

	return d
}

// Visible reports whether the decision can match any row at all.
func (d Decision) Visible() bool {
	return d.Tier != TierNone
}

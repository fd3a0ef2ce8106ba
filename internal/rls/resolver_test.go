package rls

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func courseScope() Scope {
	return Scope{
		Model:         "academic.course",
		Table:         "courses",
		FacultyColumn: "courses.faculty_id",
		ProgramColumn: "courses.program_id",
	}
}

func ownerOnlyScope() Scope {
	return Scope{
		Model: "activities.activity",
		Table: "activities",
		Owner: func(userID int64, next int) (string, []any) {
			return "activities.author_id = $1", []any{userID}
		},
	}
}

func TestResolveSuperuserAlwaysAll(t *testing.T) {
	p := NewPrincipal(7, true, nil, nil, nil)
	for _, org := range []OrgContext{{}, {FacultyID: ptr(1)}, {FacultyID: ptr(1), ProgramID: ptr(2)}} {
		d := Resolve(p, courseScope(), org)
		require.Equal(t, TierAll, d.Tier)
	}
}

func TestResolveGlobalPermission(t *testing.T) {
	p := NewPrincipal(7, false, []string{PermAccessGlobal}, nil, nil)
	d := Resolve(p, courseScope(), OrgContext{})
	require.Equal(t, TierAll, d.Tier)
}

func TestResolveFacultyWide(t *testing.T) {
	p := NewPrincipal(7, false, []string{PermAccessFacultyWide}, []int64{3}, nil)

	d := Resolve(p, courseScope(), OrgContext{FacultyID: ptr(3)})
	require.Equal(t, TierFaculty, d.Tier)
	require.EqualValues(t, 3, d.FacultyID)
}

func TestResolveFacultyWideUnsetContextDenies(t *testing.T) {
	// Scoped tier with no faculty selected sees nothing.
	p := NewPrincipal(7, false, []string{PermAccessFacultyWide}, []int64{3}, nil)
	d := Resolve(p, courseScope(), OrgContext{})
	require.Equal(t, TierNone, d.Tier)
	require.False(t, d.Visible())
}

func TestResolveProgramWide(t *testing.T) {
	p := NewPrincipal(7, false, []string{PermAccessProgramWide}, nil, []int64{9})

	d := Resolve(p, courseScope(), OrgContext{ProgramID: ptr(9)})
	require.Equal(t, TierProgram, d.Tier)
	require.EqualValues(t, 9, d.ProgramID)

	d = Resolve(p, courseScope(), OrgContext{})
	require.Equal(t, TierNone, d.Tier)
}

func TestResolveFacultyWideBeatsProgramWide(t *testing.T) {
	p := NewPrincipal(7, false, []string{PermAccessFacultyWide, PermAccessProgramWide}, nil, nil)

	d := Resolve(p, courseScope(), OrgContext{FacultyID: ptr(1), ProgramID: ptr(2)})
	require.Equal(t, TierFaculty, d.Tier)

	// Without a faculty affiliation on the model, the program tier applies.
	scope := Scope{Model: "x.y", Table: "ys", ProgramColumn: "ys.program_id"}
	d = Resolve(p, scope, OrgContext{FacultyID: ptr(1), ProgramID: ptr(2)})
	require.Equal(t, TierProgram, d.Tier)
}

func TestResolveOwnerFallback(t *testing.T) {
	p := NewPrincipal(7, false, nil, nil, nil)
	d := Resolve(p, ownerOnlyScope(), OrgContext{})
	require.Equal(t, TierOwner, d.Tier)
	require.EqualValues(t, 7, d.UserID)
}

func TestResolveAnonymousDenied(t *testing.T) {
	d := Resolve(Anonymous(), ownerOnlyScope(), OrgContext{})
	require.Equal(t, TierNone, d.Tier)

	d = Resolve(Anonymous(), courseScope(), OrgContext{FacultyID: ptr(1)})
	require.Equal(t, TierNone, d.Tier)
}

func TestResolveDefaultDeny(t *testing.T) {
	// Permission without a matching affiliation and no owner predicate.
	p := NewPrincipal(7, false, []string{PermAccessProgramWide}, nil, nil)
	scope := Scope{Model: "org.faculty", Table: "faculties", FacultyColumn: "faculties.id"}
	d := Resolve(p, scope, OrgContext{ProgramID: ptr(2)})
	require.Equal(t, TierNone, d.Tier)
}

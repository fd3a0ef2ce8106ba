package orgcontext_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-ums/atlas-ums/internal/orgcontext"
	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
	"github.com/atlas-ums/atlas-ums/internal/rls"
	"github.com/atlas-ums/atlas-ums/internal/shared"
)

type stubDirectory struct {
	faculties []orgcontext.FacultyRef
	programs  []orgcontext.ProgramRef
}

func (d *stubDirectory) ProgramsUnderFaculty(ctx context.Context, facultyID int64) ([]orgcontext.ProgramRef, error) {
	var out []orgcontext.ProgramRef
	for _, p := range d.programs {
		if p.FacultyID == facultyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (d *stubDirectory) Faculties(ctx context.Context, ids []int64) ([]orgcontext.FacultyRef, error) {
	if ids == nil {
		return d.faculties, nil
	}
	var out []orgcontext.FacultyRef
	for _, f := range d.faculties {
		for _, id := range ids {
			if f.ID == id {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

func (d *stubDirectory) Programs(ctx context.Context, facultyIDs []int64) ([]orgcontext.ProgramRef, error) {
	if facultyIDs == nil {
		return d.programs, nil
	}
	var out []orgcontext.ProgramRef
	for _, p := range d.programs {
		for _, id := range facultyIDs {
			if p.FacultyID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func engineeringDirectory() *stubDirectory {
	return &stubDirectory{
		faculties: []orgcontext.FacultyRef{
			{ID: 1, Name: "Engineering"},
			{ID: 2, Name: "Business"},
		},
		programs: []orgcontext.ProgramRef{
			{ID: 10, FacultyID: 1, Name: "CS"},
			{ID: 11, FacultyID: 1, Name: "EE"},
			{ID: 20, FacultyID: 2, Name: "Finance"},
		},
	}
}

func TestSelectFacultyCascadesIntoProgram(t *testing.T) {
	svc := orgcontext.NewService(engineeringDirectory(), nil)
	sess := &shared.Session{}
	p := rls.NewPrincipal(7, false, []string{rls.PermAccessFacultyWide}, []int64{1}, []int64{10, 11})

	require.NoError(t, svc.SelectFaculty(context.Background(), p, sess, "1"))

	org := orgcontext.FromSession(sess)
	require.NotNil(t, org.FacultyID)
	require.EqualValues(t, 1, *org.FacultyID)
	require.NotNil(t, org.ProgramID)
	require.EqualValues(t, 10, *org.ProgramID)
}

func TestSelectFacultyWithoutAuthorizedProgramsClearsProgram(t *testing.T) {
	svc := orgcontext.NewService(engineeringDirectory(), nil)
	sess := &shared.Session{}
	sess.Set("selected_program", "20")
	// Assigned to Engineering, but to none of its programs.
	p := rls.NewPrincipal(7, false, nil, []int64{1}, []int64{20})

	require.NoError(t, svc.SelectFaculty(context.Background(), p, sess, "1"))

	org := orgcontext.FromSession(sess)
	require.EqualValues(t, 1, *org.FacultyID)
	require.Nil(t, org.ProgramID)
}

func TestSelectFacultyGlobalUserPicksFirstProgram(t *testing.T) {
	svc := orgcontext.NewService(engineeringDirectory(), nil)
	sess := &shared.Session{}
	p := rls.NewPrincipal(7, false, []string{rls.PermAccessGlobal}, nil, nil)

	require.NoError(t, svc.SelectFaculty(context.Background(), p, sess, "2"))

	org := orgcontext.FromSession(sess)
	require.EqualValues(t, 2, *org.FacultyID)
	require.EqualValues(t, 20, *org.ProgramID)
}

func TestSelectFacultyUnauthorizedLeavesSessionUnchanged(t *testing.T) {
	svc := orgcontext.NewService(engineeringDirectory(), nil)
	sess := &shared.Session{}
	sess.Set("selected_faculty", "1")
	sess.Set("selected_program", "10")
	p := rls.NewPrincipal(7, false, nil, []int64{1}, []int64{10})

	err := svc.SelectFaculty(context.Background(), p, sess, "2")
	require.ErrorIs(t, err, httpx.ErrForbidden)

	org := orgcontext.FromSession(sess)
	require.EqualValues(t, 1, *org.FacultyID)
	require.EqualValues(t, 10, *org.ProgramID)
}

func TestSelectFacultyEmptyClearsBoth(t *testing.T) {
	svc := orgcontext.NewService(engineeringDirectory(), nil)
	sess := &shared.Session{}
	sess.Set("selected_faculty", "1")
	sess.Set("selected_program", "10")
	p := rls.NewPrincipal(7, false, nil, []int64{1}, []int64{10})

	require.NoError(t, svc.SelectFaculty(context.Background(), p, sess, ""))

	org := orgcontext.FromSession(sess)
	require.Nil(t, org.FacultyID)
	require.Nil(t, org.ProgramID)
}

func TestSelectFacultyRejectsNonInteger(t *testing.T) {
	svc := orgcontext.NewService(engineeringDirectory(), nil)
	sess := &shared.Session{}
	p := rls.NewPrincipal(7, false, []string{rls.PermAccessGlobal}, nil, nil)

	err := svc.SelectFaculty(context.Background(), p, sess, "abc")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestSelectProgramDoesNotTouchFaculty(t *testing.T) {
	svc := orgcontext.NewService(engineeringDirectory(), nil)
	sess := &shared.Session{}
	sess.Set("selected_faculty", "1")
	p := rls.NewPrincipal(7, false, nil, []int64{1}, []int64{11})

	require.NoError(t, svc.SelectProgram(context.Background(), p, sess, "11"))

	org := orgcontext.FromSession(sess)
	require.EqualValues(t, 1, *org.FacultyID)
	require.EqualValues(t, 11, *org.ProgramID)
}

func TestSelectProgramFacultyWideMaySelectAny(t *testing.T) {
	svc := orgcontext.NewService(engineeringDirectory(), nil)
	sess := &shared.Session{}
	p := rls.NewPrincipal(7, false, []string{rls.PermAccessFacultyWide}, []int64{1}, nil)

	require.NoError(t, svc.SelectProgram(context.Background(), p, sess, "20"))
	org := orgcontext.FromSession(sess)
	require.EqualValues(t, 20, *org.ProgramID)
}

func TestSelectProgramUnauthorized(t *testing.T) {
	svc := orgcontext.NewService(engineeringDirectory(), nil)
	sess := &shared.Session{}
	p := rls.NewPrincipal(7, false, nil, []int64{1}, []int64{10})

	err := svc.SelectProgram(context.Background(), p, sess, "20")
	require.ErrorIs(t, err, httpx.ErrForbidden)
	require.Nil(t, orgcontext.FromSession(sess).ProgramID)
}

func TestFromSessionSentinelAndAbsence(t *testing.T) {
	sess := &shared.Session{}
	require.Nil(t, orgcontext.FromSession(sess).FacultyID)

	sess.Set("selected_faculty", "None")
	require.Nil(t, orgcontext.FromSession(sess).FacultyID)

	sess.Set("selected_faculty", "3")
	org := orgcontext.FromSession(sess)
	require.EqualValues(t, 3, *org.FacultyID)
}

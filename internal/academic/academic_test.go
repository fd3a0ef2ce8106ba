package academic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
	"github.com/atlas-ums/atlas-ums/internal/rls"
)

func TestDedupName(t *testing.T) {
	taken := func(names ...string) map[string]struct{} {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		return set
	}

	require.Equal(t, "CS 2025", DedupName("CS 2025", taken()))
	require.Equal(t, "CS 2025 (2)", DedupName("CS 2025", taken("CS 2025")))
	require.Equal(t, "CS 2025 (3)", DedupName("CS 2025", taken("CS 2025", "CS 2025 (2)")))
	require.Equal(t, "CS 2025 (2)", DedupName("CS 2025", taken("CS 2025", "CS 2025 (3)")))
}

func TestClassNameCollisionScopedToAffiliation(t *testing.T) {
	// Names are only deduplicated against classes of the same faculty and
	// program; a "CS 2025" in another program must not force a suffix here.
	require.Contains(t, classNameCollisionQuery, "faculty_id IS NOT DISTINCT FROM $3")
	require.Contains(t, classNameCollisionQuery, "program_id IS NOT DISTINCT FROM $4")
	require.Contains(t, classNameCollisionQuery, "id <> $2")
}

func TestRegisterScopes(t *testing.T) {
	reg := rls.NewRegistry()
	scopes := RegisterScopes(reg)

	require.True(t, scopes.Course.HasFaculty())
	require.True(t, scopes.Course.HasProgram())
	require.False(t, scopes.Course.OwnerScoped())

	require.True(t, scopes.Schedule.OwnerScoped())
	clause, args := scopes.Schedule.Owner(42, 3)
	require.Contains(t, clause, "schedules.professor_id = $3")
	require.Contains(t, clause, "class_students")
	require.Equal(t, []any{int64(42)}, args)

	for _, model := range []string{"academic.course", "academic.class", "academic.schedule"} {
		_, ok := reg.Scope(model)
		require.True(t, ok, model)
	}
}

type allowAll struct{}

func (allowAll) CheckAffiliation(ctx context.Context, facultyID, programID *int64) error {
	return nil
}

type denyAll struct{}

func (denyAll) CheckAffiliation(ctx context.Context, facultyID, programID *int64) error {
	return httpx.NewFieldError("program", "the selected program does not belong to the assigned faculty")
}

func TestBindCourseStampsSessionSelection(t *testing.T) {
	reg := rls.NewRegistry()
	scopes := RegisterScopes(reg)

	p := rls.NewPrincipal(7, false, []string{rls.PermAccessFacultyWide}, []int64{1}, nil)
	selected := int64(1)
	org := rls.OrgContext{FacultyID: &selected}
	d := rls.Resolve(p, scopes.Course, org)
	require.Equal(t, rls.TierFaculty, d.Tier)

	ctx := rls.WithOrgContext(context.Background(), org)
	c, err := bindCourse(allowAll{})(ctx, d, CourseForm{
		Name: "Algorithms", Code: "CS201", Credits: 6,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, c.FacultyID)
	require.Equal(t, int64(1), *c.FacultyID)
	require.Nil(t, c.ProgramID)
}

func TestBindCourseWithoutSelectionIsUnaffiliated(t *testing.T) {
	reg := rls.NewRegistry()
	scopes := RegisterScopes(reg)

	p := rls.NewPrincipal(7, true, nil, nil, nil)
	d := rls.Resolve(p, scopes.Course, rls.OrgContext{})
	require.Equal(t, rls.TierAll, d.Tier)

	c, err := bindCourse(allowAll{})(context.Background(), d, CourseForm{
		Name: "Algorithms", Code: "CS201", Credits: 6,
	}, nil)
	require.NoError(t, err)
	require.Nil(t, c.FacultyID)
	require.Nil(t, c.ProgramID)
}

func TestBindCourseRejectsBadAffiliation(t *testing.T) {
	reg := rls.NewRegistry()
	scopes := RegisterScopes(reg)
	d := rls.Resolve(rls.NewPrincipal(1, true, nil, nil, nil), scopes.Course, rls.OrgContext{})

	_, err := bindCourse(denyAll{})(context.Background(), d, CourseForm{Name: "Algorithms", Code: "CS201"}, nil)
	var fieldErr *httpx.FieldError
	require.True(t, errors.As(err, &fieldErr))
	require.Equal(t, "program", fieldErr.Field)
}

func TestBindScheduleSlotOrder(t *testing.T) {
	d := rls.Decision{}
	_, err := bindSchedule()(context.Background(), d, ScheduleForm{
		CourseID: 1, ClassID: 1, ProfessorID: 1, Weekday: 2, StartsAt: "10:00", EndsAt: "09:00",
	}, nil)
	var fieldErr *httpx.FieldError
	require.True(t, errors.As(err, &fieldErr))
	require.Equal(t, "ends_at", fieldErr.Field)

	s, err := bindSchedule()(context.Background(), d, ScheduleForm{
		CourseID: 1, ClassID: 1, ProfessorID: 1, Weekday: 2, StartsAt: "09:00", EndsAt: "10:30",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "09:00", s.StartsAt)
}

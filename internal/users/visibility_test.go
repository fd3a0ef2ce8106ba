package users

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-ums/atlas-ums/internal/rls"
)

func ptr(v int64) *int64 { return &v }

func TestVisibilityClause(t *testing.T) {
	t.Run("anonymous sees nothing", func(t *testing.T) {
		clause, args := VisibilityClause(rls.Anonymous(), rls.OrgContext{}, 1)
		require.Equal(t, "FALSE", clause)
		require.Empty(t, args)
	})

	t.Run("superuser sees everything", func(t *testing.T) {
		p := rls.NewPrincipal(1, true, nil, nil, nil)
		clause, _ := VisibilityClause(p, rls.OrgContext{}, 1)
		require.Equal(t, "TRUE", clause)
	})

	t.Run("global sees everything", func(t *testing.T) {
		p := rls.NewPrincipal(2, false, []string{rls.PermAccessGlobal}, nil, nil)
		clause, _ := VisibilityClause(p, rls.OrgContext{}, 1)
		require.Equal(t, "TRUE", clause)
	})

	t.Run("faculty wide scopes to the selected faculty", func(t *testing.T) {
		p := rls.NewPrincipal(3, false, []string{rls.PermAccessFacultyWide}, []int64{1}, nil)
		clause, args := VisibilityClause(p, rls.OrgContext{FacultyID: ptr(1)}, 3)
		require.Contains(t, clause, "user_faculties")
		require.Contains(t, clause, "$3")
		require.Equal(t, []any{int64(1)}, args)
	})

	t.Run("faculty wide without a selection narrows to unaffiliated users", func(t *testing.T) {
		p := rls.NewPrincipal(3, false, []string{rls.PermAccessFacultyWide}, []int64{1}, nil)
		clause, args := VisibilityClause(p, rls.OrgContext{}, 1)
		require.Contains(t, clause, "NOT EXISTS")
		require.Contains(t, clause, "user_faculties")
		require.Empty(t, args)
	})

	t.Run("program wide scopes to the selected program", func(t *testing.T) {
		p := rls.NewPrincipal(4, false, []string{rls.PermAccessProgramWide}, nil, []int64{10})
		clause, args := VisibilityClause(p, rls.OrgContext{ProgramID: ptr(10)}, 1)
		require.Contains(t, clause, "user_programs")
		require.Equal(t, []any{int64(10)}, args)
	})

	t.Run("faculty wide wins over program wide", func(t *testing.T) {
		p := rls.NewPrincipal(5, false,
			[]string{rls.PermAccessFacultyWide, rls.PermAccessProgramWide}, []int64{1}, []int64{10})
		clause, _ := VisibilityClause(p, rls.OrgContext{FacultyID: ptr(1), ProgramID: ptr(10)}, 1)
		require.Contains(t, clause, "user_faculties")
		require.NotContains(t, clause, "user_programs")
	})

	t.Run("plain users see only themselves", func(t *testing.T) {
		p := rls.NewPrincipal(6, false, nil, nil, nil)
		clause, args := VisibilityClause(p, rls.OrgContext{}, 2)
		require.Equal(t, "users.id = $2", clause)
		require.Equal(t, []any{int64(6)}, args)
	})
}

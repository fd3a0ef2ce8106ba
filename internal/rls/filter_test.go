package rls

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClauseAll(t *testing.T) {
	p := NewPrincipal(1, true, nil, nil, nil)
	d := Resolve(p, courseScope(), OrgContext{})
	clause, args := d.Clause(1)
	require.Equal(t, "TRUE", clause)
	require.Empty(t, args)
}

func TestClauseFaculty(t *testing.T) {
	p := NewPrincipal(1, false, []string{PermAccessFacultyWide}, nil, nil)
	d := Resolve(p, courseScope(), OrgContext{FacultyID: ptr(42)})
	clause, args := d.Clause(3)
	require.Equal(t, "courses.faculty_id = $3", clause)
	require.Equal(t, []any{int64(42)}, args)
}

func TestClauseProgram(t *testing.T) {
	p := NewPrincipal(1, false, []string{PermAccessProgramWide}, nil, nil)
	d := Resolve(p, courseScope(), OrgContext{ProgramID: ptr(5)})
	clause, args := d.Clause(1)
	require.Equal(t, "courses.program_id = $1", clause)
	require.Equal(t, []any{int64(5)}, args)
}

func TestClauseOwner(t *testing.T) {
	scope := Scope{
		Model: "scores.score",
		Table: "scores",
		Owner: func(userID int64, next int) (string, []any) {
			return fmt.Sprintf("scores.student_user_id = $%d", next), []any{userID}
		},
	}
	p := NewPrincipal(8, false, nil, nil, nil)
	d := Resolve(p, scope, OrgContext{})
	clause, args := d.Clause(2)
	require.Equal(t, "scores.student_user_id = $2", clause)
	require.Equal(t, []any{int64(8)}, args)
}

func TestClauseNone(t *testing.T) {
	d := Resolve(Anonymous(), courseScope(), OrgContext{})
	clause, args := d.Clause(1)
	require.Equal(t, "FALSE", clause)
	require.Empty(t, args)
}

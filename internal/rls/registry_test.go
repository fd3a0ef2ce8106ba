package rls

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(courseScope()))

	s, ok := r.Scope("academic.course")
	require.True(t, ok)
	require.Equal(t, "courses", s.Table)
	require.Contains(t, r.Models(), "academic.course")
}

func TestRegistryRejectsMissingMetadata(t *testing.T) {
	r := NewRegistry()

	err := r.Register(Scope{Table: "courses", FacultyColumn: "courses.faculty_id"})
	require.ErrorContains(t, err, "model name")

	err = r.Register(Scope{Model: "academic.course", FacultyColumn: "courses.faculty_id"})
	require.ErrorContains(t, err, "table")

	// A scope with neither affiliation nor owner predicate is a programming
	// error, caught at registration rather than degrading to deny-all.
	err = r.Register(Scope{Model: "academic.course", Table: "courses"})
	require.ErrorContains(t, err, "no affiliation")
}

func TestRegistryRejectsUnqualifiedColumns(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Scope{Model: "academic.course", Table: "courses", FacultyColumn: "faculty_id"})
	require.ErrorContains(t, err, "qualified")

	err = r.Register(Scope{Model: "academic.course", Table: "courses", FacultyColumn: "courses.faculty_id", ProgramColumn: "program_id"})
	require.ErrorContains(t, err, "qualified")
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(courseScope()))
	require.ErrorContains(t, r.Register(courseScope()), "twice")
}

func TestMustRegisterPanics(t *testing.T) {
	r := NewRegistry()
	require.Panics(t, func() {
		r.MustRegister(Scope{Model: "bad", Table: ""})
	})
}

package rls

// OwnerFilter renders the owner predicate for a model: the SQL condition
// selecting rows the given user personally owns or participates in. Argument
// placeholders start at $next.
type OwnerFilter func(userID int64, next int) (clause string, args []any)

// Scope is the affiliation metadata a model declares to participate in RLS.
// Column references are qualified with the table (or join alias) used by the
// model's repository, e.g. "courses.faculty_id" or "c.program_id" when the
// affiliation is reached through a relation.
type Scope struct {
	// Model is the registry key, conventionally "{app}.{model}".
	Model string
	// Table is the primary table the predicate is applied against.
	Table string
	// FacultyColumn is the qualified faculty affiliation column, or "" when
	// the model carries no faculty affiliation.
	FacultyColumn string
	// ProgramColumn is the qualified program affiliation column, or "".
	ProgramColumn string
	// Owner is the optional owner-predicate capability.
	Owner OwnerFilter
}

// HasFaculty reports whether the model carries a faculty affiliation.
func (s Scope) HasFaculty() bool {
	return s.FacultyColumn != ""
}

// HasProgram reports whether the model carries a program affiliation.
func (s Scope) HasProgram() bool {
	return s.ProgramColumn != ""
}

// OwnerScoped reports whether the model implements the owner capability.
func (s Scope) OwnerScoped() bool {
	return s.Owner != nil
}

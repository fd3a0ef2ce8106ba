package rls

import (
	"fmt"
	"strings"
)

// Registry holds the scopes of all RLS-participating models. Scope metadata
// is validated at registration so a misdeclared model fails at startup, never
// by silently degrading to deny-all at query time.
type Registry struct {
	scopes map[string]Scope
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{scopes: make(map[string]Scope)}
}

// Register validates and stores a model scope.
func (r *Registry) Register(s Scope) error {
	if s.Model == "" {
		return fmt.Errorf("rls: scope requires a model name")
	}
	if s.Table == "" {
		return fmt.Errorf("rls: scope %q requires a table", s.Model)
	}
	if !s.HasFaculty() && !s.HasProgram() && !s.OwnerScoped() {
		return fmt.Errorf("rls: scope %q declares no affiliation columns and no owner predicate", s.Model)
	}
	if s.FacultyColumn != "" && !strings.Contains(s.FacultyColumn, ".") {
		return fmt.Errorf("rls: scope %q faculty column %q must be qualified", s.Model, s.FacultyColumn)
	}
	if s.ProgramColumn != "" && !strings.Contains(s.ProgramColumn, ".") {
		return fmt.Errorf("rls: scope %q program column %q must be qualified", s.Model, s.ProgramColumn)
	}
	if _, exists := r.scopes[s.Model]; exists {
		return fmt.Errorf("rls: scope %q registered twice", s.Model)
	}
	r.scopes[s.Model] = s
	return nil
}

// MustRegister registers the scope and panics on configuration errors.
// Intended for startup wiring where a bad declaration must abort the process.
func (r *Registry) MustRegister(s Scope) Scope {
	if err := r.Register(s); err != nil {
		panic(err)
	}
	return s
}

// Scope returns the registered scope for a model.
func (r *Registry) Scope(model string) (Scope, bool) {
	s, ok := r.scopes[model]
	return s, ok
}

// Models lists the registered model names.
func (r *Registry) Models() []string {
	names := make([]string, 0, len(r.scopes))
	for name := range r.scopes {
		names = append(names, name)
	}
	return names
}

// Package rbac manages groups, the permission catalog, and permission gating
// for mutation entry points. Visibility filtering is the rls package's job;
// rbac only answers "may this user perform this action at all".
package rbac

import "time"

// Group is a named permission grouping users can belong to.
type Group struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Permission is an atomic capability identified by its code,
// conventionally "{app}.{action}_{model}".
type Permission struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

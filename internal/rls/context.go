package rls

import "context"

type principalContextKey struct{}

type orgContextKey struct{}

// WithPrincipal stores the resolved principal in the request context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal, or the anonymous principal if
// none was resolved.
func PrincipalFromContext(ctx context.Context) Principal {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	if !ok {
		return Anonymous()
	}
	return p
}

// WithOrgContext stores the organizational context in the request context.
func WithOrgContext(ctx context.Context, org OrgContext) context.Context {
	return context.WithValue(ctx, orgContextKey{}, org)
}

// OrgContextFromContext extracts the organizational context; the zero value
// stands for "nothing selected".
func OrgContextFromContext(ctx context.Context) OrgContext {
	org, _ := ctx.Value(orgContextKey{}).(OrgContext)
	return org
}

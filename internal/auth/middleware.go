package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/atlas-ums/atlas-ums/internal/orgcontext"
	"github.com/atlas-ums/atlas-ums/internal/rls"
	"github.com/atlas-ums/atlas-ums/internal/shared"
	"github.com/atlas-ums/atlas-ums/internal/users"
)

// Accounts loads the user row and affiliation ids for a session user.
type Accounts interface {
	GetByID(ctx context.Context, id int64) (users.User, error)
	AffiliationIDs(ctx context.Context, userID int64) (facultyIDs, programIDs []int64, err error)
}

// Permissions resolves the effective permission codes of a user.
type Permissions interface {
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// Middleware resolves the session user into an rls.Principal and the
// session selections into an rls.OrgContext, both placed on the request
// context. Requests without a valid session user proceed as anonymous.
type Middleware struct {
	logger      *slog.Logger
	accounts    Accounts
	permissions Permissions
}

// NewMiddleware constructs the principal-resolution middleware.
func NewMiddleware(logger *slog.Logger, accounts Accounts, permissions Permissions) *Middleware {
	return &Middleware{logger: logger, accounts: accounts, permissions: permissions}
}

// ResolvePrincipal is the http middleware entry point.
func (m *Middleware) ResolvePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := shared.SessionFromContext(ctx)

		principal := rls.Anonymous()
		if sess != nil && sess.User() != "" {
			if p, ok := m.loadPrincipal(ctx, sess.User()); ok {
				principal = p
			} else {
				// Stale session user; drop the association.
				sess.SetUser("")
			}
		}

		ctx = rls.WithPrincipal(ctx, principal)
		ctx = rls.WithOrgContext(ctx, orgcontext.FromSession(sess))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) loadPrincipal(ctx context.Context, rawID string) (rls.Principal, bool) {
	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return rls.Principal{}, false
	}
	user, err := m.accounts.GetByID(ctx, userID)
	if err != nil || !user.IsActive {
		return rls.Principal{}, false
	}
	perms, err := m.permissions.EffectivePermissions(ctx, userID)
	if err != nil {
		m.logger.Error("load permissions", slog.Int64("user_id", userID), slog.Any("error", err))
		return rls.Principal{}, false
	}
	facultyIDs, programIDs, err := m.accounts.AffiliationIDs(ctx, userID)
	if err != nil {
		m.logger.Error("load affiliations", slog.Int64("user_id", userID), slog.Any("error", err))
		return rls.Principal{}, false
	}
	return rls.NewPrincipal(userID, user.IsSuperuser, perms, facultyIDs, programIDs), true
}

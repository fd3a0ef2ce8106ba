package rbac_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-ums/atlas-ums/internal/rbac"
	"github.com/atlas-ums/atlas-ums/internal/rls"
)

func gatedRequest(t *testing.T, mw func(http.Handler) http.Handler, p rls.Principal) *httptest.ResponseRecorder {
	t.Helper()
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/academic/courses", nil)
	req = req.WithContext(rls.WithPrincipal(req.Context(), p))
	res := httptest.NewRecorder()
	mw(next).ServeHTTP(res, req)

	if res.Code == http.StatusNoContent {
		require.True(t, called)
	} else {
		require.False(t, called, "handler must not run when the gate rejects")
	}
	return res
}

func TestRequireRejectsAnonymous(t *testing.T) {
	mw := rbac.Middleware{}.Require("academic.add_course")
	res := gatedRequest(t, mw, rls.Anonymous())
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRequireRejectsMissingPermission(t *testing.T) {
	mw := rbac.Middleware{}.Require("academic.add_course")
	p := rls.NewPrincipal(7, false, []string{"academic.view_course"}, nil, nil)
	res := gatedRequest(t, mw, p)
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestRequireAllowsHolder(t *testing.T) {
	mw := rbac.Middleware{}.Require("academic.add_course")
	p := rls.NewPrincipal(7, false, []string{"academic.add_course"}, nil, nil)
	res := gatedRequest(t, mw, p)
	require.Equal(t, http.StatusNoContent, res.Code)
}

func TestRequireAllowsSuperuser(t *testing.T) {
	mw := rbac.Middleware{}.Require("academic.add_course")
	p := rls.NewPrincipal(7, true, nil, nil, nil)
	res := gatedRequest(t, mw, p)
	require.Equal(t, http.StatusNoContent, res.Code)
}

func TestRequireAny(t *testing.T) {
	mw := rbac.Middleware{}.RequireAny("academic.view_course", "academic.change_course")
	p := rls.NewPrincipal(7, false, []string{"academic.change_course"}, nil, nil)
	res := gatedRequest(t, mw, p)
	require.Equal(t, http.StatusNoContent, res.Code)

	p = rls.NewPrincipal(7, false, []string{"academic.delete_course"}, nil, nil)
	res = gatedRequest(t, mw, p)
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestCatalogContainsAccessPermissions(t *testing.T) {
	codes := map[string]bool{}
	for _, p := range rbac.Catalog() {
		codes[p.Code] = true
	}
	require.True(t, codes["users.access_global"])
	require.True(t, codes["users.access_faculty_wide"])
	require.True(t, codes["users.access_program_wide"])
	require.True(t, codes["academic.view_course"])
	require.True(t, codes["organization.delete_faculty"])
}

package orgcontext_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/atlas-ums/atlas-ums/internal/orgcontext"
	"github.com/atlas-ums/atlas-ums/internal/rls"
	"github.com/atlas-ums/atlas-ums/internal/shared"
)

func newSessionManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func postContext(t *testing.T, h *orgcontext.Handler, sm *shared.SessionManager, p rls.Principal, path, field, value string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()

	form := url.Values{}
	form.Set(field, value)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", "/academic/courses")

	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	ctx = rls.WithPrincipal(ctx, p)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	switch {
	case strings.HasSuffix(path, "/faculty"):
		h.SelectFaculty(res, req)
	default:
		h.SelectProgram(res, req)
	}
	return res, sess
}

func TestSelectFacultyEndpointRedirectsBack(t *testing.T) {
	sm := newSessionManager(t)
	h := orgcontext.NewHandler(nil, orgcontext.NewService(engineeringDirectory(), nil))
	p := rls.NewPrincipal(7, false, []string{rls.PermAccessFacultyWide}, []int64{1}, []int64{10})

	res, sess := postContext(t, h, sm, p, "/context/faculty", "faculty_id", "1")

	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "/academic/courses", res.Header().Get("Location"))
	require.Equal(t, "1", sess.Get("selected_faculty"))
	require.Equal(t, "10", sess.Get("selected_program"))
}

func TestSelectFacultyEndpointUnauthorized(t *testing.T) {
	sm := newSessionManager(t)
	h := orgcontext.NewHandler(nil, orgcontext.NewService(engineeringDirectory(), nil))
	p := rls.NewPrincipal(7, false, nil, []int64{1}, nil)

	res, sess := postContext(t, h, sm, p, "/context/faculty", "faculty_id", "2")

	require.Equal(t, http.StatusForbidden, res.Code)
	require.Contains(t, res.Body.String(), "Forbidden")
	require.Empty(t, sess.Get("selected_faculty"))
}

func TestSelectFacultyEndpointBadID(t *testing.T) {
	sm := newSessionManager(t)
	h := orgcontext.NewHandler(nil, orgcontext.NewService(engineeringDirectory(), nil))
	p := rls.NewPrincipal(7, false, []string{rls.PermAccessGlobal}, nil, nil)

	res, _ := postContext(t, h, sm, p, "/context/faculty", "faculty_id", "one")

	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestSelectProgramEndpoint(t *testing.T) {
	sm := newSessionManager(t)
	h := orgcontext.NewHandler(nil, orgcontext.NewService(engineeringDirectory(), nil))
	p := rls.NewPrincipal(7, false, nil, []int64{1}, []int64{11})

	res, sess := postContext(t, h, sm, p, "/context/program", "program_id", "11")

	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "11", sess.Get("selected_program"))
	require.Empty(t, sess.Get("selected_faculty"))
}

func TestContextEndpointsRequireAuthentication(t *testing.T) {
	sm := newSessionManager(t)
	h := orgcontext.NewHandler(nil, orgcontext.NewService(engineeringDirectory(), nil))

	res, _ := postContext(t, h, sm, rls.Anonymous(), "/context/faculty", "faculty_id", "1")
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

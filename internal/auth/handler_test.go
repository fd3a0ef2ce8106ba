package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atlas-ums/atlas-ums/internal/auth"
	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
	"github.com/atlas-ums/atlas-ums/internal/shared"
	"github.com/atlas-ums/atlas-ums/internal/users"
)

type stubCredentials struct {
	user users.User
}

func (s stubCredentials) GetByUsername(ctx context.Context, username string) (users.User, error) {
	if username != s.user.Username {
		return users.User{}, httpx.ErrNotFound
	}
	return s.user, nil
}

type recordingAudit struct {
	created []string
	removed []string
}

func (r *recordingAudit) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	r.created = append(r.created, id)
	return nil
}

func (r *recordingAudit) DeleteSession(ctx context.Context, id string) error {
	r.removed = append(r.removed, id)
	return nil
}

func testAccount(t *testing.T, active bool) users.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return users.User{
		ID:           42,
		Username:     "jdoe",
		Email:        "jdoe@example.edu",
		PasswordHash: string(hash),
		IsActive:     active,
	}
}

func newHandler(t *testing.T, account users.User) (*auth.Handler, *shared.SessionManager, *recordingAudit) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	audit := &recordingAudit{}
	svc := auth.NewService(stubCredentials{user: account}, audit)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return auth.NewHandler(logger, svc, sm, shared.NewCSRFManager("csrf-secret")), sm, audit
}

func postLogin(t *testing.T, h *auth.Handler, sm *shared.SessionManager, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	h.Login(res, req)
	return res, sess
}

func TestLoginSuccess(t *testing.T) {
	h, sm, audit := newHandler(t, testAccount(t, true))

	res, sess := postLogin(t, h, sm, `{"username":"jdoe","password":"correct-horse"}`)

	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "42", sess.User())
	require.Len(t, audit.created, 1)

	var payload struct {
		User struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
		CSRFToken string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.Equal(t, int64(42), payload.User.ID)
	require.NotEmpty(t, payload.CSRFToken)
}

func TestLoginRotatesSessionID(t *testing.T) {
	h, sm, _ := newHandler(t, testAccount(t, true))

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"jdoe","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	before := sess.ID
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	h.Login(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.NotEqual(t, before, sess.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	h, sm, audit := newHandler(t, testAccount(t, true))

	res, sess := postLogin(t, h, sm, `{"username":"jdoe","password":"wrong"}`)

	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Empty(t, sess.User())
	require.Empty(t, audit.created)
}

func TestLoginInactiveAccount(t *testing.T) {
	h, sm, _ := newHandler(t, testAccount(t, false))

	res, _ := postLogin(t, h, sm, `{"username":"jdoe","password":"correct-horse"}`)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginMissingFields(t *testing.T) {
	h, sm, _ := newHandler(t, testAccount(t, true))

	res, _ := postLogin(t, h, sm, `{"username":"jdoe"}`)
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLogoutDestroysSession(t *testing.T) {
	h, sm, audit := newHandler(t, testAccount(t, true))

	_, sess := postLogin(t, h, sm, `{"username":"jdoe","password":"correct-horse"}`)
	sessionID := sess.ID

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()
	h.Logout(res, req)

	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, []string{sessionID}, audit.removed)
}

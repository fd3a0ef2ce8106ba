package crud_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/atlas-ums/atlas-ums/internal/crud"
	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
	"github.com/atlas-ums/atlas-ums/internal/rbac"
	"github.com/atlas-ums/atlas-ums/internal/rls"
	"github.com/atlas-ums/atlas-ums/internal/shared"
)

type note struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	FacultyID *int64 `json:"faculty_id"`
	AuthorID  int64  `json:"author_id"`
}

func (n note) EntityID() int64 { return n.ID }

type noteForm struct {
	Title string `json:"title" validate:"required"`
}

type memoryRepo struct {
	notes  map[int64]note
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{notes: make(map[int64]note), nextID: 1}
}

func (m *memoryRepo) visible(d rls.Decision, n note) bool {
	switch d.Tier {
	case rls.TierAll:
		return true
	case rls.TierFaculty:
		return n.FacultyID != nil && *n.FacultyID == d.FacultyID
	case rls.TierOwner:
		return n.AuthorID == d.UserID
	default:
		return false
	}
}

func (m *memoryRepo) List(ctx context.Context, d rls.Decision, params shared.ListParams) ([]note, int, error) {
	items, err := m.ListAll(ctx, d)
	return items, len(items), err
}

func (m *memoryRepo) ListAll(ctx context.Context, d rls.Decision) ([]note, error) {
	var out []note
	for _, n := range m.notes {
		if m.visible(d, n) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, d rls.Decision, id int64) (note, error) {
	n, ok := m.notes[id]
	if !ok || !m.visible(d, n) {
		return note{}, httpx.ErrNotFound
	}
	return n, nil
}

func (m *memoryRepo) Create(ctx context.Context, n note) (note, error) {
	n.ID = m.nextID
	m.nextID++
	m.notes[n.ID] = n
	return n, nil
}

func (m *memoryRepo) Update(ctx context.Context, d rls.Decision, n note) (note, error) {
	stored, ok := m.notes[n.ID]
	if !ok || !m.visible(d, stored) {
		return note{}, httpx.ErrNotFound
	}
	m.notes[n.ID] = n
	return n, nil
}

func (m *memoryRepo) Delete(ctx context.Context, d rls.Decision, id int64) error {
	n, ok := m.notes[id]
	if !ok || !m.visible(d, n) {
		return httpx.ErrNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *memoryRepo) DeleteAll(ctx context.Context, d rls.Decision) (int64, error) {
	var deleted int64
	for id, n := range m.notes {
		if m.visible(d, n) {
			delete(m.notes, id)
			deleted++
		}
	}
	return deleted, nil
}

func noteScope() rls.Scope {
	return rls.Scope{
		Model:         "notes.note",
		Table:         "notes",
		FacultyColumn: "notes.faculty_id",
		Owner: func(userID int64, next int) (string, []any) {
			return "notes.author_id = $1", []any{userID}
		},
	}
}

func notePerms() rbac.ModelPerms { return rbac.PermsFor("notes", "note") }

func bindNote(ctx context.Context, d rls.Decision, form noteForm, existing *note) (note, error) {
	n := note{Title: form.Title}
	if existing != nil {
		n.ID = existing.ID
		n.AuthorID = existing.AuthorID
	} else {
		n.AuthorID = d.UserID
	}
	var programID *int64
	crud.InjectOrg(rls.OrgContextFromContext(ctx), &n.FacultyID, &programID)
	return n, nil
}

func newResource(repo crud.Repository[note]) *crud.Resource[note, noteForm] {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return crud.NewResource(crud.Config[note, noteForm]{
		Logger:        logger,
		Scope:         noteScope(),
		Perms:         notePerms(),
		Path:          "notes",
		CollectionKey: "notes",
		Repo:          repo,
		Bind:          bindNote,
		Gate:          rbac.Middleware{Logger: logger},
	})
}

func serve(rs *crud.Resource[note, noteForm], p rls.Principal, org rls.OrgContext, method, target, body string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	rs.Routes(router)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := rls.WithPrincipal(req.Context(), p)
	ctx = rls.WithOrgContext(ctx, org)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func fid(v int64) *int64 { return &v }

func seed(repo *memoryRepo) {
	repo.Create(context.Background(), note{Title: "eng note", FacultyID: fid(1), AuthorID: 7})
	repo.Create(context.Background(), note{Title: "biz note", FacultyID: fid(2), AuthorID: 8})
	repo.Create(context.Background(), note{Title: "loose note", AuthorID: 9})
}

func TestListWithoutPermissionIsEmpty(t *testing.T) {
	repo := newMemoryRepo()
	seed(repo)
	rs := newResource(repo)

	for _, p := range []rls.Principal{rls.Anonymous(), rls.NewPrincipal(5, false, nil, nil, nil)} {
		res := serve(rs, p, rls.OrgContext{}, http.MethodGet, "/notes/", "")
		require.Equal(t, http.StatusOK, res.Code)

		var payload struct {
			Notes []note `json:"notes"`
		}
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
		require.Empty(t, payload.Notes)
	}
}

func TestListAppliesVisibility(t *testing.T) {
	repo := newMemoryRepo()
	seed(repo)
	rs := newResource(repo)

	p := rls.NewPrincipal(7, false, []string{notePerms().View, rls.PermAccessFacultyWide}, []int64{1}, nil)
	res := serve(rs, p, rls.OrgContext{FacultyID: fid(1)}, http.MethodGet, "/notes/", "")
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Notes []note          `json:"notes"`
		Can   map[string]bool `json:"can"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.Len(t, payload.Notes, 1)
	require.Equal(t, "eng note", payload.Notes[0].Title)
	require.False(t, payload.Can["add"])
}

func TestListScopedTierWithoutSelectionIsEmpty(t *testing.T) {
	repo := newMemoryRepo()
	seed(repo)
	rs := newResource(repo)

	p := rls.NewPrincipal(7, false, []string{notePerms().View, rls.PermAccessFacultyWide}, []int64{1}, nil)
	res := serve(rs, p, rls.OrgContext{}, http.MethodGet, "/notes/", "")
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Notes []note `json:"notes"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.Empty(t, payload.Notes)
}

func TestMutationGates(t *testing.T) {
	repo := newMemoryRepo()
	seed(repo)
	rs := newResource(repo)

	res := serve(rs, rls.Anonymous(), rls.OrgContext{}, http.MethodPost, "/notes/", `{"title":"x"}`)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	p := rls.NewPrincipal(5, false, []string{notePerms().View}, nil, nil)
	res = serve(rs, p, rls.OrgContext{}, http.MethodPost, "/notes/", `{"title":"x"}`)
	require.Equal(t, http.StatusForbidden, res.Code)

	res = serve(rs, p, rls.OrgContext{}, http.MethodDelete, "/notes/1", "")
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestCreateInjectsOrgContext(t *testing.T) {
	repo := newMemoryRepo()
	rs := newResource(repo)

	p := rls.NewPrincipal(7, false,
		[]string{notePerms().Add, notePerms().View, rls.PermAccessFacultyWide}, []int64{1}, nil)
	res := serve(rs, p, rls.OrgContext{FacultyID: fid(1)},
		http.MethodPost, "/notes/", `{"title":"fresh","faculty_id":99}`)
	require.Equal(t, http.StatusCreated, res.Code)

	var created note
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &created))
	require.NotNil(t, created.FacultyID)
	require.Equal(t, int64(1), *created.FacultyID)
	require.Equal(t, int64(7), created.AuthorID)
}

func TestCreateWithoutSelectionIgnoresSubmittedAffiliation(t *testing.T) {
	repo := newMemoryRepo()
	rs := newResource(repo)

	// Add permission only, nothing selected: the row must land unaffiliated
	// no matter what the body claims.
	p := rls.NewPrincipal(5, false, []string{notePerms().Add}, nil, nil)
	res := serve(rs, p, rls.OrgContext{},
		http.MethodPost, "/notes/", `{"title":"mine","faculty_id":99}`)
	require.Equal(t, http.StatusCreated, res.Code)

	var created note
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &created))
	require.Nil(t, created.FacultyID)
	require.Equal(t, int64(5), created.AuthorID)
	require.Nil(t, repo.notes[created.ID].FacultyID)
}

func TestGetOutsideVisibilityIsNotFound(t *testing.T) {
	repo := newMemoryRepo()
	seed(repo)
	rs := newResource(repo)

	p := rls.NewPrincipal(7, false, []string{notePerms().View, rls.PermAccessFacultyWide}, []int64{1}, nil)
	res := serve(rs, p, rls.OrgContext{FacultyID: fid(1)}, http.MethodGet, "/notes/2", "")
	require.Equal(t, http.StatusNotFound, res.Code)
}

func TestDeleteAllReportsCount(t *testing.T) {
	repo := newMemoryRepo()
	seed(repo)
	rs := newResource(repo)

	p := rls.NewPrincipal(7, false, []string{notePerms().Delete, rls.PermAccessGlobal}, nil, nil)
	res := serve(rs, p, rls.OrgContext{}, http.MethodDelete, "/notes/", "")
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Deleted int64 `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.Equal(t, int64(3), payload.Deleted)
	require.Empty(t, repo.notes)
}

// brokenDeleteRepo simulates the database refusing a bulk delete. The rows it
// wraps must come through untouched.
type brokenDeleteRepo struct {
	*memoryRepo
}

func (r *brokenDeleteRepo) DeleteAll(ctx context.Context, d rls.Decision) (int64, error) {
	return 0, errors.New("deadlock detected")
}

func TestDeleteAllFailureLeavesRowsIntact(t *testing.T) {
	repo := newMemoryRepo()
	seed(repo)
	rs := newResource(&brokenDeleteRepo{repo})

	p := rls.NewPrincipal(7, false, []string{notePerms().Delete, rls.PermAccessGlobal}, nil, nil)
	res := serve(rs, p, rls.OrgContext{}, http.MethodDelete, "/notes/", "")
	require.Equal(t, http.StatusInternalServerError, res.Code)
	require.Len(t, repo.notes, 3)
}

func TestOwnerFallback(t *testing.T) {
	repo := newMemoryRepo()
	seed(repo)
	rs := newResource(repo)

	p := rls.NewPrincipal(9, false, []string{notePerms().View}, nil, nil)
	res := serve(rs, p, rls.OrgContext{}, http.MethodGet, "/notes/", "")
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Notes []note `json:"notes"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.Len(t, payload.Notes, 1)
	require.Equal(t, "loose note", payload.Notes[0].Title)
}

package export_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atlas-ums/atlas-ums/internal/export"
)

type row struct {
	ID        int64     `json:"id"`
	Name      string    `json:"course_name"`
	FacultyID *int64    `json:"faculty_id"`
	Secret    string    `json:"-"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

func TestCSVHeadersAndRows(t *testing.T) {
	fid := int64(3)
	created := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	rows := []row{
		{ID: 1, Name: "Algorithms", FacultyID: &fid, Secret: "hide", CreatedAt: created},
		{ID: 2, Name: "Databases"},
	}

	res := httptest.NewRecorder()
	require.NoError(t, export.CSV(res, "courses.csv", rows))

	require.Equal(t, "text/csv; charset=utf-8", res.Header().Get("Content-Type"))
	require.Contains(t, res.Header().Get("Content-Disposition"), "courses.csv")

	body := res.Body.String()
	require.Contains(t, body, "Id,Course Name,Faculty Id,Created At")
	require.Contains(t, body, "1,Algorithms,3,2025-09-01T12:00:00Z")
	require.Contains(t, body, "2,Databases,,0001-01-01T00:00:00Z")
	require.NotContains(t, body, "hide")
	require.NotContains(t, body, "Tags")
}

func TestCSVEmpty(t *testing.T) {
	res := httptest.NewRecorder()
	require.NoError(t, export.CSV(res, "empty.csv", []row{}))
	require.Equal(t, "Id,Course Name,Faculty Id,Created At\n", res.Body.String())
}

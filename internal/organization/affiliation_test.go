package organization

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
)

func ptr(v int64) *int64 { return &v }

func TestValidateEntityAffiliation(t *testing.T) {
	cs := &Program{ID: 10, Name: "Computer Science", FacultyID: 1}

	t.Run("matching pair passes", func(t *testing.T) {
		require.NoError(t, ValidateEntityAffiliation(ptr(1), cs))
	})

	t.Run("mismatch is a field error on program", func(t *testing.T) {
		err := ValidateEntityAffiliation(ptr(2), cs)
		require.Error(t, err)
		var fieldErr *httpx.FieldError
		require.True(t, errors.As(err, &fieldErr))
		require.Equal(t, "program", fieldErr.Field)
		require.True(t, errors.Is(err, httpx.ErrValidation))
	})

	t.Run("missing faculty skips", func(t *testing.T) {
		require.NoError(t, ValidateEntityAffiliation(nil, cs))
	})

	t.Run("missing program skips", func(t *testing.T) {
		require.NoError(t, ValidateEntityAffiliation(ptr(1), nil))
	})
}

func TestValidateUserAffiliations(t *testing.T) {
	engineering := Faculty{ID: 1, Name: "Engineering"}
	business := Faculty{ID: 2, Name: "Business"}

	t.Run("covered faculties pass", func(t *testing.T) {
		err := ValidateUserAffiliations([]int64{1, 2}, []Faculty{engineering, business})
		require.NoError(t, err)
	})

	t.Run("missing faculty is named", func(t *testing.T) {
		err := ValidateUserAffiliations([]int64{1}, []Faculty{engineering, business})
		require.Error(t, err)
		var fieldErr *httpx.FieldError
		require.True(t, errors.As(err, &fieldErr))
		require.Equal(t, "programs", fieldErr.Field)
		require.Contains(t, fieldErr.Message, "Business")
		require.NotContains(t, fieldErr.Message, "Engineering")
	})

	t.Run("no programs passes regardless of faculties", func(t *testing.T) {
		require.NoError(t, ValidateUserAffiliations(nil, nil))
		require.NoError(t, ValidateUserAffiliations([]int64{1}, nil))
	})
}

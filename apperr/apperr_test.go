package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/elibrary/backend/apperr"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name       string
		err        *apperr.Error
		wantCode   string
		wantStatus int
	}{
		{"not_found", apperr.NotFound("Book"), apperr.CodeNotFound, http.StatusNotFound},
		{"validation", apperr.Validation("bad input"), apperr.CodeValidation, http.StatusBadRequest},
		{"duplicate_review", apperr.DuplicateReview(), apperr.CodeDuplicateReview, http.StatusBadRequest},
		{"already_favorited", apperr.AlreadyFavorited(), apperr.CodeAlreadyFavorited, http.StatusBadRequest},
		{"conflict", apperr.Conflict("dup"), apperr.CodeConflict, http.StatusConflict},
		{"unauthorized", apperr.Unauthorized("no"), apperr.CodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", apperr.Forbidden("no"), apperr.CodeForbidden, http.StatusForbidden},
		{"storage", apperr.Storage(errors.New("timeout")), apperr.CodeStorageUnavailable, http.StatusServiceUnavailable},
		{"internal", apperr.Internal(errors.New("boom")), apperr.CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestNotFound_NamesResource(t *testing.T) {
	assert.EqualError(t, apperr.NotFound("Book"), "Book not found")
	assert.EqualError(t, apperr.NotFound("Category"), "Category not found")
}

func TestAs_TraversesWrapping(t *testing.T) {
	inner := apperr.DuplicateReview()
	wrapped := fmt.Errorf("submit review: %w", inner)

	got := apperr.As(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, apperr.CodeDuplicateReview, got.Code)

	assert.Nil(t, apperr.As(errors.New("plain")))
	assert.Nil(t, apperr.As(nil))
}

func TestHasCode(t *testing.T) {
	err := apperr.AlreadyFavorited()

	assert.True(t, apperr.HasCode(err, apperr.CodeAlreadyFavorited))
	assert.False(t, apperr.HasCode(err, apperr.CodeNotFound))
	assert.False(t, apperr.HasCode(errors.New("plain"), apperr.CodeNotFound))
}

func TestUnwrap_ExposesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := apperr.Storage(cause)

	assert.True(t, errors.Is(err, cause))
}

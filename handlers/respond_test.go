package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/elibrary/backend/apperr"
)

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	writeData(rec, http.StatusOK, map[string]string{"title": "1984"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "1984", body.Data["title"])
}

func TestWriteError_MapsTaxonomyToStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not_found", apperr.NotFound("Book"), http.StatusNotFound, apperr.CodeNotFound},
		{"validation", apperr.Validation("rating must be between 1 and 5"), http.StatusBadRequest, apperr.CodeValidation},
		{"duplicate_review", apperr.DuplicateReview(), http.StatusBadRequest, apperr.CodeDuplicateReview},
		{"already_favorited", apperr.AlreadyFavorited(), http.StatusBadRequest, apperr.CodeAlreadyFavorited},
		{"storage", apperr.Storage(errors.New("timeout")), http.StatusServiceUnavailable, apperr.CodeStorageUnavailable},
		{"unknown_becomes_internal", errors.New("boom"), http.StatusInternalServerError, apperr.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
				Code    string `json:"code"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

// Server-side causes never leak into the response body.
func TestWriteError_HidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("pq: secret table missing"))

	assert.NotContains(t, rec.Body.String(), "secret table")
}

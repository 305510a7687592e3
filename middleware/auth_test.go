package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openshelf/elibrary/backend/middleware"
	"github.com/openshelf/elibrary/backend/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, userID primitive.ObjectID, role string, secret string) string {
	t.Helper()
	claims := middleware.Claims{
		UserID: userID.Hex(),
		Email:  "user@example.com",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuth_AttachesIdentity(t *testing.T) {
	userID := primitive.NewObjectID()

	var gotID primitive.ObjectID
	var gotOK bool
	var gotRole, gotEmail string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = middleware.UserIDFromContext(r.Context())
		gotRole = middleware.RoleFromContext(r.Context())
		gotEmail = middleware.EmailFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, userID, models.RoleAdmin, testSecret))
	rec := httptest.NewRecorder()
	middleware.Auth(testSecret)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotOK)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, models.RoleAdmin, gotRole)
	assert.Equal(t, "user@example.com", gotEmail)
}

func TestAuth_Rejections(t *testing.T) {
	userID := primitive.NewObjectID()

	tests := []struct {
		name   string
		header string
	}{
		{"missing_header", ""},
		{"not_bearer", "Basic abc"},
		{"garbage_token", "Bearer not.a.token"},
		{"wrong_secret", "Bearer " + signToken(t, userID, models.RoleUser, "other-secret")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			middleware.Auth(testSecret)(next).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, called)
		})
	}
}

func TestAuth_RejectsExpiredToken(t *testing.T) {
	claims := middleware.Claims{
		UserID: primitive.NewObjectID().Hex(),
		Role:   models.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})
	middleware.Auth(testSecret)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	userID := primitive.NewObjectID()

	run := func(role string) *httptest.ResponseRecorder {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		handler := middleware.Auth(testSecret)(middleware.RequireAdmin(next))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, userID, role, testSecret))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, run(models.RoleAdmin).Code)
	assert.Equal(t, http.StatusForbidden, run(models.RoleUser).Code)
	assert.Equal(t, http.StatusForbidden, run("").Code)
}

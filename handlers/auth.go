package handlers

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/openshelf/elibrary/backend/apperr"
	"github.com/openshelf/elibrary/backend/middleware"
	"github.com/openshelf/elibrary/backend/models"
	"github.com/openshelf/elibrary/backend/store"
)

const tokenTTL = 7 * 24 * time.Hour

type AuthHandler struct {
	DB        *store.DB
	JWTSecret string
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" {
		writeError(w, apperr.Validation("name is required"))
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, apperr.Validation("a valid email is required"))
		return
	}
	if len(req.Password) < 6 {
		writeError(w, apperr.Validation("password must be at least 6 characters"))
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Role:     models.RoleUser,
	}
	id, err := h.DB.CreateUser(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	user.ID = id
	token, err := h.signToken(user)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	writeData(w, http.StatusCreated, authResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, apperr.Validation("email and password required"))
		return
	}
	user, err := h.DB.UserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		writeError(w, apperr.Unauthorized("invalid credentials"))
		return
	}
	token, err := h.signToken(user)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	writeData(w, http.StatusOK, authResponse{Token: token, User: user})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}
	user, err := h.DB.UserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Avatar   *string `json:"avatar"`
	Password *string `json:"password"`
}

// UpdateProfile handles PUT /api/auth/profile for the authenticated user.
// Role changes go through the admin user update, never through here.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			writeError(w, apperr.Validation("a valid email is required"))
			return
		}
		req.Email = &email
	}
	var hashed *string
	if req.Password != nil {
		if len(*req.Password) < 6 {
			writeError(w, apperr.Validation("password must be at least 6 characters"))
			return
		}
		b, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, apperr.Internal(err))
			return
		}
		s := string(b)
		hashed = &s
	}
	user, err := h.DB.UpdateUser(r.Context(), userID, req.Name, req.Email, req.Avatar, hashed, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *AuthHandler) signToken(user *models.User) (string, error) {
	claims := middleware.Claims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.JWTSecret))
}

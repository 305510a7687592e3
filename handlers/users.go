package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/openshelf/elibrary/backend/apperr"
	"github.com/openshelf/elibrary/backend/middleware"
	"github.com/openshelf/elibrary/backend/models"
	"github.com/openshelf/elibrary/backend/store"
)

type UsersHandler struct {
	DB *store.DB
}

type listUsersResponse struct {
	Success     bool          `json:"success"`
	Count       int           `json:"count"`
	Total       int64         `json:"total"`
	Pages       int64         `json:"pages"`
	CurrentPage int64         `json:"currentPage"`
	Data        []models.User `json:"data"`
}

// List handles GET /api/users (admin).
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	users, err := h.DB.ListUsers(r.Context(), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listUsersResponse{
		Success:     true,
		Count:       len(users.Items),
		Total:       users.Total,
		Pages:       users.PageCount,
		CurrentPage: users.CurrentPage,
		Data:        users.Items,
	})
}

// Get handles GET /api/users/{id} (admin).
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := h.DB.UserByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Avatar   *string `json:"avatar"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

// Update handles PUT /api/users/{id} (admin).
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	if req.Role != nil && *req.Role != models.RoleUser && *req.Role != models.RoleAdmin {
		writeError(w, apperr.Validation("role must be user or admin"))
		return
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
	user, err := h.DB.UpdateUser(r.Context(), id, req.Name, req.Email, req.Avatar, hashed, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

// Delete handles DELETE /api/users/{id} (admin).
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.DB.DeleteUser(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "User deleted successfully"})
}

// AddFavorite handles POST /api/users/favorites/{bookId}. Adding a book
// that is already a favorite is an error; removal is idempotent.
func (h *UsersHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}
	bookID, err := userIDParam(r, "bookId")
	if err != nil {
		writeError(w, apperr.Validation("invalid book id"))
		return
	}
	if _, err := h.DB.BookByID(r.Context(), bookID); err != nil {
		writeError(w, err)
		return
	}
	favorites, err := h.DB.AddFavorite(r.Context(), userID, bookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Book added to favorites", Data: favorites})
}

// RemoveFavorite handles DELETE /api/users/favorites/{bookId}.
func (h *UsersHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}
	bookID, err := userIDParam(r, "bookId")
	if err != nil {
		writeError(w, apperr.Validation("invalid book id"))
		return
	}
	favorites, err := h.DB.RemoveFavorite(r.Context(), userID, bookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Book removed from favorites", Data: favorites})
}

type readingProgressRequest struct {
	Progress int `json:"progress"`
}

// UpdateReadingProgress handles PUT /api/users/reading-history/{bookId}
// with upsert semantics: one history entry per book, refreshed in place.
func (h *UsersHandler) UpdateReadingProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}
	bookID, err := userIDParam(r, "bookId")
	if err != nil {
		writeError(w, apperr.Validation("invalid book id"))
		return
	}
	var req readingProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	history, err := h.DB.UpsertReadingProgress(r.Context(), userID, bookID, req.Progress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Reading progress updated", Data: history})
}

func userIDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid user id")
	}
	return id, nil
}

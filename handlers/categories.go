package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openshelf/elibrary/backend/apperr"
	"github.com/openshelf/elibrary/backend/models"
	"github.com/openshelf/elibrary/backend/store"
)

type CategoriesHandler struct {
	DB *store.DB
}

func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	cats, err := h.DB.ListCategories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, cats)
}

func (h *CategoriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := categoryIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	cat, err := h.DB.CategoryByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, cat)
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
}

func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, apperr.Validation("category name is required"))
		return
	}
	if len(name) > models.MaxCategoryNameLen {
		writeError(w, apperr.Validation("category name cannot be more than 50 characters"))
		return
	}
	cat := &models.Category{
		Name:        name,
		Description: req.Description,
		Icon:        req.Icon,
		Color:       req.Color,
	}
	id, err := h.DB.CreateCategory(r.Context(), cat)
	if err != nil {
		writeError(w, err)
		return
	}
	cat.ID = id
	writeData(w, http.StatusCreated, cat)
}

type updateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	Color       *string `json:"color"`
}

func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := categoryIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, apperr.Validation("category name is required"))
			return
		}
		if len(name) > models.MaxCategoryNameLen {
			writeError(w, apperr.Validation("category name cannot be more than 50 characters"))
			return
		}
		req.Name = &name
	}
	cat, err := h.DB.UpdateCategory(r.Context(), id, req.Name, req.Description, req.Icon, req.Color)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, cat)
}

func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := categoryIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.DB.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Category deleted successfully"})
}

func categoryIDParam(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid category id")
	}
	return id, nil
}

package handlers

import (
	"net/http"

	"github.com/openshelf/elibrary/backend/store"
)

// AdminHandler exposes operator maintenance actions.
type AdminHandler struct {
	DB *store.DB
}

type reconcileResponse struct {
	CategoriesUpdated int64 `json:"categoriesUpdated"`
	BooksUpdated      int64 `json:"booksUpdated"`
}

// Reconcile handles POST /api/admin/reconcile: recomputes the
// denormalized category book counts and book rating summaries from their
// source collections. This is the offline correction path for the drift
// the incremental counters tolerate; request handling never self-heals.
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	cats, err := h.DB.RecalculateBooksCounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	books, err := h.DB.RecalculateRatings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, reconcileResponse{
		CategoriesUpdated: cats,
		BooksUpdated:      books,
	})
}

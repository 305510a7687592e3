package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openshelf/elibrary/backend/apperr"
	"github.com/openshelf/elibrary/backend/catalog"
	"github.com/openshelf/elibrary/backend/middleware"
	"github.com/openshelf/elibrary/backend/models"
	"github.com/openshelf/elibrary/backend/service"
	"github.com/openshelf/elibrary/backend/store"
)

const (
	relatedBooksLimit = 6
	downloadURLTTL    = 15 * time.Minute
)

type BooksHandler struct {
	DB *store.DB
	S3 *service.S3Service
}

type listBooksResponse struct {
	Success     bool                 `json:"success"`
	Count       int                  `json:"count"`
	Total       int64                `json:"total"`
	Pages       int64                `json:"pages"`
	CurrentPage int64                `json:"currentPage"`
	Data        []store.BookWithRefs `json:"data"`
}

// List handles GET /api/books: filter, sort, paginate.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	spec := catalog.Build(catalog.ParamsFromQuery(r.URL.Query()))
	page, err := h.DB.ListBooks(r.Context(), spec)
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.DB.WithRefs(r.Context(), page.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listBooksResponse{
		Success:     true,
		Count:       len(items),
		Total:       page.Total,
		Pages:       page.PageCount,
		CurrentPage: page.CurrentPage,
		Data:        items,
	})
}

// Get handles GET /api/books/{id}. The view counter bump is an explicit
// separate operation so the read itself stays side-effect free.
func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := bookIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	book, err := h.DB.BookByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.DB.IncrementViews(r.Context(), id); err != nil {
		// Views are best-effort telemetry; the fetch still succeeds.
		log.Printf("increment views for %s: %v", id.Hex(), err)
	} else {
		book.Views++
	}
	items, err := h.DB.WithRefs(r.Context(), []models.Book{*book})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, items[0])
}

type createBookRequest struct {
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Description   string   `json:"description"`
	ISBN          string   `json:"isbn"`
	Category      string   `json:"category"`
	CoverImage    string   `json:"coverImage"`
	CoverKey      string   `json:"coverKey"`
	FileURL       string   `json:"fileUrl"`
	FileKey       string   `json:"fileKey"`
	FileFormat    string   `json:"fileFormat"`
	FileSize      int64    `json:"fileSize"`
	Language      string   `json:"language"`
	Publisher     string   `json:"publisher"`
	PublishedDate string   `json:"publishedDate"`
	Pages         int      `json:"pages"`
	IsFeatured    bool     `json:"isFeatured"`
	Tags          []string `json:"tags"`
}

func (req *createBookRequest) validate() error {
	switch {
	case strings.TrimSpace(req.Title) == "":
		return apperr.Validation("title is required")
	case utf8.RuneCountInString(req.Title) > models.MaxTitleLen:
		return apperr.Validation("title cannot be more than 200 characters")
	case strings.TrimSpace(req.Author) == "":
		return apperr.Validation("author is required")
	case strings.TrimSpace(req.Description) == "":
		return apperr.Validation("description is required")
	case utf8.RuneCountInString(req.Description) > models.MaxDescriptionLen:
		return apperr.Validation("description cannot be more than 2000 characters")
	case req.Category == "":
		return apperr.Validation("category is required")
	case req.CoverImage == "":
		return apperr.Validation("cover image is required")
	case req.FileURL == "":
		return apperr.Validation("file URL is required")
	case !models.ValidFormat(req.FileFormat):
		return apperr.Validation("file format must be PDF, EPUB or MOBI")
	case req.FileSize <= 0:
		return apperr.Validation("file size is required")
	}
	return nil
}

// Create handles POST /api/books (admin).
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}
	var req createBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}
	categoryID, err := primitive.ObjectIDFromHex(req.Category)
	if err != nil {
		writeError(w, apperr.Validation("invalid category id"))
		return
	}
	book := &models.Book{
		Title:       strings.TrimSpace(req.Title),
		Author:      strings.TrimSpace(req.Author),
		Description: req.Description,
		ISBN:        req.ISBN,
		Category:    categoryID,
		CoverImage:  req.CoverImage,
		CoverKey:    req.CoverKey,
		FileURL:     req.FileURL,
		FileKey:     req.FileKey,
		FileFormat:  req.FileFormat,
		FileSize:    req.FileSize,
		Language:    req.Language,
		Publisher:   req.Publisher,
		Pages:       req.Pages,
		IsFeatured:  req.IsFeatured,
		Tags:        req.Tags,
		CreatedBy:   userID,
	}
	if req.PublishedDate != "" {
		if t, err := time.Parse("2006-01-02", req.PublishedDate); err == nil {
			book.PublishedDate = &t
		}
	}
	id, err := h.DB.CreateBook(r.Context(), book)
	if err != nil {
		writeError(w, err)
		return
	}
	book.ID = id
	writeData(w, http.StatusCreated, book)
}

type updateBookRequest struct {
	Title         *string  `json:"title"`
	Author        *string  `json:"author"`
	Description   *string  `json:"description"`
	ISBN          *string  `json:"isbn"`
	Category      *string  `json:"category"`
	CoverImage    *string  `json:"coverImage"`
	CoverKey      *string  `json:"coverKey"`
	FileURL       *string  `json:"fileUrl"`
	FileKey       *string  `json:"fileKey"`
	FileFormat    *string  `json:"fileFormat"`
	FileSize      *int64   `json:"fileSize"`
	Language      *string  `json:"language"`
	Publisher     *string  `json:"publisher"`
	PublishedDate *string  `json:"publishedDate"`
	Pages         *int     `json:"pages"`
	IsFeatured    *bool    `json:"isFeatured"`
	Tags          []string `json:"tags"`
}

// Update handles PUT /api/books/{id} (admin). A category change keeps
// both categories' book counts in sync.
func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := bookIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	if req.FileFormat != nil && !models.ValidFormat(*req.FileFormat) {
		writeError(w, apperr.Validation("file format must be PDF, EPUB or MOBI"))
		return
	}
	if req.Title != nil && utf8.RuneCountInString(*req.Title) > models.MaxTitleLen {
		writeError(w, apperr.Validation("title cannot be more than 200 characters"))
		return
	}
	if req.Description != nil && utf8.RuneCountInString(*req.Description) > models.MaxDescriptionLen {
		writeError(w, apperr.Validation("description cannot be more than 2000 characters"))
		return
	}
	upd := store.BookUpdate{
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		ISBN:        req.ISBN,
		CoverImage:  req.CoverImage,
		CoverKey:    req.CoverKey,
		FileURL:     req.FileURL,
		FileKey:     req.FileKey,
		FileFormat:  req.FileFormat,
		FileSize:    req.FileSize,
		Language:    req.Language,
		Publisher:   req.Publisher,
		Pages:       req.Pages,
		IsFeatured:  req.IsFeatured,
		Tags:        req.Tags,
	}
	if req.Category != nil {
		catID, err := primitive.ObjectIDFromHex(*req.Category)
		if err != nil {
			writeError(w, apperr.Validation("invalid category id"))
			return
		}
		upd.Category = &catID
	}
	if req.PublishedDate != nil {
		t, err := time.Parse("2006-01-02", *req.PublishedDate)
		if err != nil {
			writeError(w, apperr.Validation("publishedDate must be YYYY-MM-DD"))
			return
		}
		upd.PublishedDate = &t
	}
	book, err := h.DB.UpdateBook(r.Context(), id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, book)
}

// Delete handles DELETE /api/books/{id} (admin). S3 cleanup is best
// effort once the document is gone.
func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := bookIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	book, err := h.DB.DeleteBook(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.S3 != nil {
		if book.FileKey != "" {
			if err := h.S3.Delete(r.Context(), book.FileKey); err != nil {
				log.Printf("delete book file %s: %v", book.FileKey, err)
			}
		}
		if book.CoverKey != "" {
			if err := h.S3.Delete(r.Context(), book.CoverKey); err != nil {
				log.Printf("delete cover %s: %v", book.CoverKey, err)
			}
		}
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Book deleted successfully"})
}

type addReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// AddReview handles POST /api/books/{id}/reviews. One review per user
// per book; the store enforces it atomically.
func (h *BooksHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}
	id, err := bookIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req addReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	book, err := h.DB.AddReview(r.Context(), id, models.Review{
		User:    userID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "Review added successfully", Data: book})
}

type downloadResponse struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
}

// Download handles GET /api/books/{id}/download: bumps the raw download
// counter, appends to the user's download log and returns the file
// location. Counter and log are best-effort relative to each other; both
// writes are individually atomic.
func (h *BooksHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}
	id, err := bookIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	book, err := h.DB.BookByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.DB.IncrementDownloads(r.Context(), id); err != nil {
		log.Printf("increment downloads for %s: %v", id.Hex(), err)
	}
	if err := h.DB.RecordDownload(r.Context(), userID, id); err != nil {
		log.Printf("record download for user %s: %v", userID.Hex(), err)
	}
	fileURL := book.FileURL
	if h.S3 != nil && book.FileKey != "" {
		// Short-lived URL with the book's title as the saved filename;
		// falls back to the stored public URL if presigning fails.
		url, err := h.S3.PresignedGetURL(r.Context(), book.FileKey, downloadURLTTL, book.FileName())
		if err != nil {
			log.Printf("presign download for %s: %v", id.Hex(), err)
		} else {
			fileURL = url
		}
	}
	writeData(w, http.StatusOK, downloadResponse{
		FileURL:  fileURL,
		FileName: book.FileName(),
	})
}

// Related handles GET /api/books/{id}/related: same category, excluding
// the book itself, best-rated first.
func (h *BooksHandler) Related(w http.ResponseWriter, r *http.Request) {
	id, err := bookIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	book, err := h.DB.BookByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	related, err := h.DB.RelatedBooks(r.Context(), book, relatedBooksLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.DB.WithRefs(r.Context(), related)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func bookIDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid book id")
	}
	return id, nil
}

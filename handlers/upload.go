package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/openshelf/elibrary/backend/apperr"
	"github.com/openshelf/elibrary/backend/models"
	"github.com/openshelf/elibrary/backend/service"
)

// UploadHandler pushes book files and cover images to the media store.
// The admin UI uploads artifacts first, then creates the book with the
// returned URLs and keys.
type UploadHandler struct {
	S3       *service.S3Service
	MaxBytes int64
}

var bookContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".epub": "application/epub+zip",
	".mobi": "application/x-mobipocket-ebook",
}

var coverContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

type uploadResponse struct {
	URL    string `json:"url"`
	Key    string `json:"key"`
	Size   int64  `json:"size"`
	Format string `json:"format,omitempty"` // set for book files: PDF, EPUB or MOBI
}

// Upload handles POST /api/upload (admin). The "kind" form field selects
// cover or book; extensions are whitelisted per kind.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.S3 == nil {
		writeError(w, apperr.Storage(errors.New("media storage not configured")))
		return
	}
	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		writeError(w, apperr.Validation("failed to parse multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.Validation("missing file"))
		return
	}
	defer file.Close()

	kind := r.FormValue("kind")
	ext := strings.ToLower(filepath.Ext(header.Filename))

	var folder, contentType, format string
	switch kind {
	case "cover":
		ct, ok := coverContentTypes[ext]
		if !ok {
			writeError(w, apperr.Validation("cover must be a JPG, JPEG or PNG file"))
			return
		}
		folder, contentType = "covers/", ct
	case "book":
		ct, ok := bookContentTypes[ext]
		if !ok {
			writeError(w, apperr.Validation("book must be a PDF, EPUB or MOBI file"))
			return
		}
		folder, contentType = "books/", ct
		format = strings.ToUpper(ext[1:])
		if !models.ValidFormat(format) {
			writeError(w, apperr.Validation("unsupported book format"))
			return
		}
	default:
		writeError(w, apperr.Validation(`kind must be "cover" or "book"`))
		return
	}

	key, url, err := h.S3.Upload(r.Context(), folder, header.Filename, file, contentType)
	if err != nil {
		writeError(w, apperr.Storage(err))
		return
	}
	writeData(w, http.StatusCreated, uploadResponse{
		URL:    url,
		Key:    key,
		Size:   header.Size,
		Format: format,
	})
}

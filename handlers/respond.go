package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/openshelf/elibrary/backend/apperr"
)

// envelope is the response shape the frontend expects on every endpoint.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeError maps a taxonomy error to its HTTP status. Unknown errors
// become a 500 with the cause logged server-side only.
func writeError(w http.ResponseWriter, err error) {
	ae := apperr.As(err)
	if ae == nil {
		ae = apperr.Internal(err)
	}
	if ae.HTTPStatus >= http.StatusInternalServerError && ae.Cause != nil {
		log.Printf("%s: %v", ae.Code, ae.Cause)
	}
	writeJSON(w, ae.HTTPStatus, struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Code    string `json:"code"`
	}{Error: ae.Message, Code: ae.Code})
}

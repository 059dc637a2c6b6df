package utils

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/AnshRaj112/chirp-backend/internal/apperr"
)

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   apperr.Kind       `json:"error"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to its status code. Internal causes are logged and
// never sent to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.From(err)
	if e.Kind == apperr.KindInternal {
		hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	WriteJSON(w, e.Status(), ErrorResponse{
		Success: false,
		Error:   e.Kind,
		Message: e.Message,
		Errors:  e.Fields,
	})
}

// Response is the body written for every successful request.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Result  interface{} `json:"result,omitempty"`
}

// WriteSuccess writes a Response with the given status.
func WriteSuccess(w http.ResponseWriter, status int, message string, result interface{}) {
	WriteJSON(w, status, Response{Success: true, Message: message, Result: result})
}

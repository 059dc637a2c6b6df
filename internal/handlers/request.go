package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/chirp-backend/internal/apperr"
	"github.com/AnshRaj112/chirp-backend/internal/middleware"
)

const maxBodyBytes = 1 << 20

var (
	ErrInvalidBody = apperr.BadRequest("Invalid request body")
	errNoUser      = apperr.Unauthorized("Access token is required")
)

// decodeJSON reads a single JSON object from the body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(ErrInvalidBody, err)
	}
	return nil
}

// currentUser returns the id stored by the authorization gate.
func currentUser(r *http.Request) (primitive.ObjectID, error) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return primitive.NilObjectID, errNoUser
	}
	return id, nil
}

func objectIDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, invalidID(name)
	}
	return id, nil
}

func parseObjectID(field, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
	if err != nil {
		return primitive.NilObjectID, invalidID(field)
	}
	return id, nil
}

func invalidID(field string) *apperr.Error {
	return &apperr.Error{
		Kind:    apperr.KindValidation,
		Message: "Validation error",
		Fields:  map[string]string{field: "Invalid " + strings.ReplaceAll(field, "_", " ")},
	}
}

// parseDate accepts an ISO 8601 date-time or a bare date.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"finsmart/internal/core"
	"finsmart/internal/middleware/trace"
)

type contextKey string

const ownerIDKey contextKey = "owner_id"

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a storage failure: logged in full, returned
// without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var kind string
	switch {
	case errors.Is(err, core.ErrInvalidArgument),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrSameAccount):
		status, kind = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, core.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, core.ErrAlreadyExists):
		status, kind = http.StatusConflict, "already_exists"
	case errors.Is(err, core.ErrUnauthorized):
		status, kind = http.StatusUnauthorized, "unauthorized"
	default:
		status, kind = http.StatusInternalServerError, "storage_failure"
		slog.ErrorContext(r.Context(), "Request failed",
			"request_id", trace.GetRequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		err = errors.New("internal error")
	}

	var body errorBody
	body.Error.Kind = kind
	body.Error.Message = err.Error()
	writeJSON(w, status, body)
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed body: %v", core.ErrInvalidArgument, err)
	}
	return nil
}

// ownerID returns the authenticated user id placed by the auth middleware.
func ownerID(r *http.Request) string {
	id, _ := r.Context().Value(ownerIDKey).(string)
	return id
}

// parseAmount converts a decimal amount string from a request into cents.
func parseAmount(s string) (int64, error) {
	cents, err := core.ParseAmountToCents(s)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", core.ErrInvalidAmount, s)
	}
	return cents, nil
}

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/inventar/internal/movement"
	"github.com/erazemk/inventar/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// storeError answers with the status matching err. Unexpected errors are
// logged under action and hidden from the client.
func storeError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalid),
		errors.Is(err, movement.ErrMissingItem),
		errors.Is(err, movement.ErrInvalidReason),
		errors.Is(err, movement.ErrNoDestination):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrInUse),
		errors.Is(err, movement.ErrHolderMismatch),
		errors.Is(err, movement.ErrSameHolder):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, movement.ErrItemRetired):
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("failed to "+action, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

// int64Path parses a numeric path value, answering 400 on failure.
func int64Path(w http.ResponseWriter, r *http.Request, name, what string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid "+what+" id")
		return 0, false
	}
	return id, true
}

// emptyIfNil keeps list endpoints returning [] instead of null.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

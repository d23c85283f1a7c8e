package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/inventar/internal/store"
)

// LocationsHandler handles location endpoints.
type LocationsHandler struct {
	DB *sql.DB
}

type createLocationRequest struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// List handles GET /api/locations.
func (h *LocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := store.ListLocations(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "list locations")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(locations))
}

// Create handles POST /api/locations.
func (h *LocationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLocationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loc, err := store.CreateLocation(r.Context(), h.DB, req.Name, req.Capacity)
	if err != nil {
		storeError(w, err, "create location")
		return
	}

	slog.Info("location created", "user", GetClaims(r.Context()).Username, "location", loc.Name)
	jsonResponse(w, http.StatusCreated, loc)
}

// Get handles GET /api/locations/{id}.
func (h *LocationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Path(w, r, "id", "location")
	if !ok {
		return
	}

	loc, err := store.GetLocation(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "get location")
		return
	}
	if loc == nil || loc.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "location not found")
		return
	}
	jsonResponse(w, http.StatusOK, loc)
}

// Update handles PATCH /api/locations/{id}.
func (h *LocationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Path(w, r, "id", "location")
	if !ok {
		return
	}

	var req store.LocationUpdate
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loc, err := store.UpdateLocation(r.Context(), h.DB, id, req)
	if err != nil {
		storeError(w, err, "update location")
		return
	}

	slog.Info("location updated", "user", GetClaims(r.Context()).Username, "location", loc.Name)
	jsonResponse(w, http.StatusOK, loc)
}

// Delete handles DELETE /api/locations/{id}.
func (h *LocationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Path(w, r, "id", "location")
	if !ok {
		return
	}

	if err := store.DeleteLocation(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "delete location")
		return
	}

	slog.Info("location deleted", "user", GetClaims(r.Context()).Username, "location_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "location deleted"})
}

// Items handles GET /api/locations/{id}/items.
func (h *LocationsHandler) Items(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Path(w, r, "id", "location")
	if !ok {
		return
	}

	items, err := store.ListItemsAtLocation(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "list location items")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(items))
}

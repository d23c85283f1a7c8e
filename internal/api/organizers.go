package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/inventar/internal/store"
)

// OrganizersHandler handles endpoints for people who hold items.
type OrganizersHandler struct {
	DB *sql.DB
}

type organizerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// List handles GET /api/organizers.
func (h *OrganizersHandler) List(w http.ResponseWriter, r *http.Request) {
	organizers, err := store.ListOrganizers(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "list organizers")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(organizers))
}

// Create handles POST /api/organizers.
func (h *OrganizersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req organizerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := store.CreateOrganizer(r.Context(), h.DB, req.FirstName, req.LastName, req.Email)
	if err != nil {
		storeError(w, err, "create organizer")
		return
	}

	slog.Info("organizer created", "user", GetClaims(r.Context()).Username, "organizer", o.FullName())
	jsonResponse(w, http.StatusCreated, o)
}

// Get handles GET /api/organizers/{id}.
func (h *OrganizersHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := store.GetOrganizer(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		storeError(w, err, "get organizer")
		return
	}
	if o == nil || o.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "organizer not found")
		return
	}
	jsonResponse(w, http.StatusOK, o)
}

// Update handles PUT /api/organizers/{id}.
func (h *OrganizersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req organizerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.UpdateOrganizer(r.Context(), h.DB, id, req.FirstName, req.LastName, req.Email); err != nil {
		storeError(w, err, "update organizer")
		return
	}

	o, err := store.GetOrganizer(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "get organizer")
		return
	}
	slog.Info("organizer updated", "user", GetClaims(r.Context()).Username, "organizer", o.FullName())
	jsonResponse(w, http.StatusOK, o)
}

// Delete handles DELETE /api/organizers/{id}.
func (h *OrganizersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := store.DeleteOrganizer(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "delete organizer")
		return
	}

	slog.Info("organizer deleted", "user", GetClaims(r.Context()).Username, "organizer_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "organizer deleted"})
}

// Items handles GET /api/organizers/{id}/items.
func (h *OrganizersHandler) Items(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItemsHeldBy(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		storeError(w, err, "list organizer items")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(items))
}

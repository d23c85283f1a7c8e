package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/inventar/internal/cache"
	"github.com/erazemk/inventar/internal/movement"
	"github.com/erazemk/inventar/internal/store"
)

// IdempotencyTTL is how long an Idempotency-Key blocks repeats.
const IdempotencyTTL = 24 * time.Hour

// MovementsHandler handles movement endpoints.
type MovementsHandler struct {
	DB    *sql.DB
	Cache cache.Cache
}

// List handles GET /api/inventory/movements.
func (h *MovementsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.MovementFilter{
		ItemID:      q.Get("item_id"),
		Query:       q.Get("q"),
		OrganizerID: q.Get("organizer_id"),
		Reason:      q.Get("reason"),
	}

	if v := q.Get("location_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid location_id")
			return
		}
		filter.LocationID = id
	}
	if v := q.Get("since"); v != "" {
		since, err := parseSince(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid since: use RFC 3339 or YYYY-MM-DD")
			return
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}

	movements, err := store.ListMovements(r.Context(), h.DB, filter)
	if err != nil {
		storeError(w, err, "list movements")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(movements))
}

// Get handles GET /api/inventory/movements/{id}.
func (h *MovementsHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := store.GetMovement(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		storeError(w, err, "get movement")
		return
	}
	if m == nil {
		jsonError(w, http.StatusNotFound, "movement not found")
		return
	}
	jsonResponse(w, http.StatusOK, m)
}

// Create handles POST /api/inventory/movements. A repeated
// Idempotency-Key header is answered with 409 instead of moving twice.
func (h *MovementsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req movement.Request
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// With no destination chosen, the acting user receives the item unless
	// the client asked for it to be unassigned.
	unassign := req.Unassigns()
	req = req.Normalize()
	if req.Destination().Empty() && !unassign && claims.OrganizerID != nil {
		req.ToOrganizerID = claims.OrganizerID
	}

	release, ok := h.reserve(w, r)
	if !ok {
		return
	}

	m, err := store.CreateMovement(r.Context(), h.DB, req, actorOf(r))
	if err != nil {
		release()
		storeError(w, err, "record movement")
		return
	}

	slog.Info("movement recorded", "user", claims.Username,
		"item", m.ItemName, "item_id", m.ItemID, "reason", m.Reason)
	jsonResponse(w, http.StatusCreated, m)
}

// Bulk handles POST /api/inventory/movements/bulk.
func (h *MovementsHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req store.BulkMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	release, ok := h.reserve(w, r)
	if !ok {
		return
	}

	moved, err := store.BulkMove(r.Context(), h.DB, req, actorOf(r))
	if err != nil {
		release()
		storeError(w, err, "move items")
		return
	}

	slog.Info("items moved", "user", GetClaims(r.Context()).Username,
		"count", len(moved), "to_location_id", req.ToLocationID)
	jsonResponse(w, http.StatusCreated, emptyIfNil(moved))
}

// Delete handles DELETE /api/inventory/movements/{id}.
func (h *MovementsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := store.DeleteMovement(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "delete movement")
		return
	}

	slog.Info("movement deleted", "user", GetClaims(r.Context()).Username, "movement_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "movement deleted"})
}

// reserve claims the request's Idempotency-Key, if any. The returned
// release func frees the key again so a failed request can be retried.
func (h *MovementsHandler) reserve(w http.ResponseWriter, r *http.Request) (func(), bool) {
	header := r.Header.Get("Idempotency-Key")
	if header == "" {
		return func() {}, true
	}

	key := cache.IdempotencyKey(GetClaims(r.Context()).Username, header)
	ok, err := h.Cache.Reserve(r.Context(), key, IdempotencyTTL)
	if err != nil {
		slog.Error("failed to reserve idempotency key", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if !ok {
		jsonError(w, http.StatusConflict, "duplicate request")
		return nil, false
	}

	return func() {
		if err := h.Cache.Delete(r.Context(), key); err != nil {
			slog.Warn("failed to release idempotency key", "error", err)
		}
	}, true
}

func actorOf(r *http.Request) store.Actor {
	claims := GetClaims(r.Context())
	userID := claims.UserID
	return store.Actor{UserID: &userID, OrganizerID: claims.OrganizerID}
}

func parseSince(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}

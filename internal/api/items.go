package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/inventar/internal/imaging"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	DB *sql.DB
}

// patchItemRequest holds the editable details; absent fields are kept.
type patchItemRequest struct {
	Name         *string `json:"name"`
	AssetTag     *string `json:"asset_tag"`
	SerialNumber *string `json:"serial_number"`
	Notes        *string `json:"notes"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

// List handles GET /api/inventory/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ItemFilter{
		Query:  q.Get("q"),
		Status: q.Get("status"),
		Holder: q.Get("holder"),
	}
	if v := q.Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		filter.CategoryID = id
	}

	items, err := store.ListItems(r.Context(), h.DB, filter)
	if err != nil {
		storeError(w, err, "list items")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(items))
}

// Lookup handles GET /api/inventory/items/lookup?code=. It resolves a
// scanned barcode to an item.
func (h *ItemsHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		jsonError(w, http.StatusBadRequest, "code required")
		return
	}

	item, err := store.FindItemByCode(r.Context(), h.DB, code)
	if err != nil {
		storeError(w, err, "look up item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "no item matches code")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/inventory/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req store.NewItem
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, req)
	if err != nil {
		storeError(w, err, "create item")
		return
	}

	slog.Info("item created", "user", GetClaims(r.Context()).Username, "item", item.Label(), "item_id", item.ID)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/inventory/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.liveItem(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PATCH /api/inventory/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.liveItem(w, r)
	if !ok {
		return
	}

	var req patchItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	details := store.ItemDetails{
		Name:         pick(req.Name, item.Name),
		AssetTag:     pick(req.AssetTag, item.AssetTag),
		SerialNumber: pick(req.SerialNumber, item.SerialNumber),
		Notes:        pick(req.Notes, item.Notes),
	}
	updated, err := store.UpdateItem(r.Context(), h.DB, item.ID, details)
	if err != nil {
		storeError(w, err, "update item")
		return
	}

	slog.Info("item updated", "user", GetClaims(r.Context()).Username, "item", updated.Label(), "item_id", updated.ID)
	jsonResponse(w, http.StatusOK, updated)
}

// SetStatus handles PUT /api/inventory/items/{id}/status.
func (h *ItemsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := store.SetItemStatus(r.Context(), h.DB, r.PathValue("id"), req.Status)
	if err != nil {
		storeError(w, err, "set item status")
		return
	}

	slog.Info("item status set", "user", GetClaims(r.Context()).Username, "item_id", item.ID, "status", item.Status)
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/inventory/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, err := store.DeleteItem(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		storeError(w, err, "delete item")
		return
	}

	slog.Info("item deleted", "user", GetClaims(r.Context()).Username, "item", item.Label(), "item_id", item.ID)
	jsonResponse(w, http.StatusOK, item)
}

// UploadImage handles PUT /api/inventory/items/{id}/image. The photo is
// sent as the multipart field "image".
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	result, err := imaging.Process(file)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupported) {
			jsonError(w, http.StatusUnsupportedMediaType, err.Error())
			return
		}
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, id, result.Data, result.MIME); err != nil {
		storeError(w, err, "save image")
		return
	}

	slog.Info("item image uploaded", "user", GetClaims(r.Context()).Username, "item_id", id, "bytes", len(result.Data))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/inventory/items/{id}/image. Pass ?size=thumb
// for a small preview.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := store.GetItemImage(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		storeError(w, err, "get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	if r.URL.Query().Get("size") == "thumb" {
		thumb, err := imaging.Thumbnail(data)
		if err != nil {
			slog.Error("failed to build thumbnail", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to build thumbnail")
			return
		}
		data, mime = thumb.Data, thumb.MIME
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}

// History handles GET /api/inventory/items/{id}/movements.
func (h *ItemsHandler) History(w http.ResponseWriter, r *http.Request) {
	item, ok := h.liveItem(w, r)
	if !ok {
		return
	}

	history, err := store.GetItemHistory(r.Context(), h.DB, item.ID)
	if err != nil {
		storeError(w, err, "get item history")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(history))
}

// liveItem loads the {id} item, answering 404 for missing or deleted items.
func (h *ItemsHandler) liveItem(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	item, err := store.GetItem(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		storeError(w, err, "get item")
		return nil, false
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil, false
	}
	return item, true
}

func pick(v *string, fallback string) string {
	if v != nil {
		return *v
	}
	return fallback
}

package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/inventar/internal/store"
)

// CategoriesHandler handles item category endpoints.
type CategoriesHandler struct {
	DB *sql.DB
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// List handles GET /api/inventory/categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "list categories")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(categories))
}

// Create handles POST /api/inventory/categories.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := store.CreateCategory(r.Context(), h.DB, req.Name, req.Description)
	if err != nil {
		storeError(w, err, "create category")
		return
	}

	slog.Info("category created", "user", GetClaims(r.Context()).Username, "category", category.Name)
	jsonResponse(w, http.StatusCreated, category)
}

// Get handles GET /api/inventory/categories/{id}.
func (h *CategoriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Path(w, r, "id", "category")
	if !ok {
		return
	}

	category, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "get category")
		return
	}
	if category == nil {
		jsonError(w, http.StatusNotFound, "category not found")
		return
	}
	jsonResponse(w, http.StatusOK, category)
}

// Update handles PUT /api/inventory/categories/{id}.
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Path(w, r, "id", "category")
	if !ok {
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.UpdateCategory(r.Context(), h.DB, id, req.Name, req.Description); err != nil {
		storeError(w, err, "update category")
		return
	}

	category, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "get category")
		return
	}
	slog.Info("category updated", "user", GetClaims(r.Context()).Username, "category", category.Name)
	jsonResponse(w, http.StatusOK, category)
}

// Delete handles DELETE /api/inventory/categories/{id}.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Path(w, r, "id", "category")
	if !ok {
		return
	}

	if err := store.DeleteCategory(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "delete category")
		return
	}

	slog.Info("category deleted", "user", GetClaims(r.Context()).Username, "category_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "category deleted"})
}

// Package api exposes the inventory over a JSON REST interface.
package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/inventar/internal/cache"
	"github.com/erazemk/inventar/internal/model"
)

// DefaultCacheTTL bounds how stale a cached report may get when nothing
// invalidates it.
const DefaultCacheTTL = time.Minute

// Options configures optional router dependencies.
type Options struct {
	// Cache holds report snapshots and idempotency keys. Defaults to an
	// in-memory cache.
	Cache    cache.Cache
	CacheTTL time.Duration
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, opts Options) http.Handler {
	if opts.Cache == nil {
		opts.Cache = cache.NewMemory()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}

	mux := http.NewServeMux()

	healthHandler := &HealthHandler{DB: db}
	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	categoriesHandler := &CategoriesHandler{DB: db}
	locationsHandler := &LocationsHandler{DB: db}
	organizersHandler := &OrganizersHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db}
	movementsHandler := &MovementsHandler{DB: db, Cache: opts.Cache}
	analyticsHandler := &AnalyticsHandler{DB: db, Cache: opts.Cache, TTL: opts.CacheTTL}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	manager := func(h http.HandlerFunc) http.Handler { return authMW(requireManager(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public.
	mux.HandleFunc("GET /api/health", healthHandler.Check)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Session.
	mux.Handle("GET /api/auth/me", authed(authHandler.Me))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Categories: read (all roles), write (manager+).
	mux.Handle("GET /api/inventory/categories", authed(categoriesHandler.List))
	mux.Handle("POST /api/inventory/categories", manager(categoriesHandler.Create))
	mux.Handle("GET /api/inventory/categories/{id}", authed(categoriesHandler.Get))
	mux.Handle("PUT /api/inventory/categories/{id}", manager(categoriesHandler.Update))
	mux.Handle("DELETE /api/inventory/categories/{id}", manager(categoriesHandler.Delete))

	// Locations.
	mux.Handle("GET /api/locations", authed(locationsHandler.List))
	mux.Handle("POST /api/locations", manager(locationsHandler.Create))
	mux.Handle("GET /api/locations/{id}", authed(locationsHandler.Get))
	mux.Handle("PATCH /api/locations/{id}", manager(locationsHandler.Update))
	mux.Handle("DELETE /api/locations/{id}", manager(locationsHandler.Delete))
	mux.Handle("GET /api/locations/{id}/items", authed(locationsHandler.Items))

	// Organizers.
	mux.Handle("GET /api/organizers", authed(organizersHandler.List))
	mux.Handle("POST /api/organizers", manager(organizersHandler.Create))
	mux.Handle("GET /api/organizers/{id}", authed(organizersHandler.Get))
	mux.Handle("PUT /api/organizers/{id}", manager(organizersHandler.Update))
	mux.Handle("DELETE /api/organizers/{id}", manager(organizersHandler.Delete))
	mux.Handle("GET /api/organizers/{id}/items", authed(organizersHandler.Items))

	// Items.
	mux.Handle("GET /api/inventory/items", authed(itemsHandler.List))
	mux.Handle("GET /api/inventory/items/lookup", authed(itemsHandler.Lookup))
	mux.Handle("POST /api/inventory/items", manager(itemsHandler.Create))
	mux.Handle("GET /api/inventory/items/{id}", authed(itemsHandler.Get))
	mux.Handle("PATCH /api/inventory/items/{id}", manager(itemsHandler.Update))
	mux.Handle("DELETE /api/inventory/items/{id}", manager(itemsHandler.Delete))
	mux.Handle("PUT /api/inventory/items/{id}/status", manager(itemsHandler.SetStatus))
	mux.Handle("PUT /api/inventory/items/{id}/image", manager(itemsHandler.UploadImage))
	mux.Handle("GET /api/inventory/items/{id}/image", authed(itemsHandler.GetImage))
	mux.Handle("GET /api/inventory/items/{id}/movements", authed(itemsHandler.History))

	// Movements: any role may record, manager+ may delete records.
	mux.Handle("GET /api/inventory/movements", authed(movementsHandler.List))
	mux.Handle("POST /api/inventory/movements", authed(movementsHandler.Create))
	mux.Handle("POST /api/inventory/movements/bulk", authed(movementsHandler.Bulk))
	mux.Handle("GET /api/inventory/movements/{id}", authed(movementsHandler.Get))
	mux.Handle("DELETE /api/inventory/movements/{id}", manager(movementsHandler.Delete))

	// Reports.
	mux.Handle("GET /api/inventory/analytics", authed(analyticsHandler.Summary))
	mux.Handle("GET /api/inventory/catalog", authed(analyticsHandler.Catalog))

	return InvalidateMiddleware(opts.Cache)(mux)
}

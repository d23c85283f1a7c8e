package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/inventar/internal/analytics"
	"github.com/erazemk/inventar/internal/cache"
	"github.com/erazemk/inventar/internal/store"
)

// AnalyticsHandler serves cached inventory reports.
type AnalyticsHandler struct {
	DB    *sql.DB
	Cache cache.Cache
	TTL   time.Duration
}

// Summary handles GET /api/inventory/analytics.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	var summary analytics.Summary
	h.serve(w, r, cache.KeySummary, &summary, func(s *store.Snapshot) any {
		return analytics.Summarize(s.Items, s.Categories, s.Locations, s.Movements, time.Now().UTC())
	})
}

// Catalog handles GET /api/inventory/catalog.
func (h *AnalyticsHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	var catalog []analytics.CategoryBreakdown
	h.serve(w, r, cache.KeyCatalog, &catalog, func(s *store.Snapshot) any {
		return emptyIfNil(analytics.Catalog(s.Items, s.Categories, s.Locations))
	})
}

// serve answers from the cache when possible and otherwise builds the
// report from a fresh snapshot and caches it under the current generation.
func (h *AnalyticsHandler) serve(w http.ResponseWriter, r *http.Request, base string, dst any, build func(*store.Snapshot) any) {
	ctx := r.Context()

	var gen int64
	_, genErr := h.Cache.Get(ctx, cache.KeyGeneration, &gen)
	if genErr != nil {
		slog.Warn("failed to read report generation", "error", genErr)
	}
	key := cache.ReportKey(base, gen)

	if genErr == nil {
		hit, err := h.Cache.Get(ctx, key, dst)
		if err != nil {
			slog.Warn("failed to read cached report", "key", key, "error", err)
		}
		if hit && err == nil {
			w.Header().Set("X-Cache", "hit")
			jsonResponse(w, http.StatusOK, dst)
			return
		}
	}

	snap, err := store.LoadSnapshot(ctx, h.DB)
	if err != nil {
		storeError(w, err, "build report")
		return
	}
	report := build(snap)

	// A mutation that commits after the generation was read bumps it, so
	// this entry is never read again.
	if genErr == nil {
		if err := h.Cache.Set(context.WithoutCancel(ctx), key, report, h.TTL); err != nil {
			slog.Warn("failed to cache report", "key", key, "error", err)
		}
	}
	w.Header().Set("X-Cache", "miss")
	jsonResponse(w, http.StatusOK, report)
}

package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/inventar/internal/analytics"
	"github.com/erazemk/inventar/internal/auth"
	"github.com/erazemk/inventar/internal/cache"
	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	server *httptest.Server
	db     *sql.DB
	token  string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	server := httptest.NewServer(NewRouter(database, testJWTSecret, Options{}))
	t.Cleanup(server.Close)

	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	if _, err := store.CreateUser(ctx, database, "admin", string(hash), model.RoleAdmin); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	env := &testEnv{server: server, db: database}
	env.token = env.login(t, "admin", "password")
	return env
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	var resp struct {
		Token string `json:"token"`
	}
	status := e.call(t, "POST", "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if status != http.StatusOK {
		t.Fatalf("login failed: %d", status)
	}
	if resp.Token == "" {
		t.Fatal("empty token from login")
	}
	return resp.Token
}

// call sends a JSON request and decodes the response into out (if non-nil).
func (e *testEnv) call(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	resp := e.do(t, method, path, token, body, nil)
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, header http.Header) *http.Response {
	t.Helper()
	var data []byte
	if body != nil {
		data, _ = json.Marshal(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// seed creates a category, two locations and an organizer.
type seeded struct {
	category  model.Category
	shelf     model.Location
	storeroom model.Location
	ana       model.Organizer
}

func (e *testEnv) seed(t *testing.T) seeded {
	t.Helper()
	var s seeded
	if st := e.call(t, "POST", "/api/inventory/categories", e.token, map[string]string{"name": "Radios"}, &s.category); st != http.StatusCreated {
		t.Fatalf("create category: %d", st)
	}
	if st := e.call(t, "POST", "/api/locations", e.token, map[string]any{"name": "Shelf", "capacity": 5}, &s.shelf); st != http.StatusCreated {
		t.Fatalf("create location: %d", st)
	}
	if st := e.call(t, "POST", "/api/locations", e.token, map[string]any{"name": "Storeroom"}, &s.storeroom); st != http.StatusCreated {
		t.Fatalf("create location: %d", st)
	}
	if st := e.call(t, "POST", "/api/organizers", e.token, map[string]string{"first_name": "Ana", "last_name": "Novak"}, &s.ana); st != http.StatusCreated {
		t.Fatalf("create organizer: %d", st)
	}
	return s
}

func (e *testEnv) createItem(t *testing.T, s seeded, name string) model.Item {
	t.Helper()
	var item model.Item
	st := e.call(t, "POST", "/api/inventory/items", e.token, map[string]any{
		"category_id":        s.category.ID,
		"name":               name,
		"holder_location_id": s.shelf.ID,
	}, &item)
	if st != http.StatusCreated {
		t.Fatalf("create item: %d", st)
	}
	return item
}

func TestLoginEndpoint(t *testing.T) {
	env := setupTestServer(t)

	st := env.call(t, "POST", "/api/auth/login", "", map[string]string{"username": "admin", "password": "wrong"}, nil)
	if st != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", st)
	}

	var me model.User
	if st := env.call(t, "GET", "/api/auth/me", env.token, nil, &me); st != http.StatusOK {
		t.Fatalf("expected 200 from /me, got %d", st)
	}
	if me.Username != "admin" {
		t.Errorf("expected admin, got %q", me.Username)
	}
}

func TestHealth(t *testing.T) {
	env := setupTestServer(t)

	var body map[string]string
	if st := env.call(t, "GET", "/api/health", "", nil, &body); st != http.StatusOK {
		t.Fatalf("expected 200, got %d", st)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := setupTestServer(t)

	if st := env.call(t, "POST", "/api/auth/logout", env.token, nil, nil); st != http.StatusOK {
		t.Fatalf("expected 200, got %d", st)
	}
	if st := env.call(t, "GET", "/api/locations", env.token, nil, nil); st != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", st)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	env := setupTestServer(t)

	if st := env.call(t, "GET", "/api/inventory/items", "", nil, nil); st != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", st)
	}
	if st := env.call(t, "GET", "/api/inventory/items", "garbage", nil, nil); st != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad token, got %d", st)
	}
}

func TestRoleBasedAccess(t *testing.T) {
	env := setupTestServer(t)
	s := env.seed(t)

	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	user, err := store.CreateUser(ctx, env.db, "user1", string(hash), model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	userToken, _ := auth.GenerateToken(testJWTSecret, *user)

	// Regular users may not create items.
	st := env.call(t, "POST", "/api/inventory/items", userToken, map[string]any{
		"category_id": s.category.ID, "name": "Test", "holder_location_id": s.shelf.ID,
	}, nil)
	if st != http.StatusForbidden {
		t.Errorf("expected 403 for user creating item, got %d", st)
	}

	if st := env.call(t, "GET", "/api/users", userToken, nil, nil); st != http.StatusForbidden {
		t.Errorf("expected 403 for user accessing users, got %d", st)
	}

	// But they may record movements.
	item := env.createItem(t, s, "Radio 1")
	st = env.call(t, "POST", "/api/inventory/movements", userToken, map[string]any{
		"item_id": item.ID, "to_location_id": s.storeroom.ID, "reason": "transfer",
	}, nil)
	if st != http.StatusCreated {
		t.Errorf("expected 201 for user recording movement, got %d", st)
	}
}

func TestInventoryFlow(t *testing.T) {
	env := setupTestServer(t)
	s := env.seed(t)
	item := env.createItem(t, s, "Radio 1")

	// Check the radio out to Ana; the source comes from the item.
	var m model.Movement
	st := env.call(t, "POST", "/api/inventory/movements", env.token, map[string]any{
		"item_id":         item.ID,
		"to_organizer_id": s.ana.ID,
		"reason":          "checkout",
	}, &m)
	if st != http.StatusCreated {
		t.Fatalf("expected 201, got %d", st)
	}
	if m.FromLocationID == nil || *m.FromLocationID != s.shelf.ID {
		t.Errorf("expected source shelf, got %v", m.FromLocationID)
	}

	var got model.Item
	env.call(t, "GET", "/api/inventory/items/"+item.ID, env.token, nil, &got)
	if got.Status != model.ItemStatusCheckedOut {
		t.Errorf("expected checked_out, got %q", got.Status)
	}
	if got.HolderOrganizerID == nil || *got.HolderOrganizerID != s.ana.ID {
		t.Errorf("expected holder ana, got %v", got.HolderOrganizerID)
	}

	var held []model.Item
	env.call(t, "GET", "/api/organizers/"+s.ana.ID+"/items", env.token, nil, &held)
	if len(held) != 1 {
		t.Errorf("expected 1 item held by ana, got %d", len(held))
	}

	var filtered []model.Item
	env.call(t, "GET", "/api/inventory/items?holder=org:"+s.ana.ID, env.token, nil, &filtered)
	if len(filtered) != 1 {
		t.Errorf("expected 1 item for holder filter, got %d", len(filtered))
	}

	var history []model.Movement
	env.call(t, "GET", "/api/inventory/items/"+item.ID+"/movements", env.token, nil, &history)
	if len(history) != 1 || history[0].ItemName != "Radio 1" {
		t.Errorf("unexpected history: %+v", history)
	}

	// Stale source is a conflict.
	st = env.call(t, "POST", "/api/inventory/movements", env.token, map[string]any{
		"item_id":          item.ID,
		"from_location_id": s.shelf.ID,
		"to_location_id":   s.storeroom.ID,
		"reason":           "transfer",
	}, nil)
	if st != http.StatusConflict {
		t.Errorf("expected 409 for stale source, got %d", st)
	}

	// No destination is a bad request.
	st = env.call(t, "POST", "/api/inventory/movements", env.token, map[string]any{
		"item_id":         item.ID,
		"to_organizer_id": "unassigned",
		"reason":          "transfer",
	}, nil)
	if st != http.StatusBadRequest {
		t.Errorf("expected 400 without destination, got %d", st)
	}

	// Retired items cannot move.
	env.call(t, "PUT", "/api/inventory/items/"+item.ID+"/status", env.token, map[string]string{"status": "disposed"}, nil)
	st = env.call(t, "POST", "/api/inventory/movements", env.token, map[string]any{
		"item_id": item.ID, "to_location_id": s.storeroom.ID, "reason": "transfer",
	}, nil)
	if st != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for disposed item, got %d", st)
	}

	// The category is still in use.
	st = env.call(t, "DELETE", fmt.Sprintf("/api/inventory/categories/%d", s.category.ID), env.token, nil, nil)
	if st != http.StatusConflict {
		t.Errorf("expected 409 deleting used category, got %d", st)
	}

	// Unknown item.
	if st := env.call(t, "GET", "/api/inventory/items/nope", env.token, nil, nil); st != http.StatusNotFound {
		t.Errorf("expected 404, got %d", st)
	}
}

func TestItemPatchAndLookup(t *testing.T) {
	env := setupTestServer(t)
	s := env.seed(t)
	item := env.createItem(t, s, "Radio 1")

	var updated model.Item
	st := env.call(t, "PATCH", "/api/inventory/items/"+item.ID, env.token, map[string]string{"asset_tag": "R-001"}, &updated)
	if st != http.StatusOK {
		t.Fatalf("expected 200, got %d", st)
	}
	if updated.Name != "Radio 1" || updated.AssetTag != "R-001" {
		t.Errorf("patch should keep the name: %+v", updated)
	}

	var found model.Item
	if st := env.call(t, "GET", "/api/inventory/items/lookup?code=R-001", env.token, nil, &found); st != http.StatusOK {
		t.Fatalf("expected 200 from lookup, got %d", st)
	}
	if found.ID != item.ID {
		t.Errorf("lookup returned %s, want %s", found.ID, item.ID)
	}
	if st := env.call(t, "GET", "/api/inventory/items/lookup?code=none", env.token, nil, nil); st != http.StatusNotFound {
		t.Errorf("expected 404 for unknown code, got %d", st)
	}

	if st := env.call(t, "DELETE", "/api/inventory/items/"+item.ID, env.token, nil, nil); st != http.StatusOK {
		t.Fatalf("expected 200 from delete, got %d", st)
	}
	if st := env.call(t, "GET", "/api/inventory/items/"+item.ID, env.token, nil, nil); st != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", st)
	}
}

func TestMovementDefaultsToActingOrganizer(t *testing.T) {
	env := setupTestServer(t)
	s := env.seed(t)
	item := env.createItem(t, s, "Radio 1")

	var users []model.User
	env.call(t, "GET", "/api/users", env.token, nil, &users)
	st := env.call(t, "PUT", fmt.Sprintf("/api/users/%d", users[0].ID), env.token, map[string]string{"organizer_id": s.ana.ID}, nil)
	if st != http.StatusOK {
		t.Fatalf("linking organizer: %d", st)
	}
	token := env.login(t, "admin", "password")

	var m model.Movement
	st = env.call(t, "POST", "/api/inventory/movements", token, map[string]any{
		"item_id": item.ID,
		"reason":  "checkout",
	}, &m)
	if st != http.StatusCreated {
		t.Fatalf("expected 201, got %d", st)
	}
	if m.ToOrganizerID == nil || *m.ToOrganizerID != s.ana.ID {
		t.Errorf("expected destination ana, got %v", m.ToOrganizerID)
	}
	if m.MovedByOrganizerID == nil || *m.MovedByOrganizerID != s.ana.ID {
		t.Errorf("expected mover ana, got %v", m.MovedByOrganizerID)
	}
}

func TestMovementDefaultIgnoresPlaceholders(t *testing.T) {
	env := setupTestServer(t)
	s := env.seed(t)

	var users []model.User
	env.call(t, "GET", "/api/users", env.token, nil, &users)
	env.call(t, "PUT", fmt.Sprintf("/api/users/%d", users[0].ID), env.token, map[string]string{"organizer_id": s.ana.ID}, nil)
	token := env.login(t, "admin", "password")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"zero location", map[string]any{"to_location_id": 0}},
		{"empty organizer", map[string]any{"to_organizer_id": ""}},
		{"none organizer", map[string]any{"to_location_id": 0, "to_organizer_id": "none"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := env.createItem(t, s, "Radio "+tt.name)
			tt.body["item_id"] = item.ID
			tt.body["reason"] = "checkout"

			var m model.Movement
			if st := env.call(t, "POST", "/api/inventory/movements", token, tt.body, &m); st != http.StatusCreated {
				t.Fatalf("expected 201, got %d", st)
			}
			if m.ToOrganizerID == nil || *m.ToOrganizerID != s.ana.ID {
				t.Errorf("expected destination ana, got %v", m.ToOrganizerID)
			}
		})
	}

	// An explicit unassign still opts out of the default.
	item := env.createItem(t, s, "Radio unassigned")
	st := env.call(t, "POST", "/api/inventory/movements", token, map[string]any{
		"item_id": item.ID, "to_organizer_id": "unassigned", "reason": "transfer",
	}, nil)
	if st != http.StatusBadRequest {
		t.Errorf("expected 400 for explicit unassign, got %d", st)
	}
}

func TestIdempotencyKey(t *testing.T) {
	env := setupTestServer(t)
	s := env.seed(t)
	item := env.createItem(t, s, "Radio 1")

	header := http.Header{"Idempotency-Key": []string{"abc-123"}}
	body := map[string]any{"item_id": item.ID, "to_location_id": s.storeroom.ID, "reason": "transfer"}

	resp := env.do(t, "POST", "/api/inventory/movements", env.token, body, header)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp = env.do(t, "POST", "/api/inventory/movements", env.token, body, header)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for repeated key, got %d", resp.StatusCode)
	}

	// A failed request frees its key.
	failing := http.Header{"Idempotency-Key": []string{"def-456"}}
	bad := map[string]any{"item_id": item.ID, "to_location_id": 999, "reason": "transfer"}
	resp = env.do(t, "POST", "/api/inventory/movements", env.token, bad, failing)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body["to_location_id"] = s.shelf.ID
	resp = env.do(t, "POST", "/api/inventory/movements", env.token, body, failing)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 on retry, got %d", resp.StatusCode)
	}
}

func TestBulkMove(t *testing.T) {
	env := setupTestServer(t)
	s := env.seed(t)
	a := env.createItem(t, s, "A")
	b := env.createItem(t, s, "B")

	var moved []model.Movement
	st := env.call(t, "POST", "/api/inventory/movements/bulk", env.token, map[string]any{
		"item_ids":       []string{a.ID, b.ID},
		"to_location_id": s.storeroom.ID,
	}, &moved)
	if st != http.StatusCreated {
		t.Fatalf("expected 201, got %d", st)
	}
	if len(moved) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(moved))
	}

	var at []model.Item
	env.call(t, "GET", fmt.Sprintf("/api/locations/%d/items", s.storeroom.ID), env.token, nil, &at)
	if len(at) != 2 {
		t.Errorf("expected 2 items in storeroom, got %d", len(at))
	}

	var list []model.Movement
	env.call(t, "GET", fmt.Sprintf("/api/inventory/movements?location_id=%d", s.storeroom.ID), env.token, nil, &list)
	if len(list) != 2 {
		t.Errorf("expected 2 movements touching storeroom, got %d", len(list))
	}
}

func TestAnalyticsCacheInvalidation(t *testing.T) {
	env := setupTestServer(t)
	s := env.seed(t)
	env.createItem(t, s, "Radio 1")

	get := func() (analytics.Summary, string) {
		t.Helper()
		resp := env.do(t, "GET", "/api/inventory/analytics", env.token, nil, nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var sum analytics.Summary
		json.NewDecoder(resp.Body).Decode(&sum)
		return sum, resp.Header.Get("X-Cache")
	}

	sum, state := get()
	if state != "miss" || sum.TotalItems != 1 {
		t.Fatalf("expected miss with 1 item, got %s with %d", state, sum.TotalItems)
	}
	if _, state := get(); state != "hit" {
		t.Fatalf("expected hit, got %s", state)
	}

	env.createItem(t, s, "Radio 2")

	sum, state = get()
	if state != "miss" || sum.TotalItems != 2 {
		t.Errorf("expected fresh report with 2 items, got %s with %d", state, sum.TotalItems)
	}
	if sum.CategoryCounts["Radios"] != 2 {
		t.Errorf("expected 2 radios, got %v", sum.CategoryCounts)
	}

	var catalog []analytics.CategoryBreakdown
	if st := env.call(t, "GET", "/api/inventory/catalog", env.token, nil, &catalog); st != http.StatusOK {
		t.Fatalf("expected 200, got %d", st)
	}
	if len(catalog) != 1 || catalog[0].TotalItems != 2 {
		t.Errorf("unexpected catalog: %+v", catalog)
	}
}

func TestItemImage(t *testing.T) {
	env := setupTestServer(t)
	s := env.seed(t)
	item := env.createItem(t, s, "Camera")

	img := image.NewRGBA(image.Rect(0, 0, 600, 300))
	for x := 0; x < 600; x++ {
		for y := 0; y < 300; y++ {
			img.Set(x, y, color.RGBA{0, 128, 255, 255})
		}
	}
	var pngData bytes.Buffer
	png.Encode(&pngData, img)

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, _ := mw.CreateFormFile("image", "camera.png")
	part.Write(pngData.Bytes())
	mw.Close()

	req, _ := http.NewRequest("PUT", env.server.URL+"/api/inventory/items/"+item.ID+"/image", &form)
	req.Header.Set("Authorization", "Bearer "+env.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from upload, got %d", resp.StatusCode)
	}

	resp = env.do(t, "GET", "/api/inventory/items/"+item.ID+"/image?size=thumb", env.token, nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from thumbnail, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", ct)
	}
	thumb, _, err := image.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decoding thumbnail: %v", err)
	}
	if thumb.Bounds().Dx() > 200 {
		t.Errorf("thumbnail too wide: %d", thumb.Bounds().Dx())
	}
}

// lateWriteCache simulates a mutation that lands while a report is being
// built: the first report Set is preceded by an invalidation.
type lateWriteCache struct {
	cache.Cache
	fired bool
}

func (c *lateWriteCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !c.fired {
		c.fired = true
		if _, err := c.Incr(ctx, cache.KeyGeneration); err != nil {
			return err
		}
	}
	return c.Cache.Set(ctx, key, v, ttl)
}

func TestReportBuiltBeforeInvalidationIsNotServed(t *testing.T) {
	database := db.NewTestDB(t)
	h := &AnalyticsHandler{DB: database, Cache: &lateWriteCache{Cache: cache.NewMemory()}, TTL: time.Minute}

	get := func() string {
		rec := httptest.NewRecorder()
		h.Summary(rec, httptest.NewRequest("GET", "/api/inventory/analytics", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		return rec.Header().Get("X-Cache")
	}

	if state := get(); state != "miss" {
		t.Fatalf("expected miss, got %s", state)
	}
	if state := get(); state != "miss" {
		t.Fatalf("report cached before invalidation was served: %s", state)
	}
	if state := get(); state != "hit" {
		t.Fatalf("expected hit, got %s", state)
	}
}

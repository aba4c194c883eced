package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-mht/internal/history"
	"github.com/nerrad567/gray-logic-mht/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-mht/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-mht/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-mht/internal/provider"
	"github.com/nerrad567/gray-logic-mht/migrations"
)

const kitchenItems = `group|Kitchen|Kitchen|kitchen
switch|Kitchen_Light|Kitchen Light|lightbulb|@Kitchen|1.2.3:bool
switch|Kitchen_Dimmer|Dimmer|slider|@Kitchen|1/2/4+1/2/5:percent|1/2/6:bool
measurement|Kitchen_Temp|Temperature|temperature|@Kitchen|3/1/0:9.001:listen
string|Scene_Name
switch|Hall_Light|Hall Light|lightbulb|1/2/3
`

type testEnv struct {
	srv      *Server
	router   http.Handler
	provider *provider.Provider
	path     string
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "discard"}, "test")
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}
}

// newTestEnv loads kitchenItems into a provider recording reload history
// in in-memory SQLite.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(database.Config{Path: database.MemoryPath, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if _, err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	repo := history.NewSQLiteRepository(db.DB)

	path := filepath.Join(t.TempDir(), "kitchen.items")
	writeFile(t, path, kitchenItems)

	prov := provider.New(nil)
	prov.AddReloadObserver(history.NewRecorder(repo))
	if err := prov.SourceChanged(context.Background(), path); err != nil {
		t.Fatalf("SourceChanged: %v", err)
	}

	srv, err := New(Deps{
		Config:   config.APIConfig{Host: "127.0.0.1"},
		WS:       testWSConfig(),
		Logger:   testLogger(),
		Provider: prov,
		History:  repo,
		Version:  "test",
		Checks:   map[string]HealthChecker{"database": db},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { srv.Close() }) //nolint:errcheck // Test cleanup

	return &testEnv{srv: srv, router: srv.buildRouter(), provider: prov, path: path}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func (e *testEnv) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return v
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{Provider: provider.New(nil)}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: testLogger()}); err == nil {
		t.Error("New() without provider should fail")
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/health")

	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	resp := decode[map[string]any](t, w)
	if resp["status"] != "ok" || resp["version"] != "test" || resp["loaded"] != true {
		t.Errorf("health = %v", resp)
	}
	if resp["items"] != float64(6) || resp["datapoints"] != float64(5) {
		t.Errorf("health counts = %v/%v, want 6/5", resp["items"], resp["datapoints"])
	}
	if checks, _ := resp["checks"].(map[string]any); checks["database"] != "ok" {
		t.Errorf("checks = %v, want database ok", resp["checks"])
	}
}

type failingCheck struct{}

func (failingCheck) HealthCheck(context.Context) error { return errors.New("broker unreachable") }

func TestHealth_Degraded(t *testing.T) {
	env := newTestEnv(t)
	env.srv.checks["mqtt"] = failingCheck{}

	w := env.do(t, http.MethodGet, "/api/v1/health")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	resp := decode[map[string]any](t, w)
	if resp["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", resp["status"])
	}
	checks, _ := resp["checks"].(map[string]any)
	if checks["mqtt"] != "broker unreachable" || checks["database"] != "ok" {
		t.Errorf("checks = %v", checks)
	}
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodGet, "/api/v1/health"); w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want client-123", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/items", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q", got)
	}
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	env := newTestEnv(t)
	env.srv.cfg.CORS.AllowedOrigins = []string{"http://panel.local"}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("ACAO = %q for a disallowed origin", got)
	}
}

func TestListItems(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/items")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	resp := decode[struct {
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
		Count int `json:"count"`
	}](t, w)

	var names []string
	for _, it := range resp.Items {
		names = append(names, it.Name)
	}
	want := []string{"Kitchen", "Kitchen_Light", "Kitchen_Dimmer", "Kitchen_Temp", "Scene_Name", "Hall_Light"}
	if !slices.Equal(names, want) || resp.Count != len(want) {
		t.Errorf("items = %v (count %d), want %v", names, resp.Count, want)
	}
}

func TestGetItem(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/items/Kitchen_Dimmer")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}

	resp := decode[struct {
		Name       string   `json:"name"`
		Kind       string   `json:"kind"`
		Label      string   `json:"label"`
		Icon       string   `json:"icon"`
		Groups     []string `json:"groups"`
		Widget     string   `json:"widget"`
		Addresses  []string `json:"addresses"`
		Datapoints []struct {
			Type      string   `json:"type"`
			Addresses []string `json:"addresses"`
		} `json:"datapoints"`
	}](t, w)

	if resp.Name != "Kitchen_Dimmer" || resp.Kind != "switch" || resp.Label != "Dimmer" || resp.Icon != "slider" {
		t.Errorf("item = %+v", resp)
	}
	if resp.Widget != "switch" || !slices.Equal(resp.Groups, []string{"Kitchen"}) {
		t.Errorf("widget/groups = %q/%v", resp.Widget, resp.Groups)
	}
	if !slices.Equal(resp.Addresses, []string{"1/2/4", "1/2/5", "1/2/6"}) {
		t.Errorf("addresses = %v", resp.Addresses)
	}
	if len(resp.Datapoints) != 2 || resp.Datapoints[0].Type != "percent" || resp.Datapoints[1].Type != "bool" {
		t.Errorf("datapoints = %+v", resp.Datapoints)
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)
	for _, target := range []string{
		"/api/v1/items/Nope",
		"/api/v1/items/Nope/widget",
		"/api/v1/items/Nope/datapoints",
		"/api/v1/items/Kitchen_Light/datapoints/percent",
		"/api/v1/items/Kitchen_Light/datapoints?address=1/2/5",
		"/api/v1/groups/Kitchen_Light/members",
		"/api/v1/groups/Nope/members",
		"/api/v1/nonexistent",
	} {
		w := env.do(t, http.MethodGet, target)
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", target, w.Code)
		}
	}

	w := env.do(t, http.MethodGet, "/api/v1/items/Nope")
	if resp := decode[Error](t, w); resp.Code != ErrCodeNotFound {
		t.Errorf("error code = %q, want %q", resp.Code, ErrCodeNotFound)
	}
}

func TestGetWidget(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		item string
		want string
	}{
		{"Kitchen", "group"},
		{"Kitchen_Light", "switch"},
		{"Kitchen_Temp", "text"},
		{"Scene_Name", "selection"},
	}
	for _, tt := range tests {
		w := env.do(t, http.MethodGet, "/api/v1/items/"+tt.item+"/widget")
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d", tt.item, w.Code)
			continue
		}
		if got := decode[map[string]any](t, w)["widget"]; got != tt.want {
			t.Errorf("%s widget = %v, want %s", tt.item, got, tt.want)
		}
	}
}

func TestGetDatapoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/items/Kitchen_Temp/datapoints/decimal")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	dp := decode[map[string]any](t, w)
	if dp["dpt"] != "9.001" || dp["role"] != "listen" || dp["item"] != "Kitchen_Temp" {
		t.Errorf("datapoint = %v", dp)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/items/Kitchen_Temp/datapoints/colour"); w.Code != http.StatusBadRequest {
		t.Errorf("unknown type status = %d, want 400", w.Code)
	}
}

func TestListDatapoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/items/Kitchen_Dimmer/datapoints")
	resp := decode[map[string][]map[string]any](t, w)
	if len(resp["datapoints"]) != 2 {
		t.Errorf("datapoints = %v, want 2", resp["datapoints"])
	}

	w = env.do(t, http.MethodGet, "/api/v1/items/Kitchen_Dimmer/datapoints?address=1/2/5")
	if w.Code != http.StatusOK {
		t.Fatalf("by address status = %d: %s", w.Code, w.Body)
	}
	if dp := decode[map[string]any](t, w); dp["type"] != "percent" {
		t.Errorf("datapoint for 1/2/5 = %v, want percent", dp)
	}

	w = env.do(t, http.MethodGet, "/api/v1/items/Kitchen_Dimmer/datapoints?address=40/0/0")
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid address status = %d, want 400", w.Code)
	}
}

func TestListeningItems(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{"/api/v1/addresses/1%2F2%2F3/items", "/api/v1/addresses/1.2.3/items"} {
		w := env.do(t, http.MethodGet, target)
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d: %s", target, w.Code, w.Body)
		}
		resp := decode[struct {
			Address string   `json:"address"`
			Type    string   `json:"type"`
			Items   []string `json:"items"`
		}](t, w)
		if resp.Address != "1/2/3" || resp.Type != "bool" || !slices.Equal(resp.Items, []string{"Kitchen_Light", "Hall_Light"}) {
			t.Errorf("GET %s = %+v", target, resp)
		}
	}

	w := env.do(t, http.MethodGet, "/api/v1/addresses/9.9.9/items")
	if resp := decode[map[string]any](t, w); w.Code != http.StatusOK || len(resp["items"].([]any)) != 0 {
		t.Errorf("unbound address = %d %v, want empty items", w.Code, resp)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/addresses/bogus/items"); w.Code != http.StatusBadRequest {
		t.Errorf("bogus address status = %d, want 400", w.Code)
	}
}

func TestGroupMembers(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/groups/Kitchen/members")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[struct {
		Group   string   `json:"group"`
		Members []string `json:"members"`
	}](t, w)
	want := []string{"Kitchen_Light", "Kitchen_Dimmer", "Kitchen_Temp"}
	if resp.Group != "Kitchen" || !slices.Equal(resp.Members, want) {
		t.Errorf("members = %+v, want %v", resp, want)
	}
}

func TestReload(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, env.path, kitchenItems+"contact|Hall_Door||door|4/0/0\n")

	w := env.do(t, http.MethodPost, "/api/v1/reload")
	if w.Code != http.StatusOK {
		t.Fatalf("reload status = %d: %s", w.Code, w.Body)
	}
	if resp := decode[map[string]any](t, w); resp["items"] != float64(7) {
		t.Errorf("reload = %v, want 7 items", resp)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/items/Hall_Door"); w.Code != http.StatusOK {
		t.Errorf("new item status = %d", w.Code)
	}
}

func TestReload_ParseFailure(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, env.path, kitchenItems+"switch|Kitchen_Light\n")

	w := env.do(t, http.MethodPost, "/api/v1/reload")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("reload status = %d, want 422", w.Code)
	}
	resp := decode[ValidationError](t, w)
	if resp.Code != ErrCodeValidation || resp.Kind != "semantic" || resp.Line != 7 || resp.FirstLine != 2 {
		t.Errorf("validation error = %+v", resp)
	}

	// The previous items stay published.
	if got := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/v1/health"))["items"]; got != float64(6) {
		t.Errorf("items after failed reload = %v, want 6", got)
	}
}

func TestReload_NoSource(t *testing.T) {
	srv, err := New(Deps{Logger: testLogger(), Provider: provider.New(nil), WS: testWSConfig()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer srv.Close() //nolint:errcheck // Test cleanup

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reload", nil)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/reloads", nil)
	w = httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("reloads without history status = %d, want 404", w.Code)
	}
}

func TestListReloads(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, env.path, "switch|Broken|||1/2/3:colour\n")
	env.do(t, http.MethodPost, "/api/v1/reload")

	w := env.do(t, http.MethodGet, "/api/v1/reloads?limit=10")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	resp := decode[history.ListResult](t, w)
	if resp.Total != 2 || len(resp.Records) != 2 {
		t.Fatalf("reloads = %+v, want 2", resp)
	}
	if resp.Records[0].OK || resp.Records[0].ErrorKind != "semantic" || !resp.Records[1].OK {
		t.Errorf("records = %+v", resp.Records)
	}

	w = env.do(t, http.MethodGet, "/api/v1/reloads?failed=true")
	if resp := decode[history.ListResult](t, w); resp.Total != 1 {
		t.Errorf("failed reloads = %d, want 1", resp.Total)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/reloads?limit=-1"); w.Code != http.StatusBadRequest {
		t.Errorf("negative limit status = %d, want 400", w.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	env := newTestEnv(t)
	h := env.srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), ErrCodeInternal) {
		t.Errorf("panic response = %d %s", w.Code, w.Body)
	}
}

func TestServer_StartClose(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := env.srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := env.srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

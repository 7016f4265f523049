package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goubera/top10/internal/config"
	"github.com/goubera/top10/internal/dashboard"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

// fakeBackend stands in for the token tracker API.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		}
	}
	mux.HandleFunc("GET /api/stats", reply(`{"today_stats":{"tokens_tracked":42,"total_volume":1500,"new_tokens":3,"avg_price_change":1.5},"recent_days":[{"date":"2024-01-02","volume":20,"new_tokens":2},{"date":"2024-01-01","volume":10,"new_tokens":1}]}`))
	mux.HandleFunc("GET /api/tokens/top-gainers", reply(`{"top_gainers":[{"token_symbol":"BONK","token_name":"Bonk","price_usd":0.00002}]}`))
	mux.HandleFunc("GET /api/tokens/new", reply(`{"new_tokens":[]}`))
	mux.HandleFunc("GET /api/trends", reply(`{"days_analyzed":7,"trending_tokens":[]}`))
	mux.HandleFunc("POST /api/collect", reply(`{"success":true}`))
	mux.HandleFunc("GET /api/token/{address}", reply(`{"token_symbol":"SOL","history_count":0,"history":[]}`))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(backendURL string) *config.Config {
	return &config.Config{
		Backend: config.BackendConfig{
			APIPath: "/api",
			Origin:  backendURL,
			Timeout: 5 * time.Second,
		},
		Dashboard: config.DashboardConfig{
			PageHost:           "dashboard.test",
			RefreshInterval:    time.Hour,
			ToastDuration:      time.Hour,
			CollectReloadDelay: 10 * time.Millisecond,
			TrendDays:          7,
			Timezone:           "UTC",
		},
		API:     config.APIConfig{Host: "127.0.0.1", Port: 8080},
		Breaker: config.BreakerConfig{MaxFailures: 100, OpenTimeout: time.Second},
	}
}

func testServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := NewServer(cfg, nil, "test")
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func serve(srv *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

// ════════════════════════════════════════════════════════════════════
// Page & health
// ════════════════════════════════════════════════════════════════════

func TestHandleHealth(t *testing.T) {
	srv := testServer(t, testConfig(fakeBackend(t).URL))
	rec := serve(srv, "GET", "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}

	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Error("expected success=true")
	}

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatal("data should be a map")
	}
	if data["status"] != "ok" {
		t.Errorf("status: got %q", data["status"])
	}
	if data["version"] != "test" {
		t.Errorf("version: got %v", data["version"])
	}
	if data["backend"] != "/api" {
		t.Errorf("backend: got %v", data["backend"])
	}
}

func TestHealthV1(t *testing.T) {
	srv := testServer(t, testConfig(fakeBackend(t).URL))
	if rec := serve(srv, "GET", "/api/v1/health"); rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
}

func TestIndexRendersDashboard(t *testing.T) {
	srv := testServer(t, testConfig(fakeBackend(t).URL))
	rec := serve(srv, "GET", "/")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type: got %q", ct)
	}
	body := rec.Body.String()
	for _, id := range []string{"topGainersTable", "newTokensTable", "trendingTable", "volumeChart", "loadingOverlay", "toast"} {
		if !strings.Contains(body, `id="`+id+`"`) {
			t.Errorf("page missing #%s", id)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	srv := testServer(t, testConfig(fakeBackend(t).URL))
	for _, path := range []string{"/static/app.css", "/static/dashboard.js"} {
		if rec := serve(srv, "GET", path); rec.Code != http.StatusOK {
			t.Errorf("%s: got %d", path, rec.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t, testConfig(fakeBackend(t).URL))
	rec := serve(srv, "GET", "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "top10_dashboard_loads_total") {
		t.Error("metrics missing dashboard counter")
	}
}

// ════════════════════════════════════════════════════════════════════
// Dashboard controls
// ════════════════════════════════════════════════════════════════════

func TestRefreshLoadsDashboard(t *testing.T) {
	srv := testServer(t, testConfig(fakeBackend(t).URL))

	rec := serve(srv, "POST", "/dashboard/refresh")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", rec.Code)
	}
	srv.sched.Wait()

	if got := srv.view.Text(dashboard.IDTokensTracked); got != "42" {
		t.Errorf("tokensTracked: got %q", got)
	}
	if got := srv.view.Text(dashboard.IDTotalVolume); got != "$1.50K" {
		t.Errorf("totalVolume: got %q", got)
	}

	rec = serve(srv, "GET", "/dashboard/state")
	var resp struct {
		Data dashboard.State `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Toast.Message != "Data refreshed" {
		t.Errorf("toast: %+v", resp.Data.Toast)
	}
	if resp.Data.Loading {
		t.Error("overlay should be hidden")
	}
	labels := resp.Data.Charts[dashboard.IDVolumeChart].Labels
	if len(labels) != 2 || labels[0] != "2024-01-01" {
		t.Errorf("chart labels: %v", labels)
	}
}

func TestRefreshBackendDown(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()
	srv := testServer(t, testConfig(backend.URL))

	serve(srv, "POST", "/dashboard/refresh")
	srv.sched.Wait()

	st := srv.view.State()
	if st.Toast.Message != "Error loading data: HTTP 500" || st.Toast.Kind != "error" {
		t.Errorf("toast: %+v", st.Toast)
	}
	if got := srv.view.Text(dashboard.IDTokensTracked); got != "-" {
		t.Errorf("stat card should be untouched, got %q", got)
	}
	if st.LastUpdate == "" || st.LastUpdate == "-" {
		t.Error("last update is stamped even when every fetch fails")
	}
}

func TestRefreshAfterBackendRecovers(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	bodies := map[string]string{
		"/api/stats":              `{"today_stats":{"tokens_tracked":42}}`,
		"/api/tokens/top-gainers": `{"top_gainers":[{"token_symbol":"GAINR"}]}`,
		"/api/tokens/new":         `{"new_tokens":[{"token_symbol":"NEWTK"}]}`,
		"/api/trends":             `{"trending_tokens":[{"token_symbol":"TRNDY","days_in_top":3}]}`,
	}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(bodies[r.URL.Path]))
	}))
	defer backend.Close()

	cfg := testConfig(backend.URL)
	cfg.Breaker = config.BreakerConfig{MaxFailures: 2, OpenTimeout: time.Hour}
	srv := testServer(t, cfg)

	for i := 0; i < 3; i++ {
		serve(srv, "POST", "/dashboard/refresh")
		srv.sched.Wait()
	}
	failing.Store(false)
	serve(srv, "POST", "/dashboard/refresh")
	srv.sched.Wait()

	if got := srv.view.Text(dashboard.IDTokensTracked); got != "42" {
		t.Errorf("tokensTracked: got %q, want 42", got)
	}
	html, _ := srv.view.HTML()
	for _, sym := range []string{"GAINR", "NEWTK", "TRNDY"} {
		if !strings.Contains(html, sym) {
			t.Errorf("region with %s not updated after recovery", sym)
		}
	}
	if st := srv.view.State().Toast; st.Message != "Data refreshed" {
		t.Errorf("toast: %+v", st)
	}
}

func TestCollect(t *testing.T) {
	srv := testServer(t, testConfig(fakeBackend(t).URL))

	rec := serve(srv, "POST", "/dashboard/collect")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", rec.Code)
	}
	srv.sched.Wait()

	if st := srv.view.State().Toast; st.Message != "Collection completed successfully!" {
		t.Errorf("toast: %+v", st)
	}
	// Reload follows after the configured delay.
	waitFor(t, func() bool { return srv.view.Text(dashboard.IDTokensTracked) == "42" })
}

func TestActionsRefusedAfterShutdown(t *testing.T) {
	srv := testServer(t, testConfig(fakeBackend(t).URL))
	ctx, cancel := context.WithCancel(context.Background())
	srv.Start(ctx)
	cancel()

	// The scheduler goroutine notices the cancellation asynchronously.
	waitFor(t, func() bool {
		return serve(srv, "POST", "/dashboard/refresh").Code == http.StatusServiceUnavailable
	})
	for _, path := range []string{"/dashboard/refresh", "/dashboard/collect"} {
		if rec := serve(srv, "POST", path); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: got %d, want 503", path, rec.Code)
		}
	}
}

func TestControlMethodNotAllowed(t *testing.T) {
	srv := testServer(t, testConfig(fakeBackend(t).URL))
	if rec := serve(srv, "GET", "/dashboard/refresh"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rec.Code)
	}
}

func TestExportRedirect(t *testing.T) {
	srv := testServer(t, testConfig(fakeBackend(t).URL))
	rec := serve(srv, "GET", "/dashboard/export")

	if rec.Code != http.StatusFound {
		t.Fatalf("status: got %d, want 302", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/api/export/csv?date=") || len(loc) != len("/api/export/csv?date=2024-01-15") {
		t.Errorf("Location: got %q", loc)
	}
	if st := srv.view.State().Toast; st.Message != "Downloading CSV..." {
		t.Errorf("toast: %+v", st)
	}
}

// ════════════════════════════════════════════════════════════════════
// API v1
// ════════════════════════════════════════════════════════════════════

func TestGetConfig(t *testing.T) {
	srv := testServer(t, testConfig(fakeBackend(t).URL))
	rec := serve(srv, "GET", "/api/v1/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	var resp struct {
		Success bool           `json:"success"`
		Data    ConfigResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Config == nil || resp.Data.Config.Dashboard.TrendDays != 7 {
		t.Errorf("config: %+v", resp.Data.Config)
	}
	if len(resp.Data.Settings) == 0 {
		t.Error("expected setting sources")
	}
}

func TestTokenLookup(t *testing.T) {
	srv := testServer(t, testConfig(fakeBackend(t).URL))

	rec := serve(srv, "GET", "/api/v1/token/So11111111111111111111111111111111111111112")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	data, _ := decodeResponse(t, rec).Data.(map[string]interface{})
	if data["token_symbol"] != "SOL" {
		t.Errorf("detail: %v", data)
	}
}

func TestTokenLookupInvalidAddress(t *testing.T) {
	srv := testServer(t, testConfig(fakeBackend(t).URL))

	rec := serve(srv, "GET", "/api/v1/token/not-an-address")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Success || resp.Error == "" {
		t.Errorf("expected error envelope, got %+v", resp)
	}
}

func TestTokenLookupFailureStaysOffPage(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	defer backend.Close()
	srv := testServer(t, testConfig(backend.URL))

	rec := serve(srv, "GET", "/api/v1/token/So11111111111111111111111111111111111111112")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d, want 502", rec.Code)
	}
	if st := srv.view.State().Toast; st.Message != "" {
		t.Errorf("lookup failure leaked to the page toast: %+v", st)
	}
}

// ════════════════════════════════════════════════════════════════════
// Backend proxy
// ════════════════════════════════════════════════════════════════════

func TestBackendProxy(t *testing.T) {
	backend := fakeBackend(t)
	cfg := testConfig(backend.URL)
	cfg.Backend.Upstream = backend.URL
	srv := testServer(t, cfg)

	rec := serve(srv, "GET", "/api/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"tokens_tracked":42`) {
		t.Errorf("proxied body: %s", rec.Body.String())
	}

	// v1 routes are still served locally.
	if rec := serve(srv, "GET", "/api/v1/health"); rec.Code != http.StatusOK {
		t.Errorf("v1 health behind proxy: got %d", rec.Code)
	}
}

func TestBackendProxyNotMountedByDefault(t *testing.T) {
	srv := testServer(t, testConfig(fakeBackend(t).URL))
	if rec := serve(srv, "GET", "/api/stats"); rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestNewServerRejectsBadUpstream(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Backend.Upstream = "not a url"
	if _, err := NewServer(cfg, nil, "test"); err == nil {
		t.Fatal("expected error for invalid upstream")
	}
}

// ════════════════════════════════════════════════════════════════════
// WebSocket
// ════════════════════════════════════════════════════════════════════

func TestWebSocketReceivesPatches(t *testing.T) {
	srv := testServer(t, testConfig(fakeBackend(t).URL))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.wsHub.Run(ctx)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return srv.wsHub.ClientCount() == 1 })

	srv.loader.ExportURL() // shows a toast

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string          `json:"type"`
		Data dashboard.Patch `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "patch" || msg.Data.ID != dashboard.IDToast {
		t.Fatalf("message: %+v", msg)
	}
	if !strings.Contains(msg.Data.HTML, "Downloading CSV...") {
		t.Errorf("patch html: %s", msg.Data.HTML)
	}
}

func TestWebSocketPing(t *testing.T) {
	srv := testServer(t, testConfig(fakeBackend(t).URL))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.wsHub.Run(ctx)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return srv.wsHub.ClientCount() == 1 })

	if err := conn.WriteJSON(WSMessage{Type: "ping"}); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "pong" {
		t.Errorf("type: got %q, want pong", msg.Type)
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewWSHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	slow := &WSClient{hub: hub, send: make(chan WSMessage)} // nobody reads
	hub.Register(slow)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.Broadcast(WSMessage{Type: "patch"})
	waitFor(t, func() bool { return hub.ClientCount() == 0 })

	if _, ok := <-slow.send; ok {
		t.Error("slow client's queue should be closed")
	}

	// Unregistering an already dropped client must not close twice.
	hub.Unregister(slow)
	hub.Reply(slow, WSMessage{Type: "pong"})
}

func TestHubStopsWithContext(t *testing.T) {
	hub := NewWSHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	c := &WSClient{hub: hub, send: make(chan WSMessage, 1)}
	hub.Register(c)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	// Calls after shutdown return instead of blocking.
	hub.Unregister(c)
	late := &WSClient{hub: hub, send: make(chan WSMessage, 1)}
	hub.Register(late)
	if _, ok := <-late.send; ok {
		t.Error("late client's queue should be closed")
	}
}

// ════════════════════════════════════════════════════════════════════
// APIResponse
// ════════════════════════════════════════════════════════════════════

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusBadGateway, "backend unavailable")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}
	resp := decodeResponse(t, rec)
	if resp.Success || resp.Error != "backend unavailable" {
		t.Errorf("response: %+v", resp)
	}
}

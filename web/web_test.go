package web

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhsanaei/xui-gateway/config"
	"github.com/mhsanaei/xui-gateway/database"
	"github.com/mhsanaei/xui-gateway/web/service"
	"github.com/mhsanaei/xui-gateway/xui"
	"github.com/mhsanaei/xui-gateway/xui/xuitest"
)

const testAPIKey = "k-123"

type gateway struct {
	t      *testing.T
	router http.Handler
	panel  *xuitest.Panel
}

func newGateway(t *testing.T, mutate ...func(*config.Config)) *gateway {
	t.Helper()
	require.NoError(t, database.InitDB(&config.DatabaseConfig{
		Type: config.DatabaseTypeSQLite,
		Path: filepath.Join(t.TempDir(), "web.db"),
	}))
	t.Cleanup(func() { _ = database.CloseDB() })

	panel := xuitest.NewPanel()
	t.Cleanup(panel.Close)

	cfg := config.Default()
	cfg.Server.APIKey = testAPIKey
	for _, m := range mutate {
		m(cfg)
	}
	client := xui.New(xui.Options{BaseURL: panel.URL, Username: xuitest.Username, Password: xuitest.Password})
	t.Cleanup(func() { _ = client.Close() })
	return &gateway{t: t, router: NewRouter(cfg, service.NewVPNService(client)), panel: panel}
}

func (g *gateway) do(method, path string, body any) *httptest.ResponseRecorder {
	g.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(g.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthNeedsNoKey(t *testing.T) {
	g := newGateway(t)
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAPIKeyRequired(t *testing.T) {
	g := newGateway(t)
	for _, key := range []string{"", "wrong"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/inbounds", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		w := httptest.NewRecorder()
		g.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"detail":"Invalid or missing API key"}`, w.Body.String())
	}
	assert.Zero(t, g.panel.Logins())
}

func TestEmptyAPIKeyDisablesAuth(t *testing.T) {
	g := newGateway(t, func(c *config.Config) { c.Server.APIKey = "" })
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/inbounds", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsIsLocalOnly(t *testing.T) {
	g := newGateway(t)

	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	w = httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "xui_gateway_http_requests_total")
}

func TestMetricsDisabled(t *testing.T) {
	g := newGateway(t, func(c *config.Config) { c.Server.Metrics = false })
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInboundLifecycle(t *testing.T) {
	g := newGateway(t)
	g.panel.Put(xuitest.Inbound{ID: 6, Port: 80, Protocol: "vmess", Settings: xuitest.Settings()})

	w := g.do(http.MethodPost, "/api/v1/inbounds", map[string]any{
		"remark": "edge", "port": 443, "protocol": "vless",
		"stream_settings": map[string]any{"network": "tcp"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	assert.Equal(t, float64(7), created["id"])
	assert.Equal(t, "edge", created["remark"])
	assert.Equal(t, map[string]any{"network": "tcp"}, created["stream_settings"])
	assert.Equal(t, []any{}, created["clients"])

	w = g.do(http.MethodGet, "/api/v1/inbounds", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 2)

	w = g.do(http.MethodPut, "/api/v1/inbounds/7", map[string]any{"remark": "edge-2", "enable": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[map[string]any](t, w)
	assert.Equal(t, "edge-2", updated["remark"])
	assert.Equal(t, false, updated["enable"])
	assert.Equal(t, float64(443), updated["port"])

	w = g.do(http.MethodDelete, "/api/v1/inbounds/7", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = g.do(http.MethodDelete, "/api/v1/inbounds/7", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = g.do(http.MethodGet, "/api/v1/inbounds/7", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode[map[string]any](t, w)["detail"], "not found")
}

func TestMissingInboundIs404(t *testing.T) {
	g := newGateway(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/inbounds/99"},
		{http.MethodPut, "/api/v1/inbounds/99"},
		{http.MethodGet, "/api/v1/inbounds/99/clients"},
		{http.MethodGet, "/api/v1/inbounds/99/clients/abc"},
	} {
		var body any
		if tc.method == http.MethodPut {
			body = map[string]any{"remark": "x"}
		}
		w := g.do(tc.method, tc.path, body)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s: %s", tc.method, tc.path, w.Body.String())
		assert.Equal(t, "inbound 99 not found", decode[map[string]any](t, w)["detail"])
	}
}

func TestInboundValidation(t *testing.T) {
	g := newGateway(t)

	cases := []map[string]any{
		{"port": 443, "protocol": "vless"},
		{"remark": "x", "port": 0, "protocol": "vless"},
		{"remark": "x", "port": 70000, "protocol": "vless"},
		{"remark": "x", "port": 443, "protocol": "wireguard"},
	}
	for _, body := range cases {
		w := g.do(http.MethodPost, "/api/v1/inbounds", body)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, body)
	}

	w := g.do(http.MethodGet, "/api/v1/inbounds/abc", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Zero(t, g.panel.Logins())
}

func TestClientLifecycle(t *testing.T) {
	g := newGateway(t)
	g.panel.Put(xuitest.Inbound{ID: 1, Port: 443, Protocol: "vless", Settings: xuitest.Settings()})

	w := g.do(http.MethodPost, "/api/v1/inbounds/1/clients", map[string]any{
		"limit_ip": 1, "total_gb": 1 << 30, "owner_ref": "acct-1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	id := created["id"].(string)
	assert.Equal(t, "acct-1", created["owner_ref"])
	assert.Equal(t, "xtls-rprx-vision", created["flow"])
	assert.Equal(t, float64(1<<30), created["total_gb_limit"])
	assert.Equal(t, float64(0), created["total_gb"])
	assert.True(t, strings.HasSuffix(created["email"].(string), "@vpn.local"))

	w = g.do(http.MethodGet, "/api/v1/inbounds/1/clients/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode[map[string]any](t, w)["id"])

	w = g.do(http.MethodPut, "/api/v1/inbounds/1/clients/"+id, map[string]any{"flow": "bogus"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = g.do(http.MethodPut, "/api/v1/inbounds/1/clients/"+id, map[string]any{"enable": false, "owner_ref": nil})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[map[string]any](t, w)
	assert.Equal(t, false, updated["enable"])
	assert.Nil(t, updated["owner_ref"])

	w = g.do(http.MethodGet, "/api/v1/inbounds/1/clients", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = g.do(http.MethodDelete, "/api/v1/inbounds/1/clients/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = g.do(http.MethodGet, "/api/v1/inbounds/1/clients/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOwnerLookup(t *testing.T) {
	g := newGateway(t)
	g.panel.Put(xuitest.Inbound{ID: 1, Port: 443, Protocol: "vless", Settings: xuitest.Settings()})

	for i := 0; i < 2; i++ {
		w := g.do(http.MethodPost, "/api/v1/inbounds/1/clients", map[string]any{"owner_ref": "acct-2"})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := g.do(http.MethodGet, "/api/v1/owners/acct-2/clients", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode[[]map[string]any](t, w)
	require.Len(t, rows, 2)
	assert.Equal(t, "acct-2", rows[0]["owner_ref"])

	w = g.do(http.MethodGet, "/api/v1/owners/nobody/clients", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestStats(t *testing.T) {
	g := newGateway(t)
	g.panel.Put(xuitest.Inbound{ID: 1, Up: 10, Down: 20, Total: 100, Port: 443, Protocol: "vless"})
	var status xuitest.Status
	status.CPU = 12.5
	status.Uptime = 3600
	g.panel.SetStatus(status)

	w := g.do(http.MethodGet, "/api/v1/stats/traffic", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"inbound_id":1,"up":10,"down":20,"total":100}]`, w.Body.String())

	w = g.do(http.MethodGet, "/api/v1/stats/server", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[map[string]any](t, w)
	assert.Equal(t, 12.5, stats["cpu_usage"])
	assert.Equal(t, float64(3600), stats["uptime"])
}

func TestUpstreamFailureIs500(t *testing.T) {
	g := newGateway(t)
	w := g.do(http.MethodPost, "/api/v1/inbounds/42/clients", map[string]any{})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, decode[map[string]any](t, w)["detail"])
}

func TestPanelUnreachableIs500(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, database.InitDB(&config.DatabaseConfig{
		Type: config.DatabaseTypeSQLite,
		Path: filepath.Join(t.TempDir(), "web.db"),
	}))
	t.Cleanup(func() { _ = database.CloseDB() })
	router := NewRouter(cfg, service.NewVPNService(xui.New(xui.Options{BaseURL: "http://127.0.0.1:1", Username: "u", Password: "p"})))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/inbounds", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStopCancelsInFlightPanelCalls(t *testing.T) {
	require.NoError(t, database.InitDB(&config.DatabaseConfig{
		Type: config.DatabaseTypeSQLite,
		Path: filepath.Join(t.TempDir(), "web.db"),
	}))
	t.Cleanup(func() { _ = database.CloseDB() })
	panel := xuitest.NewPanel()
	t.Cleanup(panel.Close)
	panel.Put(xuitest.Inbound{ID: 1, Port: 443, Protocol: "vless", Settings: xuitest.Settings(xuitest.Client("a", "x@y"))})
	panel.UpdateClientDelay = 3 * time.Second

	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.APIKey = testAPIKey
	cfg.Panel.BaseURL = panel.URL
	cfg.Panel.Username = xuitest.Username
	cfg.Panel.Password = xuitest.Password
	s := NewServer(cfg)
	require.NoError(t, s.Start())

	status := make(chan int, 1)
	go func() {
		req, err := http.NewRequest(http.MethodPut, "http://"+s.listener.Addr().String()+"/api/v1/inbounds/1/clients/a", strings.NewReader(`{"enable":false}`))
		if err != nil {
			status <- 0
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", testAPIKey)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()

	time.Sleep(500 * time.Millisecond)
	start := time.Now()
	require.NoError(t, s.Stop())
	assert.Less(t, time.Since(start), 2*time.Second)

	select {
	case code := <-status:
		assert.GreaterOrEqual(t, code, http.StatusInternalServerError)
	case <-time.After(2 * time.Second):
		t.Fatal("request did not finish after Stop")
	}
}

package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	e := newTestEcho(t, testConfig(upstream.URL))

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"healthz", http.MethodGet, "/healthz", "", http.StatusOK},
		{"status", http.MethodGet, "/proxy/status", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"chat query", http.MethodPost, "/api/chat/query", `{"q":1}`, http.StatusOK},
		{"chat run", http.MethodGet, "/api/chat/runs/r1", "", http.StatusOK},
		{"drafts list", http.MethodGet, "/api/drafts?limit=5", "", http.StatusOK},
		{"draft get", http.MethodGet, "/api/drafts/d1", "", http.StatusOK},
		{"draft delete", http.MethodDelete, "/api/drafts/d1", "", http.StatusOK},
		{"draft approve", http.MethodPost, "/api/drafts/d1/approve", `{}`, http.StatusOK},
		{"draft reject", http.MethodPost, "/api/drafts/d1/reject", `{"reason":"no"}`, http.StatusOK},
		{"audit runs", http.MethodGet, "/api/audit/runs", "", http.StatusOK},
		{"audit export", http.MethodGet, "/api/audit/runs/export", "", http.StatusOK},
		{"audit run", http.MethodGet, "/api/audit/runs/r1", "", http.StatusOK},
		{"unknown", http.MethodGet, "/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Metrics.Enabled = false
	e := newTestEcho(t, cfg)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRoutes_ReturnsCopy(t *testing.T) {
	r := Routes()
	if len(r) != len(proxyRoutes) {
		t.Fatalf("len = %d, want %d", len(r), len(proxyRoutes))
	}
	r[0].Path = "/mutated"
	if proxyRoutes[0].Path == "/mutated" {
		t.Error("Routes() exposed the shared table")
	}

	seen := map[string]bool{}
	for _, route := range Routes() {
		if seen[route.Name] {
			t.Errorf("duplicate route name %q", route.Name)
		}
		seen[route.Name] = true
	}
}

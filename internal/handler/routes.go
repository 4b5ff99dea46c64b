package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lynx-proxy-go/internal/config"
	"lynx-proxy-go/internal/metrics"
	"lynx-proxy-go/internal/model"
)

// proxyRoutes lists every forwarded endpoint. Each path doubles as the
// upstream path template.
var proxyRoutes = []model.Route{
	{Name: "chat.query", Method: http.MethodPost, Path: "/api/chat/query", HasBody: true},
	{Name: "chat.runs.get", Method: http.MethodGet, Path: "/api/chat/runs/:runId"},

	{Name: "drafts.list", Method: http.MethodGet, Path: "/api/drafts", ForwardQuery: true},
	{Name: "drafts.get", Method: http.MethodGet, Path: "/api/drafts/:draftId"},
	{Name: "drafts.delete", Method: http.MethodDelete, Path: "/api/drafts/:draftId"},
	{Name: "drafts.approve", Method: http.MethodPost, Path: "/api/drafts/:draftId/approve", HasBody: true},
	{Name: "drafts.reject", Method: http.MethodPost, Path: "/api/drafts/:draftId/reject", HasBody: true},

	{Name: "audit.runs.list", Method: http.MethodGet, Path: "/api/audit/runs", ForwardQuery: true},
	{Name: "audit.runs.export", Method: http.MethodGet, Path: "/api/audit/runs/export", ForwardQuery: true, Response: model.ResponseBinary},
	{Name: "audit.runs.get", Method: http.MethodGet, Path: "/api/audit/runs/:runId"},
}

// Routes returns a copy of the forwarded route table.
func Routes() []model.Route {
	out := make([]model.Route, len(proxyRoutes))
	copy(out, proxyRoutes)
	return out
}

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, m *metrics.Metrics, proxy *ProxyHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	for _, r := range proxyRoutes {
		e.Add(r.Method, r.Path, proxy.Handle(r))
	}
}

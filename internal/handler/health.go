package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"lynx-proxy-go/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// statusResponse is the body of GET /proxy/status.
type statusResponse struct {
	Status      string   `json:"status"`
	Version     string   `json:"version"`
	UpstreamURL string   `json:"upstream_url"`
	Routes      []string `json:"routes"`
}

// Status reports the build version, the upstream in use and the forwarded routes.
func (h *HealthHandler) Status(c echo.Context) error {
	routes := make([]string, 0, len(proxyRoutes))
	for _, r := range proxyRoutes {
		routes = append(routes, r.Method+" "+r.Path)
	}
	return c.JSON(http.StatusOK, statusResponse{
		Status:      "ok",
		Version:     string(h.version),
		UpstreamURL: h.cfg.Upstream.BaseURL,
		Routes:      routes,
	})
}

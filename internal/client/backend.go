// Package client provides the upstream HTTP client for the backend API.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"lynx-proxy-go/internal/config"
	"lynx-proxy-go/internal/metrics"
)

// Response is an upstream response whose body has been read in full.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// BackendClient sends requests to the upstream backend API.
type BackendClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewBackendClient creates a BackendClient with connection pooling.
// A zero upstream.timeout_seconds leaves calls bounded only by their context.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewBackendClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *BackendClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &BackendClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		},
		logger:  logger.With("component", "backend_client"),
		metrics: m,
	}
}

// Send issues a single request against the upstream and reads the whole
// response body. The context controls the lifetime of the upstream call:
// when it is canceled (e.g. the client disconnects) the call is aborted.
// route is only used as a metrics label.
func (c *BackendClient) Send(ctx context.Context, route, method, url string, header http.Header, body io.Reader) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = header

	c.logger.Debug("upstream request",
		"method", method,
		"path", req.URL.Path,
		"route", route,
	)

	methodLabel := metrics.NormalizeMethod(method)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observeFailure(methodLabel, route, start)
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observeFailure(methodLabel, route, start)
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(methodLabel, route).Observe(time.Since(start).Seconds())
		c.metrics.UpstreamResponses.WithLabelValues(methodLabel, route, strconv.Itoa(resp.StatusCode)).Inc()
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (c *BackendClient) observeFailure(method, route string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	c.metrics.UpstreamFailures.WithLabelValues(method, route).Inc()
}

// Package service implements the core proxy forwarding logic.
package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"lynx-proxy-go/internal/client"
	"lynx-proxy-go/internal/config"
	"lynx-proxy-go/internal/model"
)

var (
	// ErrInvalidBody is returned when a body-carrying route receives a body that is not JSON.
	ErrInvalidBody = errors.New("request body is not valid JSON")
	// ErrInvalidUpstreamJSON is returned when a JSON route's upstream answers 2xx with a non-JSON body.
	ErrInvalidUpstreamJSON = errors.New("upstream returned malformed JSON")
	// ErrMissingParam is returned when a route template names a parameter the request lacks.
	ErrMissingParam = errors.New("missing path parameter")
)

// HeaderRequestID carries the correlation id upstream and back to the caller.
const HeaderRequestID = "X-Request-ID"

const (
	userAgent           = "lynx-proxy-go/1.0"
	defaultBinaryType   = "application/octet-stream"
	headerDisposition   = "Content-Disposition"
	mimeApplicationJSON = "application/json"
)

// ProxyService handles the forwarding logic for proxy requests.
type ProxyService struct {
	client  *client.BackendClient
	logger  *slog.Logger
	baseURL string
}

// NewProxyService creates a ProxyService for the configured upstream.
func NewProxyService(c *client.BackendClient, cfg *config.Config, logger *slog.Logger) (*ProxyService, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream base_url %q must be absolute", cfg.Upstream.BaseURL)
	}

	return &ProxyService{
		client:  c,
		logger:  logger.With("component", "proxy_service"),
		baseURL: strings.TrimRight(u.String(), "/"),
	}, nil
}

// Forward sends exactly one request upstream for fr and returns the response
// to relay. A non-nil error means no usable upstream response was obtained;
// the caller reports it as an internal failure.
//
// Non-2xx upstream answers are not errors: they come back with
// Outcome = model.OutcomeUpstreamError and either the upstream's own JSON
// body or a synthesized envelope.
func (s *ProxyService) Forward(fr *model.ForwardRequest) (*model.ForwardResponse, error) {
	route := fr.Route

	upstreamURL, err := s.buildUpstreamURL(route, fr.Params, fr.RawQuery)
	if err != nil {
		return nil, err
	}

	var body io.Reader = http.NoBody
	if route.HasBody {
		if !gjson.ValidBytes(fr.Body) {
			return nil, ErrInvalidBody
		}
		body = bytes.NewReader(fr.Body)
	}

	s.logger.Debug("forwarding request",
		"route", route.Name,
		"method", route.Method,
		"request_id", fr.RequestID,
	)

	resp, err := s.client.Send(fr.Ctx, route.Name, route.Method, upstreamURL, buildRequestHeader(fr), body)
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return s.upstreamError(route, resp, fr.RequestID), nil
	}

	switch route.Response {
	case model.ResponseBinary:
		return binaryResponse(resp), nil
	default:
		return jsonResponse(resp)
	}
}

// buildUpstreamURL fills the route's path template and appends the inbound
// query string byte-for-byte.
func (s *ProxyService) buildUpstreamURL(route model.Route, params map[string]string, rawQuery string) (string, error) {
	segments := strings.Split(route.Path, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		name := seg[1:]
		v, ok := params[name]
		if !ok || v == "" {
			return "", fmt.Errorf("%w %q for route %s", ErrMissingParam, name, route.Name)
		}
		segments[i] = url.PathEscape(v)
	}

	target := s.baseURL + strings.Join(segments, "/")
	if route.ForwardQuery && rawQuery != "" {
		target += "?" + rawQuery
	}
	return target, nil
}

// buildRequestHeader returns the outbound header set. Authorization and
// Cookie are always present, carrying an empty value when the caller sent none.
func buildRequestHeader(fr *model.ForwardRequest) http.Header {
	h := http.Header{}
	h["Authorization"] = []string{fr.Authorization}
	h["Cookie"] = []string{fr.Cookie}
	h.Set(HeaderRequestID, fr.RequestID)
	h.Set("User-Agent", userAgent)
	if fr.Route.HasBody {
		h.Set("Content-Type", mimeApplicationJSON)
	}
	return h
}

func (s *ProxyService) upstreamError(route model.Route, resp *client.Response, requestID string) *model.ForwardResponse {
	s.logger.Info("upstream error",
		"route", route.Name,
		"status", resp.StatusCode,
		"detail", errorDetail(resp.Body),
		"request_id", requestID,
	)

	if len(bytes.TrimSpace(resp.Body)) > 0 && gjson.ValidBytes(resp.Body) {
		return &model.ForwardResponse{
			Outcome:    model.OutcomeUpstreamError,
			StatusCode: resp.StatusCode,
			Header:     http.Header{"Content-Type": {mimeApplicationJSON}},
			Body:       resp.Body,
		}
	}

	return &model.ForwardResponse{
		Outcome:    model.OutcomeUpstreamError,
		StatusCode: resp.StatusCode,
		Envelope: &model.ErrorEnvelope{
			Error:     fmt.Sprintf("HTTP %d: %s", resp.StatusCode, statusText(resp)),
			RequestID: requestID,
		},
	}
}

// jsonResponse relays a 2xx JSON body with status 200. An empty 2xx body
// (e.g. 204 after a delete) is not a parse failure: it is relayed with the
// upstream status and no content.
func jsonResponse(resp *client.Response) (*model.ForwardResponse, error) {
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return &model.ForwardResponse{
			Outcome:    model.OutcomeSuccess,
			StatusCode: resp.StatusCode,
			Header:     http.Header{},
		}, nil
	}
	if !gjson.ValidBytes(resp.Body) {
		return nil, ErrInvalidUpstreamJSON
	}
	return &model.ForwardResponse{
		Outcome:    model.OutcomeSuccess,
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {mimeApplicationJSON}},
		Body:       resp.Body,
	}, nil
}

func binaryResponse(resp *client.Response) *model.ForwardResponse {
	h := http.Header{}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultBinaryType
	}
	h.Set("Content-Type", contentType)
	if cd := resp.Header.Get(headerDisposition); cd != "" {
		h.Set(headerDisposition, cd)
	}
	return &model.ForwardResponse{
		Outcome:    model.OutcomeSuccess,
		StatusCode: http.StatusOK,
		Header:     h,
		Body:       resp.Body,
	}
}

// statusText returns the upstream reason phrase, e.g. "Not Found" for "404 Not Found".
func statusText(resp *client.Response) string {
	if text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); text != resp.Status && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// errorDetail pulls a human-readable message out of an upstream error body for logging.
func errorDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range []string{"detail", "error", "message"} {
		if r := gjson.GetBytes(body, path); r.Exists() {
			return r.String()
		}
	}
	return ""
}

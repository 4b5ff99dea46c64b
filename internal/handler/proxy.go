package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"lynx-proxy-go/internal/middleware"
	"lynx-proxy-go/internal/model"
	"lynx-proxy-go/internal/service"
)

// internalErrorMessage is the only failure detail callers see for local errors.
const internalErrorMessage = "Internal server error"

// ProxyHandler forwards browser requests to the upstream backend API.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle returns the Echo handler that forwards requests for route and
// relays the upstream answer.
func (h *ProxyHandler) Handle(route model.Route) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		rid := requestID(c)

		fr := &model.ForwardRequest{
			Ctx:           req.Context(),
			Route:         route,
			RawQuery:      req.URL.RawQuery,
			Authorization: req.Header.Get("Authorization"),
			Cookie:        strings.Join(req.Header.Values("Cookie"), "; "),
			RequestID:     rid,
		}

		params, err := pathParams(c)
		if err != nil {
			return h.fail(c, route, rid, err)
		}
		fr.Params = params

		if route.HasBody {
			body, err := io.ReadAll(req.Body)
			if err != nil {
				// BodyLimit reports oversized bodies as an *echo.HTTPError.
				var he *echo.HTTPError
				if errors.As(err, &he) {
					return he
				}
				return h.fail(c, route, rid, fmt.Errorf("read request body: %w", err))
			}
			fr.Body = body
		}

		resp, err := h.service.Forward(fr)
		if err != nil {
			return h.fail(c, route, rid, err)
		}

		h.logger.Debug("relaying upstream response",
			"route", route.Name,
			"outcome", resp.Outcome.String(),
			"status", resp.StatusCode,
			"synthesized", resp.Envelope != nil,
			"request_id", rid,
		)
		return writeResponse(c, resp)
	}
}

// pathParams collects the matched path parameters in decoded form so the
// forwarder escapes each value exactly once. Echo routes on URL.RawPath when
// it is set and leaves the values encoded; otherwise they arrive decoded.
func pathParams(c echo.Context) (map[string]string, error) {
	names := c.ParamNames()
	if len(names) == 0 {
		return nil, nil
	}
	raw := c.Request().URL.RawPath != ""
	params := make(map[string]string, len(names))
	for _, name := range names {
		v := c.Param(name)
		if raw {
			var err error
			if v, err = url.PathUnescape(v); err != nil {
				return nil, fmt.Errorf("path parameter %q: %w", name, err)
			}
		}
		params[name] = v
	}
	return params, nil
}

func writeResponse(c echo.Context, resp *model.ForwardResponse) error {
	if resp.Envelope != nil {
		return c.JSON(resp.StatusCode, resp.Envelope)
	}

	header := c.Response().Header()
	for key, vals := range resp.Header {
		for _, v := range vals {
			header.Add(key, v)
		}
	}

	if len(resp.Body) == 0 {
		return c.NoContent(resp.StatusCode)
	}
	c.Response().WriteHeader(resp.StatusCode)
	_, err := c.Response().Write(resp.Body)
	return err
}

// fail answers with the generic internal-error envelope. The cause is logged
// but never sent to the caller.
func (h *ProxyHandler) fail(c echo.Context, route model.Route, rid string, err error) error {
	attrs := []any{
		"err", err,
		"route", route.Name,
		"request_id", rid,
	}
	if errors.Is(err, context.Canceled) {
		h.logger.Warn("client disconnected before upstream answered", attrs...)
	} else {
		h.logger.Error("proxy error", attrs...)
	}

	return c.JSON(http.StatusInternalServerError, model.ErrorEnvelope{
		Error:     internalErrorMessage,
		RequestID: rid,
	})
}

// requestID returns the request's correlation id. Outside the CorrelationID
// middleware a fresh one is minted.
func requestID(c echo.Context) string {
	if rid := middleware.RequestID(c); rid != "" {
		return rid
	}
	return uuid.NewString()
}

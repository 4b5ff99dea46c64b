package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"lynx-proxy-go/internal/model"
)

// NewErrorHandler returns Echo's central error handler. Errors that escape
// handlers and middleware (unknown routes, wrong methods, oversized bodies,
// recovered panics) are answered with the same error envelope the proxy
// routes use.
func NewErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logger.With("component", "error_handler")

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := internalErrorMessage

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if code != http.StatusInternalServerError {
				msg = http.StatusText(code)
				if s, ok := he.Message.(string); ok && s != "" {
					msg = s
				}
			}
		}

		rid := requestID(c)
		if code >= 500 {
			logger.Error("unhandled error", "err", err, "path", c.Request().URL.Path, "request_id", rid)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, model.ErrorEnvelope{Error: msg, RequestID: rid})
		}
		if werr != nil {
			logger.Error("writing error response", "err", werr)
		}
	}
}

package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// requestIDKey is the echo.Context key holding the correlation id.
const requestIDKey = "request_id"

// CorrelationID returns an Echo middleware that assigns every request a fresh
// correlation id, stores it on the context and echoes it in the X-Request-ID
// response header. A caller-supplied X-Request-ID is never reused, so two
// requests cannot share an id. generate defaults to uuid.NewString.
func CorrelationID(generate func() string) echo.MiddlewareFunc {
	if generate == nil {
		generate = uuid.NewString
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := generate()
			c.Set(requestIDKey, rid)
			c.Response().Header().Set(echo.HeaderXRequestID, rid)
			return next(c)
		}
	}
}

// RequestID returns the correlation id assigned by CorrelationID, or "" when
// the middleware did not run.
func RequestID(c echo.Context) string {
	rid, _ := c.Get(requestIDKey).(string)
	return rid
}

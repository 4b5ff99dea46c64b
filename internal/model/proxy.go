// Package model defines shared types for the proxy.
package model

import (
	"context"
	"net/http"
)

// ResponseKind selects how a successful upstream response is relayed.
type ResponseKind int

const (
	// ResponseJSON relays a JSON document.
	ResponseJSON ResponseKind = iota
	// ResponseBinary relays an opaque payload along with its content headers.
	ResponseBinary
)

func (k ResponseKind) String() string {
	if k == ResponseBinary {
		return "binary"
	}
	return "json"
}

// Route describes one forwarded endpoint. Path is an Echo pattern whose
// ":name" segments are filled from the inbound path parameters, and the
// same template addresses the upstream.
type Route struct {
	Name         string
	Method       string
	Path         string
	Response     ResponseKind
	ForwardQuery bool
	HasBody      bool
}

// ForwardRequest represents a client request to be forwarded upstream.
type ForwardRequest struct {
	Ctx           context.Context
	Route         Route
	Params        map[string]string
	RawQuery      string
	Authorization string
	Cookie        string
	Body          []byte
	RequestID     string
}

// Outcome classifies a relayed upstream response.
type Outcome int

const (
	OutcomeSuccess       Outcome = iota // upstream answered 2xx
	OutcomeUpstreamError                // upstream answered non-2xx
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeUpstreamError:
		return "upstream_error"
	default:
		return "unknown"
	}
}

// ForwardResponse is the fully buffered response to send back to the caller.
// When Envelope is set it replaces Body.
type ForwardResponse struct {
	Outcome    Outcome
	StatusCode int
	Header     http.Header
	Body       []byte
	Envelope   *ErrorEnvelope
}

// ErrorEnvelope is the normalized error body returned to callers.
type ErrorEnvelope struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

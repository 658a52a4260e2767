package proxy

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	// RequestIDHeader carries the client's correlation id. Read
	// verbatim; the proxy never synthesizes or rewrites it.
	RequestIDHeader = "X-Request-ID"

	// ForwardedForHeader lists the originating client followed by any
	// intermediaries.
	ForwardedForHeader = "X-Forwarded-For"

	// RealIPHeader carries the client address as seen by a fronting
	// proxy.
	RealIPHeader = "X-Real-IP"

	// UnknownValue stands in when a field cannot be determined.
	UnknownValue = "unknown"

	// MaxCaptureBodySize bounds how many request body bytes the
	// extractor inspects (10MB). Larger bodies pass through intact;
	// only the inspected prefix is parsed.
	MaxCaptureBodySize = 10 * 1024 * 1024
)

// RequestInfo is the telemetry-relevant context of an inbound request.
type RequestInfo struct {
	Method          string
	Path            string
	RemoteAddr      string
	ClientRequestID string
	ModelAlias      string
	Streaming       bool
}

// ExtractRequestInfo derives request context for telemetry. It never
// fails: a missing or unparseable body yields ModelAlias "unknown" and
// Streaming false. The body is consumed and restored in place, so the
// request can still be sent downstream.
func ExtractRequestInfo(r *http.Request) RequestInfo {
	info := RequestInfo{
		Method:          r.Method,
		Path:            r.URL.Path,
		RemoteAddr:      clientAddress(r),
		ClientRequestID: r.Header.Get(RequestIDHeader),
		ModelAlias:      UnknownValue,
	}

	if r.Body == nil || r.Body == http.NoBody {
		return info
	}

	prefix, err := io.ReadAll(io.LimitReader(r.Body, MaxCaptureBodySize))

	// Restore what was read in front of whatever remains, including a
	// pending read error.
	rest := r.Body
	r.Body = &bodyWithCloser{
		Reader: io.MultiReader(bytes.NewReader(prefix), rest),
		closer: rest,
	}

	if err != nil || !gjson.ValidBytes(prefix) {
		return info
	}

	if model := gjson.GetBytes(prefix, "model"); model.Type == gjson.String && model.Str != "" {
		info.ModelAlias = model.Str
	}
	if stream := gjson.GetBytes(prefix, "stream"); stream.Type == gjson.True {
		info.Streaming = true
	}

	return info
}

// clientAddress picks the most client-proximate address available:
// first X-Forwarded-For entry, then X-Real-IP, then the transport
// peer, then "unknown".
func clientAddress(r *http.Request) string {
	if fwd := r.Header.Get(ForwardedForHeader); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if real := strings.TrimSpace(r.Header.Get(RealIPHeader)); real != "" {
		return real
	}

	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}

	return UnknownValue
}

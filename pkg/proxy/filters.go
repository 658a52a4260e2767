package proxy

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// StripFieldFilter is an http.RoundTripper that deletes one top-level
// field from JSON request bodies before they reach the next round
// tripper. Requests without a body, with invalid JSON, or without the
// field pass through unchanged.
type StripFieldFilter struct {
	next  http.RoundTripper
	field string
}

// NewStripFieldFilter wraps next with a filter removing field. A nil
// next uses http.DefaultTransport.
func NewStripFieldFilter(next http.RoundTripper, field string) *StripFieldFilter {
	if next == nil {
		next = http.DefaultTransport
	}
	return &StripFieldFilter{next: next, field: field}
}

// RoundTrip implements http.RoundTripper.
func (f *StripFieldFilter) RoundTrip(r *http.Request) (*http.Response, error) {
	body, err := consumeBody(r)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return f.next.RoundTrip(r)
	}

	out := body
	if gjson.ValidBytes(body) && gjson.GetBytes(body, f.field).Exists() {
		if rewritten, err := sjson.DeleteBytes(body, f.field); err == nil {
			out = rewritten
		}
	}

	return f.next.RoundTrip(withBody(r, out))
}

// ForceNonStreamingFilter is an http.RoundTripper that rewrites
// stream:true request bodies to stream:false, so the upstream answers
// with a single JSON object instead of an SSE stream.
type ForceNonStreamingFilter struct {
	next http.RoundTripper
}

// NewForceNonStreamingFilter wraps next. A nil next uses
// http.DefaultTransport.
func NewForceNonStreamingFilter(next http.RoundTripper) *ForceNonStreamingFilter {
	if next == nil {
		next = http.DefaultTransport
	}
	return &ForceNonStreamingFilter{next: next}
}

// RoundTrip implements http.RoundTripper.
func (f *ForceNonStreamingFilter) RoundTrip(r *http.Request) (*http.Response, error) {
	body, err := consumeBody(r)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return f.next.RoundTrip(r)
	}

	out := body
	if gjson.ValidBytes(body) && gjson.GetBytes(body, "stream").Type == gjson.True {
		if rewritten, err := sjson.SetBytes(body, "stream", false); err == nil {
			out = rewritten
		}
	}

	return f.next.RoundTrip(withBody(r, out))
}

// consumeBody materializes the request body. A nil return with nil
// error means there was no body to read.
func consumeBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	return body, nil
}

// withBody clones the request around a replacement body, fixing
// Content-Length and GetBody so retries and redirects keep working.
func withBody(r *http.Request, body []byte) *http.Request {
	clone := r.Clone(r.Context())
	clone.Body = io.NopCloser(bytes.NewReader(body))
	clone.ContentLength = int64(len(body))
	clone.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return clone
}

package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// captureBody returns a round tripper recording the body it receives.
func captureBody(seen *[]byte, seenReq **http.Request) roundTripperFunc {
	return func(r *http.Request) (*http.Response, error) {
		if seenReq != nil {
			*seenReq = r
		}
		if r.Body != nil && r.Body != http.NoBody {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				return nil, err
			}
			*seen = body
		}
		return jsonResponse(200, `{}`), nil
	}
}

func TestStripFieldFilter(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "removes the field",
			body: `{"model":"gpt-4o","metadata":{"team":"infra"}}`,
			want: `{"model":"gpt-4o"}`,
		},
		{
			name: "absent field passes through",
			body: `{"model":"gpt-4o"}`,
			want: `{"model":"gpt-4o"}`,
		},
		{
			name: "invalid JSON passes through",
			body: `not json`,
			want: `not json`,
		},
		{
			name: "empty object passes through",
			body: `{}`,
			want: `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen []byte
			filter := NewStripFieldFilter(captureBody(&seen, nil), "metadata")

			req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(tt.body))
			if _, err := filter.RoundTrip(req); err != nil {
				t.Fatalf("RoundTrip() error = %v", err)
			}

			if string(seen) != tt.want {
				t.Errorf("upstream saw %q, want %q", seen, tt.want)
			}
		})
	}
}

func TestStripFieldFilter_NoBody(t *testing.T) {
	var seen []byte
	filter := NewStripFieldFilter(captureBody(&seen, nil), "metadata")

	req := httptest.NewRequest("GET", "/healthz", nil)
	if _, err := filter.RoundTrip(req); err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}

	if seen != nil {
		t.Errorf("upstream saw %q, want no body", seen)
	}
}

func TestForceNonStreamingFilter(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "stream true becomes false",
			body: `{"model":"gpt-4o","stream":true}`,
			want: `{"model":"gpt-4o","stream":false}`,
		},
		{
			name: "stream false is kept",
			body: `{"model":"gpt-4o","stream":false}`,
			want: `{"model":"gpt-4o","stream":false}`,
		},
		{
			name: "absent stream is kept",
			body: `{"model":"gpt-4o"}`,
			want: `{"model":"gpt-4o"}`,
		},
		{
			name: "stream as string is kept",
			body: `{"stream":"true"}`,
			want: `{"stream":"true"}`,
		},
		{
			name: "invalid JSON passes through",
			body: `{"stream":`,
			want: `{"stream":`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen []byte
			filter := NewForceNonStreamingFilter(captureBody(&seen, nil))

			req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(tt.body))
			if _, err := filter.RoundTrip(req); err != nil {
				t.Fatalf("RoundTrip() error = %v", err)
			}

			if string(seen) != tt.want {
				t.Errorf("upstream saw %q, want %q", seen, tt.want)
			}
		})
	}
}

func TestWithBody_FixesLengthAndGetBody(t *testing.T) {
	var seen []byte
	var seenReq *http.Request
	filter := NewStripFieldFilter(captureBody(&seen, &seenReq), "metadata")

	body := `{"model":"gpt-4o","metadata":{"k":"v"}}`
	req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(body))

	if _, err := filter.RoundTrip(req); err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}

	want := `{"model":"gpt-4o"}`
	if seenReq.ContentLength != int64(len(want)) {
		t.Errorf("ContentLength = %d, want %d", seenReq.ContentLength, len(want))
	}
	if seenReq.GetBody == nil {
		t.Fatal("GetBody is nil, retries would lose the body")
	}

	replay, err := seenReq.GetBody()
	if err != nil {
		t.Fatalf("GetBody() error = %v", err)
	}
	got, _ := io.ReadAll(replay)
	if string(got) != want {
		t.Errorf("GetBody() replay = %q, want %q", got, want)
	}
}

func TestFilters_ChainWithTransport(t *testing.T) {
	var seen []byte
	next := captureBody(&seen, nil)

	transport, memory := newObservedTransport(NewForceNonStreamingFilter(next))

	if _, err := transport.RoundTrip(completionsRequest(`{"model":"gpt-4o","stream":true}`)); err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}

	if string(seen) != `{"model":"gpt-4o","stream":false}` {
		t.Errorf("upstream saw %q, want stream forced off", seen)
	}

	// The telemetry layer sits in front of the filter: it observes the
	// client's stream:true request.
	completed := asResponseCompleted(t, recordedEvents(t, memory, 2)[1])
	if !completed.Streaming {
		t.Error("Streaming = false, want true from the client's request")
	}
}

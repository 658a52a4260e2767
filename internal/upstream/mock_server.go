// Package upstream provides a mock OpenAI-compatible completions server
// for tests. It simulates JSON completions, SSE streams, error payloads,
// and health probes, and records every request it receives so tests can
// assert the sidecar forwards traffic verbatim.
package upstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer is a mock completions upstream backed by httptest.
type MockServer struct {
	server    *httptest.Server
	responses map[string]MockResponse
	requests  []RecordedRequest
	mu        sync.Mutex
}

// MockResponse defines the canned response for one path.
type MockResponse struct {
	StatusCode   int
	Body         any
	Delay        time.Duration
	Headers      map[string]string
	StreamChunks []string // SSE frames; non-empty switches the path to streaming
}

// RecordedRequest is one request the mock received.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// NewMockServer creates a mock upstream. The /health path answers 200
// out of the box so readiness probes pass; override it with SetResponse
// to simulate an unhealthy upstream.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses: make(map[string]MockResponse),
	}
	ms.SetResponse("/health", MockResponse{
		StatusCode: http.StatusOK,
		Body:       map[string]any{"status": "ok"},
	})

	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))

	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse sets the canned response for a path.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.responses[path] = response
}

// RequestCount returns the number of requests received.
func (ms *MockServer) RequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return len(ms.requests)
}

// Requests returns a copy of all recorded requests.
func (ms *MockServer) Requests() []RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := make([]RecordedRequest, len(ms.requests))
	copy(out, ms.requests)
	return out
}

// LastRequest returns the most recent recorded request, nil when none
// arrived yet.
func (ms *MockServer) LastRequest() *RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if len(ms.requests) == 0 {
		return nil
	}
	r := ms.requests[len(ms.requests)-1]
	return &r
}

// Reset clears the recorded requests.
func (ms *MockServer) Reset() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.requests = nil
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ms.mu.Lock()
	ms.requests = append(ms.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	response, ok := ms.responses[r.URL.Path]
	ms.mu.Unlock()

	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": fmt.Sprintf("unknown path %q", r.URL.Path),
				"type":    "invalid_request_error",
			},
		})
		return
	}

	if response.Delay > 0 {
		time.Sleep(response.Delay)
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	if len(response.StreamChunks) > 0 {
		ms.handleStream(w, response)
		return
	}

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(response.StatusCode)

	if response.Body != nil {
		switch v := response.Body.(type) {
		case string:
			_, _ = w.Write([]byte(v))
		case []byte:
			_, _ = w.Write(v)
		default:
			_ = json.NewEncoder(w).Encode(response.Body)
		}
	}
}

// handleStream writes the configured chunks as Server-Sent Events,
// flushing after each frame so clients observe real chunk boundaries.
func (ms *MockServer) handleStream(w http.ResponseWriter, response MockResponse) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	for _, chunk := range response.StreamChunks {
		fmt.Fprintf(w, "data: %s\n\n", chunk)
		flusher.Flush()
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// CompletionResponse builds a minimal chat completion body carrying
// usage in the OpenAI prompt/completion naming.
func CompletionResponse(model string, prompt, completion int) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": "mock completion",
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     prompt,
			"completion_tokens": completion,
			"total_tokens":      prompt + completion,
		},
	}
}

// CompletionResponseWithReasoning builds a completion body whose usage
// carries a reasoning-token detail counter.
func CompletionResponseWithReasoning(model string, prompt, completion, reasoning int) map[string]any {
	body := CompletionResponse(model, prompt, completion)
	usage := body["usage"].(map[string]any)
	usage["output_token_details"] = map[string]any{
		"reasoning_tokens": reasoning,
	}
	return body
}

// StreamChunk builds one delta frame of a streamed completion, without
// usage.
func StreamChunk(model, delta string) string {
	chunk := map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]any{
			{
				"index": 0,
				"delta": map[string]any{
					"content": delta,
				},
				"finish_reason": nil,
			},
		},
	}

	data, _ := json.Marshal(chunk)
	return string(data)
}

// UsageStreamChunk builds the final frame of a streamed completion, the
// one carrying usage (the stream_options include_usage shape: empty
// choices, usage populated).
func UsageStreamChunk(model string, prompt, completion int) string {
	chunk := map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]any{},
		"usage": map[string]any{
			"prompt_tokens":     prompt,
			"completion_tokens": completion,
			"total_tokens":      prompt + completion,
		},
	}

	data, _ := json.Marshal(chunk)
	return string(data)
}

// ErrorResponse builds a canned error answer in the OpenAI envelope.
func ErrorResponse(statusCode int, message string) MockResponse {
	return MockResponse{
		StatusCode: statusCode,
		Body: map[string]any{
			"error": map[string]any{
				"message": message,
				"type":    "invalid_request_error",
				"code":    statusCode,
			},
		},
	}
}

// RateLimitError builds a 429 answer with a Retry-After header.
func RateLimitError(retryAfter int) MockResponse {
	response := ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded")
	response.Headers = map[string]string{
		"Retry-After": fmt.Sprintf("%d", retryAfter),
	}
	return response
}

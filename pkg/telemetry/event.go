package telemetry

import (
	"time"

	"github.com/google/uuid"

	"mercator-hq/callisto/pkg/usage"
)

// Kind discriminates the event variants.
type Kind string

// Event kinds, one per lifecycle stage.
const (
	KindRequestReceived   Kind = "request_received"
	KindResponseCompleted Kind = "response_completed"
	KindErrorRaised       Kind = "error_raised"
)

// Common holds the fields shared by every event variant.
type Common struct {
	// EventID uniquely identifies the event so persistent sinks can
	// correlate rows. Generated at construction.
	EventID string `json:"event_id"`

	// Timestamp is a human-readable, timezone-qualified time (RFC 3339).
	Timestamp string `json:"timestamp"`

	// ClientRequestID is the verbatim X-Request-ID header of the observed
	// request. Empty when the client sent none; never synthesized.
	ClientRequestID string `json:"client_request_id,omitempty"`

	// RemoteAddr is the resolved client address of the observed request.
	RemoteAddr string `json:"remote_addr,omitempty"`
}

// NewCommon builds the shared fields for a new event: a fresh event ID and
// the current time. clientRequestID and remoteAddr may be empty.
func NewCommon(clientRequestID, remoteAddr string) Common {
	return Common{
		EventID:         uuid.New().String(),
		Timestamp:       time.Now().Format(time.RFC3339),
		ClientRequestID: clientRequestID,
		RemoteAddr:      remoteAddr,
	}
}

// Event is the closed sum of lifecycle events. Exactly three types
// implement it: RequestReceived, ResponseCompleted and ErrorRaised.
type Event interface {
	// Kind returns the variant discriminator.
	Kind() Kind

	// Meta returns the fields shared by all variants.
	Meta() Common

	// sealed keeps the sum closed to this package's variants.
	sealed()
}

// RequestReceived records that an observed request entered the middleware,
// before it was forwarded upstream.
type RequestReceived struct {
	Common

	// Method and Path identify the HTTP operation.
	Method string `json:"method"`
	Path   string `json:"path"`

	// ModelAlias is the public model name from the request body, or
	// "unknown" when the body did not yield one.
	ModelAlias string `json:"model_alias"`

	// ReasoningMetadata is debug metadata returned by the reasoning
	// policy applied to the request. Empty for the no-op policy.
	ReasoningMetadata map[string]any `json:"reasoning_metadata,omitempty"`
}

// ResponseCompleted records a successful upstream round trip and its
// normalized token usage.
type ResponseCompleted struct {
	Common

	// DurationSeconds is the elapsed wall time of the upstream call.
	DurationSeconds float64 `json:"duration_seconds"`

	// StatusCode is the upstream HTTP status.
	StatusCode int `json:"status_code"`

	// UpstreamModel is the resolved upstream model identifier.
	UpstreamModel string `json:"upstream_model"`

	// Usage is the normalized token accounting; nil when the response
	// carried none (see MissingUsage).
	Usage *usage.Tokens `json:"usage,omitempty"`

	// Streaming reports whether the response was observed via the stream
	// replayer.
	Streaming bool `json:"streaming"`

	// ParseError reports that the response body could not be parsed (or a
	// streaming drain was cut short), so usage may be absent for that
	// reason rather than because the provider omitted it.
	ParseError bool `json:"parse_error,omitempty"`

	// MissingUsage reports that no usage was found in the response.
	MissingUsage bool `json:"missing_usage,omitempty"`
}

// ErrorRaised records a failed upstream round trip. The original error is
// always re-raised to the caller; this event is its observable trace.
type ErrorRaised struct {
	Common

	// DurationSeconds is the elapsed wall time until the failure.
	DurationSeconds float64 `json:"duration_seconds"`

	// StatusCode is the status carried by the error, or 500 when the
	// error carries none.
	StatusCode int `json:"status_code"`

	// ErrorType is the error's Go type name.
	ErrorType string `json:"error_type"`

	// ErrorMessage is the error's message.
	ErrorMessage string `json:"error_message"`

	// Streaming reports whether the request had asked for a stream.
	Streaming bool `json:"streaming"`
}

func (e *RequestReceived) Kind() Kind   { return KindRequestReceived }
func (e *RequestReceived) Meta() Common { return e.Common }
func (e *RequestReceived) sealed()      {}

func (e *ResponseCompleted) Kind() Kind   { return KindResponseCompleted }
func (e *ResponseCompleted) Meta() Common { return e.Common }
func (e *ResponseCompleted) sealed()      {}

func (e *ErrorRaised) Kind() Kind   { return KindErrorRaised }
func (e *ErrorRaised) Meta() Common { return e.Common }
func (e *ErrorRaised) sealed()      {}

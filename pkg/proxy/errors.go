package proxy

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
)

// UpstreamError describes a failed exchange with the upstream server,
// carrying the HTTP status the failure maps to.
type UpstreamError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream error (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// StatusFromError extracts an HTTP status code from an error chain.
// Errors that carry no status default to 500.
func StatusFromError(err error) int {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode
	}

	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		return coded.StatusCode()
	}

	return http.StatusInternalServerError
}

// ErrorTypeName reports the error's concrete type name with pointer
// indirection stripped: *UpstreamError and UpstreamError both yield
// "UpstreamError".
func ErrorTypeName(err error) string {
	if err == nil {
		return ""
	}

	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}

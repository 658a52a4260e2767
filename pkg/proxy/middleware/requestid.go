package middleware

import (
	"context"
	"net/http"
)

const (
	// RequestIDHeader is the HTTP header carrying the client's request ID.
	RequestIDHeader = "X-Request-ID"
)

// RequestIDMiddleware propagates the client's X-Request-ID. When the
// header is present its value is stored in the request context and
// echoed verbatim on the response; when it is absent nothing is stored
// and no header is written. The ID is never generated server-side, so
// every ID seen in logs and telemetry is one the client chose.
//
// Example usage:
//
//	handler = RequestIDMiddleware(handler)
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

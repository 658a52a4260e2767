package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// errorResponse is the OpenAI-compatible error envelope written when a
// handler panics.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a
// 500 Internal Server Error response in OpenAI error format. It logs the
// panic with stack trace for debugging but does not expose internal
// details to clients.
//
// http.ErrAbortHandler is re-raised: httputil.ReverseProxy aborts with
// it when the client goes away mid-response, and net/http handles that
// panic itself.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			requestID := GetRequestID(r.Context())

			slog.ErrorContext(r.Context(), "panic in handler",
				"error", err,
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			errResp := errorResponse{Error: errorDetail{
				Message: "An internal error occurred. Please try again later.",
				Type:    "server_error",
			}}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)

			// Encode error response (ignore encoding errors at this point)
			_ = json.NewEncoder(w).Encode(errResp)
		}()

		next.ServeHTTP(w, r)
	})
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/proxy/middleware"
)

// Options carries the collaborators the server wires into its routes.
type Options struct {
	// Transport handles every proxied exchange. Production installs the
	// request-filter chain wrapping the telemetry transport here; nil
	// proxies through http.DefaultTransport unobserved.
	Transport http.RoundTripper

	// Metrics, when non-nil, is mounted at MetricsPath.
	Metrics http.Handler

	// MetricsPath is where Metrics is mounted.
	// Default: "/metrics"
	MetricsPath string

	// Logger receives server diagnostics.
	// Default: slog.Default() with component "server"
	Logger *slog.Logger
}

// Server is the HTTP serving shell of the sidecar: a reverse proxy to
// the upstream completions server plus probe and metrics routes. All
// observation happens in the proxy transport; the server adds no
// telemetry of its own beyond access logs.
type Server struct {
	config       *config.ServerConfig
	upstream     *config.UpstreamConfig
	upstreamURL  *url.URL
	opts         Options
	logger       *slog.Logger
	probeClient  *http.Client
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates the serving shell for the given upstream.
func NewServer(cfg *config.ServerConfig, upstream *config.UpstreamConfig, opts Options) (*Server, error) {
	upstreamURL, err := url.Parse(upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base URL %q: %w", upstream.BaseURL, err)
	}
	if upstreamURL.Scheme != "http" && upstreamURL.Scheme != "https" {
		return nil, fmt.Errorf("upstream base URL %q: scheme must be http or https", upstream.BaseURL)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "server")
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	probeTimeout := upstream.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}

	return &Server{
		config:       cfg,
		upstream:     upstream,
		upstreamURL:  upstreamURL,
		opts:         opts,
		logger:       logger,
		probeClient:  &http.Client{Timeout: probeTimeout},
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start starts the HTTP server and blocks until the context is
// cancelled, a shutdown signal arrives, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        s.setupRoutes(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting sidecar server",
			"address", s.config.ListenAddress,
			"upstream", s.upstream.BaseURL,
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server, bounded by the configured
// shutdown timeout. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("sidecar server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler, for tests and embedders
// that bring their own listener.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes configures the routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	if s.opts.Metrics != nil {
		mux.Handle(s.opts.MetricsPath, s.opts.Metrics)
	}
	mux.Handle("/", s.newReverseProxy())

	// Recovery outermost, then request id so the access log can name it.
	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// newReverseProxy builds the catch-all proxy to the upstream base URL.
func (s *Server) newReverseProxy() *httputil.ReverseProxy {
	rp := httputil.NewSingleHostReverseProxy(s.upstreamURL)

	if s.opts.Transport != nil {
		rp.Transport = s.opts.Transport
	}

	// Flush each write straight through: completions streams are SSE and
	// buffering frames would stall the client.
	rp.FlushInterval = -1

	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		// Client disconnects surface here as context errors; they are not
		// upstream failures and a response can no longer be written.
		if r.Context().Err() != nil {
			return
		}

		s.logger.Error("upstream proxy error",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeJSONError(w, http.StatusBadGateway, "upstream_error", "upstream unreachable")
	}

	return rp
}

// handleHealthz is the liveness probe: the process is up.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// handleReadyz is the readiness probe: the upstream answers its health
// endpoint. 200 when ready, 503 with a reason otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "ready"
	reason := ""
	code := http.StatusOK

	if err := s.probeUpstream(r.Context()); err != nil {
		status = "not_ready"
		reason = err.Error()
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if r.Method == http.MethodHead {
		return
	}

	body := map[string]string{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if reason != "" {
		body["reason"] = reason
	}
	_ = json.NewEncoder(w).Encode(body)
}

// probeUpstream performs one readiness probe against the upstream's
// health endpoint.
func (s *Server) probeUpstream(ctx context.Context) error {
	probeURL := s.upstream.BaseURL + s.upstream.HealthPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return fmt.Errorf("invalid upstream health URL: %w", err)
	}

	resp, err := s.probeClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("upstream health returned status %d", resp.StatusCode)
	}
	return nil
}

// writeJSONError writes an OpenAI-compatible error envelope.
func writeJSONError(w http.ResponseWriter, code int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    errType,
		},
	})
}

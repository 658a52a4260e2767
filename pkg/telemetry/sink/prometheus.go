package sink

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/telemetry"
)

// PrometheusSink translates telemetry events into Prometheus metrics.
//
// Metrics (with the configured namespace/subsystem prefix):
//   - requests_total: accepted requests by model alias
//   - responses_total: completed responses by upstream model and status
//   - request_duration_seconds: end-to-end duration histogram by model
//   - tokens_total: token counts by model and type (prompt, completion,
//     reasoning, total)
//   - errors_total: raised errors by error type
//
// The sink registers on its own registry so tests and embedders never
// collide with the global default registry.
type PrometheusSink struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	responsesTotal  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
}

// NewPrometheusSink creates a Prometheus sink using the provided metrics
// configuration. If registry is nil, a fresh registry is created.
func NewPrometheusSink(cfg *config.MetricsConfig, registry *prometheus.Registry) *PrometheusSink {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = config.DefaultRequestDurationBuckets()
	}

	s := &PrometheusSink{
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of completion requests received",
			},
			[]string{"model"},
		),

		responsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "responses_total",
				Help:      "Total number of completed responses by status code",
			},
			[]string{"model", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "End-to-end request duration in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"model"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tokens_total",
				Help:      "Total number of tokens reported by the upstream",
			},
			[]string{"model", "type"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "errors_total",
				Help:      "Total number of upstream errors by type",
			},
			[]string{"error_type"},
		),
	}

	registry.MustRegister(
		s.requestsTotal,
		s.responsesTotal,
		s.requestDuration,
		s.tokensTotal,
		s.errorsTotal,
	)

	return s
}

// Name implements telemetry.Sink.
func (s *PrometheusSink) Name() string {
	return "prometheus"
}

// Emit updates the metric families matching the event kind.
func (s *PrometheusSink) Emit(ctx context.Context, event telemetry.Event) error {
	switch e := event.(type) {
	case *telemetry.RequestReceived:
		s.requestsTotal.WithLabelValues(modelLabel(e.ModelAlias)).Inc()

	case *telemetry.ResponseCompleted:
		model := modelLabel(e.UpstreamModel)
		s.responsesTotal.WithLabelValues(model, strconv.Itoa(e.StatusCode)).Inc()
		s.requestDuration.WithLabelValues(model).Observe(e.DurationSeconds)
		if u := e.Usage; u != nil {
			if u.Prompt != nil {
				s.tokensTotal.WithLabelValues(model, "prompt").Add(float64(*u.Prompt))
			}
			if u.Completion != nil {
				s.tokensTotal.WithLabelValues(model, "completion").Add(float64(*u.Completion))
			}
			if u.Reasoning != nil {
				s.tokensTotal.WithLabelValues(model, "reasoning").Add(float64(*u.Reasoning))
			}
			if u.Total != nil {
				s.tokensTotal.WithLabelValues(model, "total").Add(float64(*u.Total))
			}
		}

	case *telemetry.ErrorRaised:
		errorType := e.ErrorType
		if errorType == "" {
			errorType = "unknown"
		}
		s.errorsTotal.WithLabelValues(errorType).Inc()
	}

	return nil
}

// Registry returns the Prometheus registry backing this sink.
func (s *PrometheusSink) Registry() *prometheus.Registry {
	return s.registry
}

// Handler returns an HTTP handler serving the sink's metrics in the
// Prometheus exposition format, for mounting at the metrics path.
func (s *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(
		s.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		},
	)
}

func modelLabel(model string) string {
	if model == "" {
		return "unknown"
	}
	return model
}

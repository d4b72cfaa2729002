package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "hstream").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "hstream",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus instruments for hstream.
type metrics struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	scriptRunsTotal   *prometheus.CounterVec
	reconcilesTotal   *prometheus.CounterVec
	refreshKeysQueued prometheus.Counter
	valueChangesTotal prometheus.Counter
}

var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total HTTP requests by path pattern and status",
			ConstLabels: config.ConstLabels,
		}, []string{"path", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"path"}),

		scriptRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "script_runs_total",
			Help:        "Total user script executions by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		reconcilesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reconciles_total",
			Help:        "Total reconciliations by decision kind",
			ConstLabels: config.ConstLabels,
		}, []string{"decision"}),

		refreshKeysQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "refresh_keys_queued_total",
			Help:        "Total component keys enqueued for refresh",
			ConstLabels: config.ConstLabels,
		}),

		valueChangesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "value_changes_total",
			Help:        "Total visitor value changes applied",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Prometheus creates HTTP middleware that collects request metrics, and
// initializes the package-level recorders fed by the engine through Recorder:
//
//	hstream_requests_total          counter by path and status
//	hstream_request_duration_seconds histogram by path
//	hstream_script_runs_total       counter by outcome (RecordScriptRun)
//	hstream_reconciles_total        counter by decision (RecordReconcile)
//	hstream_refresh_keys_queued_total counter (RecordReconcile)
//	hstream_value_changes_total     counter (RecordValueChange)
//
// Expose the registry with promhttp.Handler() on a metrics endpoint.
func Prometheus(opts ...MetricsOption) func(http.Handler) http.Handler {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := normalizePath(r.URL.Path)
			start := time.Now()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			m.requestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
			m.requestsTotal.WithLabelValues(path, strconv.Itoa(sw.status)).Inc()
		})
	}
}

// statusWriter captures the response status for the requests counter.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(p)
}

// normalizePath collapses per-component paths into their route patterns so
// component keys don't become high-cardinality label values.
func normalizePath(path string) string {
	switch path {
	case "/", "/update", "/update/ws":
		return path
	}
	if strings.HasSuffix(path, "/label") {
		return "/{key}/label"
	}
	if strings.HasPrefix(path, "/value_changed/") {
		return "/value_changed/{key}"
	}
	return "other"
}

// RecordScriptRun records one user script execution. Call with the script
// error, nil on success.
func RecordScriptRun(err error) {
	if globalMetrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	globalMetrics.scriptRunsTotal.WithLabelValues(status).Inc()
}

// RecordReconcile records one reconciliation outcome.
func RecordReconcile(fullReload bool, refreshKeys int) {
	if globalMetrics == nil {
		return
	}
	decision := "none"
	switch {
	case fullReload:
		decision = "full_reload"
	case refreshKeys > 0:
		decision = "refresh"
	}
	globalMetrics.reconcilesTotal.WithLabelValues(decision).Inc()
	if refreshKeys > 0 {
		globalMetrics.refreshKeysQueued.Add(float64(refreshKeys))
	}
}

// RecordValueChange records one applied visitor value change.
func RecordValueChange() {
	if globalMetrics == nil {
		return
	}
	globalMetrics.valueChangesTotal.Inc()
}

// Recorder forwards engine events to the package-level recorders. Pass it to
// engine.WithObserver so script runs, reconciliations, and value changes are
// counted where they actually happen rather than inferred from HTTP traffic.
type Recorder struct{}

func (Recorder) ScriptRun(err error) { RecordScriptRun(err) }

func (Recorder) Reconcile(fullReload bool, refreshKeys int) {
	RecordReconcile(fullReload, refreshKeys)
}

func (Recorder) ValueChange() { RecordValueChange() }

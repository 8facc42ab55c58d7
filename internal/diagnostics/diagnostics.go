// Package diagnostics exposes a loopback-only HTTP surface for health and
// Prometheus metrics. It is not part of the wire protocol the controller
// speaks (spec §6.1) — the spec's core only names a debug-output log sink
// (§6.3) — but every other ambient concern in this bridge follows the
// teacher's observability stack, so the bridge's own operational health
// gets the same chi+Prometheus treatment the teacher's admin routes do.
package diagnostics

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors the rest of the bridge updates
// as it runs. It's a plain struct of already-registered collectors rather
// than a package-level global, so internal/bridge can wire a fresh set
// per instance in tests.
type Metrics struct {
	QueueDepth         prometheus.Gauge
	ResponseQueueDepth prometheus.Gauge
	DispatchTotal      *prometheus.CounterVec
	DispatchErrors     *prometheus.CounterVec
	FrameTickSeconds   prometheus.Histogram
}

// NewMetrics builds and registers a Metrics set against its own registry,
// so multiple bridge instances in the same test binary don't collide on
// the default global registry. The Dispatcher and Frame Hook are handed
// this same *Metrics (see internal/bridge.New) so DispatchTotal,
// DispatchErrors, QueueDepth, ResponseQueueDepth, and FrameTickSeconds are
// updated as the bridge actually runs, not just in this package's tests.
func NewMetrics() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hostbridge_request_queue_depth",
			Help: "Number of requests currently queued for the render thread.",
		}),
		ResponseQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hostbridge_response_queue_depth",
			Help: "Number of responses currently queued for the IPC thread.",
		}),
		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostbridge_dispatch_total",
			Help: "Total dispatched requests, labeled by command kind.",
		}, []string{"kind"}),
		DispatchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostbridge_dispatch_errors_total",
			Help: "Total dispatch responses carrying an error tag, labeled by command kind.",
		}, []string{"kind"}),
		FrameTickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hostbridge_frame_tick_seconds",
			Help:    "Wall time spent in one Frame Hook drain-dispatch-enqueue pass.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.QueueDepth, m.ResponseQueueDepth, m.DispatchTotal, m.DispatchErrors, m.FrameTickSeconds)
	return m, reg
}

// healthStatus mirrors the teacher's HealthHandler JSON shape, trimmed to
// what this bridge actually tracks.
type healthStatus struct {
	Status       string `json:"status"`
	HookInstalled bool   `json:"hook_installed"`
	OffsetsReady bool   `json:"offsets_ready"`
	Uptime       string `json:"uptime"`
}

// StatusSource is the subset of bridge state the /healthz handler reports
// on, kept as an interface so tests can fake it without constructing a
// real Hook/Offsets pair.
type StatusSource interface {
	HookInstalled() bool
	OffsetsReady() bool
}

// NewMux builds the loopback diagnostics router: /healthz and /metrics,
// following the teacher's chi + stdlib middleware conventions.
func NewMux(reg *prometheus.Registry, status StatusSource, startedAt time.Time) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		resp := healthStatus{
			Status:        "running",
			HookInstalled: status.HookInstalled(),
			OffsetsReady:  status.OffsetsReady(),
			Uptime:        time.Since(startedAt).String(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}

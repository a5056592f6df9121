// Package metrics records backend calls and operation outcomes as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joe/twinpane/pkg/errors"
)

// Exported constants.
const (
	Namespace = "twinpane"
	ResultOK  = "ok"
)

// Recorder receives measurements from the panels and the operation engine.
type Recorder interface {
	BackendCall(backend, op string, err error)
	Operation(kind, outcome string, duration time.Duration)
	CommandLogSize(n int)
}

// Prometheus is a Recorder backed by Prometheus collectors.
type Prometheus struct {
	backendCalls      *prometheus.CounterVec
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	logEntries        prometheus.Gauge
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Prometheus {
	rec := &Prometheus{
		backendCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "backend_calls_total",
				Help:      "Total number of backend calls by backend, operation and result",
			},
			[]string{"backend", "op", "result"},
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "operations_total",
				Help:      "Total number of executed operations by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "operation_duration_seconds",
				Help:      "Operation execution time in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		logEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "command_log_entries",
				Help:      "Number of entries held by the command log",
			},
		),
	}

	reg.MustRegister(rec.backendCalls, rec.operations, rec.operationDuration, rec.logEntries)

	return rec
}

// BackendCall counts one backend call. The result label is "ok" or the error kind.
func (p *Prometheus) BackendCall(backend, op string, err error) {
	result := ResultOK
	if err != nil {
		result = errors.KindOf(err).String()
	}

	p.backendCalls.WithLabelValues(backend, op, result).Inc()
}

// Operation counts an executed operation and observes its duration.
func (p *Prometheus) Operation(kind, outcome string, duration time.Duration) {
	p.operations.WithLabelValues(kind, outcome).Inc()
	p.operationDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// CommandLogSize sets the command log gauge.
func (p *Prometheus) CommandLogSize(n int) {
	p.logEntries.Set(float64(n))
}

// Nop returns a Recorder that discards everything.
func Nop() Recorder {
	return nop{}
}

type nop struct{}

func (nop) BackendCall(string, string, error)       {}
func (nop) Operation(string, string, time.Duration) {}
func (nop) CommandLogSize(int)                      {}

// Handler serves /metrics from gatherer and a /healthz liveness probe.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	return router
}

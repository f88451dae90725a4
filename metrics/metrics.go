// Package metrics wires the alarm evaluation core's Prometheus metrics
// (§4.6a, §4.7a): DU propagation timing, CE state, and Supervisor heartbeat.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry owns a Prometheus registry plus the alarm-core metric
// collectors registered against it, mirroring the teacher's
// MetricsRegistry: one registry per process, core collectors added at
// construction.
type Registry struct {
	prometheusRegistry *prometheus.Registry

	propagationDuration *prometheus.HistogramVec
	publishTotal        *prometheus.CounterVec
	ceState              *prometheus.GaugeVec
	heartbeatTotal       *prometheus.CounterVec

	mu          sync.Mutex
	stateValues map[string]ceState // "du/ce" -> currently-set state, so switching states clears the old gauge
}

type ceState struct {
	du, ce, state string
}

// New constructs a Registry with the alarm-core collectors and the Go
// runtime collectors registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		prometheusRegistry: reg,
		propagationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "alarmcore",
			Subsystem: "du",
			Name:      "propagation_duration_seconds",
			Help:      "Time spent running one update_and_publish propagation fold.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"du"}),
		publishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alarmcore",
			Subsystem: "du",
			Name:      "publish_total",
			Help:      "Count of DU publish decisions, partitioned by whether the output changed.",
		}, []string{"du", "changed"}),
		ceState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "alarmcore",
			Subsystem: "ce",
			Name:      "state",
			Help:      "1 if the computing element is currently in this state, 0 otherwise.",
		}, []string{"du", "ce", "state"}),
		heartbeatTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alarmcore",
			Subsystem: "supervisor",
			Name:      "heartbeat_total",
			Help:      "Count of heartbeats emitted, partitioned by status.",
		}, []string{"supervisor", "status"}),
		stateValues: make(map[string]ceState),
	}

	reg.MustRegister(
		r.propagationDuration,
		r.publishTotal,
		r.ceState,
		r.heartbeatTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// PrometheusRegistry returns the underlying Prometheus registry, e.g. for
// wiring into an HTTP exposition handler.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// SetCEState records that duID/ceID is now in state, clearing the gauge for
// whatever state it previously held.
func (r *Registry) SetCEState(duID, ceID, state string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := duID + "/" + ceID
	if prev, ok := r.stateValues[key]; ok && prev.state != state {
		r.ceState.WithLabelValues(prev.du, prev.ce, prev.state).Set(0)
	}
	r.stateValues[key] = ceState{du: duID, ce: ceID, state: state}
	r.ceState.WithLabelValues(duID, ceID, state).Set(1)
}

// IncHeartbeat records one heartbeat emission for supervisorID at status.
func (r *Registry) IncHeartbeat(supervisorID, status string) {
	r.heartbeatTotal.WithLabelValues(supervisorID, status).Inc()
}

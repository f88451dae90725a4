package metrics

import "time"

// PrometheusStatsSink implements du.StatsSink against one DU's slice of a
// shared Registry (§4.6a). Constructed once per DU with that DU's own id as
// a label, so one Prometheus registry serves every DU in a Supervisor.
type PrometheusStatsSink struct {
	registry *Registry
	duID     string
}

// NewPrometheusStatsSink returns a du.StatsSink that reports into registry under duID.
func NewPrometheusStatsSink(registry *Registry, duID string) *PrometheusStatsSink {
	return &PrometheusStatsSink{registry: registry, duID: duID}
}

// ObserveEvaluation records one propagation fold's wall-clock duration.
func (s *PrometheusStatsSink) ObserveEvaluation(duration time.Duration) {
	s.registry.propagationDuration.WithLabelValues(s.duID).Observe(duration.Seconds())
}

// ObservePublish records one publish decision, partitioned by whether the
// output actually changed.
func (s *PrometheusStatsSink) ObservePublish(changed bool) {
	label := "false"
	if changed {
		label = "true"
	}
	s.registry.publishTotal.WithLabelValues(s.duID, label).Inc()
}

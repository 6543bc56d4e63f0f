// Package metrics exposes Prometheus collectors for link and alarm operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is what the link and alarm services report into.
type Recorder interface {
	ObserveLinkOp(op, result string, d time.Duration)
	AlarmEvent(alarmType, action string)
	AlarmTransition(to string)
}

// Metrics is the Prometheus-backed Recorder.
type Metrics struct {
	linkOps          *prometheus.CounterVec
	linkDuration     *prometheus.HistogramVec
	alarmEvents      *prometheus.CounterVec
	alarmTransitions *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		linkOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "patchbay_link_operations_total",
			Help: "Number of connect/disconnect operations by result.",
		}, []string{"op", "result"}),
		linkDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "patchbay_link_operation_duration_seconds",
			Help:    "Duration of connect/disconnect transactions.",
			Buckets: prometheus.ExponentialBuckets(.001, 2, 12),
		}, []string{"op"}),
		alarmEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "patchbay_alarm_events_total",
			Help: "Detections processed by the alarm classifier, by type and action.",
		}, []string{"type", "action"}),
		alarmTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "patchbay_alarm_transitions_total",
			Help: "Alarm status transitions by target status.",
		}, []string{"to"}),
	}

	for _, op := range []string{"connect", "disconnect"} {
		for _, res := range []string{"ok", "noop", "error"} {
			m.linkOps.WithLabelValues(op, res)
		}
	}
	return m
}

func (m *Metrics) ObserveLinkOp(op, result string, d time.Duration) {
	m.linkOps.WithLabelValues(op, result).Inc()
	m.linkDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) AlarmEvent(alarmType, action string) {
	m.alarmEvents.WithLabelValues(alarmType, action).Inc()
}

func (m *Metrics) AlarmTransition(to string) {
	m.alarmTransitions.WithLabelValues(to).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveLinkOp(string, string, time.Duration) {}
func (Nop) AlarmEvent(string, string)                   {}
func (Nop) AlarmTransition(string)                      {}

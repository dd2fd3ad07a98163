// Package metrics exposes Prometheus counters for the sync core.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	RemindersFired      prometheus.Counter
	ChannelFailures     *prometheus.CounterVec
	RemoteWriteFailures *prometheus.CounterVec
	RemoteEvents        *prometheus.CounterVec
	Connected           prometheus.Gauge
	Tasks               prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RemindersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tripboard",
			Name:      "reminders_fired_total",
			Help:      "Reminders emitted by the scheduler.",
		}),
		ChannelFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripboard",
			Name:      "notification_channel_failures_total",
			Help:      "Reminder deliveries that failed, by channel.",
		}, []string{"channel"}),
		RemoteWriteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripboard",
			Name:      "remote_write_failures_total",
			Help:      "Remote writes that failed after an optimistic local change.",
		}, []string{"op"}),
		RemoteEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripboard",
			Name:      "remote_events_total",
			Help:      "Live change events received, by type and whether they changed state.",
		}, []string{"type", "result"}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tripboard",
			Name:      "remote_connected",
			Help:      "1 when the session runs in connected mode.",
		}),
		Tasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tripboard",
			Name:      "tasks",
			Help:      "Tasks in the canonical list.",
		}),
	}
	reg.MustRegister(m.RemindersFired, m.ChannelFailures, m.RemoteWriteFailures,
		m.RemoteEvents, m.Connected, m.Tasks)
	return m
}

func (m *Metrics) ReminderFired() {
	if m != nil {
		m.RemindersFired.Inc()
	}
}

func (m *Metrics) ChannelFailed(channel string) {
	if m != nil {
		m.ChannelFailures.WithLabelValues(channel).Inc()
	}
}

func (m *Metrics) RemoteWriteFailed(op string) {
	if m != nil {
		m.RemoteWriteFailures.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) RemoteEvent(eventType string, applied bool) {
	if m == nil {
		return
	}
	result := "ignored"
	if applied {
		result = "applied"
	}
	m.RemoteEvents.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.Connected.Set(1)
	} else {
		m.Connected.Set(0)
	}
}

func (m *Metrics) SetTasks(n int) {
	if m != nil {
		m.Tasks.Set(float64(n))
	}
}

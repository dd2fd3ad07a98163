package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ReminderFired()
	m.ChannelFailed("bell")
	m.RemoteWriteFailed("create")
	m.RemoteEvent("INSERT", true)
	m.SetConnected(true)
	m.SetTasks(3)
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ReminderFired()
	m.ReminderFired()
	m.ChannelFailed("desktop")
	m.RemoteEvent("DELETE", false)
	m.SetConnected(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RemindersFired))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChannelFailures.WithLabelValues("desktop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteEvents.WithLabelValues("DELETE", "ignored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Connected))
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveLinkOp("connect", "ok", 5*time.Millisecond)
	m.ObserveLinkOp("connect", "ok", 7*time.Millisecond)
	m.AlarmEvent("description_changed", "created")
	m.AlarmTransition("ACKNOWLEDGED")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.linkOps.WithLabelValues("connect", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.linkOps.WithLabelValues("disconnect", "noop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alarmEvents.WithLabelValues("description_changed", "created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alarmTransitions.WithLabelValues("ACKNOWLEDGED")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNopSatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.ObserveLinkOp("connect", "ok", time.Second)
	r.AlarmEvent("x", "y")
	r.AlarmTransition("z")
}

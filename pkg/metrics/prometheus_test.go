package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordCycle(true, 5, 2, 0.3)
	r.RecordCycle(false, 3, 0, 0.1)
	r.RecordSignal("live", "SPY")
	r.RecordSignal("live", "SPY")
	r.RecordBacktest("partial", 8, 1.5)
	r.RecordDriftCheck(true)
	r.RecordShadowTest("promote")
	r.RecordUnlock("rejected")
	r.RecordTransition("idle", "running")
	r.RecordError("unavailable")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.cycles.WithLabelValues("live")))
	assert.Equal(t, 8.0, testutil.ToFloat64(r.processed))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.signals.WithLabelValues("live", "SPY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.backtests.WithLabelValues("partial")))
	assert.Equal(t, 8.0, testutil.ToFloat64(r.btWindows))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.driftChecks.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.shadowTests.WithLabelValues("promote")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.unlocks.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues("idle", "running")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("unavailable")))
}

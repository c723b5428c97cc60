package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tradebot"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles       *prometheus.CounterVec
	cycleSeconds prometheus.Histogram
	processed    prometheus.Counter
	signals      *prometheus.CounterVec
	backtests    *prometheus.CounterVec
	btWindows    prometheus.Counter
	btSeconds    prometheus.Histogram
	driftChecks  *prometheus.CounterVec
	shadowTests  *prometheus.CounterVec
	unlocks      *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
}

// New creates a recorder registered on reg; nil means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "cycles_total",
			Help:      "Completed orchestrator cycles by routing mode",
		}, []string{"mode"}),
		cycleSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one orchestrator cycle",
			Buckets:   prometheus.DefBuckets,
		}),
		processed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "symbols_processed_total",
			Help:      "Symbols analysed across all cycles",
		}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Signals routed by mode and symbol",
		}, []string{"mode", "symbol"}),
		backtests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Backtest runs by final status",
		}, []string{"status"}),
		btWindows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "windows_total",
			Help:      "Walk-forward windows evaluated",
		}),
		btSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Duration of a backtest run",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		driftChecks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "governance",
			Name:      "drift_checks_total",
			Help:      "Drift checks by outcome",
		}, []string{"drifted"}),
		shadowTests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "governance",
			Name:      "shadow_tests_total",
			Help:      "Shadow evaluations by recommendation",
		}, []string{"recommendation"}),
		unlocks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "unlock_attempts_total",
			Help:      "Live unlock attempts by outcome",
		}, []string{"outcome"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "transitions_total",
			Help:      "Orchestrator state transitions",
		}, []string{"from", "to"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors encountered",
		}, []string{"kind"}),
	}
}

func (r *Recorder) RecordCycle(live bool, processed, _ int, seconds float64) {
	mode := "simulation"
	if live {
		mode = "live"
	}
	r.cycles.WithLabelValues(mode).Inc()
	r.cycleSeconds.Observe(seconds)
	r.processed.Add(float64(processed))
}

func (r *Recorder) RecordSignal(mode, symbol string) {
	r.signals.WithLabelValues(mode, symbol).Inc()
}

func (r *Recorder) RecordBacktest(status string, windows int, seconds float64) {
	r.backtests.WithLabelValues(status).Inc()
	r.btWindows.Add(float64(windows))
	r.btSeconds.Observe(seconds)
}

func (r *Recorder) RecordDriftCheck(drifted bool) {
	label := "false"
	if drifted {
		label = "true"
	}
	r.driftChecks.WithLabelValues(label).Inc()
}

func (r *Recorder) RecordShadowTest(recommendation string) {
	r.shadowTests.WithLabelValues(recommendation).Inc()
}

func (r *Recorder) RecordUnlock(outcome string) {
	r.unlocks.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordTransition(from, to string) {
	r.transitions.WithLabelValues(from, to).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

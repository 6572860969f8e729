package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Charge attempt results
const (
	AttemptWin  = "win"
	AttemptFail = "fail"
)

// SettlementMetrics tracks nightly runs, charge attempts and manual
// assignments. A nil *SettlementMetrics is valid and records nothing.
type SettlementMetrics struct {
	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	attempts       *prometheus.CounterVec
	chargedCents   prometheus.Counter
	manualAssigns  *prometheus.CounterVec
	forceUnlocks   prometheus.Counter
	lastWinUnixSec prometheus.Gauge
}

// NewSettlementMetrics registers the settlement collectors on registerer
func NewSettlementMetrics(registerer prometheus.Registerer) *SettlementMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crown_settlement_runs_total",
		Help: "Nightly settlement invocations by outcome.",
	}, []string{"outcome"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "crown_settlement_run_duration_seconds",
		Help:    "Wall time of nightly settlement invocations that acquired the lock.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crown_charge_attempts_total",
		Help: "Per-candidate charge attempts by source and result.",
	}, []string{"source", "result"})
	chargedCents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crown_charged_cents_total",
		Help: "Minor units captured for crown wins.",
	})
	manualAssigns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crown_manual_assignments_total",
		Help: "Manual crown assignments by result.",
	}, []string{"result"})
	forceUnlocks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crown_force_unlocks_total",
		Help: "Operator force unlocks of the settlement lock.",
	})
	lastWin := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "crown_last_win_timestamp_seconds",
		Help: "Unix time of the most recent crown win.",
	})

	registerer.MustRegister(runs, runDuration, attempts, chargedCents, manualAssigns, forceUnlocks, lastWin)

	return &SettlementMetrics{
		runs:           runs,
		runDuration:    runDuration,
		attempts:       attempts,
		chargedCents:   chargedCents,
		manualAssigns:  manualAssigns,
		forceUnlocks:   forceUnlocks,
		lastWinUnixSec: lastWin,
	}
}

// ObserveRun records a finished nightly invocation
func (m *SettlementMetrics) ObserveRun(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		m.runDuration.Observe(elapsed.Seconds())
	}
}

// ObserveAttempt records one charge attempt
func (m *SettlementMetrics) ObserveAttempt(source, result string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(source, result).Inc()
}

// ObserveWin records captured funds for a win at t
func (m *SettlementMetrics) ObserveWin(amountCents int64, t time.Time) {
	if m == nil {
		return
	}
	m.chargedCents.Add(float64(amountCents))
	m.lastWinUnixSec.Set(float64(t.Unix()))
}

// ObserveManualAssign records a manual assignment result
func (m *SettlementMetrics) ObserveManualAssign(result string) {
	if m == nil {
		return
	}
	m.manualAssigns.WithLabelValues(result).Inc()
}

// ObserveForceUnlock records an operator unlock
func (m *SettlementMetrics) ObserveForceUnlock() {
	if m == nil {
		return
	}
	m.forceUnlocks.Inc()
}

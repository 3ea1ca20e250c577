package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for pricing and reporting.
type Metrics struct {
	// --- Pricing ---
	PricingCalls    *prometheus.CounterVec
	PricingDuration *prometheus.HistogramVec
	TrialsSimulated *prometheus.CounterVec
	KnockOutRatio   prometheus.Gauge

	// --- Analytics ---
	ReportRuns     *prometheus.CounterVec
	ReportDuration prometheus.Histogram
	ReportPrice    *prometheus.GaugeVec
	GreekValue     *prometheus.GaugeVec
	ScenarioPrice  *prometheus.GaugeVec
}

// NewMetrics creates all collectors and registers them on reg.
// A nil reg yields unregistered collectors, which is what tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	pricingBuckets := []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

	return &Metrics{
		PricingCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "basketrisk_pricing_calls_total",
			Help: "Pricing calls by option kind and outcome",
		}, []string{"kind", "outcome"}),

		PricingDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "basketrisk_pricing_duration_seconds",
			Help:    "Wall time of one Monte Carlo pricing call",
			Buckets: pricingBuckets,
		}, []string{"kind"}),

		TrialsSimulated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "basketrisk_trials_simulated_total",
			Help: "Monte Carlo trials simulated",
		}, []string{"kind"}),

		KnockOutRatio: f.NewGauge(prometheus.GaugeOpts{
			Name: "basketrisk_barrier_knockout_ratio",
			Help: "Share of trials knocked out in the last barrier pricing call",
		}),

		ReportRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "basketrisk_report_runs_total",
			Help: "Risk report runs by outcome",
		}, []string{"outcome"}),

		ReportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "basketrisk_report_duration_seconds",
			Help:    "Wall time of a full risk report",
			Buckets: pricingBuckets,
		}),

		ReportPrice: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "basketrisk_report_price",
			Help: "Last reported option price",
		}, []string{"kind"}),

		GreekValue: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "basketrisk_report_greek",
			Help: "Last reported finite-difference Greek of the barrier option",
		}, []string{"greek"}),

		ScenarioPrice: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "basketrisk_report_scenario_price",
			Help: "Last reported scenario price",
		}, []string{"scenario"}),
	}
}

// ObservePricing records one pricing call. Safe on a nil receiver.
func (m *Metrics) ObservePricing(kind string, elapsed time.Duration, trials, knockedOut int, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.PricingCalls.WithLabelValues(kind, outcome).Inc()
	m.PricingDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if err != nil {
		return
	}
	m.TrialsSimulated.WithLabelValues(kind).Add(float64(trials))
	if kind == "barrier" && trials > 0 {
		m.KnockOutRatio.Set(float64(knockedOut) / float64(trials))
	}
}

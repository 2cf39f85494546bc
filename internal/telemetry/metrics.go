package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// passTotal counts analyzer passes by pass name and result
	passTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forensia_pass_total",
		Help: "Total analyzer passes by pass and result",
	}, []string{"pass", "result"})

	// passDuration tracks analyzer pass latency
	passDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forensia_pass_duration_seconds",
		Help:    "Analyzer pass duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4.4m
	}, []string{"pass"})

	// recordsWritten counts analytic records appended per pass
	recordsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forensia_records_written_total",
		Help: "Analytic records appended to the store by pass",
	}, []string{"pass"})

	// ecosystemHealth is the latest computed ecosystem health
	ecosystemHealth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forensia_ecosystem_health",
		Help: "Most recent ecosystem health score in [0,1]",
	})

	// passesThrottled counts passes skipped by the rate limiter
	passesThrottled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forensia_pass_throttled_total",
		Help: "Scheduled passes skipped because the pass limiter denied them",
	}, []string{"pass"})
)

// ObservePass records the outcome of one analyzer pass
func ObservePass(pass string, elapsed time.Duration, records int, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	passTotal.WithLabelValues(pass, result).Inc()
	passDuration.WithLabelValues(pass).Observe(elapsed.Seconds())
	if records > 0 {
		recordsWritten.WithLabelValues(pass).Add(float64(records))
	}
}

// ObserveHealth records the latest ecosystem health
func ObserveHealth(health float64) {
	ecosystemHealth.Set(health)
}

// ObserveThrottled records a pass skipped by the limiter
func ObserveThrottled(pass string) {
	passesThrottled.WithLabelValues(pass).Inc()
}

// MetricsHandler exposes the default registry
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

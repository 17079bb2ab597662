package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/video-stream/subtrans/internal/orchestrator"
	"github.com/video-stream/subtrans/internal/retry"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtrans_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "subtrans_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Translation Metrics
	CuesTranslatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtrans_cues_translated_total",
			Help: "Total number of cues translated",
		},
		[]string{"provider"},
	)

	AttemptFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtrans_attempt_failures_total",
			Help: "Total number of failed provider attempts",
		},
		[]string{"provider", "kind"},
	)

	RetryDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "subtrans_retry_delay_seconds",
			Help:    "Backoff delay scheduled before a retry",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to 64s
		},
		[]string{"provider"},
	)

	CooldownWaitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtrans_cooldown_waits_total",
			Help: "Total number of rate-limit cooldown waits",
		},
		[]string{"provider"},
	)

	ProviderSwitchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtrans_provider_switches_total",
			Help: "Total number of fallback provider switches",
		},
		[]string{"from", "to"},
	)

	FilesCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subtrans_files_completed_total",
			Help: "Total number of fully translated files",
		},
	)

	BatchesAbortedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subtrans_batches_aborted_total",
			Help: "Total number of batches stopped by an unrecoverable cue",
		},
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route, status string, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// Observe is a retry.Observer that counts batch events.
func Observe(e retry.Event) {
	switch ev := e.(type) {
	case orchestrator.CueTranslated:
		CuesTranslatedTotal.WithLabelValues(ev.Provider).Inc()
	case retry.AttemptFailed:
		AttemptFailuresTotal.WithLabelValues(ev.Provider, ev.Kind).Inc()
	case retry.RetryScheduled:
		RetryDelaySeconds.WithLabelValues(ev.Provider).Observe(ev.Delay.Seconds())
	case retry.CooldownWait:
		CooldownWaitsTotal.WithLabelValues(ev.Provider).Inc()
	case orchestrator.ProviderSwitched:
		ProviderSwitchesTotal.WithLabelValues(ev.From, ev.To).Inc()
	case orchestrator.FileCompleted:
		FilesCompletedTotal.Inc()
	case orchestrator.Aborted:
		BatchesAbortedTotal.Inc()
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for PinVerifications.
const (
	OutcomeMatch    = "match"
	OutcomeMismatch = "mismatch"
	OutcomeNotSet   = "not_set"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Accounts
	AccountEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_events_total",
			Help: "Account lifecycle transitions",
		},
		[]string{"event"}, // registered|pin_created
	)
	PinVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pin_verifications_total",
			Help: "PIN verification attempts by outcome",
		},
		[]string{"outcome"},
	)

	registerOnce sync.Once
)

// Register adds the collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestsTotal, RequestLatency, AccountEvents, PinVerifications)
	})
}

// Handler serves the default registry for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wallet_service",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, path and status code.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wallet_service",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	transfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wallet_service",
			Name:      "transfers_total",
			Help:      "Transfer attempts by outcome.",
		},
		[]string{"outcome"},
	)

	transferredAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wallet_service",
			Name:      "transferred_amount_total",
			Help:      "Sum of successfully transferred amounts.",
		},
	)

	creditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wallet_service",
			Name:      "credits_total",
			Help:      "Administrative credit attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

func ObserveTransfer(outcome string, amount float64) {
	transfersTotal.WithLabelValues(outcome).Inc()
	if outcome == "committed" {
		transferredAmount.Add(amount)
	}
}

func ObserveCredit(outcome string) {
	creditsTotal.WithLabelValues(outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		httpRequestDuration.
			WithLabelValues(r.Method, r.URL.Path).
			Observe(time.Since(start).Seconds())

		httpRequestsTotal.
			WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).
			Inc()
	})
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paystream_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paystream_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "paystream_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	HTTPRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "paystream_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	// Ledger metrics
	LedgerCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paystream_ledger_commands_total",
			Help: "Ledger commands by name and outcome",
		},
		[]string{"command", "outcome"},
	)

	LedgerPayoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paystream_ledger_payout_amount_total",
			Help: "Sum of committed payouts in the smallest unit",
		},
		[]string{"kind"}, // "net", "tax", "treasury"
	)

	LedgerTreasuryBalance = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "paystream_ledger_treasury_balance",
			Help: "Treasury balance in the smallest unit",
		},
	)

	LedgerTreasuryReserved = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "paystream_ledger_treasury_reserved",
			Help: "Treasury balance reserved for finite streams and bonuses",
		},
	)

	LedgerStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "paystream_ledger_streams",
			Help: "Number of streams ever created",
		},
	)

	// Job metrics
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paystream_job_runs_total",
			Help: "Background job runs by type and status",
		},
		[]string{"job", "status"},
	)
)

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func RecordRateLimited() {
	HTTPRateLimitedTotal.Inc()
}

// RecordCommand counts a ledger command by outcome.
func RecordCommand(command string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	LedgerCommandsTotal.WithLabelValues(command, outcome).Inc()
}

func RecordPayout(kind string, amount uint64) {
	LedgerPayoutsTotal.WithLabelValues(kind).Add(float64(amount))
}

func SetTreasury(balance, reserved, streams uint64) {
	LedgerTreasuryBalance.Set(float64(balance))
	LedgerTreasuryReserved.Set(float64(reserved))
	LedgerStreams.Set(float64(streams))
}

func RecordJobRun(job string, err error) {
	status := "completed"
	if err != nil {
		status = "failed"
	}
	JobRunsTotal.WithLabelValues(job, status).Inc()
}

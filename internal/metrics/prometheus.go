package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Tick metrics
	Ticks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_scheduler_ticks_total",
			Help: "Total number of scheduler ticks",
		},
		[]string{"outcome"}, // outcome: refreshed|populated|skipped|budget_exhausted|error
	)

	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quote_scheduler_tick_duration_seconds",
			Help:    "Scheduler tick duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	LastRunTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quote_scheduler_last_refresh_timestamp",
			Help: "Unix timestamp of the last quote refresh",
		},
	)

	// Budget metrics
	TrackedTickers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quote_scheduler_tracked_tickers",
			Help: "Distinct tickers across all watchlists and positions",
		},
	)

	RefreshInterval = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quote_scheduler_refresh_interval_seconds",
			Help: "Current minimum interval between refreshes",
		},
	)

	APILimitHit = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quote_scheduler_api_limit_hit",
			Help: "1 while the provider daily limit is exhausted",
		},
	)

	// Provider metrics
	QuoteFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_provider_fetches_total",
			Help: "Total number of quote provider calls",
		},
		[]string{"endpoint", "status"}, // status: success|error|rate_limited
	)

	// Alert metrics
	AlertsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_scheduler_alerts_total",
			Help: "Total number of triggered alerts",
		},
		[]string{"kind", "status"}, // kind: alert|sell; status: sent|error
	)

	// Cache metrics
	QuoteCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_cache_lookups_total",
			Help: "Total number of Redis quote cache lookups",
		},
		[]string{"result"}, // result: hit|miss|error
	)
)

func init() {
	prometheus.MustRegister(Ticks)
	prometheus.MustRegister(TickDuration)
	prometheus.MustRegister(LastRunTime)

	prometheus.MustRegister(TrackedTickers)
	prometheus.MustRegister(RefreshInterval)
	prometheus.MustRegister(APILimitHit)

	prometheus.MustRegister(QuoteFetches)
	prometheus.MustRegister(AlertsSent)

	prometheus.MustRegister(QuoteCacheLookups)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTick records a finished scheduler tick
func RecordTick(outcome string, duration time.Duration) {
	Ticks.WithLabelValues(outcome).Inc()
	TickDuration.Observe(duration.Seconds())
}

// RecordQuoteFetch records a provider call
func RecordQuoteFetch(endpoint string, err error, rateLimited bool) {
	status := "success"
	switch {
	case rateLimited:
		status = "rate_limited"
	case err != nil:
		status = "error"
	}
	QuoteFetches.WithLabelValues(endpoint, status).Inc()
}

// RecordAlert records a triggered alert and whether its email went out
func RecordAlert(kind string, err error) {
	status := "sent"
	if err != nil {
		status = "error"
	}
	AlertsSent.WithLabelValues(kind, status).Inc()
}

// SetBudget publishes the current ticker universe and refresh interval
func SetBudget(tickers int, interval time.Duration) {
	TrackedTickers.Set(float64(tickers))
	RefreshInterval.Set(interval.Seconds())
}

// SetAPILimit publishes whether the daily provider limit is exhausted
func SetAPILimit(hit bool) {
	if hit {
		APILimitHit.Set(1)
		return
	}
	APILimitHit.Set(0)
}

// RecordCacheLookups records n quote cache lookups with the same result
func RecordCacheLookups(result string, n int) {
	if n <= 0 {
		return
	}
	QuoteCacheLookups.WithLabelValues(result).Add(float64(n))
}

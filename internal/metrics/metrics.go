// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scraperPagesFetchedTotal     *prometheus.CounterVec
	scraperFetchRetriesTotal     prometheus.Counter
	scraperArticlesUpsertedTotal *prometheus.CounterVec
	scraperRunsTotal             *prometheus.CounterVec
	scraperRunDurationSeconds    prometheus.Histogram
	httpRequestsTotal            *prometheus.CounterVec
	httpRequestDurationSeconds   *prometheus.HistogramVec
	schedulerStateGauge          prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scraperPagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_pages_fetched_total",
				Help: "Total number of pages fetched from the source, labeled by result.",
			},
			[]string{"result"},
		)

		scraperFetchRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_fetch_retries_total",
				Help: "Total number of fetch retry attempts.",
			},
		)

		scraperArticlesUpsertedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_articles_upserted_total",
				Help: "Total number of articles written, labeled by outcome (new/updated).",
			},
			[]string{"outcome"},
		)

		scraperRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_runs_total",
				Help: "Total number of scrape runs, labeled by trigger (scheduled/manual).",
			},
			[]string{"trigger"},
		)

		scraperRunDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_run_duration_seconds",
				Help:    "Histogram of scrape run durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		schedulerStateGauge = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_scheduler_running",
				Help: "1 while the scheduler loop is running, 0 otherwise.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch increments the page fetch counter for the given result.
func ObserveFetch(result string) {
	scraperPagesFetchedTotal.WithLabelValues(result).Inc()
}

// ObserveFetchRetry counts one retry attempt.
func ObserveFetchRetry() {
	scraperFetchRetriesTotal.Inc()
}

// ObserveUpsert counts one article write with its outcome.
func ObserveUpsert(inserted bool) {
	outcome := "updated"
	if inserted {
		outcome = "new"
	}
	scraperArticlesUpsertedTotal.WithLabelValues(outcome).Inc()
}

// ObserveRun records a completed scrape run.
func ObserveRun(trigger string, duration time.Duration) {
	scraperRunsTotal.WithLabelValues(trigger).Inc()
	scraperRunDurationSeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetSchedulerRunning flips the scheduler state gauge.
func SetSchedulerRunning(running bool) {
	if running {
		schedulerStateGauge.Set(1)
		return
	}
	schedulerStateGauge.Set(0)
}

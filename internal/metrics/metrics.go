// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors register at package load so observations can never hit a nil
// collector regardless of wiring order.
var (
	crawlsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confcrawler_crawls_total",
			Help: "Total number of crawl attempts, labeled by outcome status.",
		},
		[]string{"status"},
	)

	crawlDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "confcrawler_crawl_duration_seconds",
			Help:    "Histogram of end-to-end crawl durations.",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120},
		},
	)

	speakersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "confcrawler_speakers_created_total",
			Help: "Total number of speaker rows created.",
		},
	)

	exhibitorsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "confcrawler_exhibitors_created_total",
			Help: "Total number of exhibitor rows created.",
		},
	)

	robotsDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confcrawler_robots_denials_total",
			Help: "Total number of crawls denied by robots.txt, labeled by site.",
		},
		[]string{"site"},
	)

	fieldsPopulated = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "confcrawler_fields_populated",
			Help:    "Histogram of completeness scores per crawl.",
			Buckets: []float64{0, 2, 4, 6, 8, 10, 12, 15},
		},
	)
)

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCrawl records the outcome of one crawl attempt.
func ObserveCrawl(status string, duration time.Duration, populated int) {
	crawlsTotal.WithLabelValues(status).Inc()
	crawlDurationSeconds.Observe(duration.Seconds())
	fieldsPopulated.Observe(float64(populated))
}

// ObserveChildRows records how many child rows a crawl created.
func ObserveChildRows(speakers, exhibitors int) {
	if speakers > 0 {
		speakersCreatedTotal.Add(float64(speakers))
	}
	if exhibitors > 0 {
		exhibitorsCreatedTotal.Add(float64(exhibitors))
	}
}

// ObserveRobotsDenial increments the denial counter for a site.
func ObserveRobotsDenial(site string) {
	robotsDenialsTotal.WithLabelValues(SanitizeSite(site)).Inc()
}

// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

// Package metrics provides Prometheus instrumentation for the
// discovery service: API latency and throughput, feed assembly
// behavior (fallback widening, cap relaxation), store scan
// performance, and preview cache efficiency.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Feed assembly metrics
	FeedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_requests_total",
			Help: "Total number of feed pages assembled, by mode",
		},
		[]string{"mode"},
	)

	FeedFallbackAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_fallback_attempts",
			Help:    "Fallback ladder attempts needed per feed page",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
		[]string{"mode"},
	)

	FeedCapRelaxations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_cap_relaxations_total",
			Help: "Total number of pages where the per-creator cap was relaxed",
		},
	)

	FeedCursorDecodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_cursor_decode_failures_total",
			Help: "Total number of malformed pagination cursors received",
		},
	)

	FeedPageSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_page_size_items",
			Help:    "Number of items returned per feed page",
			Buckets: []float64{0, 5, 10, 20, 40, 60, 100},
		},
	)

	// Store metrics
	StoreScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_scan_duration_seconds",
			Help:    "Duration of store index scans in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"index"},
	)

	StoreItemsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "store_items",
			Help: "Current number of stored items by kind",
		},
		[]string{"kind"},
	)

	// Preview cache metrics
	PreviewCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "preview_cache_hits_total",
			Help: "Total number of album preview cache hits",
		},
	)

	PreviewCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "preview_cache_misses_total",
			Help: "Total number of album preview cache misses",
		},
	)

	PreviewCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "preview_cache_entries",
			Help: "Current number of cached album previews",
		},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordFeedPage records one assembled feed page.
func RecordFeedPage(mode string, items, fallbackAttempt int, relaxed bool) {
	FeedRequestsTotal.WithLabelValues(mode).Inc()
	FeedFallbackAttempts.WithLabelValues(mode).Observe(float64(fallbackAttempt))
	FeedPageSize.Observe(float64(items))
	if relaxed {
		FeedCapRelaxations.Inc()
	}
}

// RecordStoreScan records one index scan.
func RecordStoreScan(index string, duration time.Duration) {
	StoreScanDuration.WithLabelValues(index).Observe(duration.Seconds())
}

// RecordPreviewCache records a preview cache lookup outcome.
func RecordPreviewCache(hit bool) {
	if hit {
		PreviewCacheHits.Inc()
	} else {
		PreviewCacheMisses.Inc()
	}
}

// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

// Package metrics registers Gavel's Prometheus collectors. Collectors are
// package globals registered with the default registry on import.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Auction metrics
	BidsPlaced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gavel_bids_placed_total",
			Help: "Total number of accepted bids",
		},
	)

	BidsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_bids_rejected_total",
			Help: "Total number of rejected bids by reason",
		},
		[]string{"reason"}, // "closed", "too_low", "invalid_amount", "not_found"
	)

	BidAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gavel_bid_amount",
			Help:    "Amount of accepted bids",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10), // 1 .. ~262k
		},
	)

	LotOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_lot_operations_total",
			Help: "Total number of lot create/update/delete operations",
		},
		[]string{"operation"},
	)

	LotsSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_lots_settled_total",
			Help: "Total number of settled lots by outcome",
		},
		[]string{"outcome"}, // "sold", "unsold"
	)

	SettlementDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gavel_settlement_duration_seconds",
			Help:    "Duration of a settlement pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_store_errors_total",
			Help: "Total number of failed JSON store operations",
		},
		[]string{"operation"},
	)

	// Auth metrics
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_login_attempts_total",
			Help: "Total number of login attempts by result",
		},
		[]string{"result"}, // "success", "failure"
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gavel_active_sessions",
			Help: "Current number of sessions held by the session store",
		},
	)

	// API metrics
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
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// WebSocket metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Event bus metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_events_published_total",
			Help: "Total number of domain events published",
		},
		[]string{"type"},
	)

	EventHandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_event_handler_errors_total",
			Help: "Total number of domain event handler failures",
		},
		[]string{"handler"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBid records an accepted bid.
func RecordBid(amount float64) {
	BidsPlaced.Inc()
	BidAmount.Observe(amount)
}

// RecordBidRejected records a rejected bid.
func RecordBidRejected(reason string) {
	BidsRejected.WithLabelValues(reason).Inc()
}

// RecordLotOperation records a lot create, update or delete.
func RecordLotOperation(operation string) {
	LotOperations.WithLabelValues(operation).Inc()
}

// RecordSettlement records one settlement pass and its outcomes.
func RecordSettlement(duration time.Duration, sold, unsold int) {
	SettlementDuration.Observe(duration.Seconds())
	if sold > 0 {
		LotsSettled.WithLabelValues("sold").Add(float64(sold))
	}
	if unsold > 0 {
		LotsSettled.WithLabelValues("unsold").Add(float64(unsold))
	}
}

// RecordLogin records a login attempt.
func RecordLogin(success bool) {
	if success {
		LoginAttempts.WithLabelValues("success").Inc()
		return
	}
	LoginAttempts.WithLabelValues("failure").Inc()
}

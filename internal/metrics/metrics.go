// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Dispatch results recorded on WebhookDispatches.
const (
	DispatchQueued  = "queued"
	DispatchSkipped = "skipped"
	DispatchRefused = "refused"
	DispatchDropped = "dropped"
	DispatchInvalid = "invalid"
)

var (
	// Registry is the dedicated Prometheus registry for the API.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, route and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// WebhookDispatches counts Dispatch calls by event and what happened to them.
	WebhookDispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_dispatches_total", Help: "Webhook dispatch requests by event and result."},
		[]string{"event", "result"},
	)
	// WebhookDeliveries counts HTTP delivery attempts by event and outcome.
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook delivery attempts by event and outcome."},
		[]string{"event", "outcome"},
	)
	// WebhookLatency tracks delivery latencies in milliseconds.
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000}},
		[]string{"event", "outcome"},
	)
	// WebhookDeadLetters counts deliveries that reached the exhausted state.
	WebhookDeadLetters = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_dead_letters_total", Help: "Webhook deliveries moved to the dead-letter state."},
		[]string{"event"},
	)
	// WebhookPostponed counts attempts put back because the partner was at its in-flight cap.
	WebhookPostponed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_postponed_total", Help: "Webhook attempts postponed by the per-partner in-flight cap."},
		[]string{"event"},
	)
	// WebhookQueueDepth is the number of dispatches waiting for a worker.
	WebhookQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "webhook_queue_depth", Help: "Webhook jobs waiting in the dispatch queue."},
	)
)

// RegisterDefault registers all collectors on Registry. Safe to call more than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(WebhookDispatches)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		Registry.MustRegister(WebhookDeadLetters)
		Registry.MustRegister(WebhookPostponed)
		Registry.MustRegister(WebhookQueueDepth)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

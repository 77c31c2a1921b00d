package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ride_dashboards"

var (
	SessionsOpen = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "rider_sessions_open", Help: "Rider booking sessions currently registered"})
	QueuesOpen   = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "driver_queues_open", Help: "Driver request queues currently registered"})

	// op is book, rebook, cancel, accept or reject; result is ok or the error class.
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "transitions_total", Help: "Session and queue transitions attempted"},
		[]string{"op", "result"},
	)

	EventsPublishFailures = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "event_publish_failures_total", Help: "Events the publisher failed to deliver"})

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "provider_latency_seconds", Help: "Data provider call latency", Buckets: prometheus.DefBuckets},
		[]string{"call"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

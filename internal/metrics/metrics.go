// Package metrics defines the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wayfarer_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wayfarer_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	ConversationsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wayfarer_conversations_active",
		Help: "Number of conversations currently held in memory",
	})

	MessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wayfarer_messages_total",
		Help: "Total messages appended across all conversations",
	})

	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wayfarer_llm_requests_total",
		Help: "Total generation requests",
	}, []string{"model", "status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wayfarer_llm_request_duration_seconds",
		Help:    "Generation request duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"model"})

	ExternalFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wayfarer_external_fetches_total",
		Help: "External data lookups by source and outcome",
	}, []string{"source", "status"})

	RegenerationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wayfarer_corrective_regenerations_total",
		Help: "Turns that needed the corrective regeneration pass",
	})

	SweptConversationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wayfarer_swept_conversations_total",
		Help: "Conversations removed by the TTL sweep",
	})
)

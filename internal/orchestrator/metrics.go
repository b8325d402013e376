package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for nodesProcessed.
const (
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeTimeout = "timeout"
)

var (
	// nodesProcessed counts artifacts written, by phase and outcome.
	nodesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docweave_nodes_processed_total",
		Help: "Nodes documented, by scheduler phase and outcome",
	}, []string{"phase", "outcome"})

	// roundDuration tracks one fetch-synthesize-save round.
	roundDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docweave_round_duration_seconds",
		Help:    "Duration of one scheduler round in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
	}, []string{"phase"})

	synthesisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "docweave_synthesis_duration_seconds",
		Help:    "Duration of one synthesis call in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	stallBreakerTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docweave_stall_breaker_total",
		Help: "Times the stall breaker forced pending functions through",
	})
)

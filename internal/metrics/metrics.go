// Package metrics exposes the core's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProfileRebuilds counts RPB passes by result: rebuilt, skipped, failed.
	ProfileRebuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resonate_profile_rebuilds_total",
		Help: "Profile rebuild passes by result",
	}, []string{"result"})

	// FeedRequests counts discovery feed builds.
	FeedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resonate_feed_requests_total",
		Help: "Discovery feed requests",
	})

	// ERSComputations counts pair scores computed (cache misses only).
	ERSComputations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resonate_ers_computations_total",
		Help: "Emotional resonance scores computed",
	})

	// CacheOutcomes counts hits and misses per derived artifact kind.
	CacheOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resonate_cache_outcomes_total",
		Help: "Cache hits and misses by artifact",
	}, []string{"artifact", "outcome"})

	// HealthTransitions counts conversation state transitions by new state.
	HealthTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resonate_health_transitions_total",
		Help: "Conversation health transitions by resulting state",
	}, []string{"state"})

	// LLMTokens counts prompt/completion tokens spent per interface.
	LLMTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resonate_llm_tokens_total",
		Help: "LLM tokens by interface and direction",
	}, []string{"interface", "direction"})

	// StageLatency observes pipeline stage durations.
	StageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "resonate_stage_latency_seconds",
		Help:    "Latency per pipeline stage",
		Buckets: prometheus.DefBuckets,
	}, []string{"pipeline", "stage"})
)

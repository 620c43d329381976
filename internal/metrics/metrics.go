// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SnapshotsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "syllogos_snapshots_emitted_total",
			Help: "Total number of progressive snapshots emitted to consumers",
		},
	)

	ScoreClamps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syllogos_score_clamps_total",
			Help: "Credibility scores clamped into their framework range",
		},
		[]string{"target"}, // total, component
	)

	SectionParseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syllogos_section_parse_failures_total",
			Help: "Speculative section parses that failed and were discarded",
		},
		[]string{"section"},
	)

	DegradedStreams = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "syllogos_degraded_streams_total",
			Help: "Streams whose metadata envelope could not be parsed",
		},
	)

	FinalParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "syllogos_final_parse_failures_total",
			Help: "Streams whose complete document failed to parse at close",
		},
	)

	StreamFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syllogos_stream_failures_total",
			Help: "Upstream streams that ended with a transport or provider error",
		},
		[]string{"kind"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "syllogos_analysis_duration_seconds",
			Help:    "Wall time of one analysis from request to terminal snapshot",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"provider", "outcome"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syllogos_cache_lookups_total",
			Help: "Result store lookups by outcome",
		},
		[]string{"outcome"}, // hit, miss, skip
	)
)

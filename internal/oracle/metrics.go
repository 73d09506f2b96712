package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "emoclassify_oracle_in_flight",
		Help: "Oracle calls currently holding a concurrency slot",
	})

	callTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emoclassify_oracle_calls_total",
		Help: "Oracle calls by outcome (yes, no, unsure, parse_failure, error)",
	}, []string{"result"})

	callDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "emoclassify_oracle_call_duration_seconds",
		Help:    "Oracle call latency in seconds, excluding time queued at the gate",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	})

	gateWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "emoclassify_oracle_gate_wait_seconds",
		Help:    "Time spent waiting for a concurrency slot",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})
)

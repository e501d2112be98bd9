package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Decision metrics
	Decisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_decisions_total",
			Help: "Inbound messages by decision outcome",
		},
		[]string{"identity", "outcome"},
	)

	ReplyDelay = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agent_reply_delay_seconds",
			Help:    "Delay scheduled before replying",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 300, 900},
		},
	)

	RepliesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_replies_sent_total",
			Help: "Replies delivered to the transport",
		},
		[]string{"identity", "mode"}, // "reply" or "message"
	)

	// Media metrics
	MediaFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_media_fetch_total",
			Help: "Media fetch outcomes",
		},
		[]string{"outcome"}, // "novel", "repeat", "none"
	)

	// Store metrics
	StoreEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agent_store_entries",
			Help: "Entries held per in-memory map",
		},
		[]string{"map"},
	)

	StoreEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_store_evictions_total",
			Help: "Entries dropped by eviction sweeps",
		},
		[]string{"map"},
	)
)

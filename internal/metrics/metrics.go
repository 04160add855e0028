package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// StreamConnected is 1 while a logical channel has an open connection.
	StreamConnected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aero_stream_connected",
			Help: "Whether a streaming channel is currently open (1=open, 0=closed).",
		},
		[]string{"channel"},
	)

	// StreamReconnectsTotal counts scheduled automatic reconnects.
	StreamReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aero_stream_reconnects_total",
			Help: "Total number of automatic reconnect attempts scheduled per channel.",
		},
		[]string{"channel"},
	)

	// StreamMessagesTotal counts inbound envelopes by type.
	StreamMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aero_stream_messages_total",
			Help: "Total number of inbound stream envelopes by channel and type.",
		},
		[]string{"channel", "type"},
	)

	// StreamParseErrorsTotal counts dropped malformed frames.
	StreamParseErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aero_stream_parse_errors_total",
			Help: "Total number of inbound frames dropped because they were not valid JSON envelopes.",
		},
		[]string{"channel"},
	)

	// CommandsTotal counts dispatched commands and confirmed actions by outcome.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aero_actions_total",
			Help: "Total number of executed actions by outcome (success/failure/aborted).",
		},
		[]string{"outcome"},
	)

	// AuditFailuresTotal counts audit posts that failed and were discarded.
	AuditFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aero_audit_failures_total",
			Help: "Total number of audit events that could not be delivered.",
		},
	)
)

var registerOnce sync.Once

// Register adds every collector to reg. Safe to call more than once.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			StreamConnected,
			StreamReconnectsTotal,
			StreamMessagesTotal,
			StreamParseErrorsTotal,
			CommandsTotal,
			AuditFailuresTotal,
		)
	})
}

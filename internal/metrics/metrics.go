// Package metrics registers the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttendanceMarked counts committed attendance records.
	AttendanceMarked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campustrack_attendance_marked_total",
		Help: "Number of attendance records committed.",
	})

	// SessionsCreated counts opened sessions.
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campustrack_sessions_created_total",
		Help: "Number of sessions created.",
	})

	// LiveConnections tracks registered WebSocket connections.
	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "campustrack_live_connections",
		Help: "Number of live WebSocket connections.",
	})

	// EventsDelivered counts events handed to connection buffers.
	EventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campustrack_events_delivered_total",
		Help: "Number of events delivered to live connections.",
	})

	// EventsDropped counts connections dropped for stalled delivery.
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campustrack_events_dropped_total",
		Help: "Number of events dropped due to stalled connections.",
	})
)

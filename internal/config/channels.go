package config

// Redis Pub/Sub channel names shared between the write path and the
// event relay worker.
const (
	// NotifyEventsChannel carries live-update envelopes (session_created,
	// attendance_marked) from services to every connected instance's hub.
	NotifyEventsChannel = "notify:events"
)

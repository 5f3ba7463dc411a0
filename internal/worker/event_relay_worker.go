package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/campustrack/campustrack-backend/internal/config"
	"github.com/campustrack/campustrack-backend/internal/hub"
	"github.com/campustrack/campustrack-backend/internal/notify"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// EventRelay subscribes to the shared notify channel and fans incoming
// envelopes out to this instance's hub. One relay runs per process; together
// with Redis Pub/Sub it is what makes delivery work across instances.
type EventRelay struct {
	rdb *redis.Client
	hub *hub.Hub
	log zerolog.Logger
}

// NewEventRelay creates an EventRelay.
func NewEventRelay(rdb *redis.Client, h *hub.Hub, log zerolog.Logger) *EventRelay {
	return &EventRelay{
		rdb: rdb,
		hub: h,
		log: log.With().Str("component", "event_relay").Logger(),
	}
}

// Start consumes the notify channel until the context is cancelled. A broken
// subscription is retried with a short backoff rather than crashing the
// process; events published during the gap are lost, which the at-most-once
// delivery contract permits.
func (w *EventRelay) Start(ctx context.Context) {
	w.log.Info().Msg("EventRelay started")

	for {
		if err := w.consume(ctx); err != nil {
			if ctx.Err() != nil {
				w.log.Info().Msg("Shutdown requested")
				return
			}
			w.log.Error().Err(err).Msg("Subscription lost, reconnecting")
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested")
			return
		case <-time.After(time.Second):
		}
	}
}

func (w *EventRelay) consume(ctx context.Context) error {
	sub := w.rdb.Subscribe(ctx, config.NotifyEventsChannel)
	defer sub.Close()

	// Fail fast if the subscription never establishes.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return redis.ErrClosed
			}

			var env notify.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				w.log.Error().Err(err).Msg("Invalid envelope payload")
				continue
			}

			delivered := w.hub.Deliver(env.Target, env.Event)
			w.log.Debug().
				Str("type", string(env.Event.Type)).
				Int("delivered", delivered).
				Msg("Event relayed")
		}
	}
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/campustrack/campustrack-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// Publisher is the write-path's view of event delivery. Implementations must
// not block the caller beyond a bounded, short duration.
type Publisher interface {
	Publish(ctx context.Context, target Target, evt Event) error
}

// Envelope is the wire format carried over the Redis Pub/Sub channel.
type Envelope struct {
	Target Target `json:"target"`
	Event  Event  `json:"event"`
}

// RedisBus publishes envelopes to the shared notify channel. Every running
// instance's event relay subscribes to the same channel and feeds its local
// hub, so delivery works across instances and the write path never touches
// individual connections.
type RedisBus struct {
	rdb *redis.Client
}

// NewRedisBus creates a RedisBus.
func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

// Publish marshals the envelope and fires it at the notify channel.
func (b *RedisBus) Publish(ctx context.Context, target Target, evt Event) error {
	payload, err := json.Marshal(Envelope{Target: target, Event: evt})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.rdb.Publish(ctx, config.NotifyEventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish envelope: %w", err)
	}
	return nil
}

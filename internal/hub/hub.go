// Package hub owns the registry of live connections and delivers targeted
// events to them. The registry is process-scoped state with an explicit
// lifecycle: populated on connect, pruned on disconnect or delivery failure.
package hub

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/campustrack/campustrack-backend/internal/metrics"
	"github.com/campustrack/campustrack-backend/internal/model"
	"github.com/campustrack/campustrack-backend/internal/notify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// shardCount buckets the registry by user ID so unrelated users' traffic
	// never contends on one lock.
	shardCount = 32

	// connBuffer is the per-connection event buffer. A consumer that falls
	// this far behind is dropped rather than allowed to stall publishers.
	connBuffer = 16
)

// Conn is one live connection. A user may hold several at once (multiple
// devices); each receives every event targeted at that user independently.
type Conn struct {
	principal model.Principal
	events    chan notify.Event
	done      chan struct{}
	closeOnce sync.Once
}

// Events is the outbound stream consumed by the connection's write pump.
// Events arrive in the order they were delivered to this connection.
func (c *Conn) Events() <-chan notify.Event { return c.events }

// Done is closed when the connection is unregistered.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Principal returns the identity the connection was registered with.
func (c *Conn) Principal() model.Principal { return c.principal }

type shard struct {
	mu    sync.RWMutex
	conns map[*Conn]struct{}
}

// Hub fans events out to live connections. All methods are safe for
// concurrent use. Hub satisfies notify.Publisher for in-process delivery.
type Hub struct {
	shards [shardCount]shard
	log    zerolog.Logger
}

// New creates an empty Hub.
func New(log zerolog.Logger) *Hub {
	h := &Hub{log: log.With().Str("component", "hub").Logger()}
	for i := range h.shards {
		h.shards[i].conns = make(map[*Conn]struct{})
	}
	return h
}

// Register adds a live connection for the given principal and returns it.
func (h *Hub) Register(p model.Principal) *Conn {
	c := &Conn{
		principal: p,
		events:    make(chan notify.Event, connBuffer),
		done:      make(chan struct{}),
	}

	s := h.shardFor(p.ID)
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	metrics.LiveConnections.Inc()
	return c
}

// Unregister removes a connection. Idempotent and safe to call concurrently
// with an in-flight Deliver; the connection's event channel is never closed,
// only its done channel.
func (h *Hub) Unregister(c *Conn) {
	if c == nil {
		return
	}

	s := h.shardFor(c.principal.ID)
	s.mu.Lock()
	_, present := s.conns[c]
	delete(s.conns, c)
	s.mu.Unlock()

	c.closeOnce.Do(func() { close(c.done) })

	if present {
		metrics.LiveConnections.Dec()
	}
}

// Deliver pushes the event to every connection matching the target. Delivery
// is best-effort and at-most-once per connection: a connection whose buffer is
// full is dropped from the registry and does not receive the event. Deliver
// never blocks beyond the non-blocking channel sends.
// Returns the number of connections the event was handed to.
func (h *Hub) Deliver(target notify.Target, evt notify.Event) int {
	delivered := 0
	var stalled []*Conn

	scan := func(s *shard) {
		s.mu.RLock()
		for c := range s.conns {
			if !target.Matches(c.principal) {
				continue
			}
			select {
			case c.events <- evt:
				delivered++
			default:
				stalled = append(stalled, c)
			}
		}
		s.mu.RUnlock()
	}

	if target.UserID != uuid.Nil {
		scan(h.shardFor(target.UserID))
	} else {
		for i := range h.shards {
			scan(&h.shards[i])
		}
	}

	for _, c := range stalled {
		h.log.Warn().
			Str("user_id", c.principal.ID.String()).
			Str("event", string(evt.Type)).
			Msg("Dropping stalled connection")
		h.Unregister(c)
		metrics.EventsDropped.Inc()
	}

	metrics.EventsDelivered.Add(float64(delivered))
	return delivered
}

// Publish implements notify.Publisher for single-instance deployments and
// tests, delivering directly to local connections.
func (h *Hub) Publish(_ context.Context, target notify.Target, evt notify.Event) error {
	h.Deliver(target, evt)
	return nil
}

// ConnectionCount reports the number of registered connections.
func (h *Hub) ConnectionCount() int {
	total := 0
	for i := range h.shards {
		s := &h.shards[i]
		s.mu.RLock()
		total += len(s.conns)
		s.mu.RUnlock()
	}
	return total
}

func (h *Hub) shardFor(userID uuid.UUID) *shard {
	f := fnv.New32a()
	f.Write(userID[:])
	return &h.shards[f.Sum32()%shardCount]
}

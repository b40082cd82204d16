// Package notify fans fundraiser events out to live feed subscribers and
// pushes milestone news to device tokens.
package notify

import (
	"sync"

	"github.com/rs/zerolog"
)

// Event is one live feed entry. Data holds a type-specific payload that is
// serialized as-is to subscribers.
type Event struct {
	Type         string `json:"type"`
	FundraiserID string `json:"fundraiser_id"`
	Data         any    `json:"data"`
}

// Subscription receives events for one fundraiser. The channel is closed
// when the hub shuts down; slow consumers miss events instead of blocking
// publishers.
type Subscription struct {
	C chan Event
}

// Hub routes events to subscribers keyed by fundraiser id. It is purely
// in-process; the websocket handler drains subscriptions into connections.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
	logger zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers interest in one fundraiser's events.
func (h *Hub) Subscribe(fundraiserID string) *Subscription {
	sub := &Subscription{C: make(chan Event, 16)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.C)
		return sub
	}
	set, ok := h.subs[fundraiserID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[fundraiserID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (h *Hub) Unsubscribe(fundraiserID string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[fundraiserID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, fundraiserID)
	}
	close(sub.C)
}

// Publish delivers the event to every subscriber of its fundraiser. Full
// subscriber buffers are skipped rather than blocking the caller, since
// publishers run inside request handling and reconciliation.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	dropped := 0
	for sub := range h.subs[ev.FundraiserID] {
		select {
		case sub.C <- ev:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Debug().
			Str("fundraiser_id", ev.FundraiserID).
			Str("type", ev.Type).
			Int("dropped", dropped).
			Msg("live feed: slow subscribers skipped")
	}
}

// Close shuts the hub down and closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, set := range h.subs {
		for sub := range set {
			close(sub.C)
		}
		delete(h.subs, id)
	}
}

// events/bus.go
package events

import (
	"sync"
	"time"
)

// Topics for invalidation broadcasts, one per entity collection.
const (
	TopicFindings    = "findings"
	TopicRootCauses  = "rootCauses"
	TopicActions     = "actions"
	TopicAttachments = "attachments"
)

// Invalidation tells subscribed views that an entity changed and their
// fetch-and-derive cycle must re-run. It deliberately carries no entity
// payload: the authoritative state is always re-fetched, never patched
// from a broadcast.
type Invalidation struct {
	Topic     string    `json:"topic"`
	EntityID  string    `json:"entityId"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Bus is an explicit, injectable publish/subscribe channel. Each engine
// instance owns one; nothing here is ambient or global, so tests can
// observe published invalidations directly.
type Bus struct {
	mu   sync.Mutex
	subs map[string][]chan Invalidation
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string][]chan Invalidation)}
}

// Subscribe registers interest in one topic. The returned cancel func
// removes the subscription and closes the channel.
func (b *Bus) Subscribe(topic string) (<-chan Invalidation, func()) {
	ch := make(chan Invalidation, 16)

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[topic]
		for i, c := range list {
			if c == ch {
				b.subs[topic] = append(list[:i], list[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// Publish delivers an invalidation to every subscriber of its topic. A
// subscriber that cannot keep up loses the event; it will catch up on its
// next re-fetch anyway.
func (b *Bus) Publish(inv Invalidation) {
	if inv.Timestamp.IsZero() {
		inv.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[inv.Topic] {
		select {
		case ch <- inv:
		default:
		}
	}
}

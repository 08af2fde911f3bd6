// Package hub fans out change events to every connected viewer. Delivery is
// best effort: a subscriber that cannot keep up is dropped so the rest of
// the broadcast is never stalled.
package hub

import (
	"log"
	"sync"

	"github.com/iliyamo/cafeteria-dispatch-board/internal/model"
)

// subscriberBuffer is the per-subscriber channel depth. The board pushes a
// handful of events per lunch period, so a small buffer absorbs any
// transient flush delay; a full buffer means the connection is dead or
// hopelessly slow.
const subscriberBuffer = 16

// EventHub holds the live set of subscriber channels. Subscribe,
// Unsubscribe and Publish are safe to call concurrently from independent
// request handlers.
type EventHub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan model.ChangeEvent

	// attempts counts per-subscriber delivery attempts across all
	// publishes. Read by tests via DeliveryAttempts.
	attempts uint64
}

// NewEventHub returns a hub with no subscribers.
func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[uint64]chan model.ChangeEvent)}
}

// Subscribe registers a new subscriber and returns its handle together
// with the receive side of its channel. The first event on the channel is
// always the connected handshake.
func (h *EventHub) Subscribe() (uint64, <-chan model.ChangeEvent) {
	ch := make(chan model.ChangeEvent, subscriberBuffer)
	ch <- model.ChangeEvent{Kind: model.EventConnected}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	n := len(h.subs)
	h.mu.Unlock()

	log.Printf("hub: subscriber %d connected (total %d)", id, n)
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Calling it
// twice, or with a handle that was already pruned, is a no-op.
func (h *EventHub) Unsubscribe(id uint64) {
	h.mu.Lock()
	ch, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	n := len(h.subs)
	h.mu.Unlock()

	if ok {
		close(ch)
		log.Printf("hub: subscriber %d disconnected (total %d)", id, n)
	}
}

// Publish delivers event to every live subscriber. A subscriber whose
// buffer is full is treated as dead and pruned within this call; its
// failure never reaches the publisher or the remaining subscribers.
// Events reach each individual subscriber in publish order.
func (h *EventHub) Publish(event model.ChangeEvent) {
	h.mu.Lock()
	var dead []uint64
	for id, ch := range h.subs {
		h.attempts++
		select {
		case ch <- event:
		default:
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		close(h.subs[id])
		delete(h.subs, id)
	}
	h.mu.Unlock()

	for _, id := range dead {
		log.Printf("hub: dropped stalled subscriber %d", id)
	}
}

// SubscriberCount returns the number of live subscribers.
func (h *EventHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// DeliveryAttempts returns the total number of per-subscriber delivery
// attempts made by Publish since the hub was created.
func (h *EventHub) DeliveryAttempts() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempts
}

// Package live implements the in-process subscription hub behind the
// document-store onSnapshot contract: subscribers get an immediate snapshot
// and a fresh one after every change to the keys they watch.
package live

import "sync"

// TransactionsKey names the change feed for one profile's transaction set.
func TransactionsKey(familyID, profileID string) string {
	return "transactions/" + familyID + "/" + profileID
}

// ProfileKey names the change feed for a single profile document.
func ProfileKey(familyID, profileID string) string {
	return "profile/" + familyID + "/" + profileID
}

// ProfilesKey names the change feed for a family's profile collection.
func ProfilesKey(familyID string) string {
	return "profiles/" + familyID
}

// Hub fans change notifications out to subscribers. Each subscriber runs its
// deliveries on its own goroutine: deliveries are serialized per subscriber,
// bursts coalesce into a single re-delivery, and a slow subscriber never
// blocks writers or other subscribers. Redundant deliveries are possible;
// consumers are expected to treat each snapshot as a full replacement.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]*subscriber
}

type subscriber struct {
	wake chan struct{}
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]*subscriber)}
}

// Subscribe registers deliver under key and invokes it once immediately.
// The returned cancel function releases the subscription; once it returns,
// deliver will not be invoked again. deliver must not call cancel itself.
func (h *Hub) Subscribe(key string, deliver func()) (cancel func()) {
	sub := &subscriber{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	id := h.next
	h.next++
	if h.subs[key] == nil {
		h.subs[key] = make(map[int]*subscriber)
	}
	h.subs[key][id] = sub
	h.mu.Unlock()

	go func() {
		sub.run(deliver)
		for {
			select {
			case <-sub.done:
				return
			case <-sub.wake:
				sub.run(deliver)
			}
		}
	}()

	return func() {
		sub.mu.Lock()
		if !sub.closed {
			sub.closed = true
			close(sub.done)
		}
		sub.mu.Unlock()

		h.mu.Lock()
		delete(h.subs[key], id)
		if len(h.subs[key]) == 0 {
			delete(h.subs, key)
		}
		h.mu.Unlock()
	}
}

// Notify schedules a re-delivery for every subscriber of the given keys.
// It never blocks.
func (h *Hub) Notify(keys ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, key := range keys {
		for _, sub := range h.subs[key] {
			select {
			case sub.wake <- struct{}{}:
			default:
			}
		}
	}
}

func (s *subscriber) run(deliver func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	deliver()
}

// Package badge propagates the cart item count to every count indicator
// currently showing for a session. Each open page subscribes once; a
// committed cart save publishes the new count to all of them.
package badge

import "sync"

// State is what a count indicator displays: the count as text and whether
// the indicator is shown at all. Indicators hide at zero.
type State struct {
	Count   int  `json:"count"`
	Visible bool `json:"visible"`
}

// StateFor builds the indicator state for an item count.
func StateFor(count int) State {
	return State{Count: count, Visible: count > 0}
}

// Hub fans cart counts out to per-session subscribers. Publishing never
// blocks on a slow subscriber: each subscriber holds at most the latest
// state, and older unconsumed states are dropped.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan State]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan State]struct{})}
}

// Subscribe registers a count indicator for a session. The returned cancel
// function must be called when the indicator goes away (page closed,
// connection dropped); afterwards the channel is closed.
func (h *Hub) Subscribe(sessionID string) (<-chan State, func()) {
	ch := make(chan State, 1)

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan State]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[sessionID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, sessionID)
			}
		}
	}
	return ch, cancel
}

// Publish pushes the new count to every indicator subscribed for the
// session. Called on every committed cart mutation.
func (h *Hub) Publish(sessionID string, count int) {
	state := StateFor(count)

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[sessionID] {
		// Latest state wins: drop a pending unconsumed state first.
		select {
		case <-ch:
		default:
		}
		ch <- state
	}
}

// Subscribers returns the number of indicators registered for a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}

// Package notify fans change notifications out to subscribers.
//
// Dispatch is synchronous. A Notify that arrives while a dispatch round is
// running (typically a listener that mutated the store) does not recurse:
// it sets a single pending token and the running dispatcher performs one
// more round once the current one completes. Any number of notifications
// raised during a round therefore collapse into one follow-up round.
package notify

import (
	"io"
	"log/slog"
	"sync"
)

// DefaultMaxRounds bounds follow-up rounds triggered from inside listeners.
const DefaultMaxRounds = 32

// Listener is invoked after every committed change.
type Listener func()

type subscription struct {
	id uint64
	fn Listener
}

// Hub is a subscribe/notify registry. The zero value is not usable; call New.
type Hub struct {
	mu          sync.Mutex
	subs        []subscription
	nextID      uint64
	dispatching bool
	pending     bool
	maxRounds   int
	logger      *slog.Logger
}

// Option customises a Hub.
type Option func(*Hub)

// WithLogger routes diagnostics (such as hitting the round cap) to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMaxRounds overrides DefaultMaxRounds.
func WithMaxRounds(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.maxRounds = n
		}
	}
}

// New constructs a Hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		maxRounds: DefaultMaxRounds,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Subscribe registers fn and returns a function that removes it. Calling
// the returned function more than once is harmless.
func (h *Hub) Subscribe(fn Listener) func() {
	if h == nil || fn == nil {
		return func() {}
	}
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscription{id: id, fn: fn})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.unsubscribe(id) })
	}
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for idx, sub := range h.subs {
		if sub.id == id {
			h.subs = append(h.subs[:idx:idx], h.subs[idx+1:]...)
			return
		}
	}
}

// Len reports the number of active subscriptions.
func (h *Hub) Len() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Notify invokes every listener in subscription order.
func (h *Hub) Notify() {
	if h == nil {
		return
	}
	h.mu.Lock()
	if h.dispatching {
		h.pending = true
		h.mu.Unlock()
		return
	}
	h.dispatching = true
	h.mu.Unlock()
	// A panicking listener must not leave the hub stuck in dispatch.
	defer func() {
		h.mu.Lock()
		h.dispatching, h.pending = false, false
		h.mu.Unlock()
	}()

	for round := 1; ; round++ {
		h.mu.Lock()
		subs := append([]subscription(nil), h.subs...)
		h.mu.Unlock()

		for _, sub := range subs {
			sub.fn()
		}

		h.mu.Lock()
		pending := h.pending
		h.pending = false
		h.mu.Unlock()
		if !pending {
			return
		}
		if round >= h.maxRounds {
			h.logger.Warn("notify: dropping follow-up dispatch, listeners keep re-notifying",
				slog.Int("rounds", round))
			return
		}
	}
}

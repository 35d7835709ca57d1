package notifier

import (
	"sync"

	"go.uber.org/zap"
)

// Subscriber is one live observer of order broadcasts. Payloads arrive on C;
// Close deregisters the subscriber and releases its channel.
type Subscriber struct {
	ch    chan []byte
	hub   *Hub
	close sync.Once
}

// C returns the channel broadcasts are delivered on. The channel is closed
// when the subscriber is deregistered or the hub shuts down.
func (s *Subscriber) C() <-chan []byte { return s.ch }

// Close deregisters the subscriber from its hub.
func (s *Subscriber) Close() {
	s.hub.unsubscribe(s)
}

// Hub tracks connected observers and fans broadcaster output out to each.
// Delivery is per-subscriber non-blocking: a subscriber whose buffer is full
// misses that broadcast rather than holding up the others.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	buffer      int
	closed      bool
	logger      *zap.Logger
}

// NewHub constructs a Hub with the given per-subscriber channel buffer.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		buffer:      buffer,
		logger:      logger,
	}
}

// Subscribe registers a new observer. It receives only broadcasts that happen
// after registration; there is no replay of the current snapshot.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{ch: make(chan []byte, h.buffer), hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub
	}
	h.subscribers[sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[sub]
	delete(h.subscribers, sub)
	h.mu.Unlock()

	if ok {
		sub.close.Do(func() { close(sub.ch) })
	}
}

// Broadcast delivers payload to every currently registered subscriber.
// Sends that would block are dropped silently.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub.ch <- payload:
		default:
			if h.logger != nil {
				h.logger.Debug("dropping broadcast for slow subscriber")
			}
		}
	}
}

// Count returns the number of registered subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Shutdown deregisters and closes every subscriber. Further Subscribe calls
// return an already-closed subscriber.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subscribers {
		s := sub
		s.close.Do(func() { close(s.ch) })
	}
	h.subscribers = make(map[*Subscriber]struct{})
}

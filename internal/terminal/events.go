package terminal

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventKind distinguishes output from exit notifications.
type EventKind string

const (
	EventOutput EventKind = "output"
	EventExit   EventKind = "exit"
)

// Event is published by the I/O pump and by Close.
type Event struct {
	Kind      EventKind
	SessionID string
	Data      []byte
	// ExitCode is nil when the exit was observed only as end of stream.
	ExitCode *int
	At       time.Time
}

// EventSink receives session events. Publish is called from pump goroutines
// and must not call back into the Manager.
type EventSink interface {
	Publish(Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(Event)

// Publish calls f(e).
func (f SinkFunc) Publish(e Event) { f(e) }

type discardSink struct{}

func (discardSink) Publish(Event) {}

// Hub fans events out to subscribers. A subscriber that cannot keep up for
// the send timeout is dropped rather than stalling the pump.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscriber
	next    uint64
	buffer  int
	timeout time.Duration
	logger  *zap.Logger
}

type subscriber struct {
	ch        chan Event
	sessionID string
	done      chan struct{}
	once      sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// NewHub creates a hub with per-subscriber buffers of the given size.
func NewHub(buffer int, timeout time.Duration, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:    make(map[uint64]*subscriber),
		buffer:  buffer,
		timeout: timeout,
		logger:  logger,
	}
}

// Subscribe returns a channel of events for sessionID, or for every session
// when sessionID is empty, plus a cancel func. The channel is never closed;
// select on done to learn the subscription was dropped.
func (h *Hub) Subscribe(sessionID string) (events <-chan Event, done <-chan struct{}, cancel func()) {
	sub := &subscriber{
		ch:        make(chan Event, h.buffer),
		sessionID: sessionID,
		done:      make(chan struct{}),
	}

	h.mu.Lock()
	key := h.next
	h.next++
	h.subs[key] = sub
	h.mu.Unlock()

	cancel = func() {
		h.remove(key)
	}
	return sub.ch, sub.done, cancel
}

func (h *Hub) remove(key uint64) {
	h.mu.Lock()
	sub, ok := h.subs[key]
	delete(h.subs, key)
	h.mu.Unlock()
	if ok {
		sub.stop()
	}
}

// Publish delivers e to every matching subscriber in publish order.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	targets := make(map[uint64]*subscriber, len(h.subs))
	for key, sub := range h.subs {
		if sub.sessionID == "" || sub.sessionID == e.SessionID {
			targets[key] = sub
		}
	}
	h.mu.RUnlock()

	for key, sub := range targets {
		select {
		case sub.ch <- e:
			continue
		case <-sub.done:
			continue
		default:
		}

		timer := time.NewTimer(h.timeout)
		select {
		case sub.ch <- e:
		case <-sub.done:
		case <-timer.C:
			h.logger.Warn("dropping slow event subscriber",
				zap.String("session_id", sub.sessionID),
				zap.Duration("timeout", h.timeout))
			h.remove(key)
		}
		timer.Stop()
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

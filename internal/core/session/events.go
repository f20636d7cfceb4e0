package session

import (
	"sync"
	"time"
)

// EventType names a session update pushed to subscribers.
type EventType string

const (
	EventStart          EventType = "start"
	EventGeometry       EventType = "geometry"
	EventPageProcessing EventType = "page_processing"
	EventPageComplete   EventType = "page_complete"
	EventAssets         EventType = "assets"
	EventPageRendered   EventType = "page_rendered"
	EventSelection      EventType = "selection"
	EventNotice         EventType = "notice"
	EventError          EventType = "error"
	EventComplete       EventType = "complete"
)

// Event is one update. Payload is JSON-encodable.
type Event struct {
	Seq        uint64    `json:"seq"`
	Type       EventType `json:"type"`
	PageNumber int       `json:"page_number,omitempty"`
	Payload    any       `json:"payload,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

const subscriberBuffer = 128

// Broker fans events out to subscribers. A subscriber that falls a full
// buffer behind misses events; the session view is the source of truth.
type Broker struct {
	mu     sync.Mutex
	seq    uint64
	subs   map[chan Event]struct{}
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: map[chan Event]struct{}{}}
}

// Subscribe returns a channel of future events and a function releasing it.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
}

func (b *Broker) Publish(t EventType, page int, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.seq++
	ev := Event{Seq: b.seq, Type: t, PageNumber: page, Payload: payload, Timestamp: time.Now()}
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close ends every subscription.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}

package events

import (
	"sync"
	"time"
)

const (
	TypeEntryCreated = "entry.created"
	TypeDecoderError = "decoder.error"
)

type Event struct {
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

// DecoderError is the payload of a decoder.error event.
type DecoderError struct {
	Reason    string            `json:"reason"`
	RawPacket map[string]string `json:"raw_packet"`
}

// Bus is an in-process fan-out for domain events. Publish never blocks:
// a subscriber that falls behind loses events rather than stalling
// ingestion.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns a receive channel and a cancel func. Cancel must be
// called or the subscriber leaks.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, 16)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *Bus) Publish(eventType string, payload any) {
	evt := Event{Type: eventType, At: time.Now(), Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

package memory

import (
	"context"
	"sync"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

// EventRecorder is a domain.EventPublisher that keeps every published event in memory
type EventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

// NewEventRecorder creates an empty EventRecorder
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

func (r *EventRecorder) Publish(_ context.Context, events ...domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

// Events returns a copy of the recorded events in publish order
func (r *EventRecorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the recorded event names in publish order
func (r *EventRecorder) Names() []string {
	events := r.Events()
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.EventName())
	}
	return names
}

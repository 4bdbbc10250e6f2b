package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

// DefaultChannelPrefix is prepended to the event name to form the pub/sub channel
const DefaultChannelPrefix = "walletledger.events."

// EventPublisher publishes every event as JSON on the channel <prefix><event name>
type EventPublisher struct {
	client redis.UniversalClient
	prefix string
}

// NewEventPublisher creates a pub/sub EventPublisher
func NewEventPublisher(client redis.UniversalClient, prefix string) *EventPublisher {
	return &EventPublisher{client: client, prefix: prefix}
}

// Channel returns the channel events named name are published on
func (p *EventPublisher) Channel(name string) string {
	return p.prefix + name
}

func (p *EventPublisher) Publish(ctx context.Context, events ...domain.Event) error {
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", e.EventName(), err)
		}
		if err := p.client.Publish(ctx, p.Channel(e.EventName()), payload).Err(); err != nil {
			return fmt.Errorf("failed to publish event %s: %w", e.EventName(), err)
		}
	}
	return nil
}

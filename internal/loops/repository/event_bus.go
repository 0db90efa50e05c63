package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/loops-hq/loops-backend/internal/loops/domain"
)

const eventChannelPrefix = "loops:events:" // Pub/Sub channel per project: loops:events:{project_id}

// EventBus publishes loop events over Redis Pub/Sub
type EventBus struct {
	client *redis.Client
}

// NewEventBus creates a new EventBus
func NewEventBus(client *redis.Client) *EventBus {
	return &EventBus{client: client}
}

// Publish sends the event to the channel of the loop's project
func (b *EventBus) Publish(ctx context.Context, ev domain.LoopEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal loop event: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel(ev.ProjectID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish loop event: %w", err)
	}
	return nil
}

// Subscribe streams events of a project until ctx is cancelled or the returned
// close function is called. Malformed payloads are skipped.
func (b *EventBus) Subscribe(ctx context.Context, projectID uuid.UUID) (<-chan domain.LoopEvent, func() error, error) {
	sub := b.client.Subscribe(ctx, b.channel(projectID))

	// Wait for the subscription to be confirmed before handing out the channel
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to loop events: %w", err)
	}

	out := make(chan domain.LoopEvent, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev domain.LoopEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, sub.Close, nil
}

func (b *EventBus) channel(projectID uuid.UUID) string {
	return fmt.Sprintf("%s%s", eventChannelPrefix, projectID)
}

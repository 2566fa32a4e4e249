package events

import (
	"context"
	"time"

	"github.com/ikkim/bookstore-backend/pkg/logger"
)

// Routing keys.
const (
	OrderPlaced        = "order.placed"
	OrderStatusChanged = "order.status_changed"
	InventoryLowStock  = "inventory.low_stock"
)

// Event is the JSON envelope sent to the broker and to WebSocket clients.
// UserID is the recipient for per-user fan-out; zero means no single recipient.
type Event struct {
	Type       string      `json:"type"`
	UserID     uint        `json:"user_id,omitempty"`
	Data       interface{} `json:"data"`
	OccurredAt time.Time   `json:"occurred_at"`
}

func New(eventType string, userID uint, data interface{}) Event {
	return Event{
		Type:       eventType,
		UserID:     userID,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to several publishers. Every publisher is attempted;
// the first error is returned.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var first error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			logger.Warn("Event publisher failed", logger.Fields{
				"type":  event.Type,
				"error": err.Error(),
			})
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// PublishBestEffort publishes and only logs failures. Used after a commit, where the
// request must not fail because a notification could not be delivered.
func PublishBestEffort(ctx context.Context, p Publisher, event Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		logger.Error("Failed to publish event", err, logger.Fields{
			"type":    event.Type,
			"user_id": event.UserID,
		})
	}
}

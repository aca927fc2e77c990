// Package bus carries lifecycle events between the workflow service and
// background workers, in process over channels or across nodes over NATS.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/praxis/internal/domain"
)

var (
	errTenantRequired = errors.New("tenantID is required")
	errClosed         = errors.New("bus is closed")
)

// New creates an event bus from configuration.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

func newMessage(tenantID, topic string, payload []byte) *domain.Message {
	return &domain.Message{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now().UnixNano(),
	}
}

// PublishEvent encodes a lifecycle event and publishes it on topic.
func PublishEvent(ctx context.Context, b domain.EventBus, tenantID, topic string, ev domain.LifecycleEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", topic, err)
	}
	return b.Publish(ctx, tenantID, topic, payload)
}

// DecodeEvent reads the lifecycle event carried by msg.
func DecodeEvent(msg *domain.Message) (domain.LifecycleEvent, error) {
	var ev domain.LifecycleEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return ev, fmt.Errorf("message %s on %s is not a lifecycle event: %w", msg.ID, msg.Topic, err)
	}
	return ev, nil
}

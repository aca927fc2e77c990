package domain

import "context"

// EventBus fans lifecycle events out to subscribers. Topics are scoped per
// tenant; an event published for one tenant never reaches another tenant's
// handlers.
type EventBus interface {
	Publish(ctx context.Context, tenantID string, topic string, payload []byte) error
	Subscribe(ctx context.Context, tenantID string, topic string, handler MessageHandler) (Subscription, error)
	Ping(ctx context.Context) error
	Close() error
}

// MessageHandler consumes one delivered message. A returned error is logged
// by the bus; the message is not redelivered.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message is the envelope every event travels in.
type Message struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenantId"`
	Topic     string `json:"topic"`
	Payload   []byte `json:"payload"`
	Timestamp int64  `json:"timestamp"`
}

// Subscription is a live handler registration.
type Subscription interface {
	Unsubscribe() error
	Topic() string
}

// EventBusConfig selects and tunes the bus implementation.
type EventBusConfig struct {
	// Type is "channel" for a single process or "nats" across nodes.
	Type string

	ChannelBufferSize int

	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	// NATSReconnectWait is in seconds.
	NATSReconnectWait int
}

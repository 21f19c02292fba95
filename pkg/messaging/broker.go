package messaging

import (
	"context"
)

// Publisher defines the interface for publishing messages
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// Broker is a Publisher that owns a connection.
type Broker interface {
	Publisher
	Close() error
}

// Message is the envelope published for every outbox event.
type Message struct {
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatTurn is one message and the reply it received.
type ChatTurn struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Message   string    `bson:"message" json:"message"`
	Reply     string    `bson:"reply" json:"reply"`
	Intent    Intent    `bson:"intent" json:"intent"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

func NewChatTurn(userID, message, reply string, intent Intent) *ChatTurn {
	return &ChatTurn{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Reply:     reply,
		Intent:    intent,
		CreatedAt: time.Now().UTC(),
	}
}

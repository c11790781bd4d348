package types

import "github.com/google/uuid"

// UserID represents an authenticated principal. It is resolved once per
// connection from the verified credential and never changes afterwards.
type UserID string

func (x UserID) String() string {
	return string(x)
}

// ChatID represents a unique analysis chat identifier. IDs are random UUIDs
// so they cannot be derived from the owner or the query parameters.
type ChatID string

// NewChatID generates a new chat ID
func NewChatID() ChatID {
	return ChatID(uuid.New().String())
}

func (x ChatID) String() string {
	return string(x)
}

// ExchangeID represents a unique request/response pair identifier
type ExchangeID string

// NewExchangeID generates a new exchange ID
func NewExchangeID() ExchangeID {
	return ExchangeID(uuid.New().String())
}

func (x ExchangeID) String() string {
	return string(x)
}

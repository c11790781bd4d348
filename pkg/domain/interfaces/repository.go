package interfaces

import (
	"context"

	"github.com/threadlens-lab/threadlens/pkg/domain/model/chat"
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
)

// Repository persists chats and their exchange logs. It is
// authorization-blind: the caller checks chat ownership before using the
// results.
type Repository interface {
	PutChat(ctx context.Context, c *chat.Chat) error
	// GetChat returns nil without error when the chat does not exist
	GetChat(ctx context.Context, chatID types.ChatID) (*chat.Chat, error)
	// ListChatsByUser returns the user's chats, newest first
	ListChatsByUser(ctx context.Context, userID types.UserID) ([]*chat.Chat, error)
	PutExchange(ctx context.Context, ex *chat.Exchange) error
	// GetExchanges returns a chat's exchanges in append order
	GetExchanges(ctx context.Context, chatID types.ChatID) ([]*chat.Exchange, error)

	Close() error
}

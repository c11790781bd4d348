package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/threadlens-lab/threadlens/pkg/domain/interfaces"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/chat"
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
)

// Memory is an in-memory Repository for tests and local development
type Memory struct {
	mu        sync.RWMutex
	chats     map[types.ChatID]*chat.Chat
	exchanges map[types.ChatID][]*chat.Exchange
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		chats:     make(map[types.ChatID]*chat.Chat),
		exchanges: make(map[types.ChatID][]*chat.Exchange),
	}
}

func (r *Memory) PutChat(ctx context.Context, c *chat.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Deep copy to prevent external modification
	copied := *c
	r.chats[c.ID] = &copied
	return nil
}

func (r *Memory) GetChat(ctx context.Context, chatID types.ChatID) (*chat.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.chats[chatID]
	if !ok {
		return nil, nil
	}

	copied := *c
	return &copied, nil
}

func (r *Memory) ListChatsByUser(ctx context.Context, userID types.UserID) ([]*chat.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var chats []*chat.Chat
	for _, c := range r.chats {
		if c.UserID == userID {
			copied := *c
			chats = append(chats, &copied)
		}
	}

	// Newest first, ID tie-break for a deterministic order
	sort.SliceStable(chats, func(i, j int) bool {
		if !chats[i].CreatedAt.Equal(chats[j].CreatedAt) {
			return chats[i].CreatedAt.After(chats[j].CreatedAt)
		}
		return chats[i].ID < chats[j].ID
	})

	return chats, nil
}

func (r *Memory) PutExchange(ctx context.Context, ex *chat.Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *ex
	r.exchanges[ex.ChatID] = append(r.exchanges[ex.ChatID], &copied)
	return nil
}

func (r *Memory) GetExchanges(ctx context.Context, chatID types.ChatID) ([]*chat.Exchange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exchanges := r.exchanges[chatID]
	result := make([]*chat.Exchange, len(exchanges))
	for i, ex := range exchanges {
		copied := *ex
		result[i] = &copied
	}

	return result, nil
}

func (r *Memory) Close() error {
	return nil
}

package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/chat"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/errs"
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
)

// ListChats returns the caller's chats, newest first
func (uc *UseCases) ListChats(ctx context.Context, userID types.UserID) ([]*chat.Chat, error) {
	return uc.repo.ListChatsByUser(ctx, userID)
}

// GetChatDetail returns one chat and its ordered exchange log. A missing
// chat is NotFound; an existing chat owned by someone else is Forbidden.
func (uc *UseCases) GetChatDetail(ctx context.Context, userID types.UserID, chatID types.ChatID) (*chat.Chat, []*chat.Exchange, error) {
	c, err := uc.repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, goerr.New("chat not found",
			goerr.V("chat_id", chatID),
			goerr.T(errs.TagNotFound))
	}
	if c.UserID != userID {
		return nil, nil, goerr.New("chat is not owned by requester",
			goerr.V("chat_id", chatID),
			goerr.T(errs.TagForbidden))
	}

	exchanges, err := uc.repo.GetExchanges(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}

	return c, exchanges, nil
}

package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/chat"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/errs"
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
)

// FollowUp answers a query against a completed chat without re-running the
// job. The answer is appended as a new exchange. Unknown chats and chats
// owned by someone else both fail the same way so chat IDs stay unguessable.
func (uc *UseCases) FollowUp(ctx context.Context, userID types.UserID, chatID types.ChatID, followUpQuery string) (string, error) {
	c, err := uc.repo.GetChat(ctx, chatID)
	if err != nil {
		return "", err
	}
	if c == nil || c.UserID != userID {
		return "", goerr.New("chat not found or not owned by requester",
			goerr.V("chat_id", chatID),
			goerr.T(errs.TagForbidden))
	}

	history, err := uc.repo.GetExchanges(ctx, chatID)
	if err != nil {
		return "", err
	}

	answer, err := uc.analyzer.FollowUp(ctx, c, history, followUpQuery)
	if err != nil {
		return "", goerr.Wrap(err, "failed to answer follow-up",
			goerr.V("chat_id", chatID),
			goerr.T(errs.TagAnalysisFailed))
	}

	ex := chat.NewExchange(ctx, chatID, followUpQuery, answer)
	if err := uc.repo.PutExchange(ctx, ex); err != nil {
		return "", err
	}

	return answer, nil
}

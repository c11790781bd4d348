package usecase

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/chat"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/errs"
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
	"github.com/threadlens-lab/threadlens/pkg/service/query"
)

// StartAnalysis creates the chat for an accepted new_analysis message, runs
// the job, and appends the completed exchange. All events, including the
// terminal completion, pass through emit stamped with the chat ID.
//
// The returned chat is non-nil as soon as it was persisted, even when the
// job itself failed, so the caller can tag its error event.
func (uc *UseCases) StartAnalysis(ctx context.Context, userID types.UserID, params chat.AnalysisParams, emit query.Emit) (*chat.Chat, error) {
	c := chat.NewChat(ctx, userID, params)
	if err := uc.repo.PutChat(ctx, c); err != nil {
		return nil, err
	}

	results, err := uc.orchestrator.Run(ctx, params, func(ev *chat.Event) {
		emit(ev.WithChatID(c.ID))
	})
	if err != nil {
		// Job failed: no exchange is written for a run that never completed
		return c, err
	}

	payload, err := json.Marshal(results)
	if err != nil {
		// The client already received the completion event; persist what we can
		payload = []byte(results.Analysis)
	}

	ex := chat.NewExchange(ctx, c.ID, params.Question, string(payload))
	if err := uc.repo.PutExchange(ctx, ex); err != nil {
		// The completion event is out; a second terminal event would break
		// the protocol. Report and swallow.
		errs.Handle(ctx, goerr.Wrap(err, "failed to persist exchange",
			goerr.V("chat_id", c.ID)))
	}

	return c, nil
}

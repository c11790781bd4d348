package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/auth"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/chat"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/errs"
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
)

// HistoryUseCase is the subset of application operations the read surface needs
type HistoryUseCase interface {
	ListChats(ctx context.Context, userID types.UserID) ([]*chat.Chat, error)
	GetChatDetail(ctx context.Context, userID types.UserID, chatID types.ChatID) (*chat.Chat, []*chat.Exchange, error)
}

type chatListResponse struct {
	Chats []*chat.Chat `json:"chats"`
}

type chatDetailResponse struct {
	Chat      *chat.Chat       `json:"chat"`
	Exchanges []*chat.Exchange `json:"exchanges"`
}

func handleListChats(uc HistoryUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		principal, err := auth.PrincipalFromContext(ctx)
		if err != nil {
			handleError(w, r, goerr.Wrap(err, "no principal in request context",
				goerr.T(errs.TagUnauthorized)))
			return
		}

		chats, err := uc.ListChats(ctx, principal.Sub)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if chats == nil {
			chats = []*chat.Chat{}
		}

		writeJSON(w, r, chatListResponse{Chats: chats})
	}
}

func handleGetChatDetail(uc HistoryUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		principal, err := auth.PrincipalFromContext(ctx)
		if err != nil {
			handleError(w, r, goerr.Wrap(err, "no principal in request context",
				goerr.T(errs.TagUnauthorized)))
			return
		}

		chatID := types.ChatID(chi.URLParam(r, "chatID"))
		if chatID == "" {
			handleError(w, r, goerr.New("chat ID is required",
				goerr.T(errs.TagValidation)))
			return
		}

		c, exchanges, err := uc.GetChatDetail(ctx, principal.Sub, chatID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if exchanges == nil {
			exchanges = []*chat.Exchange{}
		}

		writeJSON(w, r, chatDetailResponse{Chat: c, Exchanges: exchanges})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		errs.Handle(r.Context(), goerr.Wrap(err, "failed to encode response"))
	}
}

package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/threadlens-lab/threadlens/pkg/domain/types"
	"github.com/threadlens-lab/threadlens/pkg/utils/clock"
)

// AnalysisParams is the structured input of one analysis job
type AnalysisParams struct {
	Scope     string          `firestore:"scope" json:"scope"`           // subreddit
	Term      string          `firestore:"term" json:"term"`             // search keyword
	Question  string          `firestore:"question" json:"question"`     // question for the analyzer
	Limit     int             `firestore:"limit" json:"limit"`           // result count cap
	SortOrder types.SortOrder `firestore:"sort_order" json:"sort_order"` // result ordering mode
}

// Title derives the human label shown in the history list
func (x *AnalysisParams) Title() string {
	return fmt.Sprintf("r/%s - %s", x.Scope, x.Term)
}

// Chat is the persisted identity of one analysis job. It is created when a
// new_analysis message is accepted and is immutable except for its exchange
// log. Every access must be checked against UserID by the caller.
type Chat struct {
	ID        types.ChatID   `firestore:"id" json:"id"`
	UserID    types.UserID   `firestore:"user_id" json:"user_id"`
	Params    AnalysisParams `firestore:"params" json:"params"`
	Title     string         `firestore:"title" json:"title"`
	CreatedAt time.Time      `firestore:"created_at" json:"created_at"`
}

// NewChat creates a new chat owned by the given user
func NewChat(ctx context.Context, userID types.UserID, params AnalysisParams) *Chat {
	return &Chat{
		ID:        types.NewChatID(),
		UserID:    userID,
		Params:    params,
		Title:     params.Title(),
		CreatedAt: clock.Now(ctx),
	}
}

// Exchange is one request/response pair appended to a chat's log. The
// response payload is an opaque serialized result.
type Exchange struct {
	ID        types.ExchangeID `firestore:"id" json:"id"`
	ChatID    types.ChatID     `firestore:"chat_id" json:"chat_id"`
	Request   string           `firestore:"request" json:"request"`
	Response  string           `firestore:"response" json:"response"`
	CreatedAt time.Time        `firestore:"created_at" json:"created_at"`
}

// NewExchange creates a new exchange for the given chat
func NewExchange(ctx context.Context, chatID types.ChatID, request, response string) *Exchange {
	return &Exchange{
		ID:        types.NewExchangeID(),
		ChatID:    chatID,
		Request:   request,
		Response:  response,
		CreatedAt: clock.Now(ctx),
	}
}

// Results is the final output of one completed analysis job
type Results struct {
	Question         string   `json:"question"`
	Subreddit        string   `json:"subreddit"`
	Keyword          string   `json:"keyword"`
	NumPostsAnalyzed int      `json:"num_posts_analyzed"`
	TotalComments    int      `json:"total_comments"`
	Analysis         string   `json:"analysis"`
	Sources          []string `json:"sources"`
}

package interfaces

import (
	"context"

	"github.com/threadlens-lab/threadlens/pkg/domain/model/chat"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/reddit"
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
)

// ContentProvider yields a bounded sequence of posts for search parameters,
// each expandable into a bounded sequence of comments.
type ContentProvider interface {
	Search(ctx context.Context, scope, term string, limit int, sort types.SortOrder) ([]*reddit.Post, error)
	Comments(ctx context.Context, scope, postID string) ([]*reddit.Comment, error)
}

// Analyzer turns a question plus aggregated content into a natural-language
// answer, and answers follow-up questions seeded with a chat's history.
type Analyzer interface {
	Analyze(ctx context.Context, question string, posts []*reddit.PostWithComments) (string, error)
	FollowUp(ctx context.Context, c *chat.Chat, history []*chat.Exchange, query string) (string, error)
}

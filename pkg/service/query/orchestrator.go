package query

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/threadlens-lab/threadlens/pkg/domain/interfaces"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/chat"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/errs"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/reddit"
	"github.com/threadlens-lab/threadlens/pkg/utils/logging"
)

const (
	// defaultPacing throttles comment events so a client UI can render them
	// smoothly. Not a correctness requirement; tune freely.
	defaultPacing = 50 * time.Millisecond

	defaultCallTimeout = 60 * time.Second

	titlePreviewLen = 50
)

// Emit receives progress events in production order. The orchestrator calls
// it zero or more times before returning; the completion event is always the
// last call of a successful run.
type Emit func(*chat.Event)

// Orchestrator drives one analysis job end to end: search posts, stream each
// comment as it arrives, then aggregate and analyze. Comments are emitted
// before they join the aggregate so the client sees raw content stream in
// ahead of the expensive analysis step.
type Orchestrator struct {
	provider    interfaces.ContentProvider
	analyzer    interfaces.Analyzer
	pacing      time.Duration
	callTimeout time.Duration
}

type Option func(*Orchestrator)

// WithPacing overrides the delay after each comment event. Zero disables it.
func WithPacing(d time.Duration) Option {
	return func(x *Orchestrator) {
		x.pacing = d
	}
}

// WithCallTimeout bounds each provider and analyzer call
func WithCallTimeout(d time.Duration) Option {
	return func(x *Orchestrator) {
		x.callTimeout = d
	}
}

func New(provider interfaces.ContentProvider, analyzer interfaces.Analyzer, opts ...Option) *Orchestrator {
	orchestrator := &Orchestrator{
		provider:    provider,
		analyzer:    analyzer,
		pacing:      defaultPacing,
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(orchestrator)
	}
	return orchestrator
}

// Run executes one job. Job-scoped failures come back tagged so the caller
// can report them as a completion-shaped error event and keep the connection
// open. External calls are never retried here.
func (x *Orchestrator) Run(ctx context.Context, params chat.AnalysisParams, emit Emit) (*chat.Results, error) {
	logger := logging.From(ctx)

	emit(chat.NewStatusEvent("Searching r/%s for posts about '%s'...", params.Scope, params.Term))

	posts, err := x.search(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return nil, goerr.Wrap(err, "job cancelled", goerr.T(errs.TagCancelled))
		}
		return nil, goerr.Wrap(err, "failed to fetch posts",
			goerr.V("scope", params.Scope),
			goerr.V("term", params.Term),
			goerr.T(errs.TagProviderUnavailable))
	}

	if len(posts) == 0 {
		emit(chat.NewStatusEvent("No posts found in r/%s related to '%s'", params.Scope, params.Term))
		return nil, goerr.New("no posts matched the search",
			goerr.V("scope", params.Scope),
			goerr.V("term", params.Term),
			goerr.T(errs.TagNoResults))
	}

	emit(chat.NewStatusEvent("Found %d relevant posts", len(posts)))

	var aggregate []*reddit.PostWithComments
	var commentCount int

	for i, post := range posts {
		emit(chat.NewStatusEvent("Fetching comments for post %d/%d: %s...",
			i+1, len(posts), truncate(post.Title, titlePreviewLen)))

		comments, err := x.expand(ctx, params.Scope, post.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, goerr.Wrap(err, "job cancelled", goerr.T(errs.TagCancelled))
			}
			// One failed expansion skips the post, not the job
			logger.Warn("failed to fetch comments, skipping post",
				"post_id", post.ID, "error", err)
			continue
		}

		collected := make([]*reddit.Comment, 0, len(comments))
		for _, comment := range comments {
			emit(chat.NewCommentEvent(post, comment))
			collected = append(collected, comment)
			commentCount++

			if err := x.pace(ctx); err != nil {
				return nil, err
			}
		}

		aggregate = append(aggregate, &reddit.PostWithComments{
			Post:     post,
			Comments: collected,
		})
		emit(chat.NewStatusEvent("Added %d comments for post %d/%d", len(collected), i+1, len(posts)))
	}

	if commentCount == 0 {
		return nil, goerr.New("no comments could be fetched for any post",
			goerr.V("scope", params.Scope),
			goerr.T(errs.TagNoContent))
	}

	emit(chat.NewStatusEvent("Analyzing %d posts with %d comments...", len(aggregate), commentCount))

	analysis, err := x.analyze(ctx, params.Question, aggregate)
	if err != nil {
		if ctx.Err() != nil {
			return nil, goerr.Wrap(err, "job cancelled", goerr.T(errs.TagCancelled))
		}
		return nil, goerr.Wrap(err, "failed to analyze content",
			goerr.V("question", params.Question),
			goerr.T(errs.TagAnalysisFailed))
	}

	sources := make([]string, 0, len(aggregate))
	for _, post := range aggregate {
		sources = append(sources, post.Post.URL())
	}

	results := &chat.Results{
		Question:         params.Question,
		Subreddit:        params.Scope,
		Keyword:          params.Term,
		NumPostsAnalyzed: len(aggregate),
		TotalComments:    commentCount,
		Analysis:         analysis,
		Sources:          sources,
	}

	emit(chat.NewCompletionEvent(results))
	return results, nil
}

func (x *Orchestrator) search(ctx context.Context, params chat.AnalysisParams) ([]*reddit.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, x.callTimeout)
	defer cancel()
	return x.provider.Search(ctx, params.Scope, params.Term, params.Limit, params.SortOrder)
}

func (x *Orchestrator) expand(ctx context.Context, scope, postID string) ([]*reddit.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, x.callTimeout)
	defer cancel()
	return x.provider.Comments(ctx, scope, postID)
}

func (x *Orchestrator) analyze(ctx context.Context, question string, aggregate []*reddit.PostWithComments) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, x.callTimeout)
	defer cancel()
	return x.analyzer.Analyze(ctx, question, aggregate)
}

func (x *Orchestrator) pace(ctx context.Context) error {
	if x.pacing <= 0 {
		return nil
	}
	select {
	case <-time.After(x.pacing):
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "job cancelled", goerr.T(errs.TagCancelled))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

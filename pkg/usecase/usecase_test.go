package usecase_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/chat"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/errs"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/reddit"
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
	"github.com/threadlens-lab/threadlens/pkg/repository/memory"
	"github.com/threadlens-lab/threadlens/pkg/service/query"
	"github.com/threadlens-lab/threadlens/pkg/usecase"
)

type stubProvider struct {
	posts    []*reddit.Post
	comments []*reddit.Comment
}

func (x *stubProvider) Search(ctx context.Context, scope, term string, limit int, sort types.SortOrder) ([]*reddit.Post, error) {
	return x.posts, nil
}

func (x *stubProvider) Comments(ctx context.Context, scope, postID string) ([]*reddit.Comment, error) {
	return x.comments, nil
}

type stubAnalyzer struct {
	answer      string
	followUpErr error
	calls       int
}

func (x *stubAnalyzer) Analyze(ctx context.Context, question string, posts []*reddit.PostWithComments) (string, error) {
	return x.answer, nil
}

func (x *stubAnalyzer) FollowUp(ctx context.Context, c *chat.Chat, history []*chat.Exchange, q string) (string, error) {
	x.calls++
	if x.followUpErr != nil {
		return "", x.followUpErr
	}
	return x.answer, nil
}

func newTestUseCases(provider *stubProvider, analyzer *stubAnalyzer) (*usecase.UseCases, *memory.Memory) {
	repo := memory.New()
	orchestrator := query.New(provider, analyzer, query.WithPacing(0))
	return usecase.New(repo, orchestrator, analyzer), repo
}

func analysisParams() chat.AnalysisParams {
	return chat.AnalysisParams{
		Scope:     "golang",
		Term:      "generics",
		Question:  "what do people think",
		Limit:     5,
		SortOrder: types.SortOrderHot,
	}
}

func TestStartAnalysis(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{
		posts:    []*reddit.Post{{ID: "p1", Title: "a post", Permalink: "/r/golang/p1/"}},
		comments: []*reddit.Comment{{Author: "u1", Body: "insightful", Score: 3}},
	}
	analyzer := &stubAnalyzer{answer: "people like it"}
	uc, repo := newTestUseCases(provider, analyzer)

	var events []*chat.Event
	c, err := uc.StartAnalysis(ctx, "user-1", analysisParams(), func(ev *chat.Event) {
		events = append(events, ev)
	})
	gt.NoError(t, err)
	gt.NotNil(t, c)
	gt.V(t, c.UserID.String()).Equal("user-1")

	// Every event carries the chat ID
	for _, ev := range events {
		gt.V(t, ev.ChatID).Equal(c.ID)
	}

	stored, err := repo.GetChat(ctx, c.ID)
	gt.NoError(t, err)
	gt.NotNil(t, stored)

	exchanges, err := repo.GetExchanges(ctx, c.ID)
	gt.NoError(t, err)
	gt.A(t, exchanges).Length(1)
	gt.V(t, exchanges[0].Request).Equal("what do people think")

	var results chat.Results
	gt.NoError(t, json.Unmarshal([]byte(exchanges[0].Response), &results))
	gt.V(t, results.Analysis).Equal("people like it")
	gt.V(t, results.TotalComments).Equal(1)
}

func TestStartAnalysisNoResults(t *testing.T) {
	ctx := context.Background()
	uc, repo := newTestUseCases(&stubProvider{}, &stubAnalyzer{})

	c, err := uc.StartAnalysis(ctx, "user-1", analysisParams(), func(*chat.Event) {})
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, errs.TagNoResults))

	// The chat exists so the failure can be attributed, but no exchange was
	// written for a run that never completed.
	gt.NotNil(t, c)
	exchanges, repoErr := repo.GetExchanges(ctx, c.ID)
	gt.NoError(t, repoErr)
	gt.A(t, exchanges).Length(0)
}

func TestFollowUp(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{
		posts:    []*reddit.Post{{ID: "p1", Title: "a post", Permalink: "/r/golang/p1/"}},
		comments: []*reddit.Comment{{Author: "u1", Body: "ok"}},
	}
	analyzer := &stubAnalyzer{answer: "a follow-up answer"}
	uc, repo := newTestUseCases(provider, analyzer)

	c, err := uc.StartAnalysis(ctx, "user-1", analysisParams(), func(*chat.Event) {})
	gt.NoError(t, err)

	t.Run("owner gets an answer and a new exchange", func(t *testing.T) {
		answer, err := uc.FollowUp(ctx, "user-1", c.ID, "tell me more")
		gt.NoError(t, err)
		gt.V(t, answer).Equal("a follow-up answer")

		exchanges, err := repo.GetExchanges(ctx, c.ID)
		gt.NoError(t, err)
		gt.A(t, exchanges).Length(2)
		gt.V(t, exchanges[1].Request).Equal("tell me more")
		gt.V(t, exchanges[1].Response).Equal("a follow-up answer")
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		before := analyzer.calls

		_, err := uc.FollowUp(ctx, "user-2", c.ID, "tell me more")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, errs.TagForbidden))
		gt.V(t, analyzer.calls).Equal(before)
	})

	t.Run("unknown chat fails the same way as foreign chat", func(t *testing.T) {
		_, err := uc.FollowUp(ctx, "user-1", types.NewChatID(), "tell me more")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, errs.TagForbidden))
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{
		posts:    []*reddit.Post{{ID: "p1", Title: "a post", Permalink: "/r/golang/p1/"}},
		comments: []*reddit.Comment{{Author: "u1", Body: "ok"}},
	}
	uc, _ := newTestUseCases(provider, &stubAnalyzer{answer: "done"})

	c, err := uc.StartAnalysis(ctx, "user-1", analysisParams(), func(*chat.Event) {})
	gt.NoError(t, err)

	t.Run("list own chats", func(t *testing.T) {
		chats, err := uc.ListChats(ctx, "user-1")
		gt.NoError(t, err)
		gt.A(t, chats).Length(1)
		gt.V(t, chats[0].ID).Equal(c.ID)
	})

	t.Run("detail for owner", func(t *testing.T) {
		got, exchanges, err := uc.GetChatDetail(ctx, "user-1", c.ID)
		gt.NoError(t, err)
		gt.V(t, got.ID).Equal(c.ID)
		gt.A(t, exchanges).Length(1)
	})

	t.Run("detail for non-owner is forbidden", func(t *testing.T) {
		_, _, err := uc.GetChatDetail(ctx, "user-2", c.ID)
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, errs.TagForbidden))
	})

	t.Run("detail for unknown chat is not found", func(t *testing.T) {
		_, _, err := uc.GetChatDetail(ctx, "user-1", types.NewChatID())
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, errs.TagNotFound))
	})
}

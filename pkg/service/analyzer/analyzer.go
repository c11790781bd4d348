package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/threadlens-lab/threadlens/pkg/domain/interfaces"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/chat"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/errs"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/reddit"
)

// defaultMaxInputChars bounds the aggregate passed to the LLM. The right cap
// is an open tuning question, so it is configurable rather than fixed.
const defaultMaxInputChars = 120_000

// Service answers analysis questions over aggregated thread content
type Service struct {
	llm           gollem.LLMClient
	maxInputChars int
}

var _ interfaces.Analyzer = &Service{}

type Option func(*Service)

// WithMaxInputChars caps the rendered aggregate size in characters
func WithMaxInputChars(n int) Option {
	return func(x *Service) {
		if n > 0 {
			x.maxInputChars = n
		}
	}
}

func New(llm gollem.LLMClient, opts ...Option) *Service {
	svc := &Service{
		llm:           llm,
		maxInputChars: defaultMaxInputChars,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (x *Service) generate(ctx context.Context, prompt string) (string, error) {
	ssn, err := x.llm.NewSession(ctx)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session", goerr.T(errs.TagAnalysisFailed))
	}

	resp, err := ssn.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content", goerr.T(errs.TagAnalysisFailed))
	}
	if len(resp.Texts) == 0 || resp.Texts[0] == "" {
		return "", goerr.New("empty response from LLM", goerr.T(errs.TagAnalysisFailed))
	}

	return strings.TrimSpace(resp.Texts[0]), nil
}

// Analyze summarizes the aggregated posts and comments for the question
func (x *Service) Analyze(ctx context.Context, question string, posts []*reddit.PostWithComments) (string, error) {
	prompt := x.renderAnalysisPrompt(question, posts)
	return x.generate(ctx, prompt)
}

// FollowUp answers a question against an already completed chat, seeded with
// the original parameters and the prior exchanges.
func (x *Service) FollowUp(ctx context.Context, c *chat.Chat, history []*chat.Exchange, query string) (string, error) {
	prompt := x.renderFollowUpPrompt(c, history, query)
	return x.generate(ctx, prompt)
}

func (x *Service) renderAnalysisPrompt(question string, posts []*reddit.PostWithComments) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful assistant that analyzes discussion threads and answers a question based on them.\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nThreads:\n")

	budget := x.maxInputChars - sb.Len()
	for i, post := range posts {
		var section strings.Builder
		fmt.Fprintf(&section, "\n## Post %d: %s (by %s, score %d)\n", i+1, post.Post.Title, post.Post.Author, post.Post.Score)
		if post.Post.SelfText != "" {
			section.WriteString(post.Post.SelfText)
			section.WriteString("\n")
		}
		for _, comment := range post.Comments {
			fmt.Fprintf(&section, "- %s (score %d): %s\n", comment.Author, comment.Score, comment.Body)
		}

		if section.Len() > budget {
			break
		}
		sb.WriteString(section.String())
		budget -= section.Len()
	}

	sb.WriteString("\nAnswer the question based on the threads above.")
	return sb.String()
}

func (x *Service) renderFollowUpPrompt(c *chat.Chat, history []*chat.Exchange, query string) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful assistant continuing a conversation about a completed thread analysis.\n\n")
	fmt.Fprintf(&sb, "The analysis searched r/%s for %q with the question %q.\n\n", c.Params.Scope, c.Params.Term, c.Params.Question)
	sb.WriteString("Conversation so far:\n")

	budget := x.maxInputChars - sb.Len()
	for _, ex := range history {
		section := fmt.Sprintf("Q: %s\nA: %s\n\n", ex.Request, ex.Response)
		if len(section) > budget {
			break
		}
		sb.WriteString(section)
		budget -= len(section)
	}

	sb.WriteString("Follow-up question: ")
	sb.WriteString(query)
	return sb.String()
}

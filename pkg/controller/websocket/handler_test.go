package websocket_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	ws "github.com/threadlens-lab/threadlens/pkg/controller/websocket"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/chat"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/errs"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/reddit"
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
	"github.com/threadlens-lab/threadlens/pkg/service/query"
	"github.com/threadlens-lab/threadlens/pkg/usecase"
)

type stubUseCase struct {
	chatID      types.ChatID
	analysisErr error
	followUpErr error
	answer      string
}

func (x *stubUseCase) StartAnalysis(ctx context.Context, userID types.UserID, params chat.AnalysisParams, emit query.Emit) (*chat.Chat, error) {
	c := &chat.Chat{ID: x.chatID, UserID: userID, Params: params}
	if x.analysisErr != nil {
		return c, x.analysisErr
	}

	emit(chat.NewStatusEvent("Found 1 relevant posts").WithChatID(c.ID))
	emit(chat.NewCommentEvent(
		&reddit.Post{ID: "p1", Title: "a post", Author: "alice"},
		&reddit.Comment{Author: "bob", Body: "nice", Score: 2},
	).WithChatID(c.ID))
	emit(chat.NewCompletionEvent(&chat.Results{
		Question:         params.Question,
		Subreddit:        params.Scope,
		Keyword:          params.Term,
		NumPostsAnalyzed: 1,
		TotalComments:    1,
		Analysis:         "looks good",
		Sources:          []string{"https://www.reddit.com/r/golang/p1/"},
	}).WithChatID(c.ID))
	return c, nil
}

func (x *stubUseCase) FollowUp(ctx context.Context, userID types.UserID, chatID types.ChatID, q string) (string, error) {
	if x.followUpErr != nil {
		return "", x.followUpErr
	}
	return x.answer, nil
}

func newWSServer(t *testing.T, uc ws.UseCase) (*httptest.Server, *usecase.AuthUseCase, *ws.Registry) {
	t.Helper()

	authUC := usecase.NewAuthUseCase([]byte("test-secret"))
	registry := ws.NewRegistry(context.Background())
	handler := ws.NewHandler(registry, authUC, uc)

	srv := httptest.NewServer(http.HandlerFunc(handler.HandleQuery))
	t.Cleanup(func() {
		registry.Close()
		srv.Close()
	})

	return srv, authUC, registry
}

func dial(t *testing.T, srv *httptest.Server, token string) *gorilla.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/query"
	if token != "" {
		url += "?token=" + token
	}

	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *gorilla.Conn) map[string]any {
	t.Helper()

	gt.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	gt.NoError(t, err)

	var ev map[string]any
	gt.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestHandlerAnalysisFlow(t *testing.T) {
	chatID := types.NewChatID()
	uc := &stubUseCase{chatID: chatID}
	srv, authUC, _ := newWSServer(t, uc)

	token, err := authUC.IssueToken("user-1", "", "", time.Hour)
	gt.NoError(t, err)

	conn := dial(t, srv, token)

	req := map[string]any{
		"type": "new_analysis",
		"data": map[string]any{
			"scope":    "golang",
			"term":     "generics",
			"question": "worth it?",
			"limit":    3,
		},
	}
	gt.NoError(t, conn.WriteJSON(req))

	status := readEvent(t, conn)
	gt.V(t, status["status"]).Equal("Found 1 relevant posts")
	gt.V(t, status["chat_id"]).Equal(chatID.String())

	comment := readEvent(t, conn)
	gt.V(t, comment["type"]).Equal("comment")

	completion := readEvent(t, conn)
	gt.V(t, completion["status"]).Equal("Query completed")
	results, ok := completion["results"].(map[string]any)
	gt.True(t, ok)
	gt.V(t, results["analysis"]).Equal("looks good")
}

// slowUseCase numbers each job and spreads its events over time so that
// interleaving between two jobs would be visible on the wire.
type slowUseCase struct {
	mu    sync.Mutex
	calls int
}

func (x *slowUseCase) StartAnalysis(ctx context.Context, userID types.UserID, params chat.AnalysisParams, emit query.Emit) (*chat.Chat, error) {
	x.mu.Lock()
	x.calls++
	n := x.calls
	x.mu.Unlock()

	id := types.ChatID(fmt.Sprintf("chat-%d", n))
	c := &chat.Chat{ID: id, UserID: userID, Params: params}

	emit(chat.NewStatusEvent("job %d started", n).WithChatID(id))
	time.Sleep(30 * time.Millisecond)
	emit(chat.NewStatusEvent("job %d working", n).WithChatID(id))
	time.Sleep(30 * time.Millisecond)
	emit(chat.NewCompletionEvent(&chat.Results{Analysis: fmt.Sprintf("job %d", n)}).WithChatID(id))
	return c, nil
}

func (x *slowUseCase) FollowUp(ctx context.Context, userID types.UserID, chatID types.ChatID, q string) (string, error) {
	return "", nil
}

func TestHandlerSequentialDispatch(t *testing.T) {
	srv, authUC, _ := newWSServer(t, &slowUseCase{})

	token, err := authUC.IssueToken("user-1", "", "", time.Hour)
	gt.NoError(t, err)
	conn := dial(t, srv, token)

	// Two jobs queued back to back. The second must not start until the
	// first has run to its terminal event.
	req := map[string]any{
		"type": "new_analysis",
		"data": map[string]any{"scope": "golang", "term": "x", "question": "q", "limit": 1},
	}
	gt.NoError(t, conn.WriteJSON(req))
	gt.NoError(t, conn.WriteJSON(req))

	var chatIDs []string
	var statuses []string
	for i := 0; i < 6; i++ {
		ev := readEvent(t, conn)
		id, ok := ev["chat_id"].(string)
		gt.True(t, ok)
		chatIDs = append(chatIDs, id)
		if s, ok := ev["status"].(string); ok {
			statuses = append(statuses, s)
		}
	}

	// All of job 1's events, through its completion, precede any of job 2's
	gt.A(t, chatIDs).Length(6)
	for i := 0; i < 3; i++ {
		gt.V(t, chatIDs[i]).Equal("chat-1")
	}
	for i := 3; i < 6; i++ {
		gt.V(t, chatIDs[i]).Equal("chat-2")
	}
	gt.A(t, statuses).Length(6)
	gt.V(t, statuses[2]).Equal("Query completed")
	gt.V(t, statuses[5]).Equal("Query completed")
}

func TestHandlerRejectsBadToken(t *testing.T) {
	srv, _, _ := newWSServer(t, &stubUseCase{})

	conn := dial(t, srv, "not-a-valid-token")

	// One error event, then the server closes with a policy violation
	ev := readEvent(t, conn)
	errMsg, ok := ev["error"].(string)
	gt.True(t, ok)
	gt.True(t, strings.Contains(errMsg, "authentication failed"))

	gt.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	gt.Error(t, err)
	gt.True(t, gorilla.IsCloseError(err, gorilla.ClosePolicyViolation))
}

func TestHandlerRejectsMissingToken(t *testing.T) {
	srv, _, _ := newWSServer(t, &stubUseCase{})

	conn := dial(t, srv, "")

	ev := readEvent(t, conn)
	_, ok := ev["error"].(string)
	gt.True(t, ok)
}

func TestHandlerMalformedMessage(t *testing.T) {
	chatID := types.NewChatID()
	srv, authUC, _ := newWSServer(t, &stubUseCase{chatID: chatID})

	token, err := authUC.IssueToken("user-1", "", "", time.Hour)
	gt.NoError(t, err)
	conn := dial(t, srv, token)

	gt.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte("not json")))

	ev := readEvent(t, conn)
	gt.V(t, ev["error"]).Equal("invalid message format")

	// The connection survives and still processes valid messages
	req := map[string]any{
		"type": "new_analysis",
		"data": map[string]any{"scope": "golang", "term": "x", "question": "q", "limit": 1},
	}
	gt.NoError(t, conn.WriteJSON(req))
	next := readEvent(t, conn)
	gt.V(t, next["status"]).Equal("Found 1 relevant posts")
}

func TestHandlerInvalidParams(t *testing.T) {
	srv, authUC, _ := newWSServer(t, &stubUseCase{chatID: types.NewChatID()})

	token, err := authUC.IssueToken("user-1", "", "", time.Hour)
	gt.NoError(t, err)
	conn := dial(t, srv, token)

	req := map[string]any{
		"type": "new_analysis",
		"data": map[string]any{"scope": "", "term": "x", "question": "q", "limit": 1},
	}
	gt.NoError(t, conn.WriteJSON(req))

	ev := readEvent(t, conn)
	errMsg, ok := ev["error"].(string)
	gt.True(t, ok)
	gt.True(t, strings.Contains(errMsg, "scope"))
}

func TestHandlerJobFailure(t *testing.T) {
	chatID := types.NewChatID()
	uc := &stubUseCase{
		chatID:      chatID,
		analysisErr: goerr.New("no posts matched the search", goerr.T(errs.TagNoResults)),
	}
	srv, authUC, _ := newWSServer(t, uc)

	token, err := authUC.IssueToken("user-1", "", "", time.Hour)
	gt.NoError(t, err)
	conn := dial(t, srv, token)

	req := map[string]any{
		"type": "new_analysis",
		"data": map[string]any{"scope": "golang", "term": "x", "question": "q", "limit": 1},
	}
	gt.NoError(t, conn.WriteJSON(req))

	ev := readEvent(t, conn)
	errMsg, ok := ev["error"].(string)
	gt.True(t, ok)
	gt.True(t, strings.Contains(errMsg, "no posts matched"))
	// The failed job's chat is attributed on the error event
	gt.V(t, ev["chat_id"]).Equal(chatID.String())
}

func TestHandlerFollowUp(t *testing.T) {
	chatID := types.NewChatID()
	uc := &stubUseCase{chatID: chatID, answer: "a follow-up answer"}
	srv, authUC, _ := newWSServer(t, uc)

	token, err := authUC.IssueToken("user-1", "", "", time.Hour)
	gt.NoError(t, err)
	conn := dial(t, srv, token)

	req := map[string]any{
		"type":    "follow_up",
		"chat_id": chatID.String(),
		"data":    map[string]any{"query": "tell me more"},
	}
	gt.NoError(t, conn.WriteJSON(req))

	ev := readEvent(t, conn)
	gt.V(t, ev["type"]).Equal("follow_up")
	gt.V(t, ev["status"]).Equal("a follow-up answer")
	gt.V(t, ev["chat_id"]).Equal(chatID.String())
}

func TestHandlerUnknownMessageType(t *testing.T) {
	srv, authUC, _ := newWSServer(t, &stubUseCase{})

	token, err := authUC.IssueToken("user-1", "", "", time.Hour)
	gt.NoError(t, err)
	conn := dial(t, srv, token)

	gt.NoError(t, conn.WriteJSON(map[string]any{"type": "mystery", "data": map[string]any{}}))

	ev := readEvent(t, conn)
	errMsg, ok := ev["error"].(string)
	gt.True(t, ok)
	gt.True(t, strings.Contains(errMsg, "unrecognized message type"))
}

package chat

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/threadlens-lab/threadlens/pkg/domain/model/reddit"
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
)

// completionStatus marks the terminal event of a successful job
const completionStatus = "Query completed"

// Event is one outbound progress event. Events are transient and
// order-significant; exactly one of completion or error terminates a job's
// stream.
type Event struct {
	ChatID  types.ChatID    `json:"chat_id,omitempty"`
	Status  string          `json:"status,omitempty"`
	Type    string          `json:"type,omitempty"`
	Post    *reddit.PostRef `json:"post,omitempty"`
	Comment *reddit.Comment `json:"comment,omitempty"`
	Results *Results        `json:"results,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// NewStatusEvent creates a progress status event
func NewStatusEvent(format string, args ...any) *Event {
	return &Event{Status: fmt.Sprintf(format, args...)}
}

// NewCommentEvent creates a per-comment arrival event
func NewCommentEvent(post *reddit.Post, comment *reddit.Comment) *Event {
	return &Event{
		Type:    "comment",
		Post:    post.Ref(),
		Comment: comment,
	}
}

// NewCompletionEvent creates the terminal event of a successful job
func NewCompletionEvent(results *Results) *Event {
	return &Event{
		Status:  completionStatus,
		Results: results,
	}
}

// NewErrorEvent creates an error event. ChatID may stay empty for
// connection-level failures.
func NewErrorEvent(msg string) *Event {
	return &Event{Error: msg}
}

// NewFollowUpEvent creates the response event of a follow-up exchange
func NewFollowUpEvent(answer string) *Event {
	return &Event{
		Type:   "follow_up",
		Status: answer,
	}
}

// WithChatID stamps the event with its owning chat and returns it
func (e *Event) WithChatID(chatID types.ChatID) *Event {
	e.ChatID = chatID
	return e
}

// IsTerminal reports whether the event ends a job's stream
func (e *Event) IsTerminal() bool {
	return e.Error != "" || e.Status == completionStatus
}

// ToBytes serializes the event. A marshal failure must not kill the
// connection: it degrades to a stringified error-shaped payload so the
// client still receives a terminal signal.
func (e *Event) ToBytes() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		fallback := fmt.Sprintf(`{"chat_id":%s,"error":%s}`,
			strconv.Quote(e.ChatID.String()),
			strconv.Quote(fmt.Sprintf("failed to serialize event: %v", e)))
		return []byte(fallback)
	}
	return data
}

package chat_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/chat"
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
)

func TestMessageFromBytes(t *testing.T) {
	t.Run("new_analysis envelope", func(t *testing.T) {
		raw := []byte(`{"type":"new_analysis","data":{"scope":"golang","term":"generics","question":"worth it?","limit":3}}`)

		var msg chat.Message
		gt.NoError(t, msg.FromBytes(raw))
		gt.V(t, msg.Type).Equal(chat.MessageTypeNewAnalysis)

		params, err := msg.AnalysisRequest()
		gt.NoError(t, err)
		gt.V(t, params.Scope).Equal("golang")
		gt.V(t, params.Term).Equal("generics")
		gt.V(t, params.Question).Equal("worth it?")
		gt.V(t, params.Limit).Equal(3)
		gt.V(t, params.SortOrder).Equal(types.SortOrderHot) // defaulted
	})

	t.Run("invalid JSON", func(t *testing.T) {
		var msg chat.Message
		gt.Error(t, msg.FromBytes([]byte("not json")))
	})
}

func TestAnalysisRequestValidation(t *testing.T) {
	cases := map[string]string{
		"missing scope":    `{"term":"x","question":"q","limit":1}`,
		"missing term":     `{"scope":"golang","question":"q","limit":1}`,
		"missing question": `{"scope":"golang","term":"x","limit":1}`,
		"zero limit":       `{"scope":"golang","term":"x","question":"q"}`,
		"negative limit":   `{"scope":"golang","term":"x","question":"q","limit":-1}`,
		"bad sort order":   `{"scope":"golang","term":"x","question":"q","limit":1,"sort_order":"upside-down"}`,
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			msg := chat.Message{Type: chat.MessageTypeNewAnalysis, Data: []byte(data)}
			_, err := msg.AnalysisRequest()
			gt.Error(t, err)
		})
	}
}

func TestFollowUpValidation(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		msg := chat.Message{
			Type:   chat.MessageTypeFollowUp,
			ChatID: types.NewChatID(),
			Data:   []byte(`{"query":"and then?"}`),
		}
		req, err := msg.FollowUp()
		gt.NoError(t, err)
		gt.V(t, req.Query).Equal("and then?")
	})

	t.Run("missing chat_id", func(t *testing.T) {
		msg := chat.Message{Type: chat.MessageTypeFollowUp, Data: []byte(`{"query":"and then?"}`)}
		_, err := msg.FollowUp()
		gt.Error(t, err)
	})

	t.Run("missing query", func(t *testing.T) {
		msg := chat.Message{Type: chat.MessageTypeFollowUp, ChatID: types.NewChatID(), Data: []byte(`{}`)}
		_, err := msg.FollowUp()
		gt.Error(t, err)
	})
}

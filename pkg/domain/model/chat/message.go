package chat

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/errs"
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
)

// Message type values accepted on the websocket
const (
	MessageTypeNewAnalysis = "new_analysis"
	MessageTypeFollowUp    = "follow_up"
)

// Message is one inbound websocket message. Data is decoded per Type.
type Message struct {
	Type   string          `json:"type"`
	ChatID types.ChatID    `json:"chat_id,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// FromBytes parses JSON bytes into the message envelope
func (m *Message) FromBytes(data []byte) error {
	if err := json.Unmarshal(data, m); err != nil {
		return goerr.Wrap(err, "invalid message format", goerr.T(errs.TagProtocol))
	}
	return nil
}

// FollowUpRequest is the data object of a follow_up message
type FollowUpRequest struct {
	Query string `json:"query"`
}

// AnalysisRequest decodes and validates the data object of a new_analysis
// message.
func (m *Message) AnalysisRequest() (*AnalysisParams, error) {
	var params AnalysisParams
	if err := json.Unmarshal(m.Data, &params); err != nil {
		return nil, goerr.Wrap(err, "invalid new_analysis data", goerr.T(errs.TagProtocol))
	}
	if params.Scope == "" {
		return nil, goerr.New("scope is required", goerr.T(errs.TagProtocol))
	}
	if params.Term == "" {
		return nil, goerr.New("term is required", goerr.T(errs.TagProtocol))
	}
	if params.Question == "" {
		return nil, goerr.New("question is required", goerr.T(errs.TagProtocol))
	}
	if params.Limit <= 0 {
		return nil, goerr.New("limit must be positive", goerr.T(errs.TagProtocol),
			goerr.V("limit", params.Limit))
	}
	if params.SortOrder == "" {
		params.SortOrder = types.SortOrderHot
	}
	if err := params.SortOrder.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid new_analysis data", goerr.T(errs.TagProtocol))
	}
	return &params, nil
}

// FollowUp decodes and validates a follow_up message. The chat_id lives on
// the envelope, not in the data object.
func (m *Message) FollowUp() (*FollowUpRequest, error) {
	if m.ChatID == "" {
		return nil, goerr.New("follow_up requires chat_id", goerr.T(errs.TagProtocol))
	}
	var req FollowUpRequest
	if err := json.Unmarshal(m.Data, &req); err != nil {
		return nil, goerr.Wrap(err, "invalid follow_up data", goerr.T(errs.TagProtocol))
	}
	if req.Query == "" {
		return nil, goerr.New("query is required", goerr.T(errs.TagProtocol))
	}
	return &req, nil
}

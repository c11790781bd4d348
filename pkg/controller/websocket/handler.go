package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/m-mizutani/goerr/v2"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/auth"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/chat"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/errs"
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
	"github.com/threadlens-lab/threadlens/pkg/service/query"
	"github.com/threadlens-lab/threadlens/pkg/utils/logging"
)

// Time allowed between reads before the connection is considered dead. The
// deadline is re-armed before every read, so a long job between reads never
// trips it.
const readWait = 24 * time.Hour

// CredentialVerifier resolves a bearer credential into a Principal
type CredentialVerifier interface {
	VerifyToken(ctx context.Context, credential string) (*auth.Principal, error)
}

// UseCase is the subset of application operations the dispatch loop needs
type UseCase interface {
	StartAnalysis(ctx context.Context, userID types.UserID, params chat.AnalysisParams, emit query.Emit) (*chat.Chat, error)
	FollowUp(ctx context.Context, userID types.UserID, chatID types.ChatID, followUpQuery string) (string, error)
}

// Handler owns the lifecycle of query connections: handshake, credential
// verification, the per-connection dispatch loop, and teardown.
type Handler struct {
	registry *Registry
	verifier CredentialVerifier
	useCases UseCase
	upgrader websocket.Upgrader
}

func NewHandler(registry *Registry, verifier CredentialVerifier, useCases UseCase) *Handler {
	return &Handler{
		registry: registry,
		verifier: verifier,
		useCases: useCases,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict origins once the frontend host is pinned down
				return true
			},
		},
	}
}

// HandleQuery serves GET /ws/query. The credential travels as a query
// parameter because browsers cannot set headers on websocket dials.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.From(ctx)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("failed to upgrade connection", "error", err)
		return
	}

	principal, err := h.verifier.VerifyToken(ctx, r.URL.Query().Get("token"))
	if err != nil {
		// One error event, then a policy-violation close. The dispatch loop
		// is never entered.
		logger.Warn("websocket authentication failed", "error", err)
		h.rejectConn(ctx, conn, err)
		return
	}

	c := h.registry.NewConn(conn, principal)
	h.registry.Register(c)
	defer h.registry.Unregister(c)

	go c.writePump()

	logger.Info("websocket connection established", "user_id", principal.Sub)

	h.readLoop(c)
}

func (h *Handler) rejectConn(ctx context.Context, conn *websocket.Conn, authErr error) {
	logger := logging.From(ctx)

	ev := chat.NewErrorEvent("authentication failed: " + authErr.Error())
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err == nil {
		if err := conn.WriteMessage(websocket.TextMessage, ev.ToBytes()); err != nil {
			logger.Debug("failed to write auth error event", "error", err)
		}
	}

	closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed")
	if err := conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait)); err != nil {
		logger.Debug("failed to write close message", "error", err)
	}
	if err := conn.Close(); err != nil {
		logger.Debug("failed to close rejected connection", "error", err)
	}
}

// readLoop is the dispatch loop. Messages are processed strictly one at a
// time: message N+1 is not read until message N, including its whole job
// run, has finished. This keeps each connection's event stream totally
// ordered with no interleaving between jobs.
func (h *Handler) readLoop(c *Conn) {
	logger := logging.From(c.ctx)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error { return nil })

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		if err := c.conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
			logger.Error("failed to set read deadline", "error", err)
			return
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("unexpected websocket close", "error", err)
			}
			return
		}

		var msg chat.Message
		if err := msg.FromBytes(data); err != nil {
			logger.Warn("invalid message format", "error", err)
			c.Emit(chat.NewErrorEvent("invalid message format"))
			continue
		}

		h.dispatch(c, &msg)
	}
}

// dispatch classifies one inbound message and processes it to completion.
// Malformed messages and job failures produce an error event and leave the
// connection usable.
func (h *Handler) dispatch(c *Conn, msg *chat.Message) {
	ctx := c.ctx
	logger := logging.From(ctx)

	switch msg.Type {
	case chat.MessageTypeNewAnalysis:
		params, err := msg.AnalysisRequest()
		if err != nil {
			logger.Warn("rejected new_analysis message", "error", err)
			c.Emit(chat.NewErrorEvent(err.Error()))
			return
		}

		startedChat, err := h.useCases.StartAnalysis(ctx, c.principal.Sub, *params, c.Emit)
		if err != nil {
			if goerr.HasTag(err, errs.TagCancelled) {
				// Connection is gone; nobody is listening for an error event
				logger.Debug("analysis job cancelled", "error", err)
				return
			}
			if errs.IsJobError(err) {
				logger.Warn("analysis job failed", "error", err)
			} else {
				errs.Handle(ctx, err)
			}
			ev := chat.NewErrorEvent(err.Error())
			if startedChat != nil {
				ev.WithChatID(startedChat.ID)
			}
			c.Emit(ev)
			return
		}

	case chat.MessageTypeFollowUp:
		req, err := msg.FollowUp()
		if err != nil {
			logger.Warn("rejected follow_up message", "error", err)
			c.Emit(chat.NewErrorEvent(err.Error()))
			return
		}

		answer, err := h.useCases.FollowUp(ctx, c.principal.Sub, msg.ChatID, req.Query)
		if err != nil {
			logger.Warn("follow-up failed", "error", err, "chat_id", msg.ChatID)
			c.Emit(chat.NewErrorEvent(err.Error()).WithChatID(msg.ChatID))
			return
		}

		c.Emit(chat.NewFollowUpEvent(answer).WithChatID(msg.ChatID))

	default:
		logger.Warn("unrecognized message type", "type", msg.Type)
		c.Emit(chat.NewErrorEvent("unrecognized message type: " + msg.Type))
	}
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	ws "github.com/threadlens-lab/threadlens/pkg/controller/websocket"
)

// Server exposes the websocket query endpoint and the history read API on a
// single chi router.
type Server struct {
	router *chi.Mux
}

type ServerOption func(*serverConfig)

type serverConfig struct {
	wsHandler *ws.Handler
	verifier  ws.CredentialVerifier
	history   HistoryUseCase
}

func WithWebSocketHandler(h *ws.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.wsHandler = h
	}
}

func WithCredentialVerifier(v ws.CredentialVerifier) ServerOption {
	return func(cfg *serverConfig) {
		cfg.verifier = v
	}
}

func WithHistoryUseCase(uc HistoryUseCase) ServerOption {
	return func(cfg *serverConfig) {
		cfg.history = uc
	}
}

func NewServer(options ...ServerOption) *Server {
	cfg := &serverConfig{}
	for _, opt := range options {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(loggingMiddleware)
	r.Use(panicRecoveryMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			handleError(w, r, err)
		}
	})

	// The websocket endpoint authenticates inside the handler, after the
	// upgrade, so auth failures can be reported as in-band error events.
	if cfg.wsHandler != nil {
		r.Get("/ws/query", cfg.wsHandler.HandleQuery)
	}

	if cfg.history != nil && cfg.verifier != nil {
		r.Route("/api", func(r chi.Router) {
			r.Use(authMiddleware(cfg.verifier))
			r.Get("/chats", handleListChats(cfg.history))
			r.Get("/chats/{chatID}", handleGetChatDetail(cfg.history))
		})
	}

	return &Server{router: r}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

package cli

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/threadlens-lab/threadlens/pkg/cli/config"
	server "github.com/threadlens-lab/threadlens/pkg/controller/http"
	websocket_controller "github.com/threadlens-lab/threadlens/pkg/controller/websocket"
	"github.com/threadlens-lab/threadlens/pkg/domain/interfaces"
	"github.com/threadlens-lab/threadlens/pkg/repository/memory"
	"github.com/threadlens-lab/threadlens/pkg/service/analyzer"
	"github.com/threadlens-lab/threadlens/pkg/service/query"
	"github.com/threadlens-lab/threadlens/pkg/usecase"
	"github.com/threadlens-lab/threadlens/pkg/utils/logging"
	"github.com/threadlens-lab/threadlens/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		addr         string
		authCfg      config.Auth
		redditCfg    config.Reddit
		geminiCfg    config.GeminiCfg
		firestoreCfg config.Firestore
		sentryCfg    config.Sentry
		analysisCfg  config.Analysis
	)

	flags := joinFlags(
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Aliases:     []string{"a"},
				Sources:     cli.EnvVars("THREADLENS_ADDR"),
				Usage:       "Listen address (default: 127.0.0.1:8080)",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
		},
		authCfg.Flags(),
		redditCfg.Flags(),
		geminiCfg.Flags(),
		firestoreCfg.Flags(),
		sentryCfg.Flags(),
		analysisCfg.Flags(),
	)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run server",
		Flags:   flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logging.Default().Info("starting server",
				"addr", addr,
				"auth", authCfg,
				"reddit", redditCfg,
				"gemini", geminiCfg,
				"firestore", firestoreCfg,
				"sentry", sentryCfg,
				"analysis", analysisCfg,
			)

			if err := sentryCfg.Configure(); err != nil {
				return err
			}

			authUC, err := authCfg.Configure()
			if err != nil {
				return err
			}

			var repo interfaces.Repository
			if firestoreCfg.IsConfigured() {
				fsRepo, err := firestoreCfg.Configure(ctx)
				if err != nil {
					return err
				}
				repo = fsRepo
			} else {
				logging.From(ctx).Warn("Firestore is not configured, chat history will not survive restarts")
				repo = memory.New()
			}
			defer safe.Close(ctx, repo)

			provider, err := redditCfg.Configure()
			if err != nil {
				return err
			}

			llmClient, err := geminiCfg.Configure(ctx)
			if err != nil {
				return err
			}

			analyzerSvc := analyzer.New(llmClient,
				analyzer.WithMaxInputChars(analysisCfg.MaxInputChars()))

			orchestrator := query.New(provider, analyzerSvc,
				query.WithPacing(analysisCfg.Pacing()),
				query.WithCallTimeout(analysisCfg.CallTimeout()))

			uc := usecase.New(repo, orchestrator, analyzerSvc)

			registry := websocket_controller.NewRegistry(ctx)
			defer registry.Close()

			wsHandler := websocket_controller.NewHandler(registry, authUC, uc)

			httpServer := http.Server{
				Addr:              addr,
				Handler:           server.NewServer(
					server.WithWebSocketHandler(wsHandler),
					server.WithCredentialVerifier(authUC),
					server.WithHistoryUseCase(uc),
				),
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext: func(l net.Listener) context.Context {
					return ctx
				},
			}

			errCh := make(chan error, 1)
			go func() {
				defer close(errCh)
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.From(ctx).Info("shutting down", "signal", sig.String())

				registry.Close()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					logging.From(ctx).Error("failed to shutdown server gracefully", "error", err)
					return err
				}
			}

			return nil
		},
	}
}

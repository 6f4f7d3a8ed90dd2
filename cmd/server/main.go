package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nlpodyssey/openai-agents-go/tracing"
	"github.com/sirupsen/logrus"

	"github.com/worldofchami/medusa-mcp/pkg/assistant"
	"github.com/worldofchami/medusa-mcp/pkg/config"
	"github.com/worldofchami/medusa-mcp/pkg/logging"
)

// Chat server: a shopping assistant agent that uses the MCP server's tools.
func main() {
	cfg := config.Load()
	log := logrus.NewEntry(logging.New(cfg.LogLevel))

	// Disable OpenAI tracing to prevent console spam
	tracing.SetTracingDisabled(true)

	history, err := assistant.NewHistory(cfg.ChatDBPath, cfg.ChatHistory)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize chat history")
	}
	defer history.Close()

	a := assistant.New(history, assistant.NewMCPClient(cfg.MCPServerURL),
		assistant.WithModel(cfg.ChatModel),
		assistant.WithLogger(log),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	a.Mount(r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.ChatAddr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithFields(logrus.Fields{
		"addr": cfg.ChatAddr,
		"mcp":  cfg.MCPServerURL,
	}).Info("chat server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("chat server error")
	}
}

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
	"github.com/sirupsen/logrus"

	"github.com/worldofchami/medusa-mcp/pkg/cart"
	"github.com/worldofchami/medusa-mcp/pkg/config"
	"github.com/worldofchami/medusa-mcp/pkg/logging"
	"github.com/worldofchami/medusa-mcp/pkg/mcp"
	"github.com/worldofchami/medusa-mcp/pkg/notify"
	"github.com/worldofchami/medusa-mcp/pkg/platforms/medusa"
	"github.com/worldofchami/medusa-mcp/pkg/tools"
	"github.com/worldofchami/medusa-mcp/pkg/widgets"
)

// MCP server exposing the Medusa store as tools, plus the cart widget
// endpoints the rendered widgets talk to.
func main() {
	cfg := config.Load()
	log := logrus.NewEntry(logging.New(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	carts, closeCarts, err := cart.Open(ctx, cart.OpenOptions{
		Kind:          cfg.CartBackend,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		DBPath:        cfg.CartDBPath,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open cart backend")
	}
	defer func() {
		if err := closeCarts(); err != nil {
			log.WithError(err).Warn("failed to close cart backend")
		}
	}()

	catalog := medusa.NewClient(cfg.MedusaURL,
		medusa.WithPublishableKey(cfg.PublishableKey),
		medusa.WithLogger(log),
	)

	var notifier notify.Notifier = notify.Log{Log: log}
	if cfg.Twilio.Configured() {
		notifier = notify.NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.PhoneNumber, cfg.Twilio.NotifyTo, log)
		log.Info("order notifications via Twilio")
	} else {
		log.Warn("Twilio not configured (set TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_PHONE_NUMBER, ORDER_NOTIFY_PHONE); orders are only logged")
	}

	toolset := tools.All(tools.Deps{
		Catalog:    catalog,
		Carts:      carts,
		OrderEmail: cfg.OrderEmail,
		Notifier:   notifier,
		Log:        log,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mcp.NewServer(toolset, mcp.WithLogger(log)).Mount(r)
	widgets.NewHub(carts,
		widgets.WithAutoClose(cfg.CartAutoClose),
		widgets.WithLogger(log),
	).Mount(r)

	srv := &http.Server{Addr: cfg.MCPAddr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("shutdown did not complete")
		}
	}()

	log.WithFields(logrus.Fields{
		"addr":    cfg.MCPAddr,
		"medusa":  cfg.MedusaURL,
		"backend": cfg.CartBackend,
		"tools":   len(toolset),
	}).Info("MCP server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("MCP server error")
	}
}

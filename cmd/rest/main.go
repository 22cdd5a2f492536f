package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/wheresmywater/backend/internal/rest"
	"github.com/wheresmywater/backend/internal/setup"
	"github.com/wheresmywater/backend/internal/setup/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RESTLogDir specifies where REST server log files are stored.
const RESTLogDir = "logs/rest_logs"

// Server timeouts used when the config leaves them unset.
const (
	DefaultReadTimeout  = 5 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	ShutdownTimeout     = 30 * time.Second
)

//	@title			Where's My Water API
//	@version		1.0
//	@description	Crowdsourced fountain filter status

//	@BasePath	/api

// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
// @description				Access token must be provided as: Bearer <token>
func main() {
	if err := run(); err != nil {
		log.Fatalf("REST server failed: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := setup.InitializeApp(ctx, telemetry.ServiceREST, RESTLogDir, "")
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.Background())

	server, err := rest.NewServer(app.DB, app.Logger, &app.Config.API)
	if err != nil {
		return fmt.Errorf("failed to create REST server: %w", err)
	}
	defer server.Close()

	cfg := app.Config.API.Server
	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))

	srv := &http.Server{
		Addr:              addr,
		Handler:           server,
		ReadTimeout:       secondsOr(cfg.ReadTimeout, DefaultReadTimeout),
		ReadHeaderTimeout: secondsOr(cfg.ReadTimeout, DefaultReadTimeout),
		WriteTimeout:      secondsOr(cfg.WriteTimeout, DefaultWriteTimeout),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Logger.Info("REST server started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.Logger.Info("Shutting down REST server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("Server forced to shutdown", zap.Error(err))
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	app.Logger.Info("Server gracefully stopped")
	return nil
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-support/internal/aggregate"
	"github.com/celerix-dev/celerix-support/internal/api"
	"github.com/celerix-dev/celerix-support/internal/config"
	"github.com/celerix-dev/celerix-support/internal/console"
	"github.com/celerix-dev/celerix-support/internal/lms"
	"github.com/celerix-dev/celerix-support/internal/logging"
	"github.com/celerix-dev/celerix-support/internal/resolver"
	"github.com/celerix-dev/celerix-support/internal/server"
	"github.com/celerix-dev/celerix-support/internal/session"
	"github.com/celerix-dev/celerix-support/internal/telemetry"
	"github.com/celerix-dev/celerix-support/internal/vault"
)

const (
	sweepInterval  = time.Minute
	sessionMaxIdle = 30 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("daemon stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting Celerix support daemon", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Tracing
	tp, err := telemetry.NewTracerProvider(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	tp.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()
	tracer := tp.Tracer()

	// 2. LMS backend
	backend, err := newBackend(cfg, logger)
	if err != nil {
		return err
	}

	// 3. Console core
	sessions := session.NewStore()
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	sessions.StartJanitor(janitorCtx, sweepInterval, sessionMaxIdle, func(removed int) {
		logger.Debug("swept idle sessions", zap.Int("removed", removed))
	})
	defer func() {
		stopJanitor()
		sessions.Wait()
	}()

	records := aggregate.New(backend, aggregate.Options{
		FetchTimeout:   cfg.FetchTimeout,
		MaxConcurrency: cfg.MaxConcurrentFetches,
	}, logger, tracer)
	h := &api.Handler{
		Users:    console.NewUserPage(resolver.New(backend, logger, tracer), records, backend, sessions, logger),
		Programs: console.NewProgramInspector(backend, backend, records, sessions, logger),
		Logger:   logger,

		AllowedOrigins: cfg.AllowedOrigins(),
	}

	// 4. HTTP API
	codec, err := vault.NewSessionCodec([]byte(cfg.SessionHashKey), []byte(cfg.SessionBlockKey))
	if err != nil {
		return fmt.Errorf("session codec: %w", err)
	}
	if cfg.SessionHashKey == "" {
		logger.Warn("SESSION_HASH_KEY not set; sessions will not survive a restart")
	}
	router := api.NewRouter(h, codec, logging.Middleware(logger))

	srv := server.New(router, server.Options{
		MaxInFlight: cfg.MaxInflightRequests,
		Logger:      logger,
	})

	// 5. TLS
	if cfg.DisableTLS {
		logger.Info("TLS encryption disabled (DISABLE_TLS=true)")
	} else {
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			return fmt.Errorf("generate TLS certificate: %w", err)
		}
		srv.SetCertificate(cert)
		logger.Info("TLS encryption enabled with a self-signed certificate")
	}

	// 6. Serve until a shutdown signal arrives
	err = srv.ListenAndServe(ctx, cfg.HTTPAddr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}

func newBackend(cfg *config.Config, logger *zap.Logger) (lms.Backend, error) {
	if cfg.LMSFixtures != "" {
		b, err := lms.LoadStaticBackend(cfg.LMSFixtures)
		if err != nil {
			return nil, fmt.Errorf("load fixtures: %w", err)
		}
		logger.Info("serving LMS fixtures", zap.String("path", cfg.LMSFixtures))
		return b, nil
	}

	c, err := lms.NewClient(lms.Options{
		BaseURL:      cfg.LMSBaseURL,
		TokenURL:     cfg.TokenURL(),
		ClientID:     cfg.LMSClientID,
		ClientSecret: cfg.LMSClientSecret,
		Timeout:      cfg.LMSTimeout,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("lms client: %w", err)
	}
	return c, nil
}

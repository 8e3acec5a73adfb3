package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fawrybook/auth-service/internal/audit"
	"github.com/fawrybook/auth-service/internal/config"
	"github.com/fawrybook/auth-service/internal/events"
	"github.com/fawrybook/auth-service/internal/httpserver"
	"github.com/fawrybook/auth-service/internal/logging"
	"github.com/fawrybook/auth-service/internal/middleware"
	"github.com/fawrybook/auth-service/internal/repo"
	"github.com/fawrybook/auth-service/internal/service"
	"github.com/fawrybook/auth-service/internal/tokens"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.EventsTopic)
	}

	var recorder audit.Recorder = audit.NopRecorder{}
	if cfg.ESURL != "" {
		es, err := audit.NewESRecorder(cfg.ESURL, cfg.ESUser, cfg.ESPassword, cfg.AuditIndex)
		if err != nil {
			log.Fatalf("audit init error: %v", err)
		}
		recorder = es
	}

	gormRepo := repo.NewGormRepo(db)
	codec := tokens.NewCodec(cfg.JWTSecret, cfg.TokenTTL)
	svc := service.NewAuthService(gormRepo, gormRepo, codec, publisher, recorder)

	e := echo.New()
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:   &httpserver.AuthHTTP{Svc: svc},
		Gate:          middleware.NewAuthGate(codec, gormRepo),
		AllowedOrigin: cfg.AllowedOrigin,
		Logger:        logger,
	})

	pruneCtx, stopPrune := context.WithCancel(context.Background())
	go pruneLedger(pruneCtx, gormRepo, cfg.PruneInterval, logger)

	go func() {
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	stopPrune()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}

	if err := publisher.Close(); err != nil {
		logger.Error("kafka close", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close", "error", err)
		}
	}
}

// pruneLedger periodically drops revoked-token entries past their own
// expiry. Validation checks expiry before the ledger, so this is space
// reclamation only.
func pruneLedger(ctx context.Context, r *repo.GormRepo, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.PruneExpired(ctx, time.Now())
			if err != nil {
				logger.Warn("ledger prune failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("ledger pruned", "entries", n)
			}
		}
	}
}

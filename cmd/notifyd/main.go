package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medicore/notify/internal/channel"
	"github.com/medicore/notify/internal/contact"
	"github.com/medicore/notify/internal/janitor"
	"github.com/medicore/notify/internal/ops"
	"github.com/medicore/notify/internal/queue"
	"github.com/medicore/notify/internal/repository"
	"github.com/medicore/notify/pkg/config"
	"github.com/medicore/notify/pkg/logger"
	"github.com/medicore/notify/pkg/pg"
	"github.com/medicore/notify/pkg/redis"
)

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Redis   redis.Config
	PG      pg.Config
	Queue   queue.Config
	Janitor janitor.Config
	Ops     ops.Config

	Email    channel.EmailConfig
	SMS      channel.SMSConfig
	Push     channel.PushConfig
	WhatsApp channel.WhatsAppConfig

	BreakerCoolDown time.Duration `env:"PROVIDER_BREAKER_COOLDOWN" envDefault:"60s"`
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	logOpts := []logger.Option{
		logger.WithService("notifyd", cfg.Environment),
		logger.WithLevel(logLevel(cfg.LogLevel)),
	}
	if cfg.Environment == "development" {
		logOpts = append(logOpts, logger.WithDevelopment())
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("notifyd exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(cfg appConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	notifRepo := repository.NewNotificationRepository(pool)
	inboxRepo := repository.NewInboxRepository(pool)
	resolver := contact.NewPGResolver(pool)

	registry, err := buildRegistry(cfg, inboxRepo, log)
	if err != nil {
		return err
	}

	queueClient, err := queue.NewClient(rdb)
	if err != nil {
		return err
	}

	backoff, err := queue.LoadBackoffTable(cfg.Queue.BackoffTablePath)
	if err != nil {
		return err
	}

	processor, err := queue.NewProcessor(queueClient, notifRepo, registry, resolver,
		cfg.Queue.Options(backoff, log)...)
	if err != nil {
		return err
	}

	sweeper, err := janitor.New(notifRepo, processor, cfg.Janitor, log)
	if err != nil {
		return err
	}

	handler := ops.NewHandler(processor, processor, notifRepo, map[string]func(context.Context) error{
		"postgres": pg.Healthcheck(pool),
		"redis":    redis.Healthcheck(rdb),
	}, log)
	server := ops.NewServer(cfg.Ops, handler, log)

	if err := processor.Start(ctx); err != nil {
		return err
	}
	if err := sweeper.Start(ctx); err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error("ops server failed", logger.Error(err))
		}
	}

	// Ordered shutdown: stop taking requests, stop the sweep, drain the
	// workers, then let the deferred store connections close.
	if err := server.Shutdown(context.Background()); err != nil {
		log.Error("ops server shutdown failed", logger.Error(err))
	}
	sweeper.Stop()
	if err := processor.Stop(); err != nil {
		log.Error("processor shutdown incomplete", logger.Error(err))
	}

	return nil
}

func buildRegistry(cfg appConfig, inbox channel.InboxStore, log *slog.Logger) (*channel.Registry, error) {
	registry := channel.NewRegistry()

	register := func(p channel.Provider, err error) error {
		if err != nil {
			return err
		}
		return registry.Register(channel.WithBreaker(p, cfg.BreakerCoolDown))
	}

	// In-app delivery has no external backend to trip a breaker on, so it
	// registers bare.
	inApp, err := channel.NewInAppProvider(inbox)
	if err != nil {
		return nil, err
	}
	if err := registry.Register(inApp); err != nil {
		return nil, err
	}

	if cfg.Email.ServerToken != "" {
		if err := register(channel.NewEmailProvider(cfg.Email)); err != nil {
			return nil, err
		}
	} else {
		log.Warn("email provider not configured, channel disabled")
	}
	if cfg.SMS.BaseURL != "" {
		if err := register(channel.NewSMSProvider(cfg.SMS)); err != nil {
			return nil, err
		}
	} else {
		log.Warn("sms provider not configured, channel disabled")
	}
	if cfg.Push.BaseURL != "" {
		if err := register(channel.NewPushProvider(cfg.Push)); err != nil {
			return nil, err
		}
	} else {
		log.Warn("push provider not configured, channel disabled")
	}
	if cfg.WhatsApp.BaseURL != "" {
		if err := register(channel.NewWhatsAppProvider(cfg.WhatsApp)); err != nil {
			return nil, err
		}
	} else {
		log.Warn("whatsapp provider not configured, channel disabled")
	}

	return registry, nil
}

// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"telegram-ad-moderation/internal/application"
	"telegram-ad-moderation/internal/config"
	"telegram-ad-moderation/internal/domain/ports/adapter"
	tele "telegram-ad-moderation/internal/infra/adapters/telegram"
	pg "telegram-ad-moderation/internal/infra/db/postgres"
	httpapi "telegram-ad-moderation/internal/infra/http"
	"telegram-ad-moderation/internal/infra/i18n"
	"telegram-ad-moderation/internal/infra/logging"
	"telegram-ad-moderation/internal/infra/metrics"
	"telegram-ad-moderation/internal/infra/queue"
	red "telegram-ad-moderation/internal/infra/redis"
	"telegram-ad-moderation/internal/infra/sched"
	"telegram-ad-moderation/internal/infra/worker"
	"telegram-ad-moderation/internal/usecase"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

const shutdownGrace = 15 * time.Second

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted values)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("fatal")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	translator, err := i18n.NewTranslator(i18n.LocalesFS, cfg.I18n.Lang)
	if err != nil {
		return fmt.Errorf("i18n: %w", err)
	}

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)
	submissionRepo := pg.NewSubmissionRepo(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)
	cooldowns := red.NewCooldownRepo(redisClient)
	albums := red.NewMediaGroupIndex(redisClient)

	modQueue := queue.NewMemoryQueue()

	// ---- Telegram ----
	gateway, err := newGateway(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	// ---- Outbound delivery ----
	poolCtx, cancelPool := context.WithCancel(context.Background())
	defer cancelPool()
	deliveryPool := worker.NewPool(cfg.Delivery.Workers, logger)
	deliveryPool.Start(poolCtx)
	notifier := worker.NewDeliveryNotifier(deliveryPool, gateway, cfg.Delivery, logger)

	// ---- Use cases ----
	subUC := usecase.NewSubmissionUseCase(submissionRepo, modQueue, cooldowns, albums, tm, notifier, translator, &cfg.Bot, &cfg.Moderation, logger)
	modUC := usecase.NewModerationUseCase(submissionRepo, modQueue, locker, tm, notifier, translator, &cfg.Bot, &cfg.Moderation, logger)

	n, err := subUC.RebuildQueue(ctx)
	if err != nil {
		return fmt.Errorf("rebuild queue: %w", err)
	}
	logger.Info().Int("pending", n).Msg("moderation queue restored")

	// ---- HTTP keep-alive + admin API ----
	srv := httpapi.NewServer(cfg.HTTP, cfg.Admin, modUC, logger)
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Start() }()

	// ---- Background jobs ----
	reaper := sched.NewClaimReaper(cfg.Moderation.ReapInterval, cfg.Moderation.ClaimTimeout, modQueue, logger)
	go func() { _ = reaper.Run(ctx) }()
	reconciler := sched.NewQueueReconciler(cfg.Moderation.ReconcileInterval, subUC, submissionRepo, modQueue, func() (int32, int32, int32) {
		st := pool.Stat()
		return st.TotalConns(), st.IdleConns(), st.AcquiredConns()
	}, logger)
	go func() { _ = reconciler.Run(ctx) }()

	// ---- Dispatcher ----
	dispatcher := application.NewDispatcher(subUC, modUC, gateway, notifier, rateLimiter, translator, &cfg.Bot, logger)
	dispatched := make(chan struct{})
	go func() {
		dispatcher.Run(ctx, gateway.Receive(ctx))
		close(dispatched)
	}()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-srvErr:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
		stop()
	}
	<-dispatched

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	drained := make(chan struct{})
	go func() {
		deliveryPool.Stop()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		logger.Warn().Msg("abandoning undelivered messages")
		cancelPool()
		<-drained
	}
	logger.Info().Msg("bye")
	return nil
}

func newGateway(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (adapter.MessageGateway, error) {
	if cfg.Bot.Mode == "noop" {
		logger.Warn().Msg("bot.mode=noop: no Telegram traffic will be received or sent")
		return tele.NewNoopBotAdapter(logger), nil
	}
	bot, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, logger)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("token", logging.Redact(cfg.Bot.Token, cfg.Runtime.Dev)).
		Int("moderators", len(cfg.Bot.ModeratorIDs)).
		Msg("telegram bot authorized")
	if err := bot.SetMenuCommands(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to set menu commands")
	}
	return bot, nil
}

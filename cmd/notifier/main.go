package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"schedbot/internal/adapter/repo"
	"schedbot/internal/dispatcher"
	"schedbot/internal/infra"
	"schedbot/internal/localize"
	"schedbot/internal/providers/timetable"
	"schedbot/internal/render"
	"schedbot/internal/scheduler"
	"schedbot/internal/transport/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if cfg.BotToken == "" {
		logger.Fatal().Msg("notifier: BOT_TOKEN is required")
	}

	if err := infra.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("notifier: migrations failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("notifier: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	subs := repo.NewSubscriptionRepository(runner)
	jobs := repo.NewJobRepository(runner)

	bundle := localize.NewBundle(cfg.DefaultLocale)

	provider := timetable.NewClient(timetable.Options{
		BaseURL:        cfg.ScheduleBaseURL,
		Logger:         &logger,
		CacheTTL:       cfg.CacheTTL,
		RequestTimeout: cfg.FetchTimeout,
	})

	var renderer dispatcher.Renderer
	switch cfg.RenderFormat {
	case "photo":
		card, err := render.NewCardRenderer(bundle)
		if err != nil {
			logger.Fatal().Err(err).Msg("notifier: card renderer init failed")
		}
		renderer = card
	case "text":
		renderer = render.NewMessageRenderer(bundle)
	default:
		logger.Fatal().Str("format", cfg.RenderFormat).Msg("notifier: RENDER_FORMAT must be text or photo")
	}

	transport, err := telegram.NewClient(telegram.Options{
		Token:          cfg.BotToken,
		BaseURL:        cfg.TelegramBaseURL,
		Logger:         &logger,
		RequestTimeout: cfg.SendTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("notifier: telegram client init failed")
	}

	sched := scheduler.New(scheduler.Options{
		Subscriptions: subs,
		Jobs:          jobs,
		TickInterval:  cfg.TickInterval,
		Logger:        logger,
	})
	sched.Start(ctx)

	disp := dispatcher.New(dispatcher.Options{
		Jobs:          jobs,
		Subscriptions: subs,
		Provider:      provider,
		Renderer:      renderer,
		Transport:     transport,
		Logger:        logger,

		Workers:       cfg.WorkerCount,
		PollInterval:  cfg.PollInterval,
		LeaseDuration: cfg.LeaseDuration,
		MaxAttempts:   cfg.MaxAttempts,
		BackoffBase:   cfg.BackoffBase,
		BackoffCap:    cfg.BackoffCap,
		FetchTimeout:  cfg.FetchTimeout,
		RenderTimeout: cfg.RenderTimeout,
		SendTimeout:   cfg.SendTimeout,
	})

	logger.Info().
		Int("workers", cfg.WorkerCount).
		Str("format", cfg.RenderFormat).
		Msg("notifier: started")

	if err := disp.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("notifier: dispatcher exited")
	}

	sched.Stop()
	logger.Info().Msg("notifier: stopped")
}

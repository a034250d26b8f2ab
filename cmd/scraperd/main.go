package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/config"
	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/plugin"
	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/publisher"
	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/scheduler"
	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize the optional activity-event publisher
	var pub service.Publisher
	if cfg.Publisher.URL != "" {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.Publisher.URL,
			Exchange:   cfg.Publisher.Exchange,
			RoutingKey: cfg.Publisher.RoutingKey,
			QueueName:  cfg.Publisher.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	p := plugin.New(plugin.Options{
		PageSize:     cfg.Slack.PageSize,
		Timeout:      cfg.Slack.Timeout,
		Retry:        cfg.Slack.Retry,
		LookbackDays: cfg.Scrape.LookbackDays,
		Publisher:    pub,
	})

	pctx := &plugin.Context{
		DB: db,
		Config: map[string]string{
			"slackChannel":  cfg.Slack.Channel,
			"slackApiToken": cfg.Slack.APIToken,
		},
		Org:    cfg.Org,
		Logger: logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := p.Setup(ctx, pctx); err != nil {
		logger.Error("plugin setup failed", "error", err)
		os.Exit(1)
	}

	sched := scheduler.NewScheduler(plugin.NewRunner(p, pctx), cfg.Scrape.Interval, logger)

	logger.Info("starting EOD scraper",
		"plugin", plugin.Name,
		"version", plugin.Version,
		"interval", cfg.Scrape.Interval,
		"lookback_days", cfg.Scrape.LookbackDays,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"feedwatch/internal/bot"
	"feedwatch/internal/config"
	"feedwatch/internal/fetcher"
	"feedwatch/internal/gateway"
	"feedwatch/internal/router"
	"feedwatch/internal/scheduler"
	"feedwatch/internal/storage"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath, cfg.HistoryLimit)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var override *router.Override
	if cfg.OverrideBotToken != "" {
		override = &router.Override{Token: cfg.OverrideBotToken, ChatID: cfg.OverrideChatID}
	}

	factory := func(token string) (gateway.Gateway, error) {
		return gateway.NewTelegram(token)
	}
	rt := router.New(factory, store, router.Config{
		Template:   cfg.MessageTemplate,
		BatchLimit: cfg.BatchLimit,
		Override:   override,
	}, log)

	session, err := gateway.Connect(ctx, cfg.TelegramBotToken, connectAttempts, connectBackoff)
	if err != nil {
		log.Error("connect session", "error", err)
		os.Exit(1)
	}
	rt.SetSession(session)

	sched := scheduler.New(store, fetcher.New(http.DefaultClient), rt, log)
	b := bot.New(session.API(), sched, cfg, log)

	if err := sched.StartAll(ctx); err != nil {
		log.Error("start scheduler", "error", err)
		os.Exit(1)
	}

	log.Info("starting bot", "identity", session.Identity())

	b.Run(ctx)

	sched.StopAll()
	log.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

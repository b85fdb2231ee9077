package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/EgorDatcenko/FloodBot/internal/category"
	"github.com/EgorDatcenko/FloodBot/internal/config"
	"github.com/EgorDatcenko/FloodBot/internal/domain"
	"github.com/EgorDatcenko/FloodBot/internal/sqlite"
	"github.com/EgorDatcenko/FloodBot/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	rules := category.Default()
	if cfg.RulesPath != "" {
		rules, err = category.Load(cfg.RulesPath)
		if err != nil {
			return fmt.Errorf("load category rules: %w", err)
		}
	}

	repo, err := sqlite.NewRepository(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}
	defer repo.Close()
	logger.Info("database ready", "path", cfg.DatabasePath)

	svc := domain.NewService(rules, repo, domain.DefaultBackoff(), logger)

	bot, err := telegram.NewBot(cfg, svc, rules, logger)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := bot.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("bot exited with error", "error", err)
		}
	}()

	logger.Info("bot started", "channel", cfg.ChannelUsername)

	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	return nil
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"spill-bot/config"
	telegram "spill-bot/internal/api"
	app "spill-bot/internal/application"
	"spill-bot/internal/container"
	"spill-bot/internal/infrastructure/backend"
	"spill-bot/internal/infrastructure/storage"
	"spill-bot/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_TOKEN is required")
	}

	logg := logger.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Клиент внешнего сервиса детекции
	client := backend.NewClient(cfg.BackendURL,
		backend.WithMaxResponseBytes(cfg.MaxResponseBytes),
		backend.WithLogger(logg.With("component", "backend")),
	)

	// Проверяем доступность сервиса, но не падаем без него
	if status, err := client.Health(ctx); err != nil {
		logg.Warn("detection service not available", "url", cfg.BackendURL, "error", err)
	} else {
		logg.Info("detection service online", "url", cfg.BackendURL, "status", status.Status)
	}

	// Собираем зависимости
	deps := container.New(client, client, storage.NewMemorySessionRepository(), app.Options{
		Timeout: cfg.RequestTimeout,
		Logger:  logg,
	})

	// Создаём бота
	bot, err := telegram.NewBot(cfg.TelegramToken, deps)
	if err != nil {
		logg.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	logg.Info("bot is running")
	if err := bot.Run(ctx); err != nil {
		logg.Error("bot stopped", "error", err)
		os.Exit(1)
	}
}

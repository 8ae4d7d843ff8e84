package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"spill-bot/config"
	app "spill-bot/internal/application"
	"spill-bot/internal/console"
	"spill-bot/internal/container"
	"spill-bot/internal/domain/entity"
	"spill-bot/internal/infrastructure/backend"
	"spill-bot/internal/logger"
)

func main() {
	imagePath := flag.String("image", "", "path to the satellite (SAR) image")
	aisPath := flag.String("ais", "", "optional path to the AIS vessel-tracking file")
	demo := flag.Bool("demo", false, "render the canned demo result instead of calling the service")
	out := flag.String("out", "result.png", "where to write the rendered canvas")
	health := flag.Bool("health", false, "only check the detection service and exit")
	backendURL := flag.String("backend", "", "detection service base URL (overrides BACKEND_URL)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *backendURL != "" {
		cfg.BackendURL = *backendURL
	}

	logg := logger.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := backend.NewClient(cfg.BackendURL,
		backend.WithMaxResponseBytes(cfg.MaxResponseBytes),
		backend.WithLogger(logg),
	)

	if *health {
		status, err := client.Health(ctx)
		if err != nil {
			log.Fatalf("Detection service unavailable: %v", err)
		}
		fmt.Printf("%s: %s\n", status.Status, status.Message)
		return
	}

	// Сессии чатов CLI не нужны
	deps := container.New(client, client, nil, app.Options{
		Timeout: cfg.RequestTimeout,
		Logger:  logg,
	})
	view := console.NewView(os.Stdout, logg)
	ctl := deps.NewController(view)

	if err := register(ctl, entity.FilePrimary, *imagePath); err != nil {
		log.Fatal(err)
	}
	if err := register(ctl, entity.FileAuxiliary, *aisPath); err != nil {
		log.Fatal(err)
	}

	if *demo {
		ctl.LoadDemo()
	} else if err := ctl.Submit(ctx); err != nil {
		os.Exit(1)
	}

	if !view.Rendered() {
		// Ответ без картинки, метрики уже напечатаны
		return
	}
	if err := view.Save(*out); err != nil {
		log.Fatalf("Failed to save canvas: %v", err)
	}
	fmt.Printf("canvas written to %s\n", *out)
}

func register(ctl *app.Controller, kind entity.FileKind, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s file: %w", kind, err)
	}
	ctl.Register(kind, &entity.File{Name: filepath.Base(path), Data: data})
	return nil
}

package container

import (
	"log/slog"

	app "spill-bot/internal/application"
	"spill-bot/internal/domain/port"
	"spill-bot/internal/infrastructure/canvas"
)

// Container собирает зависимости, общие для всех хостов
type Container struct {
	Detector port.DetectionService
	Health   port.HealthChecker
	Sessions port.SessionRepository
	Options  app.Options
	Logger   *slog.Logger
}

func New(detector port.DetectionService, health port.HealthChecker, sessions port.SessionRepository, opts app.Options) *Container {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
		opts.Logger = logger
	}

	return &Container{
		Detector: detector,
		Health:   health,
		Sessions: sessions,
		Options:  opts,
		Logger:   logger,
	}
}

// NewController создаёт контроллер с собственным холстом для указанного вида
func (c *Container) NewController(view port.View, attrs ...any) *app.Controller {
	opts := c.Options
	if len(attrs) > 0 {
		opts.Logger = c.Logger.With(attrs...)
	}
	return app.NewController(c.Detector, canvas.NewSurface(), view, opts)
}

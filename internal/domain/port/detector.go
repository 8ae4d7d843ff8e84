package port

import (
	"context"

	"spill-bot/internal/domain/entity"
)

// DetectionService интерфейс внешнего сервиса детекции разливов
type DetectionService interface {
	// Detect отправляет снимок (и, если есть, файл AIS) и возвращает результат
	Detect(ctx context.Context, primary, auxiliary *entity.File) (*entity.RenderResult, error)
}

// HealthChecker проверяет доступность сервиса детекции
type HealthChecker interface {
	Health(ctx context.Context) (*entity.HealthStatus, error)
}

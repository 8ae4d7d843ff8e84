package port

import (
	"context"

	"spill-bot/internal/domain/entity"
)

// SessionRepository интерфейс хранилища сессий чатов
type SessionRepository interface {
	// Get возвращает сессию чата, создаёт новую если не найдена
	Get(ctx context.Context, chatID int64) (*entity.Session, error)

	// Save сохраняет сессию
	Save(ctx context.Context, session *entity.Session) error

	// Delete удаляет сессию чата
	Delete(ctx context.Context, chatID int64) error
}

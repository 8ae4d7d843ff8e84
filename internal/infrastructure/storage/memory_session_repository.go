package storage

import (
	"context"
	"sync"

	"spill-bot/internal/domain/entity"
	"spill-bot/internal/domain/port"
)

// MemorySessionRepository in-memory хранилище сессий чатов
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[int64]*entity.Session
}

// NewMemorySessionRepository создаёт новое in-memory хранилище
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[int64]*entity.Session),
	}
}

// Get возвращает копию сессии чата, создаёт новую если не найдена
func (r *MemorySessionRepository) Get(ctx context.Context, chatID int64) (*entity.Session, error) {
	r.mu.RLock()
	session, exists := r.sessions[chatID]
	r.mu.RUnlock()

	if exists {
		cp := *session
		return &cp, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Пока ждали блокировку, сессию мог создать другой обработчик
	if session, exists := r.sessions[chatID]; exists {
		cp := *session
		return &cp, nil
	}
	session = entity.NewSession(chatID)
	r.sessions[chatID] = session

	cp := *session
	return &cp, nil
}

// Save сохраняет сессию
func (r *MemorySessionRepository) Save(ctx context.Context, session *entity.Session) error {
	cp := *session

	r.mu.Lock()
	r.sessions[session.ChatID] = &cp
	r.mu.Unlock()

	return nil
}

// Delete удаляет сессию чата
func (r *MemorySessionRepository) Delete(ctx context.Context, chatID int64) error {
	r.mu.Lock()
	delete(r.sessions, chatID)
	r.mu.Unlock()

	return nil
}

// Проверка реализации интерфейса
var _ port.SessionRepository = (*MemorySessionRepository)(nil)

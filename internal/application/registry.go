package app

import "sync"

// ControllerFactory создаёт контроллер для нового чата
type ControllerFactory func(chatID int64) *Controller

// Registry хранит по одному контроллеру на чат
type Registry struct {
	mu          sync.Mutex
	controllers map[int64]*Controller
	factory     ControllerFactory
}

// NewRegistry создаёт пустой реестр контроллеров
func NewRegistry(factory ControllerFactory) *Registry {
	return &Registry{
		controllers: make(map[int64]*Controller),
		factory:     factory,
	}
}

// Get возвращает контроллер чата, создаёт новый если не найден
func (r *Registry) Get(chatID int64) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.controllers[chatID]; ok {
		return c
	}
	c := r.factory(chatID)
	r.controllers[chatID] = c
	return c
}

// Len возвращает число активных контроллеров
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

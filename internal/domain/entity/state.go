package entity

// ControllerState состояние контроллера загрузки
type ControllerState string

const (
	StateIdle       ControllerState = "idle"       // Готов к действиям пользователя
	StateSubmitting ControllerState = "submitting" // Ждёт ответа сервиса детекции
)

// CanvasState что сейчас изображено на холсте
type CanvasState string

const (
	CanvasPlaceholder CanvasState = "placeholder" // Заглушка, результата ещё нет
	CanvasRendered    CanvasState = "rendered"    // Отрисован результат
)

const (
	CanvasWidth  = 800
	CanvasHeight = 600
)

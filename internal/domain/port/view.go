package port

import (
	"image"

	"spill-bot/internal/domain/entity"
)

// View поверхность, в которую контроллер пишет состояние.
// Контроллер не владеет раскладкой и стилями, только содержимым.
type View interface {
	// SetFileLabel показывает имя выбранного файла, пустая строка очищает подпись
	SetFileLabel(kind entity.FileKind, label string)

	// SetMetrics выводит метрики, нулевое значение очищает поля
	SetMetrics(m entity.Metrics)

	// ShowCanvas показывает текущий кадр холста
	ShowCanvas(frame image.Image, state entity.CanvasState)

	// SetSubmitEnabled включает или выключает кнопку запуска детекции
	SetSubmitEnabled(enabled bool)

	// ResetPickers сбрасывает состояние выбора файлов, чтобы тот же файл можно было выбрать снова
	ResetPickers()

	// Notify сообщает пользователю об ошибке
	Notify(err error)
}

// Package console выводит состояние контроллера в лог и сохраняет холст в PNG.
package console

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"

	"spill-bot/internal/domain/entity"
	"spill-bot/internal/domain/port"
	"spill-bot/internal/infrastructure/canvas"
)

// View печатает подписи и метрики, последний кадр холста держит до Save
type View struct {
	out    io.Writer
	logger *slog.Logger

	frame  image.Image
	state  entity.CanvasState
	errors []error
}

// NewView создаёт консольный вид
func NewView(out io.Writer, logger *slog.Logger) *View {
	return &View{out: out, logger: logger, state: entity.CanvasPlaceholder}
}

func (v *View) SetFileLabel(kind entity.FileKind, label string) {
	if label == "" {
		return
	}
	fmt.Fprintf(v.out, "%s: %s\n", kind, label)
}

func (v *View) SetMetrics(m entity.Metrics) {
	if m.IsZero() {
		return
	}
	fmt.Fprintf(v.out, "area: %s\nconfidence: %s\npixels: %s\ncoverage: %s\n", m.Area, m.Confidence, m.Count, m.Coverage)
}

func (v *View) ShowCanvas(frame image.Image, state entity.CanvasState) {
	v.frame = frame
	v.state = state
}

func (v *View) SetSubmitEnabled(enabled bool) {
	v.logger.Debug("submit control", "enabled", enabled)
}

func (v *View) ResetPickers() {}

func (v *View) Notify(err error) {
	v.errors = append(v.errors, err)
	fmt.Fprintf(v.out, "error: %v\n", err)
}

// Rendered сообщает, был ли отрисован результат
func (v *View) Rendered() bool {
	return v.frame != nil && v.state == entity.CanvasRendered
}

// Save записывает последний кадр холста в PNG-файл
func (v *View) Save(path string) error {
	if v.frame == nil {
		return fmt.Errorf("nothing rendered")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := canvas.EncodePNG(f, v.frame); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

var _ port.View = (*View)(nil)

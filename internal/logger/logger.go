package logger

import (
	"io"
	"log/slog"
)

// New возвращает структурированный JSON-логгер с заданным уровнем
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

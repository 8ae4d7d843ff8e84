package telegram

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"spill-bot/internal/domain/entity"
	"spill-bot/internal/domain/port"
	"spill-bot/internal/infrastructure/canvas"
)

const (
	msgSubmitting      = "⏳ Отправляю снимок на детекцию..."
	msgMissingInput    = "📡 Сначала загрузите спутниковый снимок!"
	msgInProgress      = "⏳ Детекция уже выполняется, дождитесь результата."
	msgCleared         = "🧹 Карта очищена. Можно загружать новые файлы."
	msgNetwork         = "⚠️ Сервис детекции недоступен. Попробуйте позже."
	msgTimeout         = "⚠️ Сервис детекции не ответил вовремя. Попробуйте ещё раз."
	msgDecode          = "⚠️ Не удалось разобрать ответ сервиса детекции."
	msgBackend         = "⚠️ Сервис детекции вернул ошибку."
	msgBackendTemplate = "⚠️ Сервис детекции вернул ошибку (%d)."
	msgUnexpected      = "⚠️ Что-то пошло не так. Попробуйте ещё раз."
)

// Sender отправляет сообщения в Telegram, реализуется *tgbotapi.BotAPI
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// chatView выводит состояние контроллера в чат
type chatView struct {
	sender Sender
	chatID int64
	logger *slog.Logger
}

func newChatView(sender Sender, chatID int64, logger *slog.Logger) *chatView {
	return &chatView{sender: sender, chatID: chatID, logger: logger.With("chat_id", chatID)}
}

func (v *chatView) SetFileLabel(kind entity.FileKind, label string) {
	if label == "" {
		return
	}
	switch kind {
	case entity.FilePrimary:
		v.send("📡 Снимок: " + label)
	case entity.FileAuxiliary:
		v.send("🚢 AIS: " + label)
	}
}

func (v *chatView) SetMetrics(m entity.Metrics) {
	if m.IsZero() {
		return
	}
	v.send(formatMetrics(m))
}

func (v *chatView) ShowCanvas(frame image.Image, state entity.CanvasState) {
	// Заглушку в чат не отправляем, о сбросе сообщает ResetPickers
	if state != entity.CanvasRendered {
		return
	}

	var buf bytes.Buffer
	if err := canvas.EncodePNG(&buf, frame); err != nil {
		v.logger.Error("encode canvas", "error", err)
		return
	}

	photo := tgbotapi.NewPhoto(v.chatID, tgbotapi.FileBytes{Name: "result.png", Bytes: buf.Bytes()})
	if _, err := v.sender.Send(photo); err != nil {
		v.logger.Error("send canvas", "error", err)
	}
}

func (v *chatView) SetSubmitEnabled(enabled bool) {
	if !enabled {
		v.send(msgSubmitting)
	}
}

func (v *chatView) ResetPickers() {
	v.send(msgCleared)
}

func (v *chatView) Notify(err error) {
	v.send(userMessage(err))
}

func (v *chatView) send(text string) {
	if _, err := v.sender.Send(tgbotapi.NewMessage(v.chatID, text)); err != nil {
		v.logger.Error("send message", "error", err)
	}
}

func formatMetrics(m entity.Metrics) string {
	return fmt.Sprintf("📊 Результат детекции:\nПлощадь разлива: %s\nУверенность: %s\nПикселей: %s\nПокрытие: %s",
		m.Area, m.Confidence, m.Count, m.Coverage)
}

// userMessage переводит ошибку в текст для пользователя
func userMessage(err error) string {
	if errors.Is(err, entity.ErrMissingInput) {
		return msgMissingInput
	}
	if errors.Is(err, entity.ErrSubmissionInProgress) {
		return msgInProgress
	}

	var de *entity.DetectionError
	if !errors.As(err, &de) {
		return msgUnexpected
	}
	switch de.Kind {
	case entity.FailureNetwork:
		return msgNetwork
	case entity.FailureTimeout:
		return msgTimeout
	case entity.FailureDecode:
		return msgDecode
	case entity.FailureBackend:
		msg := msgBackend
		if de.Status != 0 {
			msg = fmt.Sprintf(msgBackendTemplate, de.Status)
		}
		if de.Detail != "" {
			msg += "\n" + de.Detail
		}
		return msg
	}
	return msgUnexpected
}

var _ port.View = (*chatView)(nil)

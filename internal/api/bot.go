package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "spill-bot/internal/application"
	"spill-bot/internal/container"
	"spill-bot/internal/domain/entity"
)

const (
	msgStart = `👋 Привет! Я помогаю искать нефтяные разливы на спутниковых снимках.

📡 Отправьте мне SAR-снимок (фото или файлом), при желании — файл AIS с данными о судах, и запустите /detect.

📋 Команды:
/detect — запустить детекцию
/demo — показать демо-результат
/reset — очистить карту и файлы
/help — справка`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте спутниковый снимок
2️⃣ (необязательно) Отправьте файл AIS (.csv, .json, .txt, .nmea)
3️⃣ Запустите /detect и получите карту с подсветкой разлива и метрики

📋 Команды:
/sar — следующий документ считать снимком
/ais — следующий документ считать файлом AIS
/detect — запустить детекцию
/demo — демо-результат без обращения к сервису
/reset — очистить карту и файлы
/status — текущее состояние
/health — проверить сервис детекции`

	msgAwaitingSAR    = "📡 Отправьте спутниковый снимок документом."
	msgAwaitingAIS    = "🚢 Отправьте файл AIS документом."
	msgSendFile       = "📡 Отправьте спутниковый снимок или воспользуйтесь /help."
	msgUnknownCommand = "❓ Неизвестная команда. Используйте /help для справки."
	msgEmptyFile      = "⚠️ Файл пустой, выберите другой."
	msgDownloadError  = "⚠️ Не удалось скачать файл. Попробуйте отправить его ещё раз."
	msgHealthy        = "✅ Сервис детекции доступен: %s"
	msgUnhealthy      = "⚠️ Сервис детекции недоступен."
)

// Bot API отдаёт ботам файлы до 20 МБ
const maxDownloadBytes = 20 << 20

var (
	// ErrUpdatesClosed канал обновлений Telegram закрылся до остановки бота
	ErrUpdatesClosed = errors.New("telegram updates channel closed")
	// ErrFileTooLarge файл больше допустимого размера
	ErrFileTooLarge = errors.New("file too large")
)

// Расширения, которые по умолчанию считаются файлами AIS
var auxiliaryExtensions = map[string]bool{
	".csv":  true,
	".json": true,
	".txt":  true,
	".nmea": true,
	".ais":  true,
}

// FileDownloader скачивает файл Telegram по его ID
type FileDownloader interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Bot представляет Telegram-бота
type Bot struct {
	api         *tgbotapi.BotAPI
	sender      Sender
	files       FileDownloader
	deps        *container.Container
	controllers *app.Registry
	logger      *slog.Logger

	wg sync.WaitGroup
}

// NewBot создаёт нового бота
func NewBot(token string, deps *container.Container) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	deps.Logger.Info("authorized on telegram", "account", api.Self.UserName)

	b := newBot(api, &apiDownloader{api: api, http: http.DefaultClient}, deps)
	b.api = api
	return b, nil
}

func newBot(sender Sender, files FileDownloader, deps *container.Container) *Bot {
	b := &Bot{
		sender: sender,
		files:  files,
		deps:   deps,
		logger: deps.Logger,
	}
	b.controllers = app.NewRegistry(func(chatID int64) *app.Controller {
		return deps.NewController(newChatView(sender, chatID, b.logger), "chat_id", chatID)
	})
	return b
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	return b.serve(ctx, b.api.GetUpdatesChan(u), b.api.StopReceivingUpdates)
}

// serve читает обновления до отмены ctx. Закрытие канала без отмены считается ошибкой.
func (b *Bot) serve(ctx context.Context, updates tgbotapi.UpdatesChannel, stop func()) error {
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			stop()
			return nil
		case update, ok := <-updates:
			if !ok {
				return ErrUpdatesClosed
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// Обработка фото
	if len(msg.Photo) > 0 {
		photo := msg.Photo[len(msg.Photo)-1]
		b.handleFile(ctx, msg.Chat.ID, entity.FilePrimary, photo.FileID, "photo_"+photo.FileUniqueID+".jpg")
		return
	}

	// Обработка документа
	if msg.Document != nil {
		kind := b.documentKind(ctx, msg.Chat.ID, msg.Document.FileName)
		b.handleFile(ctx, msg.Chat.ID, kind, msg.Document.FileID, msg.Document.FileName)
		return
	}

	// Текстовое сообщение (не команда)
	b.sendMessage(msg.Chat.ID, msgSendFile)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "sar":
		b.expect(ctx, chatID, entity.FilePrimary)
		b.sendMessage(chatID, msgAwaitingSAR)

	case "ais":
		b.expect(ctx, chatID, entity.FileAuxiliary)
		b.sendMessage(chatID, msgAwaitingAIS)

	case "detect":
		ctl := b.controllers.Get(chatID)
		// Запрос идёт в фоне, повторный /detect отклонит контроллер
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := ctl.Submit(ctx); err != nil {
				b.logger.Debug("submit finished with error", "chat_id", chatID, "error", err)
			}
		}()

	case "demo":
		b.controllers.Get(chatID).LoadDemo()

	case "reset", "clear":
		b.controllers.Get(chatID).Reset()
		if err := b.deps.Sessions.Delete(ctx, chatID); err != nil {
			b.logger.Error("delete session", "chat_id", chatID, "error", err)
		}

	case "status":
		b.sendMessage(chatID, b.status(chatID))

	case "health":
		b.checkHealth(ctx, chatID)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

// handleFile скачивает файл и регистрирует его в контроллере чата
func (b *Bot) handleFile(ctx context.Context, chatID int64, kind entity.FileKind, fileID, name string) {
	data, err := b.files.Download(ctx, fileID)
	if err != nil {
		b.logger.Error("download file", "chat_id", chatID, "error", err)
		b.sendMessage(chatID, msgDownloadError)
		return
	}
	if len(data) == 0 {
		b.sendMessage(chatID, msgEmptyFile)
		return
	}

	b.controllers.Get(chatID).Register(kind, &entity.File{Name: name, Data: data})
}

// documentKind определяет тип документа: по команде /sar или /ais, иначе по расширению
func (b *Bot) documentKind(ctx context.Context, chatID int64, fileName string) entity.FileKind {
	session, err := b.deps.Sessions.Get(ctx, chatID)
	if err != nil {
		b.logger.Error("get session", "chat_id", chatID, "error", err)
	} else if kind, ok := session.Consume(); ok {
		if err := b.deps.Sessions.Save(ctx, session); err != nil {
			b.logger.Error("save session", "chat_id", chatID, "error", err)
		}
		return kind
	}

	if auxiliaryExtensions[strings.ToLower(filepath.Ext(fileName))] {
		return entity.FileAuxiliary
	}
	return entity.FilePrimary
}

func (b *Bot) expect(ctx context.Context, chatID int64, kind entity.FileKind) {
	session, err := b.deps.Sessions.Get(ctx, chatID)
	if err != nil {
		b.logger.Error("get session", "chat_id", chatID, "error", err)
		return
	}
	session.Expect(kind)
	if err := b.deps.Sessions.Save(ctx, session); err != nil {
		b.logger.Error("save session", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) status(chatID int64) string {
	ctl := b.controllers.Get(chatID)
	sel := ctl.Selection()

	var sb strings.Builder
	fmt.Fprintf(&sb, "ℹ️ Состояние: %s\n", ctl.State())
	fmt.Fprintf(&sb, "📡 Снимок: %s\n", fileLabel(sel.Primary))
	fmt.Fprintf(&sb, "🚢 AIS: %s", fileLabel(sel.Auxiliary))
	if m := ctl.Metrics(); !m.IsZero() {
		sb.WriteString("\n\n" + formatMetrics(m))
	}
	return sb.String()
}

func (b *Bot) checkHealth(ctx context.Context, chatID int64) {
	if b.deps.Health == nil {
		b.sendMessage(chatID, msgUnhealthy)
		return
	}
	status, err := b.deps.Health.Health(ctx)
	if err != nil {
		b.logger.Warn("health check failed", "error", err)
		b.sendMessage(chatID, msgUnhealthy)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf(msgHealthy, status.Status))
}

func fileLabel(f *entity.File) string {
	if f.Empty() {
		return "—"
	}
	return "✓ " + f.Name
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("send message", "chat_id", chatID, "error", err)
	}
}

// apiDownloader скачивает файлы через Bot API
type apiDownloader struct {
	api  *tgbotapi.BotAPI
	http *http.Client
}

// Download скачивает файл из Telegram
func (d *apiDownloader) Download(ctx context.Context, fileID string) ([]byte, error) {
	file, err := d.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(d.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	return readLimited(resp.Body, maxDownloadBytes)
}

// readLimited читает не больше limit байт, иначе возвращает ErrFileTooLarge
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, limit)
	}
	return data, nil
}

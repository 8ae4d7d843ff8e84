package app

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"spill-bot/internal/domain/entity"
	"spill-bot/internal/domain/port"
)

// DemoStatistics фиксированные значения демо-режима
var DemoStatistics = entity.Statistics{
	SpillAreaKm2:       2.5,
	Confidence:         87,
	PixelCount:         1250,
	CoveragePercentage: 3.2,
}

// Options необязательные параметры контроллера
type Options struct {
	Timeout time.Duration // ограничение на запрос к сервису, 0 — без ограничения
	Logger  *slog.Logger
}

// Controller управляет загрузкой файлов, отправкой на детекцию и отрисовкой результата.
// Один экземпляр на страницу или чат. Состояние меняется под mu, обновления View
// собираются там же и доставляются после снятия mu под viewMu: медленный View
// не блокирует чтение состояния, а порядок обновлений сохраняется.
type Controller struct {
	detector port.DetectionService
	surface  port.Surface
	view     port.View
	timeout  time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	state      entity.ControllerState
	selection  entity.Selection
	result     *entity.RenderResult
	metrics    entity.Metrics
	generation uint64 // увеличивается при Reset, отбрасывает устаревшие ответы

	viewMu sync.Mutex
}

// viewUpdate отложенный вызов View
type viewUpdate func(v port.View)

// NewController создаёт контроллер, холст сразу переводится в состояние заглушки
func NewController(detector port.DetectionService, surface port.Surface, view port.View, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	surface.Clear()
	return &Controller{
		detector: detector,
		surface:  surface,
		view:     view,
		timeout:  opts.Timeout,
		logger:   logger,
		state:    entity.StateIdle,
	}
}

// Register сохраняет файл под указанным типом. Пустой файл и неизвестный тип игнорируются.
func (c *Controller) Register(kind entity.FileKind, file *entity.File) {
	if file.Empty() {
		return
	}

	c.mu.Lock()
	if !c.selection.Set(kind, file) {
		c.mu.Unlock()
		c.logger.Warn("unknown file kind", "kind", kind, "name", file.Name)
		return
	}
	c.logger.Info("file registered", "kind", kind, "name", file.Name, "size", len(file.Data))

	label := "✓ " + file.Name
	c.deliver(func(v port.View) { v.SetFileLabel(kind, label) })
}

// Submit отправляет выбранные файлы на детекцию и отрисовывает ответ.
// Повторный вызов во время отправки отклоняется с ErrSubmissionInProgress.
func (c *Controller) Submit(ctx context.Context) error {
	primary, auxiliary, gen, err := c.begin()
	if err != nil {
		c.logger.Warn("submit rejected", "error", err)
		return err
	}

	settled := false
	defer func() {
		// Паника в детекторе не должна оставить контроллер в Submitting
		if !settled {
			c.mu.Lock()
			c.state = entity.StateIdle
			c.deliver(enableSubmit)
		}
	}()

	started := time.Now()
	result, err := c.detect(ctx, primary, auxiliary)

	c.mu.Lock()
	settled = true
	c.state = entity.StateIdle

	if err != nil {
		c.logger.Error("detection failed", "error", err, "duration", time.Since(started))
		c.deliver(notify(err), enableSubmit)
		return err
	}

	if gen != c.generation {
		// Пока шёл запрос, выбор был сброшен
		c.logger.Info("discarding result for cleared selection", "kind", result.Kind)
		c.deliver(enableSubmit)
		return nil
	}

	updates := c.apply(result)
	c.logger.Info("detection completed", "kind", result.Kind, "duration", time.Since(started))
	c.deliver(append(updates, enableSubmit)...)
	return nil
}

// LoadDemo показывает заранее заданный результат без обращения к сервису
func (c *Controller) LoadDemo() {
	c.mu.Lock()

	c.surface.PaintDemo()
	stats := DemoStatistics
	c.result = &entity.RenderResult{
		Kind:  entity.ResponseJSONWithImage,
		Image: c.surface.Snapshot(),
		Stats: &stats,
	}
	c.metrics = entity.FormatMetrics(stats)
	c.logger.Info("demo result loaded")

	frame, state, metrics := c.result.Image, c.surface.State(), c.metrics
	c.deliver(
		func(v port.View) { v.ShowCanvas(frame, state) },
		func(v port.View) { v.SetMetrics(metrics) },
	)
}

// Reset очищает выбор файлов, результат, холст и все подписи
func (c *Controller) Reset() {
	c.mu.Lock()

	c.generation++
	c.selection = entity.Selection{}
	c.result = nil
	c.metrics = entity.Metrics{}
	c.surface.Clear()
	c.logger.Info("controller reset")

	frame, state := c.surface.Snapshot(), c.surface.State()
	// Все поля обновляются одной доставкой
	c.deliver(func(v port.View) {
		v.SetFileLabel(entity.FilePrimary, "")
		v.SetFileLabel(entity.FileAuxiliary, "")
		v.SetMetrics(entity.Metrics{})
		v.ShowCanvas(frame, state)
		v.ResetPickers()
	})
}

// State возвращает текущее состояние контроллера
func (c *Controller) State() entity.ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Selection возвращает копию текущего выбора файлов
func (c *Controller) Selection() entity.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// Result возвращает последний отрисованный результат или nil
func (c *Controller) Result() *entity.RenderResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Metrics возвращает значения, выведенные в поля метрик
func (c *Controller) Metrics() entity.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// Canvas возвращает текущий кадр холста и его состояние
func (c *Controller) Canvas() (frame image.Image, state entity.CanvasState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surface.Snapshot(), c.surface.State()
}

// deliver вызывается под mu: захватывает viewMu, снимает mu и выполняет обновления.
// Захват viewMu до снятия mu сохраняет порядок доставки между операциями.
// Обновления не должны вызывать изменяющие методы контроллера.
func (c *Controller) deliver(updates ...viewUpdate) {
	c.viewMu.Lock()
	c.mu.Unlock()
	defer c.viewMu.Unlock()

	for _, u := range updates {
		u(c.view)
	}
}

func (c *Controller) begin() (primary, auxiliary *entity.File, gen uint64, err error) {
	c.mu.Lock()

	switch {
	case c.state == entity.StateSubmitting:
		err = entity.ErrSubmissionInProgress
	case c.selection.Primary.Empty():
		err = entity.ErrMissingInput
	}
	if err != nil {
		c.deliver(notify(err))
		return nil, nil, 0, err
	}

	c.state = entity.StateSubmitting
	primary, auxiliary, gen = c.selection.Primary, c.selection.Auxiliary, c.generation
	c.deliver(disableSubmit)
	return primary, auxiliary, gen, nil
}

func (c *Controller) detect(ctx context.Context, primary, auxiliary *entity.File) (*entity.RenderResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	result, err := c.detector.Detect(ctx, primary, auxiliary)
	if err == nil && result == nil {
		err = entity.NewDetectionError(entity.FailureDecode, errors.New("empty result"))
	}
	if err != nil {
		return nil, classify(ctx, err)
	}
	return result, nil
}

// apply применяет ответ сервиса под mu и возвращает обновления для View
func (c *Controller) apply(result *entity.RenderResult) []viewUpdate {
	switch result.Kind {
	case entity.ResponseBinary:
		c.result = result
		return []viewUpdate{c.paint(result.Image)}

	case entity.ResponseJSONWithImage:
		c.result = result
		return []viewUpdate{c.paint(result.Image), c.publish(result.Stats)}

	case entity.ResponseJSONOnly:
		// Холст остаётся как был
		c.result = result
		return []viewUpdate{c.publish(result.Stats)}
	}
	return nil
}

func (c *Controller) paint(img image.Image) viewUpdate {
	c.surface.Paint(img)
	frame, state := c.surface.Snapshot(), c.surface.State()
	return func(v port.View) {
		v.ShowCanvas(frame, state)
	}
}

func (c *Controller) publish(stats *entity.Statistics) viewUpdate {
	if stats == nil {
		return func(port.View) {}
	}
	c.metrics = entity.FormatMetrics(*stats)
	metrics := c.metrics
	return func(v port.View) {
		v.SetMetrics(metrics)
	}
}

func enableSubmit(v port.View) {
	v.SetSubmitEnabled(true)
}

func disableSubmit(v port.View) {
	v.SetSubmitEnabled(false)
}

func notify(err error) viewUpdate {
	return func(v port.View) {
		v.Notify(err)
	}
}

// classify приводит любую ошибку к *entity.DetectionError
func classify(ctx context.Context, err error) error {
	var de *entity.DetectionError
	if errors.As(err, &de) || errors.Is(err, entity.ErrMissingInput) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return entity.NewDetectionError(entity.FailureTimeout, err)
	}
	return entity.NewDetectionError(entity.FailureNetwork, err)
}

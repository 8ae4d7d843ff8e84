package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"spill-bot/internal/domain/entity"
	"spill-bot/internal/domain/port"
)

const (
	predictPath     = "/predict"
	healthPath      = "/health"
	fieldImage      = "image"
	fieldAIS        = "ais"
	requestIDHeader = "X-Request-ID"
	maxDetailBytes  = 200

	DefaultMaxResponseBytes = 32 << 20
)

// Client обращается к внешнему сервису детекции разливов по HTTP
type Client struct {
	baseURL  string
	http     *http.Client
	maxBytes int64
	logger   *slog.Logger
}

// Option настройка клиента
type Option func(*Client)

// WithHTTPClient подменяет http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMaxResponseBytes ограничивает размер тела ответа
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithLogger задаёт логгер
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient создаёт клиент для сервиса по базовому адресу, например http://127.0.0.1:5000
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{},
		maxBytes: DefaultMaxResponseBytes,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Detect отправляет POST /predict с полями image и ais
func (c *Client) Detect(ctx context.Context, primary, auxiliary *entity.File) (*entity.RenderResult, error) {
	if primary.Empty() {
		return nil, entity.ErrMissingInput
	}

	body, contentType, err := buildForm(primary, auxiliary)
	if err != nil {
		return nil, entity.NewDetectionError(entity.FailureNetwork, fmt.Errorf("build form: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, body)
	if err != nil {
		return nil, entity.NewDetectionError(entity.FailureNetwork, fmt.Errorf("create request: %w", err))
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(requestIDHeader, requestID)

	log := c.logger.With("request_id", requestID)
	log.Debug("sending detection request", "image", primary.Name, "with_ais", !auxiliary.Empty())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, transportError(ctx, fmt.Errorf("read response: %w", err))
	}
	if int64(len(data)) > c.maxBytes {
		return nil, entity.NewDetectionError(entity.FailureDecode, fmt.Errorf("response exceeds %d bytes", c.maxBytes))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("detection service returned error", "status", resp.StatusCode)
		return nil, &entity.DetectionError{
			Kind:   entity.FailureBackend,
			Status: resp.StatusCode,
			Detail: errorDetail(data),
		}
	}

	result, err := decodeResponse(resp.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, err
	}
	log.Debug("detection response decoded", "kind", result.Kind, "bytes", len(data))
	return result, nil
}

// Health выполняет GET /health
func (c *Client) Health(ctx context.Context) (*entity.HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &entity.DetectionError{Kind: entity.FailureBackend, Status: resp.StatusCode}
	}

	var status entity.HealthStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&status); err != nil {
		return nil, entity.NewDetectionError(entity.FailureDecode, fmt.Errorf("decode health: %w", err))
	}
	return &status, nil
}

func buildForm(primary, auxiliary *entity.File) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writeFile(writer, fieldImage, primary); err != nil {
		return nil, "", err
	}
	if !auxiliary.Empty() {
		if err := writeFile(writer, fieldAIS, auxiliary); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, field string, f *entity.File) error {
	name := f.Name
	if name == "" {
		name = field
	}
	part, err := w.CreateFormFile(field, name)
	if err != nil {
		return fmt.Errorf("create form file %s: %w", field, err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return fmt.Errorf("write %s: %w", field, err)
	}
	return nil
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return entity.NewDetectionError(entity.FailureTimeout, err)
	}
	return entity.NewDetectionError(entity.FailureNetwork, err)
}

// errorDetail достаёт поле error из JSON-ответа, иначе короткий фрагмент тела
func errorDetail(data []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	text := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		text = payload.Error
	}
	return truncate(strings.ToValidUTF8(text, ""), maxDetailBytes)
}

// truncate обрезает строку до n байт, не разрывая последнюю руну
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func mediaType(contentType string, data []byte) string {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	if mt == "application/octet-stream" {
		mt, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}
	return mt
}

var _ port.DetectionService = (*Client)(nil)
var _ port.HealthChecker = (*Client)(nil)

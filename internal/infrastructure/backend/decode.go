package backend

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"strings"

	// Декодеры форматов, которые может вернуть сервис
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"spill-bot/internal/domain/entity"
)

// predictResponse объединяет обе схемы ответа сервиса:
// {image, statistics{...}} и плоскую {result_image, area_km2, confidence, ...}
type predictResponse struct {
	Image       string           `json:"image"`
	ResultImage string           `json:"result_image"`
	Statistics  *statisticsBlock `json:"statistics"`

	AreaKm2         *float64 `json:"area_km2"`
	Confidence      *float64 `json:"confidence"`
	NumPixels       *int64   `json:"num_pixels"`
	CoveragePercent *float64 `json:"coverage_percent"`
	SpillDetected   *bool    `json:"spill_detected"`
	Status          string   `json:"status"`
	Message         string   `json:"message"`
	Error           string   `json:"error"`
}

type statisticsBlock struct {
	SpillAreaKm2       float64 `json:"spill_area_km2"`
	Confidence         float64 `json:"confidence"`
	PixelCount         int64   `json:"pixel_count"`
	CoveragePercentage float64 `json:"coverage_percentage"`
	Timestamp          string  `json:"timestamp"`
}

// decodeResponse один раз определяет вид ответа и разбирает его
func decodeResponse(contentType string, data []byte) (*entity.RenderResult, error) {
	mt := mediaType(contentType, data)

	switch {
	case strings.HasPrefix(mt, "image/"):
		img, err := decodeImage(data)
		if err != nil {
			return nil, err
		}
		return &entity.RenderResult{Kind: entity.ResponseBinary, Image: img}, nil

	case isJSON(mt, data):
		return decodeJSON(data)

	default:
		// TIFF и прочее, что не распознаётся по сигнатуре
		img, err := decodeImage(data)
		if err != nil {
			return nil, entity.NewDetectionError(entity.FailureDecode, fmt.Errorf("unsupported content type %q", mt))
		}
		return &entity.RenderResult{Kind: entity.ResponseBinary, Image: img}, nil
	}
}

func isJSON(mt string, data []byte) bool {
	if mt == "application/json" || strings.HasSuffix(mt, "+json") {
		return true
	}
	trimmed := bytes.TrimSpace(data)
	return strings.HasPrefix(mt, "text/") && len(trimmed) > 0 && trimmed[0] == '{'
}

func decodeJSON(data []byte) (*entity.RenderResult, error) {
	var payload predictResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, entity.NewDetectionError(entity.FailureDecode, fmt.Errorf("decode json: %w", err))
	}

	stats, ok := payload.statistics()
	if !ok {
		if payload.Error != "" {
			return nil, &entity.DetectionError{Kind: entity.FailureBackend, Detail: payload.Error}
		}
		return nil, entity.NewDetectionError(entity.FailureDecode, fmt.Errorf("response has no statistics"))
	}

	encoded := payload.Image
	if encoded == "" {
		encoded = payload.ResultImage
	}
	if encoded == "" {
		return &entity.RenderResult{Kind: entity.ResponseJSONOnly, Stats: stats}, nil
	}

	raw, err := decodeBase64(encoded)
	if err != nil {
		return nil, entity.NewDetectionError(entity.FailureDecode, fmt.Errorf("decode base64 image: %w", err))
	}
	img, err := decodeImage(raw)
	if err != nil {
		return nil, err
	}
	return &entity.RenderResult{Kind: entity.ResponseJSONWithImage, Image: img, Stats: stats}, nil
}

// statistics собирает метрики из вложенного блока или из плоских полей
func (p *predictResponse) statistics() (*entity.Statistics, bool) {
	if p.Statistics != nil {
		return &entity.Statistics{
			SpillAreaKm2:       p.Statistics.SpillAreaKm2,
			Confidence:         p.Statistics.Confidence,
			PixelCount:         p.Statistics.PixelCount,
			CoveragePercentage: p.Statistics.CoveragePercentage,
			Timestamp:          p.Statistics.Timestamp,
			SpillDetected:      p.SpillDetected,
			Status:             p.Status,
			Message:            p.Message,
		}, true
	}

	if p.AreaKm2 == nil && p.NumPixels == nil && p.CoveragePercent == nil {
		return nil, false
	}

	s := &entity.Statistics{
		SpillDetected: p.SpillDetected,
		Status:        p.Status,
		Message:       p.Message,
	}
	if p.AreaKm2 != nil {
		s.SpillAreaKm2 = *p.AreaKm2
	}
	if p.NumPixels != nil {
		s.PixelCount = *p.NumPixels
	}
	if p.CoveragePercent != nil {
		s.CoveragePercentage = *p.CoveragePercent
	}
	if p.Confidence != nil {
		// В плоской схеме уверенность задана долей 0..1
		s.Confidence = fractionToPercent(*p.Confidence)
	}
	return s, true
}

func fractionToPercent(v float64) float64 {
	if v < 0 || v > 1 {
		return v
	}
	// Округление до десятых убирает хвосты вида 87.00000000000001
	return float64(int64(v*1000+0.5)) / 10
}

// decodeBase64 принимает как чистый base64, так и data URL
func decodeBase64(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, fmt.Errorf("malformed data url")
		}
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	return raw, err
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, entity.NewDetectionError(entity.FailureDecode, fmt.Errorf("decode image: %w", err))
	}
	return img, nil
}

package entity

import (
	"image"
	"strconv"
)

// ResponseKind форма ответа сервиса детекции
type ResponseKind int

const (
	ResponseBinary        ResponseKind = iota + 1 // image/* в теле ответа
	ResponseJSONWithImage                         // JSON с base64-картинкой и статистикой
	ResponseJSONOnly                              // JSON только со статистикой
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseBinary:
		return "binary"
	case ResponseJSONWithImage:
		return "json_with_image"
	case ResponseJSONOnly:
		return "json_only"
	}
	return "unknown"
}

// Statistics сводка по найденному разливу
type Statistics struct {
	SpillAreaKm2       float64 // площадь разлива, км²
	Confidence         float64 // уверенность, %
	PixelCount         int64   // число пикселей разлива
	CoveragePercentage float64 // доля покрытия снимка, %

	SpillDetected *bool  // флаг обнаружения, если сервис его вернул
	Status        string // например "HIGH RISK"
	Message       string
	Timestamp     string
}

// RenderResult результат детекции, который ещё предстоит отрисовать
type RenderResult struct {
	Kind  ResponseKind
	Image image.Image
	Stats *Statistics
}

// HasImage сообщает, есть ли в результате картинка
func (r *RenderResult) HasImage() bool {
	return r != nil && r.Image != nil
}

// Metrics отформатированные значения для полей вывода
type Metrics struct {
	Area       string
	Confidence string
	Count      string
	Coverage   string
}

// IsZero сообщает, что все поля пустые
func (m Metrics) IsZero() bool {
	return m == Metrics{}
}

// FormatMetrics переводит статистику в строки для отображения.
// Пример: 2.5 -> "2.5 km²", 87 -> "87%", 1250 -> "1250", 3.2 -> "3.2%".
func FormatMetrics(s Statistics) Metrics {
	return Metrics{
		Area:       formatFloat(s.SpillAreaKm2) + " km²",
		Confidence: formatFloat(s.Confidence) + "%",
		Count:      strconv.FormatInt(s.PixelCount, 10),
		Coverage:   formatFloat(s.CoveragePercentage) + "%",
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// HealthStatus ответ /health сервиса детекции
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput спутниковый снимок не выбран
	ErrMissingInput = errors.New("missing input: satellite image is required")
	// ErrSubmissionInProgress предыдущая отправка ещё не завершилась
	ErrSubmissionInProgress = errors.New("submission already in progress")
	// ErrDetectionFailed общая причина для всех ошибок детекции
	ErrDetectionFailed = errors.New("detection failed")
)

// FailureKind причина неудачной детекции
type FailureKind string

const (
	FailureNetwork FailureKind = "network_unreachable"
	FailureBackend FailureKind = "backend_error"
	FailureDecode  FailureKind = "decode_error"
	FailureTimeout FailureKind = "timeout"
)

// DetectionError ошибка обращения к сервису детекции
type DetectionError struct {
	Kind   FailureKind
	Status int    // HTTP-статус для FailureBackend
	Detail string // сообщение сервиса, если есть
	Err    error
}

func (e *DetectionError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrDetectionFailed, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DetectionError) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать через errors.Is(err, ErrDetectionFailed)
func (e *DetectionError) Is(target error) bool {
	return target == ErrDetectionFailed
}

// NewDetectionError создаёт ошибку детекции указанного вида
func NewDetectionError(kind FailureKind, err error) *DetectionError {
	return &DetectionError{Kind: kind, Err: err}
}

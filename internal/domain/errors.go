package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("resource not found")

// ErrUnauthenticated covers bad credentials and unusable tokens alike.
var ErrUnauthenticated = errors.New("invalid credentials")

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every offending field of a rejected record.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field failure.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no field failed, so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

type InsufficientStockError struct {
	Available float64 `json:"available"`
	Requested float64 `json:"requested"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: available %s L, requested %s L",
		liters(e.Available), liters(e.Requested))
}

type CapacityExceededError struct {
	Capacity  float64 `json:"capacity"`
	Current   float64 `json:"current"`
	Requested float64 `json:"requested"`
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded: capacity %s L, current stock %s L, requested %s L, max receivable %s L",
		liters(e.Capacity), liters(e.Current), liters(e.Requested), liters(e.Capacity-e.Current))
}

// AuthorizationError carries the attempted action for logs only; the
// message shown to callers stays generic.
type AuthorizationError struct {
	Action string
}

func (e *AuthorizationError) Error() string {
	return "not authorized to perform this action"
}

type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func liters(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Reason maps an error to a short label for metrics and logs.
func Reason(err error) string {
	var (
		validation *ValidationError
		stock      *InsufficientStockError
		capacity   *CapacityExceededError
		authz      *AuthorizationError
		configErr  *ConfigurationError
		conflict   *ConflictError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &stock):
		return "insufficient_stock"
	case errors.As(err, &capacity):
		return "capacity_exceeded"
	case errors.As(err, &authz):
		return "unauthorized"
	case errors.As(err, &configErr):
		return "configuration"
	case errors.As(err, &conflict):
		return "conflict"
	default:
		return "internal"
	}
}

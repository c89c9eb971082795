package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound возвращается, если магазин, товар или заказ не найден.
	ErrNotFound = errors.New("not found")
	// ErrForbidden возвращается, если сторона не является покупателем или продавцом заказа.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState возвращается при недопустимом переходе статуса.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation возвращается при некорректных входных данных.
	ErrValidation = errors.New("validation failed")
	// ErrVersionConflict возвращается, если запись изменилась после чтения.
	ErrVersionConflict = errors.New("version conflict")
	// ErrStoreExists возвращается при попытке завести второй магазин.
	ErrStoreExists = errors.New("store already exists")
)

// StateError содержит текущий статус заказа для диагностики недопустимого перехода.
type StateError struct {
	Current OrderStatus
	Target  OrderStatus
}

func (e *StateError) Error() string {
	if e.Target == OrderStatusCancelled {
		return fmt.Sprintf("order cannot be cancelled in status %q", e.Current)
	}
	return fmt.Sprintf("order in status %q cannot move to %q", e.Current, e.Target)
}

// Is позволяет сравнивать ошибку с ErrInvalidState через errors.Is.
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

// ValidationError описывает некорректное поле запроса.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is позволяет сравнивать ошибку с ErrValidation через errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid создаёт ошибку валидации для поля.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

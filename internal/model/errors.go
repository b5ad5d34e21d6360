package model

import "errors"

// Виды ошибок ядра. Сервисы оборачивают их через %w, вызывающий код проверяет errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrInternal        = errors.New("internal error")
)

package service

import "errors"

// Errores expuestos a la capa HTTP. Los servicios los envuelven con %w y el
// detalle; los handlers los traducen a status codes con errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthenticated    = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrPublishFailed      = errors.New("publish failed")
	ErrRateLimited        = errors.New("rate limited")
)

package broadcast

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured indica que el proveedor de broadcast no tiene credenciales.
var ErrNotConfigured = errors.New("broadcast provider not configured")

// Provider publica eventos y firma suscripciones a canales privados.
type Provider interface {
	Configured() bool
	Publish(ctx context.Context, channel, event string, payload any) error
	Authorize(socketID, channel string) ([]byte, error)
}

type disabledProvider struct {
	reason string
}

// NewDisabled devuelve un proveedor que rechaza toda operacion. Se usa cuando
// faltan credenciales, para que los endpoints respondan 503 en vez de caer.
func NewDisabled(reason string) Provider {
	return &disabledProvider{reason: reason}
}

func (p *disabledProvider) Configured() bool { return false }

func (p *disabledProvider) Publish(_ context.Context, _ string, _ string, _ any) error {
	return p.err()
}

func (p *disabledProvider) Authorize(_ string, _ string) ([]byte, error) {
	return nil, p.err()
}

func (p *disabledProvider) err() error {
	if p.reason == "" {
		return ErrNotConfigured
	}
	return fmt.Errorf("%w: %s", ErrNotConfigured, p.reason)
}

package broadcast

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	pusher "github.com/pusher/pusher-http-go/v5"
)

// PusherConfig son las credenciales de la app de Pusher Channels.
type PusherConfig struct {
	AppID   string
	Key     string
	Secret  string
	Cluster string
	Timeout time.Duration
}

func (c PusherConfig) complete() bool {
	return strings.TrimSpace(c.AppID) != "" &&
		strings.TrimSpace(c.Key) != "" &&
		strings.TrimSpace(c.Secret) != "" &&
		strings.TrimSpace(c.Cluster) != ""
}

type pusherAPI interface {
	Trigger(channel string, eventName string, data interface{}) error
	AuthorizePrivateChannel(params []byte) ([]byte, error)
}

// Pusher adapta pusher-http-go a Provider.
type Pusher struct {
	client pusherAPI
}

// NewPusher arma el cliente HTTP de Pusher. Con credenciales incompletas
// devuelve el proveedor deshabilitado.
func NewPusher(cfg PusherConfig) Provider {
	if !cfg.complete() {
		return NewDisabled("pusher credentials missing")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Pusher{
		client: &pusher.Client{
			AppID:      strings.TrimSpace(cfg.AppID),
			Key:        strings.TrimSpace(cfg.Key),
			Secret:     strings.TrimSpace(cfg.Secret),
			Cluster:    strings.TrimSpace(cfg.Cluster),
			Secure:     true,
			HTTPClient: &http.Client{Timeout: timeout},
		},
	}
}

func (p *Pusher) Configured() bool {
	return p != nil && p.client != nil
}

// Publish dispara el evento. La libreria no acepta contexto, asi que se
// espera el resultado o la cancelacion, lo que ocurra primero.
func (p *Pusher) Publish(ctx context.Context, channel, event string, payload any) error {
	if !p.Configured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- p.client.Trigger(channel, event, payload)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("pusher trigger %s: %w", channel, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Authorize devuelve {"auth":"<key>:<firma>"} para el socket y canal.
func (p *Pusher) Authorize(socketID, channel string) ([]byte, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}
	params := url.Values{
		"socket_id":    {socketID},
		"channel_name": {channel},
	}
	payload, err := p.client.AuthorizePrivateChannel([]byte(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("pusher authorize: %w", err)
	}
	return payload, nil
}

package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del relay. Se construye una sola vez en main
// y se pasa por valor a cada componente.
type Config struct {
	HTTPPort       string        `env:"HTTP_PORT" envDefault:"8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	ConversationSecret string        `env:"CONVERSATION_SECRET"`
	TokenMaxAge        time.Duration `env:"TOKEN_MAX_AGE" envDefault:"0s"`

	AuthJWTSecret     string `env:"AUTH_JWT_SECRET"`
	AuthJWTIssuer     string `env:"AUTH_JWT_ISSUER" envDefault:"chat-relay"`
	AuthJWTTTLMinutes int    `env:"AUTH_JWT_TTL_MINUTES" envDefault:"60"`

	PusherAppID   string        `env:"PUSHER_APP_ID"`
	PusherKey     string        `env:"PUSHER_KEY"`
	PusherSecret  string        `env:"PUSHER_SECRET"`
	PusherCluster string        `env:"PUSHER_CLUSTER"`
	PusherTimeout time.Duration `env:"PUSHER_TIMEOUT" envDefault:"5s"`

	ChannelPrefix   string `env:"CHANNEL_PREFIX" envDefault:"chat"`
	PublishFallback bool   `env:"PUBLISH_FALLBACK" envDefault:"false"`
	WebhookSecret   string `env:"WEBHOOK_SECRET"`

	SessionRateLimit  int           `env:"SESSION_RATE_LIMIT" envDefault:"30"`
	SessionRateWindow time.Duration `env:"SESSION_RATE_WINDOW" envDefault:"1m"`

	RedisAddr        string `env:"REDIS_ADDR"`
	RedisPassword    string `env:"REDIS_PASSWORD"`
	RedisDB          int    `env:"REDIS_DB" envDefault:"0"`
	ReplyStreamTopic string `env:"REPLY_STREAM_TOPIC"`

	SSMParamPrefix string `env:"SSM_PARAM_PREFIX"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.ChannelPrefix = strings.TrimSpace(cfg.ChannelPrefix)
	if cfg.ChannelPrefix == "" {
		cfg.ChannelPrefix = "chat"
	}
	return &cfg, nil
}

// PusherConfigured indica si hay credenciales completas del proveedor de broadcast.
func (c Config) PusherConfigured() bool {
	return c.PusherAppID != "" && c.PusherKey != "" && c.PusherSecret != "" && c.PusherCluster != ""
}

// ErrSecretNotFound lo devuelve un SecretGetter cuando el parametro no existe.
var ErrSecretNotFound = errors.New("secret not found")

// SecretGetter resuelve secretos por nombre (p.ej. AWS SSM Parameter Store).
type SecretGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// WithSecrets completa los secretos vacios leyendolos de getter bajo SSMParamPrefix.
// Los valores ya presentes en el entorno tienen prioridad.
func (c Config) WithSecrets(ctx context.Context, getter SecretGetter) (Config, error) {
	prefix := strings.TrimRight(strings.TrimSpace(c.SSMParamPrefix), "/")
	if prefix == "" || getter == nil {
		return c, nil
	}

	targets := []struct {
		name string
		dst  *string
	}{
		{"conversation-secret", &c.ConversationSecret},
		{"auth-jwt-secret", &c.AuthJWTSecret},
		{"pusher-secret", &c.PusherSecret},
		{"webhook-secret", &c.WebhookSecret},
		{"redis-password", &c.RedisPassword},
	}
	for _, t := range targets {
		if *t.dst != "" {
			continue
		}
		val, err := getter.GetParameter(ctx, prefix+"/"+t.name)
		if err != nil {
			if errors.Is(err, ErrSecretNotFound) {
				continue
			}
			return c, fmt.Errorf("load secret %s: %w", t.name, err)
		}
		*t.dst = strings.TrimSpace(val)
	}
	return c, nil
}

// ClientConfig agrupa la configuración del cliente de terminal (relayctl).
type ClientConfig struct {
	RelayBaseURL   string `env:"RELAY_BASE_URL" envDefault:"http://localhost:8080"`
	BearerToken    string `env:"RELAY_BEARER_TOKEN"`
	PusherKey      string `env:"PUSHER_KEY"`
	PusherCluster  string `env:"PUSHER_CLUSTER"`
	PusherWSURL    string `env:"PUSHER_WS_URL"`
	ChannelPrefix  string `env:"CHANNEL_PREFIX" envDefault:"chat"`
	WebhookURL     string `env:"N8N_WEBHOOK_URL"`
	WebhookToken   string `env:"N8N_WEBHOOK_TOKEN"`
	Username       string `env:"CHAT_USERNAME" envDefault:"User"`
	ConversationID string `env:"CONVERSATION_ID"`

	AuthJWTSecret string `env:"AUTH_JWT_SECRET"`
	AuthJWTIssuer string `env:"AUTH_JWT_ISSUER" envDefault:"chat-relay"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

// LoadClientConfig carga la configuración del cliente desde variables de entorno.
func LoadClientConfig() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

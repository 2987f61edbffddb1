package config

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockSecretGetter struct {
	values map[string]string
	err    error
	calls  []string
}

func (m *mockSecretGetter) GetParameter(_ context.Context, name string) (string, error) {
	m.calls = append(m.calls, name)
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[name]
	if !ok {
		return "", ErrSecretNotFound
	}
	return v, nil
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CHANNEL_PREFIX", "  ")
	t.Setenv("PUSHER_APP_ID", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port, got %q", cfg.HTTPPort)
	}
	if cfg.ChannelPrefix != "chat" {
		t.Fatalf("expected default channel prefix, got %q", cfg.ChannelPrefix)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("expected 10s request timeout, got %v", cfg.RequestTimeout)
	}
	if cfg.TokenMaxAge != 0 {
		t.Fatalf("expected token expiry disabled by default, got %v", cfg.TokenMaxAge)
	}
	if cfg.PusherConfigured() {
		t.Fatalf("expected pusher unconfigured")
	}
}

func TestConfigPusherConfigured(t *testing.T) {
	cfg := Config{PusherAppID: "1", PusherKey: "k", PusherSecret: "s", PusherCluster: "eu"}
	if !cfg.PusherConfigured() {
		t.Fatalf("expected pusher configured")
	}
	cfg.PusherCluster = ""
	if cfg.PusherConfigured() {
		t.Fatalf("expected missing cluster to disable pusher")
	}
}

func TestConfigWithSecrets_FillsOnlyEmptyValues(t *testing.T) {
	getter := &mockSecretGetter{values: map[string]string{
		"/relay/prod/conversation-secret": " from-ssm ",
		"/relay/prod/pusher-secret":       "pusher-from-ssm",
	}}
	cfg := Config{SSMParamPrefix: "/relay/prod/", PusherSecret: "from-env"}

	out, err := cfg.WithSecrets(context.Background(), getter)
	if err != nil {
		t.Fatalf("with secrets: %v", err)
	}
	if out.ConversationSecret != "from-ssm" {
		t.Fatalf("expected trimmed ssm secret, got %q", out.ConversationSecret)
	}
	if out.PusherSecret != "from-env" {
		t.Fatalf("expected env value to win, got %q", out.PusherSecret)
	}
	if out.WebhookSecret != "" {
		t.Fatalf("expected missing parameter to be skipped, got %q", out.WebhookSecret)
	}
	if cfg.ConversationSecret != "" {
		t.Fatalf("expected original config untouched")
	}
}

func TestConfigWithSecrets_PropagatesErrors(t *testing.T) {
	getter := &mockSecretGetter{err: errors.New("throttled")}
	cfg := Config{SSMParamPrefix: "/relay"}
	if _, err := cfg.WithSecrets(context.Background(), getter); err == nil {
		t.Fatalf("expected error from getter")
	}
}

func TestConfigWithSecrets_NoPrefixIsNoop(t *testing.T) {
	getter := &mockSecretGetter{}
	if _, err := (Config{}).WithSecrets(context.Background(), getter); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(getter.calls) != 0 {
		t.Fatalf("expected no lookups, got %v", getter.calls)
	}
}

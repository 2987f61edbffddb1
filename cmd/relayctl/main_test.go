package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"chat-relay/internal/client"
	"chat-relay/internal/config"
	"chat-relay/internal/domain"
	"chat-relay/internal/service"
)

func TestMintAccessToken(t *testing.T) {
	if _, err := mintAccessToken("", "chat-relay", time.Hour, domain.Caller{ID: "u1"}); err == nil {
		t.Fatalf("expected error without secret")
	}
	token, err := mintAccessToken("secret", "chat-relay", time.Hour, domain.Caller{ID: "u1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	caller, err := service.NewJWTService("secret", "chat-relay", time.Hour).Resolve(token)
	if err != nil || caller.ID != "u1" {
		t.Fatalf("expected token to resolve to u1, got %+v (%v)", caller, err)
	}
}

func TestBuildManager_Validation(t *testing.T) {
	base := config.ClientConfig{
		RelayBaseURL:  "http://localhost:8080",
		PusherKey:     "key",
		PusherCluster: "us2",
		WebhookURL:    "http://n8n.local/webhook/chat",
		BearerToken:   "access",
		Username:      "ana",
	}

	if _, err := buildManager(&base, zap.NewNop()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	noPusher := base
	noPusher.PusherKey = ""
	if _, err := buildManager(&noPusher, zap.NewNop()); err == nil {
		t.Fatalf("expected error without pusher key")
	}

	wsOverride := noPusher
	wsOverride.PusherWSURL = "ws://127.0.0.1:6001/app/key"
	if _, err := buildManager(&wsOverride, zap.NewNop()); err != nil {
		t.Fatalf("expected PUSHER_WS_URL to replace key/cluster, got %v", err)
	}

	noWebhook := base
	noWebhook.WebhookURL = ""
	if _, err := buildManager(&noWebhook, zap.NewNop()); err == nil {
		t.Fatalf("expected error without webhook url")
	}

	noBearer := base
	noBearer.BearerToken = ""
	if _, err := buildManager(&noBearer, zap.NewNop()); err == nil {
		t.Fatalf("expected error without bearer or jwt secret")
	}
	noBearer.AuthJWTSecret = "secret"
	if _, err := buildManager(&noBearer, zap.NewNop()); err != nil {
		t.Fatalf("expected locally minted bearer, got %v", err)
	}
}

func TestHandleLine_Commands(t *testing.T) {
	manager := client.NewSessionManager(zap.NewNop(), nil, nil, "", "ana")
	var out bytes.Buffer

	if quit, _ := handleLine(context.Background(), manager, &out, " /quit "); !quit {
		t.Fatalf("expected /quit to stop")
	}
	if quit, restarted := handleLine(context.Background(), manager, &out, "   "); quit || restarted {
		t.Fatalf("blank line must be ignored")
	}
	if quit, _ := handleLine(context.Background(), manager, &out, "/history"); quit {
		t.Fatalf("/history must not quit")
	}

	out.Reset()
	handleLine(context.Background(), manager, &out, "hola")
	if !strings.Contains(out.String(), "session not started") {
		t.Fatalf("expected send error before session start, got %q", out.String())
	}
}

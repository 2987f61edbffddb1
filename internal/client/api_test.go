package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAPI_InitSessionAndAuthorize(t *testing.T) {
	var authBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"error":"unauthorized"}`))
			return
		}
		switch r.URL.Path {
		case "/session-init":
			_, _ = w.Write([]byte(`{"success":true,"conversationToken":"tok","issuedAtMillis":1700000000000,"iat":1700000000000,"channel":"private-chat-abc123"}`))
		case "/pusher-auth":
			_ = json.NewDecoder(r.Body).Decode(&authBody)
			_, _ = w.Write([]byte(`{"auth":"key:sig"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	api := NewAPI(srv.URL+"/", "access", nil)
	session, err := api.InitSession(context.Background(), " abc123 ")
	if err != nil {
		t.Fatalf("init session: %v", err)
	}
	if session.Token != "tok" || session.IssuedAtMillis != 1700000000000 || session.Channel != "private-chat-abc123" || session.ConversationID != "abc123" {
		t.Fatalf("unexpected session %+v", session)
	}

	auth, err := api.AuthorizeChannel(context.Background(), "123.456", session)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if auth != "key:sig" {
		t.Fatalf("unexpected auth %q", auth)
	}
	if authBody["socket_id"] != "123.456" || authBody["channel_name"] != "private-chat-abc123" ||
		authBody["conversationToken"] != "tok" || authBody["iat"] != float64(1700000000000) {
		t.Fatalf("unexpected pusher-auth body %v", authBody)
	}
}

func TestAPI_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":"invalid input: conversation id too short"}`))
	}))
	defer srv.Close()

	_, err := NewAPI(srv.URL, "access", nil).InitSession(context.Background(), "ab")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest || !strings.Contains(statusErr.Message, "too short") {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
}

func TestAPI_PostReplyUsesWebhookSecret(t *testing.T) {
	var gotAuth string
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	if err := NewAPI(srv.URL, "access", nil).PostReply(context.Background(), "hook", "abc123", "hola"); err != nil {
		t.Fatalf("post reply: %v", err)
	}
	if gotAuth != "Bearer hook" {
		t.Fatalf("expected webhook secret as bearer, got %q", gotAuth)
	}
	if body["conversationId"] != "abc123" || body["reply"] != "hola" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestWorkflowWebhook_Send(t *testing.T) {
	var got OutboundMessage
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	hook := NewWorkflowWebhook(srv.URL, "n8n-token", nil)
	msg := OutboundMessage{ConversationID: "abc123", Username: "ana", Text: "hola", Timestamp: 1700000000000}
	if err := hook.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got != msg {
		t.Fatalf("unexpected body %+v", got)
	}
	if gotAuth != "Bearer n8n-token" {
		t.Fatalf("unexpected auth %q", gotAuth)
	}
}

func TestWorkflowWebhook_NonSuccessBoundedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 3*errorBodyLimit)))
	}))
	defer srv.Close()

	err := NewWorkflowWebhook(srv.URL, "", nil).Send(context.Background(), OutboundMessage{ConversationID: "abc123", Text: "hola"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected status %d", statusErr.StatusCode)
	}
	if len(statusErr.Message) > errorBodyLimit {
		t.Fatalf("error body should be bounded, got %d bytes", len(statusErr.Message))
	}
}

func TestWorkflowWebhook_NotConfigured(t *testing.T) {
	if err := NewWorkflowWebhook("  ", "", nil).Send(context.Background(), OutboundMessage{}); err == nil {
		t.Fatalf("expected error without url")
	}
}

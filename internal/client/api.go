package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const errorBodyLimit = 4096

// StatusError es una respuesta no 2xx del relay o del webhook.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Message)
}

// Session es lo que devuelve session-init.
type Session struct {
	ConversationID string
	Token          string
	IssuedAtMillis int64
	Channel        string
}

// API habla con los endpoints HTTP del relay.
type API struct {
	baseURL string
	bearer  string
	client  *http.Client
}

func NewAPI(baseURL, bearer string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		bearer:  strings.TrimSpace(bearer),
		client:  httpClient,
	}
}

// InitSession pide un token de conversacion.
func (a *API) InitSession(ctx context.Context, conversationID string) (Session, error) {
	var out struct {
		Success           bool   `json:"success"`
		ConversationToken string `json:"conversationToken"`
		IssuedAtMillis    int64  `json:"issuedAtMillis"`
		Channel           string `json:"channel"`
	}
	body := map[string]string{"conversationId": conversationID}
	if err := a.postJSON(ctx, "/session-init", a.bearer, body, &out); err != nil {
		return Session{}, fmt.Errorf("session-init: %w", err)
	}
	if out.ConversationToken == "" || out.IssuedAtMillis <= 0 {
		return Session{}, fmt.Errorf("session-init: incomplete response")
	}
	return Session{
		ConversationID: strings.TrimSpace(conversationID),
		Token:          out.ConversationToken,
		IssuedAtMillis: out.IssuedAtMillis,
		Channel:        out.Channel,
	}, nil
}

// AuthorizeChannel obtiene la firma "auth" para suscribir el socket.
func (a *API) AuthorizeChannel(ctx context.Context, socketID string, session Session) (string, error) {
	body := map[string]any{
		"socket_id":         socketID,
		"channel_name":      session.Channel,
		"conversationId":    session.ConversationID,
		"conversationToken": session.Token,
		"iat":               session.IssuedAtMillis,
	}
	var out struct {
		Auth string `json:"auth"`
	}
	if err := a.postJSON(ctx, "/pusher-auth", a.bearer, body, &out); err != nil {
		return "", fmt.Errorf("pusher-auth: %w", err)
	}
	if out.Auth == "" {
		return "", fmt.Errorf("pusher-auth: empty auth")
	}
	return out.Auth, nil
}

// PostReply simula al workflow entregando una respuesta.
func (a *API) PostReply(ctx context.Context, webhookSecret, conversationID, reply string) error {
	body := map[string]string{"conversationId": conversationID, "reply": reply}
	if err := a.postJSON(ctx, "/receive-response", webhookSecret, body, nil); err != nil {
		return fmt.Errorf("receive-response: %w", err)
	}
	return nil
}

func (a *API) postJSON(ctx context.Context, path, bearer string, in any, out any) error {
	bodyBytes, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer = strings.TrimSpace(bearer); bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readStatusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readStatusError usa el campo "error" del relay si existe, o un extracto del cuerpo.
func readStatusError(resp *http.Response) error {
	buf, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	var probe struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(buf))
	if err := json.Unmarshal(buf, &probe); err == nil && probe.Error != "" {
		msg = probe.Error
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}

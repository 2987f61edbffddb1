package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OutboundMessage es el cuerpo que recibe el webhook del workflow.
type OutboundMessage struct {
	ConversationID string `json:"conversationId"`
	Username       string `json:"username"`
	Text           string `json:"text"`
	Timestamp      int64  `json:"timestamp"`
}

// WorkflowWebhook envia los mensajes del usuario al workflow de n8n.
type WorkflowWebhook struct {
	url    string
	token  string
	client *http.Client
}

func NewWorkflowWebhook(url, token string, httpClient *http.Client) *WorkflowWebhook {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &WorkflowWebhook{
		url:    strings.TrimSpace(url),
		token:  strings.TrimSpace(token),
		client: httpClient,
	}
}

func (w *WorkflowWebhook) Send(ctx context.Context, msg OutboundMessage) error {
	if w == nil || w.url == "" {
		return errors.New("workflow webhook url not configured")
	}
	bodyBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal webhook message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: %w", readStatusError(resp))
	}
	return nil
}

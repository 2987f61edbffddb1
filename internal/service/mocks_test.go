package service

import (
	"context"
	"errors"
	"sync"

	"chat-relay/internal/domain"
)

type mockAuthenticator struct {
	callers map[string]domain.Caller
	err     error
}

func (m *mockAuthenticator) Resolve(credential string) (domain.Caller, error) {
	if m.err != nil {
		return domain.Caller{}, m.err
	}
	caller, ok := m.callers[credential]
	if !ok {
		return domain.Caller{}, ErrJWTInvalid
	}
	return caller, nil
}

func validAuth() *mockAuthenticator {
	return &mockAuthenticator{callers: map[string]domain.Caller{
		"good-token": {ID: "u1", Username: "ana"},
	}}
}

type mockGranter struct {
	configured  bool
	payload     []byte
	err         error
	calls       int
	lastSocket  string
	lastChannel string
}

func (m *mockGranter) Configured() bool { return m.configured }

func (m *mockGranter) Authorize(socketID, channel string) ([]byte, error) {
	m.calls++
	m.lastSocket = socketID
	m.lastChannel = channel
	if m.err != nil {
		return nil, m.err
	}
	return m.payload, nil
}

type publishCall struct {
	channel string
	event   string
	payload any
}

type mockPublisher struct {
	mu         sync.Mutex
	configured bool
	failOn     map[string]error
	calls      []publishCall
}

func (m *mockPublisher) Configured() bool { return m.configured }

func (m *mockPublisher) Publish(_ context.Context, channel, event string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, publishCall{channel: channel, event: event, payload: payload})
	if err, ok := m.failOn[channel]; ok {
		return err
	}
	return nil
}

func (m *mockPublisher) channels() map[string]publishCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]publishCall, len(m.calls))
	for _, c := range m.calls {
		out[c.channel] = c
	}
	return out
}

type mockMirror struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (m *mockMirror) Mirror(_ context.Context, conversationID string, _ domain.ReplyEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, conversationID)
	return m.err
}

type denyLimiter struct{ keys []string }

func (d *denyLimiter) Allow(key string) bool {
	d.keys = append(d.keys, key)
	return false
}

var errProviderDown = errors.New("provider down")

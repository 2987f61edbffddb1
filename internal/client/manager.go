package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chat-relay/internal/domain"
)

type sessionAPI interface {
	InitSession(ctx context.Context, conversationID string) (Session, error)
	AuthorizeChannel(ctx context.Context, socketID string, session Session) (string, error)
}

type messageSender interface {
	Send(ctx context.Context, msg OutboundMessage) error
}

// SessionManager mantiene una conversacion: token, suscripcion al canal
// privado, envio al workflow y transcript local.
type SessionManager struct {
	logger     *zap.Logger
	api        sessionAPI
	webhook    messageSender
	socketURL  string
	username   string
	transcript *Transcript
	now        func() time.Time

	mu        sync.Mutex
	session   Session
	socket    *PusherSocket
	onMessage func(domain.Message)
	errs      chan error
}

func NewSessionManager(logger *zap.Logger, api sessionAPI, webhook messageSender, socketURL, username string) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = "User"
	}
	return &SessionManager{
		logger:     logger,
		api:        api,
		webhook:    webhook,
		socketURL:  socketURL,
		username:   username,
		transcript: NewTranscript(),
		now:        time.Now,
		errs:       make(chan error, 16),
	}
}

// OnMessage registra un callback para cada respuesta recibida.
func (m *SessionManager) OnMessage(fn func(domain.Message)) {
	m.mu.Lock()
	m.onMessage = fn
	m.mu.Unlock()
}

// Start pide token, abre el socket y se suscribe al canal privado. Si ya habia
// una sesion la cierra primero; volver a llamar a Start es el reintento.
func (m *SessionManager) Start(ctx context.Context, conversationID string) error {
	cid, err := domain.NormalizeConversationID(conversationID)
	if err != nil {
		return fmt.Errorf("conversation id: %w", err)
	}
	m.closeSocket()

	session, err := m.api.InitSession(ctx, cid)
	if err != nil {
		return err
	}
	if session.Channel == "" {
		return errors.New("session-init returned no channel")
	}

	socket := NewPusherSocket(m.socketURL)
	if err := socket.Connect(ctx); err != nil {
		return err
	}
	auth, err := m.api.AuthorizeChannel(ctx, socket.SocketID(), session)
	if err != nil {
		_ = socket.Close()
		return err
	}
	if err := socket.Subscribe(ctx, session.Channel, auth); err != nil {
		_ = socket.Close()
		return err
	}

	m.mu.Lock()
	m.session = session
	m.socket = socket
	m.mu.Unlock()

	m.logger.Info("subscribed to conversation",
		zap.String("conversation_id", session.ConversationID),
		zap.String("channel", session.Channel),
	)
	go m.pump(socket, session.Channel)
	return nil
}

func (m *SessionManager) pump(socket *PusherSocket, channel string) {
	for {
		select {
		case <-socket.Done():
			return
		case err := <-socket.Errors():
			m.logger.Warn("socket error", zap.Error(err))
			select {
			case m.errs <- err:
			default:
			}
		case ev := <-socket.Events():
			if ev.Channel != channel || ev.Event != domain.ReplyEventName {
				continue
			}
			m.handleReply(ev.Data)
		}
	}
}

func (m *SessionManager) handleReply(data []byte) {
	var ev domain.ReplyEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		m.logger.Warn("invalid reply payload", zap.Error(err))
		return
	}
	if strings.TrimSpace(ev.Text) == "" {
		return
	}
	role := ev.Role
	if role == "" {
		role = domain.RoleAssistant
	}
	createdAt := m.now()
	if ev.Timestamp > 0 {
		createdAt = time.UnixMilli(ev.Timestamp)
	}
	msg := domain.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      ev.Text,
		CreatedAt: createdAt,
	}
	m.transcript.Append(msg)

	m.mu.Lock()
	fn := m.onMessage
	m.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

// Send agrega el mensaje del usuario al transcript y lo envia al workflow.
// Si el envio falla se agrega un aviso del lado del asistente.
func (m *SessionManager) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("message text is required")
	}
	cid := m.ConversationID()
	if cid == "" {
		return errors.New("session not started")
	}

	now := m.now()
	m.transcript.Append(domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleUser,
		Text:      text,
		CreatedAt: now,
	})

	err := m.webhook.Send(ctx, OutboundMessage{
		ConversationID: cid,
		Username:       m.username,
		Text:           text,
		Timestamp:      now.UnixMilli(),
	})
	if err != nil {
		m.transcript.Append(domain.Message{
			ID:        uuid.NewString(),
			Role:      domain.RoleAssistant,
			Text:      "Error sending message: " + err.Error(),
			CreatedAt: m.now(),
		})
		return err
	}
	return nil
}

func (m *SessionManager) ConversationID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.ConversationID
}

func (m *SessionManager) Transcript() []domain.Message {
	return m.transcript.Messages()
}

// Errors entrega errores asincronos del socket.
func (m *SessionManager) Errors() <-chan error {
	return m.errs
}

// Done se cierra cuando el socket actual termina.
func (m *SessionManager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.socket == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return m.socket.Done()
}

func (m *SessionManager) Close() error {
	m.closeSocket()
	return nil
}

func (m *SessionManager) closeSocket() {
	m.mu.Lock()
	socket := m.socket
	m.socket = nil
	m.mu.Unlock()
	if socket != nil {
		_ = socket.Close()
	}
}

// NewConversationID genera "conv_<millis>_<sufijo>".
func NewConversationID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("conv_%d_%s", time.Now().UnixMilli(), suffix)
}

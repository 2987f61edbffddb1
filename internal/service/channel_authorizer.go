package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"chat-relay/internal/domain"
)

// ChannelGranter firma la suscripcion de un socket a un canal privado.
type ChannelGranter interface {
	Configured() bool
	Authorize(socketID, channel string) ([]byte, error)
}

// ChannelAuthRequest agrupa los campos de /pusher-auth tal como llegan.
type ChannelAuthRequest struct {
	Credential     string
	SocketID       string
	ChannelName    string
	ConversationID string
	Token          string
	IssuedAt       string
}

// ChannelAuthorizer decide si un socket puede suscribirse al canal privado de
// una conversacion.
type ChannelAuthorizer struct {
	logger  *zap.Logger
	granter ChannelGranter
	auth    Authenticator
	secret  string
	prefix  string
	maxAge  time.Duration
	now     func() time.Time
}

func NewChannelAuthorizer(logger *zap.Logger, granter ChannelGranter, auth Authenticator, secret, prefix string, maxAge time.Duration) *ChannelAuthorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChannelAuthorizer{
		logger:  logger,
		granter: granter,
		auth:    auth,
		secret:  secret,
		prefix:  prefix,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Authorize devuelve el payload del proveedor sin modificar.
func (a *ChannelAuthorizer) Authorize(ctx context.Context, req ChannelAuthRequest) ([]byte, error) {
	if a == nil || a.granter == nil || !a.granter.Configured() {
		return nil, fmt.Errorf("%w: broadcast provider not configured", ErrServiceUnavailable)
	}
	if _, err := resolveCaller(a.auth, req.Credential); err != nil {
		return nil, err
	}

	socketID := strings.TrimSpace(req.SocketID)
	channel := strings.TrimSpace(req.ChannelName)
	cid := strings.TrimSpace(req.ConversationID)
	token := strings.TrimSpace(req.Token)
	rawIat := strings.TrimSpace(req.IssuedAt)
	if socketID == "" || channel == "" || cid == "" || token == "" || rawIat == "" {
		return nil, fmt.Errorf("%w: socket_id, channel_name, conversationId, conversationToken and iat are required", ErrInvalidInput)
	}
	iat, err := strconv.ParseInt(rawIat, 10, 64)
	if err != nil || iat <= 0 {
		return nil, fmt.Errorf("%w: iat must be a positive integer", ErrInvalidInput)
	}

	if a.secret == "" {
		return nil, fmt.Errorf("%w: conversation secret not configured", ErrServiceUnavailable)
	}
	if !VerifyConversationToken(token, cid, iat, a.secret) {
		return nil, fmt.Errorf("%w: invalid conversation token", ErrForbidden)
	}
	if a.maxAge > 0 && a.now().Sub(time.UnixMilli(iat)) > a.maxAge {
		return nil, fmt.Errorf("%w: conversation token expired", ErrForbidden)
	}
	if channel != domain.PrivateChannel(a.prefix, cid) {
		a.logger.Warn("channel does not match conversation",
			zap.String("channel", channel),
			zap.String("conversation_id", cid),
		)
		return nil, fmt.Errorf("%w: channel does not match conversation", ErrForbidden)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := a.granter.Authorize(socketID, channel)
	if err != nil {
		return nil, fmt.Errorf("authorize channel: %w", err)
	}
	return payload, nil
}

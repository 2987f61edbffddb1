package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"chat-relay/internal/domain"
)

// IssuedSession es la respuesta de session-init.
type IssuedSession struct {
	ConversationID string
	Token          string
	IssuedAtMillis int64
	Channel        string
}

// SessionIssuer emite tokens de conversacion firmados. No guarda estado.
type SessionIssuer struct {
	logger  *zap.Logger
	auth    Authenticator
	limiter RateLimiter
	secret  string
	prefix  string
	now     func() time.Time
}

func NewSessionIssuer(logger *zap.Logger, auth Authenticator, limiter RateLimiter, secret, prefix string) *SessionIssuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionIssuer{
		logger:  logger,
		auth:    auth,
		limiter: limiter,
		secret:  secret,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (s *SessionIssuer) Issue(ctx context.Context, credential, conversationID string) (IssuedSession, error) {
	if s == nil || s.secret == "" {
		return IssuedSession{}, fmt.Errorf("%w: conversation secret not configured", ErrServiceUnavailable)
	}
	caller, err := resolveCaller(s.auth, credential)
	if err != nil {
		return IssuedSession{}, err
	}
	cid, err := domain.NormalizeConversationID(conversationID)
	if err != nil {
		return IssuedSession{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if s.limiter != nil && !s.limiter.Allow(caller.ID) {
		s.logger.Warn("session issuance rate limited", zap.String("caller_id", caller.ID))
		return IssuedSession{}, ErrRateLimited
	}
	if err := ctx.Err(); err != nil {
		return IssuedSession{}, err
	}

	iat := s.now().UnixMilli()
	token, err := NewConversationToken(cid, iat, s.secret)
	if err != nil {
		return IssuedSession{}, fmt.Errorf("sign conversation token: %w", err)
	}
	s.logger.Debug("session issued",
		zap.String("caller_id", caller.ID),
		zap.String("conversation_id", cid),
	)
	return IssuedSession{
		ConversationID: cid,
		Token:          token,
		IssuedAtMillis: iat,
		Channel:        domain.PrivateChannel(s.prefix, cid),
	}, nil
}

// resolveCaller aplica la misma regla de autenticacion en issuer y authorizer.
// Un resolver sin configurar es un problema de despliegue, no del cliente.
func resolveCaller(auth Authenticator, credential string) (domain.Caller, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return domain.Caller{}, fmt.Errorf("%w: missing bearer credential", ErrUnauthenticated)
	}
	if auth == nil {
		return domain.Caller{}, fmt.Errorf("%w: authentication not configured", ErrServiceUnavailable)
	}
	caller, err := auth.Resolve(credential)
	if err != nil {
		if errors.Is(err, ErrJWTNotConfigured) {
			return domain.Caller{}, fmt.Errorf("%w: authentication not configured", ErrServiceUnavailable)
		}
		return domain.Caller{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if strings.TrimSpace(caller.ID) == "" {
		return domain.Caller{}, fmt.Errorf("%w: empty caller", ErrUnauthenticated)
	}
	return caller, nil
}

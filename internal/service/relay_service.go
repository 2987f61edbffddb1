package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chat-relay/internal/domain"
)

// ReplyPublisher publica eventos en el proveedor de broadcast.
type ReplyPublisher interface {
	Configured() bool
	Publish(ctx context.Context, channel, event string, payload any) error
}

// ReplyMirror recibe una copia de cada respuesta publicada.
type ReplyMirror interface {
	Mirror(ctx context.Context, conversationID string, event domain.ReplyEvent) error
}

type RelayInput struct {
	Credential     string
	ConversationID string
	Reply          string
}

// ReplyRelay reenvia las respuestas del workflow al canal de la conversacion.
type ReplyRelay struct {
	logger        *zap.Logger
	publisher     ReplyPublisher
	mirror        ReplyMirror
	webhookSecret string
	prefix        string
	fallback      bool
	now           func() time.Time
}

func NewReplyRelay(logger *zap.Logger, publisher ReplyPublisher, mirror ReplyMirror, webhookSecret, prefix string, fallback bool) *ReplyRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplyRelay{
		logger:        logger,
		publisher:     publisher,
		mirror:        mirror,
		webhookSecret: webhookSecret,
		prefix:        prefix,
		fallback:      fallback,
		now:           time.Now,
	}
}

func (r *ReplyRelay) Relay(ctx context.Context, in RelayInput) error {
	if r == nil {
		return fmt.Errorf("%w: relay not configured", ErrServiceUnavailable)
	}
	if r.webhookSecret != "" {
		credential := strings.TrimSpace(in.Credential)
		if credential == "" {
			return fmt.Errorf("%w: missing webhook credential", ErrUnauthenticated)
		}
		if subtle.ConstantTimeCompare([]byte(credential), []byte(r.webhookSecret)) != 1 {
			return fmt.Errorf("%w: invalid webhook credential", ErrForbidden)
		}
	}

	cid, err := domain.NormalizeConversationID(in.ConversationID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	text := strings.TrimSpace(in.Reply)
	if text == "" {
		return fmt.Errorf("%w: reply is required", ErrInvalidInput)
	}
	if r.publisher == nil || !r.publisher.Configured() {
		return fmt.Errorf("%w: broadcast provider not configured", ErrServiceUnavailable)
	}

	event := domain.NewAssistantReply(text, r.now())
	primary := domain.PrivateChannel(r.prefix, cid)

	// Solo la publicacion primaria decide el resultado.
	var g errgroup.Group
	g.Go(func() error {
		if err := r.publisher.Publish(ctx, primary, domain.ReplyEventName, event); err != nil {
			r.logger.Error("primary publish failed",
				zap.String("channel", primary),
				zap.Error(err),
			)
			return fmt.Errorf("%w: %v", ErrPublishFailed, err)
		}
		return nil
	})
	if r.fallback {
		public := domain.PublicChannel(r.prefix, cid)
		g.Go(func() error {
			if err := r.publisher.Publish(ctx, public, domain.ReplyEventName, event); err != nil {
				r.logger.Warn("fallback publish failed",
					zap.String("channel", public),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	if r.mirror != nil {
		g.Go(func() error {
			if err := r.mirror.Mirror(ctx, cid, event); err != nil {
				r.logger.Warn("reply mirror failed",
					zap.String("conversation_id", cid),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	return g.Wait()
}

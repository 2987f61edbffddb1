package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chat-relay/internal/domain"
)

const conversationMetadataKey = "conversation_id"

// MirroredReply es el mensaje que se agrega al stream de respuestas.
type MirroredReply struct {
	ConversationID string `json:"conversationId"`
	Event          string `json:"event"`
	domain.ReplyEvent
}

// StreamMirror copia cada respuesta publicada a un Redis Stream via Watermill,
// para consumidores fuera del canal de Pusher (auditoria, reprocesos).
type StreamMirror struct {
	publisher message.Publisher
	topic     string
}

func NewStreamMirror(client redis.UniversalClient, topic string, logger *zap.Logger) (*StreamMirror, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("stream topic is required")
	}
	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: rstream.DefaultMarshallerUnmarshaller{},
	}, NewWatermillLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create redis stream publisher: %w", err)
	}
	return &StreamMirror{publisher: pub, topic: topic}, nil
}

func (m *StreamMirror) Mirror(ctx context.Context, conversationID string, event domain.ReplyEvent) error {
	if m == nil || m.publisher == nil {
		return errors.New("stream mirror not configured")
	}
	payload, err := json.Marshal(MirroredReply{
		ConversationID: conversationID,
		Event:          domain.ReplyEventName,
		ReplyEvent:     event,
	})
	if err != nil {
		return fmt.Errorf("marshal mirrored reply: %w", err)
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set(conversationMetadataKey, conversationID)
	msg.SetContext(ctx)
	if err := m.publisher.Publish(m.topic, msg); err != nil {
		return fmt.Errorf("publish to stream %s: %w", m.topic, err)
	}
	return nil
}

func (m *StreamMirror) Close() error {
	if m == nil || m.publisher == nil {
		return nil
	}
	return m.publisher.Close()
}

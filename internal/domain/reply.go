package domain

import "time"

const (
	RoleAssistant = "assistant"
	RoleUser      = "user"

	// ReplyEventName es el evento que el cliente escucha en el canal privado.
	ReplyEventName = "message"
)

// ReplyEvent es el payload publicado en el canal de la conversacion.
type ReplyEvent struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// NewAssistantReply arma el evento de una respuesta del workflow.
func NewAssistantReply(text string, at time.Time) ReplyEvent {
	return ReplyEvent{
		Role:      RoleAssistant,
		Text:      text,
		Timestamp: at.UnixMilli(),
	}
}

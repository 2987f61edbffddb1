package domain

import (
	"errors"
	"strings"
)

const (
	// MinConversationIDLength es el largo minimo tras recortar espacios.
	MinConversationIDLength = 3
	// MaxConversationIDLength deja margen para "private-<prefix>-" dentro del
	// limite de 200 bytes que Pusher impone a los nombres de canal.
	MaxConversationIDLength = 160

	privateChannelPrefix = "private-"
)

var (
	ErrConversationIDTooShort   = errors.New("conversation id too short")
	ErrConversationIDTooLong    = errors.New("conversation id too long")
	ErrConversationIDNoAlnum    = errors.New("conversation id must contain a letter or digit")
	ErrConversationIDBadCharset = errors.New("conversation id contains invalid characters")
)

// NormalizeConversationID recorta el identificador y valida formato.
// El valor devuelto es el canonico para firmar y nombrar canales.
func NormalizeConversationID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if len(id) < MinConversationIDLength {
		return "", ErrConversationIDTooShort
	}
	if len(id) > MaxConversationIDLength {
		return "", ErrConversationIDTooLong
	}
	hasAlnum := false
	for i := 0; i < len(id); i++ {
		ch := id[i]
		switch {
		case isAlnum(ch):
			hasAlnum = true
		case isChannelSymbol(ch):
		default:
			return "", ErrConversationIDBadCharset
		}
	}
	if !hasAlnum {
		return "", ErrConversationIDNoAlnum
	}
	return id, nil
}

// PrivateChannel devuelve "private-<prefix>-<conversationID>".
func PrivateChannel(prefix, conversationID string) string {
	return privateChannelPrefix + PublicChannel(prefix, conversationID)
}

// PublicChannel devuelve el canal de fallback sin autorizacion.
func PublicChannel(prefix, conversationID string) string {
	return prefix + "-" + conversationID
}

func isAlnum(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// Caracteres permitidos por Pusher en nombres de canal, ademas de alfanumericos.
func isChannelSymbol(ch byte) bool {
	switch ch {
	case '_', '-', '=', '@', ',', '.', ';':
		return true
	}
	return false
}

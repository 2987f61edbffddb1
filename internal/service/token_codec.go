package service

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken indica un token de conversacion que no se puede decodificar.
var ErrMalformedToken = errors.New("malformed conversation token")

var (
	tokenEncoding      = base64.RawURLEncoding.Strict()
	tokenSigningMethod = jwt.SigningMethodHS256
)

const tokenSeparator = "."

// tokenPayload fija el orden de campos del payload canonico.
type tokenPayload struct {
	ConversationID string `json:"cid"`
	IssuedAtMillis int64  `json:"iat"`
}

// ConversationToken es un token de sesion decodificado.
type ConversationToken struct {
	ConversationID string
	IssuedAtMillis int64
	Signature      []byte

	payload []byte
}

func canonicalTokenPayload(conversationID string, issuedAtMillis int64) ([]byte, error) {
	return json.Marshal(tokenPayload{ConversationID: conversationID, IssuedAtMillis: issuedAtMillis})
}

// SignConversation calcula el HMAC-SHA256 de {conversationID, issuedAtMillis}.
func SignConversation(conversationID string, issuedAtMillis int64, secret string) ([]byte, error) {
	if secret == "" {
		return nil, errors.New("conversation secret is empty")
	}
	payload, err := canonicalTokenPayload(conversationID, issuedAtMillis)
	if err != nil {
		return nil, fmt.Errorf("marshal token payload: %w", err)
	}
	return tokenSigningMethod.Sign(string(payload), []byte(secret))
}

// EncodeConversationToken serializa payload y firma como "<payload>.<firma>" en base64url sin padding.
func EncodeConversationToken(conversationID string, issuedAtMillis int64, signature []byte) (string, error) {
	payload, err := canonicalTokenPayload(conversationID, issuedAtMillis)
	if err != nil {
		return "", fmt.Errorf("marshal token payload: %w", err)
	}
	return tokenEncoding.EncodeToString(payload) + tokenSeparator + tokenEncoding.EncodeToString(signature), nil
}

// NewConversationToken firma y codifica en un solo paso.
func NewConversationToken(conversationID string, issuedAtMillis int64, secret string) (string, error) {
	sig, err := SignConversation(conversationID, issuedAtMillis, secret)
	if err != nil {
		return "", err
	}
	return EncodeConversationToken(conversationID, issuedAtMillis, sig)
}

func DecodeConversationToken(token string) (ConversationToken, error) {
	parts := strings.Split(token, tokenSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ConversationToken{}, ErrMalformedToken
	}
	payload, err := tokenEncoding.DecodeString(parts[0])
	if err != nil {
		return ConversationToken{}, fmt.Errorf("%w: payload: %v", ErrMalformedToken, err)
	}
	sig, err := tokenEncoding.DecodeString(parts[1])
	if err != nil {
		return ConversationToken{}, fmt.Errorf("%w: signature: %v", ErrMalformedToken, err)
	}
	var p tokenPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return ConversationToken{}, fmt.Errorf("%w: payload json: %v", ErrMalformedToken, err)
	}
	if p.ConversationID == "" {
		return ConversationToken{}, fmt.Errorf("%w: missing conversation id", ErrMalformedToken)
	}
	return ConversationToken{
		ConversationID: p.ConversationID,
		IssuedAtMillis: p.IssuedAtMillis,
		Signature:      sig,
		payload:        payload,
	}, nil
}

// VerifyConversationToken recalcula la firma esperada y compara en tiempo
// constante. Cualquier falla, incluido un token malformado, devuelve false.
func VerifyConversationToken(token, expectedConversationID string, expectedIssuedAtMillis int64, secret string) bool {
	if secret == "" {
		return false
	}
	decoded, err := DecodeConversationToken(token)
	if err != nil {
		return false
	}
	expected, err := canonicalTokenPayload(expectedConversationID, expectedIssuedAtMillis)
	if err != nil {
		return false
	}
	payloadOK := subtle.ConstantTimeCompare(decoded.payload, expected) == 1
	sigErr := tokenSigningMethod.Verify(string(expected), decoded.Signature, []byte(secret))
	return payloadOK && sigErr == nil
}

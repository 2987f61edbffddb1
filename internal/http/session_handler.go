package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-relay/internal/service"
)

type sessionIssuer interface {
	Issue(ctx context.Context, credential, conversationID string) (service.IssuedSession, error)
}

type channelAuthorizer interface {
	Authorize(ctx context.Context, req service.ChannelAuthRequest) ([]byte, error)
}

// SessionHandler atiende session-init y pusher-auth.
type SessionHandler struct {
	logger     *zap.Logger
	issuer     sessionIssuer
	authorizer channelAuthorizer
}

func NewSessionHandler(logger *zap.Logger, issuer sessionIssuer, authorizer channelAuthorizer) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{logger: logger, issuer: issuer, authorizer: authorizer}
}

type sessionInitRequest struct {
	ConversationID string `json:"conversationId" form:"conversationId"`
}

// pusherAuthRequest acepta JSON o form-urlencoded (transporte ajax de pusher-js).
type pusherAuthRequest struct {
	SocketID          string      `json:"socket_id" form:"socket_id"`
	ChannelName       string      `json:"channel_name" form:"channel_name"`
	ConversationID    string      `json:"conversationId" form:"conversationId"`
	ConversationToken string      `json:"conversationToken" form:"conversationToken"`
	Iat               json.Number `json:"iat" form:"iat"`
}

// SessionInit maneja POST /session-init.
func (h *SessionHandler) SessionInit(c *gin.Context) {
	var req sessionInitRequest
	if err := c.ShouldBind(&req); err != nil {
		// El cuerpo invalido cae en la validacion del servicio, despues de config y auth.
		h.logger.Debug("session-init body not bound", zap.Error(err))
		req = sessionInitRequest{}
	}

	session, err := h.issuer.Issue(c.Request.Context(), GetBearer(c), req.ConversationID)
	if err != nil {
		respondError(c, h.logger, "session-init", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"conversationToken": session.Token,
		"issuedAtMillis":    session.IssuedAtMillis,
		"iat":               session.IssuedAtMillis,
		"channel":           session.Channel,
	})
}

// PusherAuth maneja POST /pusher-auth.
func (h *SessionHandler) PusherAuth(c *gin.Context) {
	var req pusherAuthRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Debug("pusher-auth body not bound", zap.Error(err))
		req = pusherAuthRequest{}
	}

	payload, err := h.authorizer.Authorize(c.Request.Context(), service.ChannelAuthRequest{
		Credential:     GetBearer(c),
		SocketID:       req.SocketID,
		ChannelName:    req.ChannelName,
		ConversationID: req.ConversationID,
		Token:          req.ConversationToken,
		IssuedAt:       req.Iat.String(),
	})
	if err != nil {
		respondError(c, h.logger, "pusher-auth", err)
		return
	}

	c.Data(http.StatusOK, "application/json", payload)
}

package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-relay/internal/service"
)

type replyRelay interface {
	Relay(ctx context.Context, in service.RelayInput) error
}

// RelayHandler recibe las respuestas del workflow.
type RelayHandler struct {
	logger *zap.Logger
	relay  replyRelay
}

func NewRelayHandler(logger *zap.Logger, relay replyRelay) *RelayHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelayHandler{logger: logger, relay: relay}
}

type receiveResponseRequest struct {
	ConversationID string `json:"conversationId" form:"conversationId"`
	Reply          string `json:"reply" form:"reply"`
}

// ReceiveResponse maneja POST /receive-response.
func (h *RelayHandler) ReceiveResponse(c *gin.Context) {
	var req receiveResponseRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Debug("receive-response body not bound", zap.Error(err))
		req = receiveResponseRequest{}
	}

	err := h.relay.Relay(c.Request.Context(), service.RelayInput{
		Credential:     GetBearer(c),
		ConversationID: req.ConversationID,
		Reply:          req.Reply,
	})
	if err != nil {
		respondError(c, h.logger, "receive-response", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Status maneja GET /receive-response.
func (h *RelayHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "POST {conversationId, reply} to relay a workflow reply to the conversation channel",
	})
}

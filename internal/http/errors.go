package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-relay/internal/service"
)

// respondError traduce errores de servicio a status y cuerpo {success:false, error}.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	status, msg := http.StatusInternalServerError, "internal server error"
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrUnauthenticated):
		status, msg = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrForbidden):
		status, msg = http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrRateLimited):
		status, msg = http.StatusTooManyRequests, "too many requests"
	case errors.Is(err, service.ErrServiceUnavailable):
		status, msg = http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, service.ErrPublishFailed):
		status, msg = http.StatusInternalServerError, "publish failed"
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "request timed out"
	}

	if status >= http.StatusInternalServerError {
		logger.Error(op+" failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Warn(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"success": false, "error": msg})
}

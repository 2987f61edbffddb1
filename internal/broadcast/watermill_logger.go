package broadcast

import (
	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/zap"
)

// zapWatermillLogger expone un *zap.Logger como watermill.LoggerAdapter.
type zapWatermillLogger struct {
	logger *zap.Logger
}

func NewWatermillLogger(logger *zap.Logger) watermill.LoggerAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &zapWatermillLogger{logger: logger}
}

func (l *zapWatermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (l *zapWatermillLogger) Info(msg string, fields watermill.LogFields) {
	l.logger.Info(msg, zapFields(fields)...)
}

func (l *zapWatermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.logger.Debug(msg, zapFields(fields)...)
}

// Trace no tiene nivel propio en zap.
func (l *zapWatermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.logger.Debug(msg, zapFields(fields)...)
}

func (l *zapWatermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &zapWatermillLogger{logger: l.logger.With(zapFields(fields)...)}
}

func zapFields(fields watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

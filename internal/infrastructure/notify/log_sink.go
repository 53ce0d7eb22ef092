package notify

import (
	"context"

	"github.com/garyjia/benefits-portal/internal/domain/event"
	"go.uber.org/zap"
)

// LogSink writes every event to the structured log
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a new log sink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Handle logs evt at info level
func (s *LogSink) Handle(_ context.Context, evt *event.Event) error {
	s.logger.Info("Workflow event",
		zap.String("event_id", evt.ID),
		zap.String("event_type", evt.Type.String()),
		zap.String("entity_type", evt.EntityType),
		zap.Int64("entity_id", evt.EntityID),
		zap.String("actor_id", evt.ActorID),
		zap.String("correlation_id", evt.CorrelationID),
		zap.Any("payload", evt.Payload))
	return nil
}

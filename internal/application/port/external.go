package port

import (
	"context"
	"io"
	"time"

	"github.com/garyjia/benefits-portal/internal/domain/entity"
	"github.com/garyjia/benefits-portal/internal/domain/event"
)

// NotificationSink accepts fire-and-forget "this happened" events
type NotificationSink interface {
	Notify(ctx context.Context, evt *event.Event)
}

// CodeGenerator produces human-readable record codes
type CodeGenerator interface {
	ApplicationCode() string
	ComplaintCode() string
	BatchCode() string
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// MetricsRecorder observes workflow outcomes
type MetricsRecorder interface {
	TransitionApplied(entityType, from, to string)
	CommandRejected(operation, kind string)
	RowsImported(matched, unmatched, issues int)
}

// PayoutFileParser turns an uploaded reconciliation file into typed rows
type PayoutFileParser interface {
	Parse(fileName string, r io.Reader) ([]entity.PayoutStatusRow, error)
}

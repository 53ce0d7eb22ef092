package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/benefits-portal/internal/application/port"
	"github.com/garyjia/benefits-portal/internal/domain/apperr"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
	"github.com/garyjia/benefits-portal/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// WorkflowService is the single entry point of the workflow core. Every
// command takes the acting user explicitly.
type WorkflowService interface {
	ApplicationWorkflow
	PayoutWorkflow
	ComplaintWorkflow

	// ListHistory returns the status history of an application, complaint or
	// payout batch
	ListHistory(ctx context.Context, actor entity.Actor, entityType string, entityID int64) ([]*entity.StatusHistory, error)
}

// Dependencies are the collaborators of the workflow service. Sink, Sniffer,
// Parser, Clock and Metrics are optional.
type Dependencies struct {
	Applications port.ApplicationRepository
	Payouts      port.PayoutRepository
	Complaints   port.ComplaintRepository
	History      port.HistoryRepository
	Programs     port.ProgramCatalog
	Blobs        port.BlobStore
	Sniffer      port.ContentSniffer
	Parser       port.PayoutFileParser
	Codes        port.CodeGenerator
	Sink         port.NotificationSink
	TxManager    port.TransactionManager
	Clock        port.Clock
	Metrics      port.MetricsRecorder
}

type workflowServiceImpl struct {
	apps       port.ApplicationRepository
	payouts    port.PayoutRepository
	complaints port.ComplaintRepository
	history    port.HistoryRepository
	programs   port.ProgramCatalog
	blobs      port.BlobStore
	sniffer    port.ContentSniffer
	parser     port.PayoutFileParser
	codes      port.CodeGenerator
	sink       port.NotificationSink
	txManager  port.TransactionManager
	clock      port.Clock
	metrics    port.MetricsRecorder
	logger     Logger
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(deps Dependencies, logger Logger) WorkflowService {
	s := &workflowServiceImpl{
		apps:       deps.Applications,
		payouts:    deps.Payouts,
		complaints: deps.Complaints,
		history:    deps.History,
		programs:   deps.Programs,
		blobs:      deps.Blobs,
		sniffer:    deps.Sniffer,
		parser:     deps.Parser,
		codes:      deps.Codes,
		sink:       deps.Sink,
		txManager:  deps.TxManager,
		clock:      deps.Clock,
		metrics:    deps.Metrics,
		logger:     logger,
	}

	if s.sink == nil {
		s.sink = discardSink{}
	}
	if s.clock == nil {
		s.clock = systemClock{}
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	return s
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type discardSink struct{}

func (discardSink) Notify(context.Context, *event.Event) {}

type nopMetrics struct{}

func (nopMetrics) TransitionApplied(string, string, string) {}
func (nopMetrics) CommandRejected(string, string)           {}
func (nopMetrics) RowsImported(int, int, int)               {}

// translate maps repository sentinels to workflow failures
func translate(err error, entityType string, id interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, port.ErrNotFound):
		return apperr.NotFound("%s %v not found", entityType, id)
	case errors.Is(err, port.ErrConflict):
		return apperr.Conflict("%s %v was changed concurrently, re-fetch and retry", entityType, id)
	default:
		return err
	}
}

// fail logs and counts a failed command. Workflow failures are caller errors
// and go to info; anything else is a fault.
func (s *workflowServiceImpl) fail(op string, err error, keysAndValues ...interface{}) error {
	kind := apperr.KindOf(err)
	kv := append([]interface{}{"operation", op, "error", err}, keysAndValues...)

	if kind == "" {
		s.logger.Error("Workflow command failed", kv...)
		s.metrics.CommandRejected(op, "INTERNAL")
		return err
	}

	s.logger.Info("Workflow command rejected", append(kv, "kind", kind)...)
	s.metrics.CommandRejected(op, kind.String())
	return err
}

// recordHistory writes one status history row within the caller's transaction
func (s *workflowServiceImpl) recordHistory(ctx context.Context, actor entity.Actor, entityType string, entityID int64, from, to, action, note string) error {
	h := &entity.StatusHistory{
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		FromStatus: from,
		ToStatus:   to,
		Action:     action,
		Note:       note,
		Timestamp:  s.clock.Now(),
	}
	if err := s.history.Create(ctx, h); err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	return nil
}

func (s *workflowServiceImpl) notify(ctx context.Context, t event.Type, entityType string, id int64, actor entity.Actor, payload map[string]interface{}) {
	s.sink.Notify(ctx, event.NewEvent(t, entityType, id, actor.ID, payload))
}

// callerRole returns the role as presented by a caller. The internal system
// role is never honoured from outside.
func callerRole(actor entity.Actor) entity.Role {
	if actor.Role.IsValid() {
		return actor.Role
	}
	return ""
}

func requireKnownActor(actor entity.Actor) error {
	if !actor.Role.IsValid() || actor.ID == "" {
		return apperr.Unauthorized("unknown actor")
	}
	return nil
}

// ListHistory returns the status history of an entity the actor may see
func (s *workflowServiceImpl) ListHistory(ctx context.Context, actor entity.Actor, entityType string, entityID int64) ([]*entity.StatusHistory, error) {
	if err := requireKnownActor(actor); err != nil {
		return nil, s.fail("list_history", err)
	}

	if !actor.Role.IsStaff() {
		var owner string
		switch entityType {
		case entity.EntityApplication:
			app, err := s.apps.Get(ctx, entityID)
			if err != nil {
				return nil, s.fail("list_history", translate(err, entityType, entityID))
			}
			owner = app.CitizenID
		case entity.EntityComplaint:
			c, err := s.complaints.Get(ctx, entityID)
			if err != nil {
				return nil, s.fail("list_history", translate(err, entityType, entityID))
			}
			owner = c.CitizenID
		}
		if owner != actor.ID {
			return nil, s.fail("list_history", apperr.Unauthorized("history of %s %d is not visible to this actor", entityType, entityID))
		}
	}

	items, err := s.history.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, s.fail("list_history", err, "entity_type", entityType, "entity_id", entityID)
	}
	return items, nil
}

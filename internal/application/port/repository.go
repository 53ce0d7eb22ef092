package port

import (
	"context"
	"errors"

	"github.com/garyjia/benefits-portal/internal/domain/entity"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when the persisted status no longer matches the
	// expected one. Callers must re-fetch; nothing is retried automatically.
	ErrConflict = errors.New("status changed concurrently")
)

// ApplicationRepository defines persistence operations for Application.
// Every write is conditional on the persisted status.
type ApplicationRepository interface {
	Create(ctx context.Context, app *entity.Application) error
	Get(ctx context.Context, id int64) (*entity.Application, error)
	GetByCode(ctx context.Context, code string) (*entity.Application, error)

	// Save writes every column of app, including its status, if the persisted
	// status still equals expectedStatus. Returns ErrConflict otherwise.
	Save(ctx context.Context, app *entity.Application, expectedStatus string) error

	// CompareAndSwapStatus moves the status from -> to. Returns ErrConflict
	// when the persisted status is not from.
	CompareAndSwapStatus(ctx context.Context, id int64, from, to string) error

	// Delete removes the application if its status is still expectedStatus
	Delete(ctx context.Context, id int64, expectedStatus string) error

	ListByStatus(ctx context.Context, statuses ...string) ([]*entity.Application, error)
}

// PayoutRepository defines persistence operations for PayoutBatch and its rows
type PayoutRepository interface {
	CreateBatch(ctx context.Context, batch *entity.PayoutBatch) error

	// GetBatch loads the batch together with its detail rows
	GetBatch(ctx context.Context, id int64) (*entity.PayoutBatch, error)
	GetBatchByCode(ctx context.Context, code string) (*entity.PayoutBatch, error)

	// SaveBatch writes status, totals and completion time if the persisted
	// status still equals expectedStatus and the persisted version equals
	// batch.Version, then bumps batch.Version. Any other outcome is ErrConflict.
	SaveBatch(ctx context.Context, batch *entity.PayoutBatch, expectedStatus string) error

	AddDetail(ctx context.Context, detail *entity.PayoutDetail) error
	GetDetail(ctx context.Context, id int64) (*entity.PayoutDetail, error)

	// UpdateDetail writes the row state if the persisted row state still
	// equals expectedStatus
	UpdateDetail(ctx context.Context, detail *entity.PayoutDetail, expectedStatus string) error

	// ListActiveDetailsByApplication returns the application's rows in batches
	// that were not cancelled
	ListActiveDetailsByApplication(ctx context.Context, applicationID int64) ([]*entity.PayoutDetail, error)
}

// ComplaintRepository defines persistence operations for Complaint
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *entity.Complaint) error
	Get(ctx context.Context, id int64) (*entity.Complaint, error)

	// Save writes every column if the persisted status equals expectedStatus
	Save(ctx context.Context, complaint *entity.Complaint, expectedStatus string) error
	Delete(ctx context.Context, id int64) error
}

// HistoryRepository records every status change
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.StatusHistory) error
	ListByEntity(ctx context.Context, entityType string, entityID int64) ([]*entity.StatusHistory, error)
}

// ProgramCatalog resolves subsidy programs
type ProgramCatalog interface {
	GetProgram(ctx context.Context, id string) (*entity.Program, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

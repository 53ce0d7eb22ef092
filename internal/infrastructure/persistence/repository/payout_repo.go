package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/benefits-portal/internal/application/port"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
	"github.com/garyjia/benefits-portal/internal/infrastructure/persistence/sqlite"
)

const batchColumns = `id, code, period, location, program_id, status,
	total_recipients, total_amount, created_by, created_at, updated_at, completed_at, version`

const detailColumns = `d.id, d.batch_id, d.application_id, d.application_code, d.citizen_name,
	d.amount, d.status, d.status_label, d.note, d.created_at, d.updated_at`

// PayoutRepository implements port.PayoutRepository
type PayoutRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewPayoutRepository creates a new payout repository
func NewPayoutRepository(db *sqlite.DB, logger *zap.Logger) port.PayoutRepository {
	return &PayoutRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserts a new batch
func (r *PayoutRepository) CreateBatch(ctx context.Context, batch *entity.PayoutBatch) error {
	query := `
		INSERT INTO payout_batches (
			code, period, location, program_id, status,
			total_recipients, total_amount, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var programID interface{}
	if batch.ProgramID != nil {
		programID = *batch.ProgramID
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		batch.Code,
		batch.Period,
		batch.Location,
		programID,
		batch.Status,
		batch.TotalRecipients,
		batch.TotalAmount.String(),
		batch.CreatedBy,
		batch.CreatedAt,
		batch.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create payout batch", zap.String("code", batch.Code), zap.Error(err))
		if isConstraint(err) {
			return fmt.Errorf("failed to create batch %s: %w", batch.Code, port.ErrConflict)
		}
		return fmt.Errorf("failed to create batch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	batch.ID = id
	return nil
}

// GetBatch loads a batch with its rows
func (r *PayoutRepository) GetBatch(ctx context.Context, id int64) (*entity.PayoutBatch, error) {
	return r.getBatch(ctx, "id", id)
}

// GetBatchByCode loads a batch with its rows by its public code
func (r *PayoutRepository) GetBatchByCode(ctx context.Context, code string) (*entity.PayoutBatch, error) {
	return r.getBatch(ctx, "code", code)
}

func (r *PayoutRepository) getBatch(ctx context.Context, column string, value interface{}) (*entity.PayoutBatch, error) {
	exec := r.db.Executor(ctx)
	query := `SELECT ` + batchColumns + ` FROM payout_batches WHERE ` + column + ` = ?`

	batch, err := scanBatch(exec.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get payout batch", zap.String(column, fmt.Sprint(value)), zap.Error(err))
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	details, err := r.queryDetails(ctx, `SELECT `+detailColumns+` FROM payout_details d WHERE d.batch_id = ? ORDER BY d.id ASC`, batch.ID)
	if err != nil {
		return nil, err
	}
	batch.Details = details
	return batch, nil
}

// SaveBatch writes status, totals and completion time if the stored status
// still equals expectedStatus and the stored version still equals
// batch.Version. On success the version is bumped.
func (r *PayoutRepository) SaveBatch(ctx context.Context, batch *entity.PayoutBatch, expectedStatus string) error {
	query := `
		UPDATE payout_batches SET
			status = ?, total_recipients = ?, total_amount = ?,
			updated_at = ?, completed_at = ?, version = version + 1
		WHERE id = ? AND status = ? AND version = ?
	`

	exec := r.db.Executor(ctx)
	result, err := exec.ExecContext(ctx, query,
		batch.Status,
		batch.TotalRecipients,
		batch.TotalAmount.String(),
		batch.UpdatedAt,
		nullTime(batch.CompletedAt),
		batch.ID,
		expectedStatus,
		batch.Version,
	)
	if err != nil {
		r.logger.Error("Failed to save payout batch", zap.Int64("id", batch.ID), zap.Error(err))
		return fmt.Errorf("failed to save batch: %w", err)
	}
	if err := checkSwap(ctx, exec, result, "payout_batches", batch.ID); err != nil {
		return err
	}
	batch.Version++
	return nil
}

// AddDetail inserts a row. A second row for the same application in the same
// batch is a conflict.
func (r *PayoutRepository) AddDetail(ctx context.Context, detail *entity.PayoutDetail) error {
	query := `
		INSERT INTO payout_details (
			batch_id, application_id, application_code, citizen_name,
			amount, status, status_label, note, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		detail.BatchID,
		detail.ApplicationID,
		detail.ApplicationCode,
		detail.CitizenName,
		detail.Amount.String(),
		detail.Status,
		detail.StatusLabel,
		detail.Note,
		detail.CreatedAt,
		detail.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to add payout detail",
			zap.Int64("batch_id", detail.BatchID), zap.Int64("application_id", detail.ApplicationID), zap.Error(err))
		if isConstraint(err) {
			return fmt.Errorf("failed to add detail: %w", port.ErrConflict)
		}
		return fmt.Errorf("failed to add detail: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	detail.ID = id
	return nil
}

// GetDetail retrieves one row
func (r *PayoutRepository) GetDetail(ctx context.Context, id int64) (*entity.PayoutDetail, error) {
	query := `SELECT ` + detailColumns + ` FROM payout_details d WHERE d.id = ?`

	detail, err := scanDetail(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get payout detail", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get detail: %w", err)
	}
	return detail, nil
}

// UpdateDetail writes the row state if the stored state still equals
// expectedStatus
func (r *PayoutRepository) UpdateDetail(ctx context.Context, detail *entity.PayoutDetail, expectedStatus string) error {
	query := `
		UPDATE payout_details SET status = ?, status_label = ?, note = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	exec := r.db.Executor(ctx)
	result, err := exec.ExecContext(ctx, query,
		detail.Status,
		detail.StatusLabel,
		detail.Note,
		detail.UpdatedAt,
		detail.ID,
		expectedStatus,
	)
	if err != nil {
		r.logger.Error("Failed to update payout detail", zap.Int64("id", detail.ID), zap.Error(err))
		return fmt.Errorf("failed to update detail: %w", err)
	}
	return checkSwap(ctx, exec, result, "payout_details", detail.ID)
}

// ListActiveDetailsByApplication returns the application's rows in batches
// that were not cancelled
func (r *PayoutRepository) ListActiveDetailsByApplication(ctx context.Context, applicationID int64) ([]*entity.PayoutDetail, error) {
	query := `
		SELECT ` + detailColumns + `
		FROM payout_details d
		JOIN payout_batches b ON b.id = d.batch_id
		WHERE d.application_id = ? AND b.status <> 'cancelled'
		ORDER BY d.id ASC
	`
	return r.queryDetails(ctx, query, applicationID)
}

func (r *PayoutRepository) queryDetails(ctx context.Context, query string, args ...interface{}) ([]*entity.PayoutDetail, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query payout details", zap.Error(err))
		return nil, fmt.Errorf("failed to query details: %w", err)
	}
	defer rows.Close()

	var details []*entity.PayoutDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan detail: %w", err)
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

func scanBatch(row scanner) (*entity.PayoutBatch, error) {
	var (
		batch       entity.PayoutBatch
		programID   sql.NullString
		completedAt sql.NullTime
	)

	err := row.Scan(
		&batch.ID,
		&batch.Code,
		&batch.Period,
		&batch.Location,
		&programID,
		&batch.Status,
		&batch.TotalRecipients,
		&batch.TotalAmount,
		&batch.CreatedBy,
		&batch.CreatedAt,
		&batch.UpdatedAt,
		&completedAt,
		&batch.Version,
	)
	if err != nil {
		return nil, err
	}

	if programID.Valid {
		id := programID.String
		batch.ProgramID = &id
	}
	batch.CompletedAt = timePtr(completedAt)
	return &batch, nil
}

func scanDetail(row scanner) (*entity.PayoutDetail, error) {
	var d entity.PayoutDetail
	err := row.Scan(
		&d.ID,
		&d.BatchID,
		&d.ApplicationID,
		&d.ApplicationCode,
		&d.CitizenName,
		&d.Amount,
		&d.Status,
		&d.StatusLabel,
		&d.Note,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Verify interface compliance
var _ port.PayoutRepository = (*PayoutRepository)(nil)

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/benefits-portal/internal/application/port"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
	"github.com/garyjia/benefits-portal/internal/infrastructure/persistence/sqlite"
)

const applicationColumns = `id, code, citizen_id, status, fields, attachments,
	approved_amount, rejection_reason, review_notes, reviewed_by,
	submitted_at, reviewed_at, paid_at, created_at, updated_at`

// ApplicationRepository implements port.ApplicationRepository
type ApplicationRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *sqlite.DB, logger *zap.Logger) port.ApplicationRepository {
	return &ApplicationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new application
func (r *ApplicationRepository) Create(ctx context.Context, app *entity.Application) error {
	fields, attachments, err := encodeApplication(app)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO applications (
			code, citizen_id, status, fields, attachments,
			approved_amount, rejection_reason, review_notes, reviewed_by,
			submitted_at, reviewed_at, paid_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		nullString(app.Code),
		app.CitizenID,
		app.Status,
		fields,
		attachments,
		nullAmount(app.ApprovedAmount),
		app.RejectionReason,
		app.ReviewNotes,
		app.ReviewedBy,
		nullTime(app.SubmittedAt),
		nullTime(app.ReviewedAt),
		nullTime(app.PaidAt),
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create application", zap.String("citizen_id", app.CitizenID), zap.Error(err))
		if isConstraint(err) {
			return fmt.Errorf("failed to create application: %w", port.ErrConflict)
		}
		return fmt.Errorf("failed to create application: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	app.ID = id
	return nil
}

// Get retrieves an application by ID
func (r *ApplicationRepository) Get(ctx context.Context, id int64) (*entity.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = ?`

	app, err := scanApplication(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get application", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// GetByCode retrieves an application by its public code
func (r *ApplicationRepository) GetByCode(ctx context.Context, code string) (*entity.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE code = ?`

	app, err := scanApplication(r.db.Executor(ctx).QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get application by code", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// Save writes every column if the stored status still equals expectedStatus
func (r *ApplicationRepository) Save(ctx context.Context, app *entity.Application, expectedStatus string) error {
	fields, attachments, err := encodeApplication(app)
	if err != nil {
		return err
	}

	query := `
		UPDATE applications SET
			code = ?, status = ?, fields = ?, attachments = ?,
			approved_amount = ?, rejection_reason = ?, review_notes = ?, reviewed_by = ?,
			submitted_at = ?, reviewed_at = ?, paid_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	exec := r.db.Executor(ctx)
	result, err := exec.ExecContext(ctx, query,
		nullString(app.Code),
		app.Status,
		fields,
		attachments,
		nullAmount(app.ApprovedAmount),
		app.RejectionReason,
		app.ReviewNotes,
		app.ReviewedBy,
		nullTime(app.SubmittedAt),
		nullTime(app.ReviewedAt),
		nullTime(app.PaidAt),
		app.UpdatedAt,
		app.ID,
		expectedStatus,
	)
	if err != nil {
		r.logger.Error("Failed to save application", zap.Int64("id", app.ID), zap.Error(err))
		return fmt.Errorf("failed to save application: %w", err)
	}
	return checkSwap(ctx, exec, result, "applications", app.ID)
}

// CompareAndSwapStatus moves the status from -> to
func (r *ApplicationRepository) CompareAndSwapStatus(ctx context.Context, id int64, from, to string) error {
	query := `UPDATE applications SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`

	exec := r.db.Executor(ctx)
	result, err := exec.ExecContext(ctx, query, to, id, from)
	if err != nil {
		r.logger.Error("Failed to swap application status",
			zap.Int64("id", id), zap.String("from", from), zap.String("to", to), zap.Error(err))
		return fmt.Errorf("failed to update status: %w", err)
	}
	return checkSwap(ctx, exec, result, "applications", id)
}

// Delete removes the application if its status is still expectedStatus
func (r *ApplicationRepository) Delete(ctx context.Context, id int64, expectedStatus string) error {
	exec := r.db.Executor(ctx)
	result, err := exec.ExecContext(ctx, `DELETE FROM applications WHERE id = ? AND status = ?`, id, expectedStatus)
	if err != nil {
		r.logger.Error("Failed to delete application", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete application: %w", err)
	}
	return checkSwap(ctx, exec, result, "applications", id)
}

// ListByStatus returns applications in any of the given statuses, oldest first
func (r *ApplicationRepository) ListByStatus(ctx context.Context, statuses ...string) ([]*entity.Application, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE status IN (` + placeholders + `) ORDER BY id ASC`

	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		args[i] = s
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list applications", zap.Strings("statuses", statuses), zap.Error(err))
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*entity.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func encodeApplication(app *entity.Application) (string, string, error) {
	fields, err := encodeJSON(app.Fields)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode application fields: %w", err)
	}
	refs := app.Attachments
	if refs == nil {
		refs = []entity.AttachmentRef{}
	}
	attachments, err := encodeJSON(refs)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode attachments: %w", err)
	}
	return fields, attachments, nil
}

func nullAmount(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanApplication(row scanner) (*entity.Application, error) {
	var (
		app                             entity.Application
		code                            sql.NullString
		fields, attachments             string
		approved                        decimal.NullDecimal
		submittedAt, reviewedAt, paidAt sql.NullTime
	)

	err := row.Scan(
		&app.ID,
		&code,
		&app.CitizenID,
		&app.Status,
		&fields,
		&attachments,
		&approved,
		&app.RejectionReason,
		&app.ReviewNotes,
		&app.ReviewedBy,
		&submittedAt,
		&reviewedAt,
		&paidAt,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	app.Code = code.String
	if approved.Valid {
		amount := approved.Decimal
		app.ApprovedAmount = &amount
	}
	app.SubmittedAt = timePtr(submittedAt)
	app.ReviewedAt = timePtr(reviewedAt)
	app.PaidAt = timePtr(paidAt)

	if err := decodeJSON(fields, &app.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields of application %d: %w", app.ID, err)
	}
	if err := decodeJSON(attachments, &app.Attachments); err != nil {
		return nil, fmt.Errorf("failed to decode attachments of application %d: %w", app.ID, err)
	}
	return &app, nil
}

// Verify interface compliance
var _ port.ApplicationRepository = (*ApplicationRepository)(nil)

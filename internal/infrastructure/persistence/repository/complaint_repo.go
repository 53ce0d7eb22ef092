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

const complaintColumns = `id, code, citizen_id, application_id, title, description, attachments,
	status, assigned_officer_id, resolution, resolved_by, resolved_at, created_at, updated_at`

// ComplaintRepository implements port.ComplaintRepository
type ComplaintRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewComplaintRepository creates a new complaint repository
func NewComplaintRepository(db *sqlite.DB, logger *zap.Logger) port.ComplaintRepository {
	return &ComplaintRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new complaint
func (r *ComplaintRepository) Create(ctx context.Context, c *entity.Complaint) error {
	attachments, err := encodeAttachments(c.Attachments)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO complaints (
			code, citizen_id, application_id, title, description, attachments,
			status, assigned_officer_id, resolution, resolved_by, resolved_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		c.Code,
		c.CitizenID,
		nullID(c.ApplicationID),
		c.Title,
		c.Description,
		attachments,
		c.Status,
		c.AssignedOfficerID,
		c.Resolution,
		c.ResolvedBy,
		nullTime(c.ResolvedAt),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create complaint", zap.String("citizen_id", c.CitizenID), zap.Error(err))
		return fmt.Errorf("failed to create complaint: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	c.ID = id
	return nil
}

// Get retrieves a complaint by ID
func (r *ComplaintRepository) Get(ctx context.Context, id int64) (*entity.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = ?`

	var (
		c             entity.Complaint
		applicationID sql.NullInt64
		attachments   string
		resolvedAt    sql.NullTime
	)

	err := r.db.Executor(ctx).QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.Code,
		&c.CitizenID,
		&applicationID,
		&c.Title,
		&c.Description,
		&attachments,
		&c.Status,
		&c.AssignedOfficerID,
		&c.Resolution,
		&c.ResolvedBy,
		&resolvedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get complaint", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get complaint: %w", err)
	}

	if applicationID.Valid {
		v := applicationID.Int64
		c.ApplicationID = &v
	}
	c.ResolvedAt = timePtr(resolvedAt)
	if err := decodeJSON(attachments, &c.Attachments); err != nil {
		return nil, fmt.Errorf("failed to decode attachments of complaint %d: %w", id, err)
	}
	return &c, nil
}

// Save writes every column if the stored status still equals expectedStatus
func (r *ComplaintRepository) Save(ctx context.Context, c *entity.Complaint, expectedStatus string) error {
	attachments, err := encodeAttachments(c.Attachments)
	if err != nil {
		return err
	}

	query := `
		UPDATE complaints SET
			application_id = ?, title = ?, description = ?, attachments = ?,
			status = ?, assigned_officer_id = ?, resolution = ?, resolved_by = ?,
			resolved_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	exec := r.db.Executor(ctx)
	result, err := exec.ExecContext(ctx, query,
		nullID(c.ApplicationID),
		c.Title,
		c.Description,
		attachments,
		c.Status,
		c.AssignedOfficerID,
		c.Resolution,
		c.ResolvedBy,
		nullTime(c.ResolvedAt),
		c.UpdatedAt,
		c.ID,
		expectedStatus,
	)
	if err != nil {
		r.logger.Error("Failed to save complaint", zap.Int64("id", c.ID), zap.Error(err))
		return fmt.Errorf("failed to save complaint: %w", err)
	}
	return checkSwap(ctx, exec, result, "complaints", c.ID)
}

// Delete removes a complaint
func (r *ComplaintRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM complaints WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete complaint", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete complaint: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return port.ErrNotFound
	}
	return nil
}

func encodeAttachments(refs []entity.AttachmentRef) (string, error) {
	if refs == nil {
		refs = []entity.AttachmentRef{}
	}
	s, err := encodeJSON(refs)
	if err != nil {
		return "", fmt.Errorf("failed to encode attachments: %w", err)
	}
	return s, nil
}

func nullID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

// Verify interface compliance
var _ port.ComplaintRepository = (*ComplaintRepository)(nil)

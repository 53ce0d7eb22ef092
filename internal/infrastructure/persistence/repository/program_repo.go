package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/benefits-portal/internal/application/port"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
	"github.com/garyjia/benefits-portal/internal/infrastructure/persistence/sqlite"
)

// ProgramRepository implements port.ProgramCatalog
type ProgramRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewProgramRepository creates a new program catalog
func NewProgramRepository(db *sqlite.DB, logger *zap.Logger) port.ProgramCatalog {
	return &ProgramRepository{
		db:     db,
		logger: logger,
	}
}

// GetProgram retrieves a program by ID
func (r *ProgramRepository) GetProgram(ctx context.Context, id string) (*entity.Program, error) {
	query := `SELECT id, name, default_amount, active FROM programs WHERE id = ?`

	var (
		p             entity.Program
		defaultAmount decimal.NullDecimal
	)
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &defaultAmount, &p.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get program", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get program: %w", err)
	}

	if defaultAmount.Valid {
		p.DefaultAmount = defaultAmount.Decimal
	}
	return &p, nil
}

// Verify interface compliance
var _ port.ProgramCatalog = (*ProgramRepository)(nil)

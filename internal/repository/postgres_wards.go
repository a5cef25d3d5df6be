package repository

import (
	"context"
	"database/sql"
	"fmt"

	"hospital-ops/internal/domain"
)

// PostgresWardsRepository wards table implementation. The bed counter is only
// ever moved through conditional updates so capacity can never be oversold by
// concurrent assignments.
type PostgresWardsRepository struct {
	db *sql.DB
}

func NewPostgresWardsRepository(db *sql.DB) *PostgresWardsRepository {
	return &PostgresWardsRepository{db: db}
}

var _ WardsRepository = (*PostgresWardsRepository)(nil)

// GetWard fetches one ward scoped to its tenant.
func (r *PostgresWardsRepository) GetWard(ctx context.Context, tenantID, wardID string) (*domain.Ward, error) {
	if tenantID == "" || wardID == "" {
		return nil, fmt.Errorf("ward not found: %w", domain.ErrNotFound)
	}

	query := `
		SELECT
			ward_id::text,
			tenant_id::text,
			ward_name,
			department,
			total_beds,
			occupied_beds
		FROM wards
		WHERE tenant_id = $1 AND ward_id = $2
	`

	var ward domain.Ward
	err := r.db.QueryRowContext(ctx, query, tenantID, wardID).Scan(
		&ward.WardID,
		&ward.TenantID,
		&ward.WardName,
		&ward.Department,
		&ward.TotalBeds,
		&ward.OccupiedBeds,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("ward not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get ward: %w", err)
	}

	return &ward, nil
}

// ReserveBed increments occupied_beds iff capacity remains. The guard lives
// in the WHERE clause: zero rows affected on a full ward, no read-check-write
// window.
func (r *PostgresWardsRepository) ReserveBed(ctx context.Context, tenantID, wardID string) error {
	if tenantID == "" || wardID == "" {
		return fmt.Errorf("ward not found: %w", domain.ErrNotFound)
	}

	query := `
		UPDATE wards
		SET occupied_beds = occupied_beds + 1
		WHERE tenant_id = $1 AND ward_id = $2 AND occupied_beds < total_beds
	`

	result, err := r.db.ExecContext(ctx, query, tenantID, wardID)
	if err != nil {
		return fmt.Errorf("failed to reserve bed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish a full ward from a missing one.
		if _, err := r.GetWard(ctx, tenantID, wardID); err != nil {
			return err
		}
		return fmt.Errorf("ward has no free beds: %w", domain.ErrCapacityExceeded)
	}

	return nil
}

// ReleaseBed decrements occupied_beds, flooring at zero.
func (r *PostgresWardsRepository) ReleaseBed(ctx context.Context, tenantID, wardID string) error {
	if tenantID == "" || wardID == "" {
		return fmt.Errorf("ward not found: %w", domain.ErrNotFound)
	}

	query := `
		UPDATE wards
		SET occupied_beds = GREATEST(occupied_beds - 1, 0)
		WHERE tenant_id = $1 AND ward_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, tenantID, wardID)
	if err != nil {
		return fmt.Errorf("failed to release bed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("ward not found: %w", domain.ErrNotFound)
	}

	return nil
}

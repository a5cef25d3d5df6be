package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresDischargesRepository existence checks against the discharges table.
type PostgresDischargesRepository struct {
	db *sql.DB
}

func NewPostgresDischargesRepository(db *sql.DB) *PostgresDischargesRepository {
	return &PostgresDischargesRepository{db: db}
}

var _ DischargesRepository = (*PostgresDischargesRepository)(nil)

// ExistsForAdmission reports whether a discharge record exists for the admission.
func (r *PostgresDischargesRepository) ExistsForAdmission(ctx context.Context, tenantID, admissionID string) (bool, error) {
	if tenantID == "" || admissionID == "" {
		return false, nil
	}

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM discharges
			WHERE tenant_id = $1 AND admission_id = $2
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, tenantID, admissionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check discharge: %w", err)
	}

	return exists, nil
}

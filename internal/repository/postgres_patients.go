package repository

import (
	"context"
	"database/sql"
	"fmt"

	"hospital-ops/internal/domain"
)

// PostgresPatientsRepository read-only patients access.
type PostgresPatientsRepository struct {
	db *sql.DB
}

func NewPostgresPatientsRepository(db *sql.DB) *PostgresPatientsRepository {
	return &PostgresPatientsRepository{db: db}
}

var _ PatientsRepository = (*PostgresPatientsRepository)(nil)

// GetPatient fetches one patient scoped to its tenant.
func (r *PostgresPatientsRepository) GetPatient(ctx context.Context, tenantID, patientID string) (*domain.Patient, error) {
	if tenantID == "" || patientID == "" {
		return nil, fmt.Errorf("patient not found: %w", domain.ErrNotFound)
	}

	query := `
		SELECT
			patient_id::text,
			tenant_id::text,
			full_name,
			department,
			ward_id,
			assigned_nurse
		FROM patients
		WHERE tenant_id = $1 AND patient_id = $2
	`

	var p domain.Patient
	var department, wardID, assignedNurse sql.NullString

	err := r.db.QueryRowContext(ctx, query, tenantID, patientID).Scan(
		&p.PatientID,
		&p.TenantID,
		&p.FullName,
		&department,
		&wardID,
		&assignedNurse,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("patient not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	if department.Valid {
		p.Department = department.String
	}
	if wardID.Valid {
		p.WardID = wardID.String
	}
	if assignedNurse.Valid {
		p.AssignedNurse = assignedNurse.String
	}

	return &p, nil
}

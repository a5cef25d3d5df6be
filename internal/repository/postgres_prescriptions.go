package repository

import (
	"context"
	"database/sql"
	"fmt"

	"hospital-ops/internal/domain"
)

// PostgresPrescriptionsRepository read-only prescriptions access.
type PostgresPrescriptionsRepository struct {
	db *sql.DB
}

func NewPostgresPrescriptionsRepository(db *sql.DB) *PostgresPrescriptionsRepository {
	return &PostgresPrescriptionsRepository{db: db}
}

var _ PrescriptionsRepository = (*PostgresPrescriptionsRepository)(nil)

const prescriptionColumns = `
	prescription_id::text,
	tenant_id::text,
	patient_id::text,
	medication,
	dose,
	frequency,
	start_date,
	status,
	administrations
`

func scanPrescription(scan func(...any) error) (*domain.Prescription, error) {
	var p domain.Prescription
	var administrationsRaw []byte

	if err := scan(
		&p.PrescriptionID,
		&p.TenantID,
		&p.PatientID,
		&p.Medication,
		&p.Dose,
		&p.Frequency,
		&p.StartDate,
		&p.Status,
		&administrationsRaw,
	); err != nil {
		return nil, err
	}

	if err := unmarshalJSONColumn(administrationsRaw, &p.Administrations); err != nil {
		return nil, fmt.Errorf("failed to decode administrations: %w", err)
	}

	return &p, nil
}

// GetPrescription fetches one prescription scoped to its tenant.
func (r *PostgresPrescriptionsRepository) GetPrescription(ctx context.Context, tenantID, prescriptionID string) (*domain.Prescription, error) {
	if tenantID == "" || prescriptionID == "" {
		return nil, fmt.Errorf("prescription not found: %w", domain.ErrNotFound)
	}

	query := `
		SELECT ` + prescriptionColumns + `
		FROM prescriptions
		WHERE tenant_id = $1 AND prescription_id = $2
	`

	row := r.db.QueryRowContext(ctx, query, tenantID, prescriptionID)
	prescription, err := scanPrescription(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("prescription not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get prescription: %w", err)
	}

	return prescription, nil
}

// ListActiveForPatient returns the patient's active prescriptions.
func (r *PostgresPrescriptionsRepository) ListActiveForPatient(ctx context.Context, tenantID, patientID string) ([]*domain.Prescription, error) {
	if tenantID == "" || patientID == "" {
		return []*domain.Prescription{}, nil
	}

	query := `
		SELECT ` + prescriptionColumns + `
		FROM prescriptions
		WHERE tenant_id = $1 AND patient_id = $2 AND status = 'active'
		ORDER BY start_date
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	defer rows.Close()

	var prescriptions []*domain.Prescription
	for rows.Next() {
		prescription, err := scanPrescription(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prescription: %w", err)
		}
		prescriptions = append(prescriptions, prescription)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prescriptions: %w", err)
	}

	return prescriptions, nil
}

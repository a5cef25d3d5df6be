package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"hospital-ops/internal/domain"
)

// PostgresAdmissionsRepository admissions table implementation.
type PostgresAdmissionsRepository struct {
	db *sql.DB
}

func NewPostgresAdmissionsRepository(db *sql.DB) *PostgresAdmissionsRepository {
	return &PostgresAdmissionsRepository{db: db}
}

var _ AdmissionsRepository = (*PostgresAdmissionsRepository)(nil)

const admissionColumns = `
	admission_id::text,
	tenant_id::text,
	patient_id::text,
	doctor_id::text,
	matron_nurse_id,
	department,
	ward_id,
	bed_number,
	status,
	reviewed_at,
	assigned_at,
	completed_at,
	cancelled_at,
	created_at
`

func scanAdmission(scan func(...any) error) (*domain.Admission, error) {
	var a domain.Admission
	var matronNurseID, department, wardID, bedNumber sql.NullString
	var reviewedAt, assignedAt, completedAt, cancelledAt sql.NullTime

	if err := scan(
		&a.AdmissionID,
		&a.TenantID,
		&a.PatientID,
		&a.DoctorID,
		&matronNurseID,
		&department,
		&wardID,
		&bedNumber,
		&a.Status,
		&reviewedAt,
		&assignedAt,
		&completedAt,
		&cancelledAt,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}

	if matronNurseID.Valid {
		a.MatronNurseID = matronNurseID.String
	}
	if department.Valid {
		a.Department = department.String
	}
	if wardID.Valid {
		a.WardID = wardID.String
	}
	if bedNumber.Valid {
		a.BedNumber = bedNumber.String
	}
	if reviewedAt.Valid {
		a.ReviewedAt = &reviewedAt.Time
	}
	if assignedAt.Valid {
		a.AssignedAt = &assignedAt.Time
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	if cancelledAt.Valid {
		a.CancelledAt = &cancelledAt.Time
	}

	return &a, nil
}

// GetAdmission fetches one admission scoped to its tenant.
func (r *PostgresAdmissionsRepository) GetAdmission(ctx context.Context, tenantID, admissionID string) (*domain.Admission, error) {
	if tenantID == "" || admissionID == "" {
		return nil, fmt.Errorf("admission not found: %w", domain.ErrNotFound)
	}

	query := `
		SELECT ` + admissionColumns + `
		FROM admissions
		WHERE tenant_id = $1 AND admission_id = $2
	`

	row := r.db.QueryRowContext(ctx, query, tenantID, admissionID)
	admission, err := scanAdmission(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("admission not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get admission: %w", err)
	}

	return admission, nil
}

// ListAdmissions queries admissions with optional status filter.
func (r *PostgresAdmissionsRepository) ListAdmissions(ctx context.Context, tenantID, status string, page, size int) ([]*domain.Admission, int, error) {
	if tenantID == "" {
		return []*domain.Admission{}, 0, nil
	}

	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2

	if status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argN))
		args = append(args, status)
		argN++
	}

	queryCount := `
		SELECT COUNT(*)
		FROM admissions
		WHERE ` + strings.Join(where, " AND ")
	var total int
	if err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count admissions: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	argsList := append(args, size, offset)
	query := `
		SELECT ` + admissionColumns + `
		FROM admissions
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC
		LIMIT $` + fmt.Sprintf("%d", argN) + ` OFFSET $` + fmt.Sprintf("%d", argN+1)

	rows, err := r.db.QueryContext(ctx, query, argsList...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list admissions: %w", err)
	}
	defer rows.Close()

	var admissions []*domain.Admission
	for rows.Next() {
		admission, err := scanAdmission(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan admission: %w", err)
		}
		admissions = append(admissions, admission)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate admissions: %w", err)
	}

	return admissions, total, nil
}

// CreateAdmission inserts a pending admission and returns its id.
func (r *PostgresAdmissionsRepository) CreateAdmission(ctx context.Context, tenantID string, admission *domain.Admission) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("tenant_id is required")
	}
	if admission.PatientID == "" || admission.DoctorID == "" {
		return "", fmt.Errorf("patient_id and doctor_id are required")
	}
	if admission.Status == "" {
		admission.Status = domain.AdmissionPending
	}

	query := `
		INSERT INTO admissions (
			tenant_id,
			patient_id,
			doctor_id,
			department,
			status
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING admission_id::text
	`

	var admissionID string
	err := r.db.QueryRowContext(ctx, query, tenantID, admission.PatientID,
		admission.DoctorID, nullable(admission.Department), admission.Status).Scan(&admissionID)
	if err != nil {
		return "", fmt.Errorf("failed to create admission: %w", err)
	}

	return admissionID, nil
}

// UpdateAdmission persists the mutable lifecycle state of an admission.
func (r *PostgresAdmissionsRepository) UpdateAdmission(ctx context.Context, tenantID, admissionID string, admission *domain.Admission) error {
	if tenantID == "" || admissionID == "" {
		return fmt.Errorf("tenant_id and admission_id are required")
	}

	query := `
		UPDATE admissions
		SET
			matron_nurse_id = $3,
			department = $4,
			ward_id = $5,
			bed_number = $6,
			status = $7,
			reviewed_at = $8,
			assigned_at = $9,
			completed_at = $10,
			cancelled_at = $11
		WHERE tenant_id = $1 AND admission_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, tenantID, admissionID,
		nullable(admission.MatronNurseID), nullable(admission.Department),
		nullable(admission.WardID), nullable(admission.BedNumber), admission.Status,
		admission.ReviewedAt, admission.AssignedAt, admission.CompletedAt, admission.CancelledAt)
	if err != nil {
		return fmt.Errorf("failed to update admission: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("admission not found: %w", domain.ErrNotFound)
	}

	return nil
}

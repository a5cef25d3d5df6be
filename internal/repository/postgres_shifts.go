package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"hospital-ops/internal/domain"
)

// PostgresShiftsRepository shifts table implementation.
type PostgresShiftsRepository struct {
	db *sql.DB
}

func NewPostgresShiftsRepository(db *sql.DB) *PostgresShiftsRepository {
	return &PostgresShiftsRepository{db: db}
}

var _ ShiftsRepository = (*PostgresShiftsRepository)(nil)

const shiftColumns = `
	shift_id::text,
	tenant_id::text,
	user_id::text,
	shift_date,
	scheduled_start,
	scheduled_end,
	actual_start,
	actual_end,
	status,
	breaks,
	on_call_start,
	on_call_end,
	on_call_minutes,
	login_events,
	tasks,
	modified_by,
	modification_reason
`

func scanShift(scan func(...any) error) (*domain.Shift, error) {
	var s domain.Shift
	var actualStart, actualEnd, onCallStart, onCallEnd sql.NullTime
	var onCallMinutes sql.NullInt64
	var breaksRaw, loginEventsRaw, tasksRaw []byte
	var modifiedBy, modificationReason sql.NullString

	if err := scan(
		&s.ShiftID,
		&s.TenantID,
		&s.UserID,
		&s.ShiftDate,
		&s.ScheduledStart,
		&s.ScheduledEnd,
		&actualStart,
		&actualEnd,
		&s.Status,
		&breaksRaw,
		&onCallStart,
		&onCallEnd,
		&onCallMinutes,
		&loginEventsRaw,
		&tasksRaw,
		&modifiedBy,
		&modificationReason,
	); err != nil {
		return nil, err
	}

	if actualStart.Valid {
		s.ActualStart = &actualStart.Time
	}
	if actualEnd.Valid {
		s.ActualEnd = &actualEnd.Time
	}
	if onCallStart.Valid {
		s.OnCallStart = &onCallStart.Time
	}
	if onCallEnd.Valid {
		s.OnCallEnd = &onCallEnd.Time
	}
	if onCallMinutes.Valid {
		m := int(onCallMinutes.Int64)
		s.OnCallMinutes = &m
	}
	if modifiedBy.Valid {
		s.ModifiedBy = modifiedBy.String
	}
	if modificationReason.Valid {
		s.ModificationReason = modificationReason.String
	}
	if err := unmarshalJSONColumn(breaksRaw, &s.Breaks); err != nil {
		return nil, fmt.Errorf("failed to decode breaks: %w", err)
	}
	if err := unmarshalJSONColumn(loginEventsRaw, &s.LoginEvents); err != nil {
		return nil, fmt.Errorf("failed to decode login events: %w", err)
	}
	if err := unmarshalJSONColumn(tasksRaw, &s.Tasks); err != nil {
		return nil, fmt.Errorf("failed to decode embedded tasks: %w", err)
	}

	return &s, nil
}

// GetShift fetches one shift scoped to its tenant.
func (r *PostgresShiftsRepository) GetShift(ctx context.Context, tenantID, shiftID string) (*domain.Shift, error) {
	if tenantID == "" || shiftID == "" {
		return nil, fmt.Errorf("shift not found: %w", domain.ErrNotFound)
	}

	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE tenant_id = $1 AND shift_id = $2
	`

	row := r.db.QueryRowContext(ctx, query, tenantID, shiftID)
	shift, err := scanShift(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("shift not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get shift: %w", err)
	}

	return shift, nil
}

// ListShifts queries shifts with filters and pagination.
func (r *PostgresShiftsRepository) ListShifts(ctx context.Context, tenantID string, filters *ShiftFilters, page, size int) ([]*domain.Shift, int, error) {
	if tenantID == "" {
		return []*domain.Shift{}, 0, nil
	}

	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2

	if filters != nil {
		if filters.UserID != "" {
			where = append(where, fmt.Sprintf("user_id = $%d", argN))
			args = append(args, filters.UserID)
			argN++
		}
		if filters.Status != "" {
			where = append(where, fmt.Sprintf("status = $%d", argN))
			args = append(args, filters.Status)
			argN++
		}
		if filters.StartTime != nil {
			where = append(where, fmt.Sprintf("scheduled_start >= $%d", argN))
			args = append(args, *filters.StartTime)
			argN++
		}
		if filters.EndTime != nil {
			where = append(where, fmt.Sprintf("scheduled_start <= $%d", argN))
			args = append(args, *filters.EndTime)
			argN++
		}
	}

	queryCount := `
		SELECT COUNT(*)
		FROM shifts
		WHERE ` + strings.Join(where, " AND ")
	var total int
	if err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count shifts: %w", err)
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
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY scheduled_start DESC
		LIMIT $` + fmt.Sprintf("%d", argN) + ` OFFSET $` + fmt.Sprintf("%d", argN+1)

	rows, err := r.db.QueryContext(ctx, query, argsList...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list shifts: %w", err)
	}
	defer rows.Close()

	var shifts []*domain.Shift
	for rows.Next() {
		shift, err := scanShift(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan shift: %w", err)
		}
		shifts = append(shifts, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate shifts: %w", err)
	}

	return shifts, total, nil
}

// CreateShift inserts a shift and returns its id.
func (r *PostgresShiftsRepository) CreateShift(ctx context.Context, tenantID string, shift *domain.Shift) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("tenant_id is required")
	}
	if shift.UserID == "" {
		return "", fmt.Errorf("user_id is required")
	}
	if shift.Status == "" {
		shift.Status = domain.ShiftScheduled
	}

	breaks, err := marshalJSONColumn(shift.Breaks)
	if err != nil {
		return "", fmt.Errorf("failed to encode breaks: %w", err)
	}
	loginEvents, err := marshalJSONColumn(shift.LoginEvents)
	if err != nil {
		return "", fmt.Errorf("failed to encode login events: %w", err)
	}
	tasks, err := marshalJSONColumn(shift.Tasks)
	if err != nil {
		return "", fmt.Errorf("failed to encode embedded tasks: %w", err)
	}

	query := `
		INSERT INTO shifts (
			tenant_id,
			user_id,
			shift_date,
			scheduled_start,
			scheduled_end,
			status,
			breaks,
			login_events,
			tasks
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING shift_id::text
	`

	var shiftID string
	err = r.db.QueryRowContext(ctx, query, tenantID, shift.UserID, shift.ShiftDate,
		shift.ScheduledStart, shift.ScheduledEnd, shift.Status, breaks, loginEvents, tasks).Scan(&shiftID)
	if err != nil {
		return "", fmt.Errorf("failed to create shift: %w", err)
	}

	return shiftID, nil
}

// UpdateShift persists the full mutable state of a shift.
func (r *PostgresShiftsRepository) UpdateShift(ctx context.Context, tenantID, shiftID string, shift *domain.Shift) error {
	if tenantID == "" || shiftID == "" {
		return fmt.Errorf("tenant_id and shift_id are required")
	}

	breaks, err := marshalJSONColumn(shift.Breaks)
	if err != nil {
		return fmt.Errorf("failed to encode breaks: %w", err)
	}
	loginEvents, err := marshalJSONColumn(shift.LoginEvents)
	if err != nil {
		return fmt.Errorf("failed to encode login events: %w", err)
	}

	query := `
		UPDATE shifts
		SET
			scheduled_start = $3,
			scheduled_end = $4,
			actual_start = $5,
			actual_end = $6,
			status = $7,
			breaks = $8,
			on_call_start = $9,
			on_call_end = $10,
			on_call_minutes = $11,
			login_events = $12,
			modified_by = $13,
			modification_reason = $14
		WHERE tenant_id = $1 AND shift_id = $2
	`

	var modifiedBy, modificationReason any
	if shift.ModifiedBy != "" {
		modifiedBy = shift.ModifiedBy
	}
	if shift.ModificationReason != "" {
		modificationReason = shift.ModificationReason
	}

	result, err := r.db.ExecContext(ctx, query, tenantID, shiftID,
		shift.ScheduledStart, shift.ScheduledEnd, shift.ActualStart, shift.ActualEnd,
		shift.Status, breaks, shift.OnCallStart, shift.OnCallEnd, shift.OnCallMinutes,
		loginEvents, modifiedBy, modificationReason)
	if err != nil {
		return fmt.Errorf("failed to update shift: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("shift not found: %w", domain.ErrNotFound)
	}

	return nil
}

// CountOverlapping counts non-cancelled shifts for the user intersecting
// the half-open window [start, end).
func (r *PostgresShiftsRepository) CountOverlapping(ctx context.Context, tenantID, userID string, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM shifts
		WHERE tenant_id = $1
		  AND user_id = $2
		  AND status <> $3
		  AND scheduled_start < $4
		  AND scheduled_end > $5
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, tenantID, userID, domain.ShiftCancelled, end, start).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping shifts: %w", err)
	}

	return count, nil
}

// ListShiftsWithTasksForPatient returns shifts whose legacy embedded tasks
// reference the patient.
func (r *PostgresShiftsRepository) ListShiftsWithTasksForPatient(ctx context.Context, tenantID, patientID string) ([]*domain.Shift, error) {
	if tenantID == "" || patientID == "" {
		return []*domain.Shift{}, nil
	}

	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE tenant_id = $1
		  AND tasks @> $2::jsonb
	`

	match := fmt.Sprintf(`[{"patient_id": %q}]`, patientID)
	rows, err := r.db.QueryContext(ctx, query, tenantID, match)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts with embedded tasks: %w", err)
	}
	defer rows.Close()

	var shifts []*domain.Shift
	for rows.Next() {
		shift, err := scanShift(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		shifts = append(shifts, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shifts: %w", err)
	}

	return shifts, nil
}

// FindEmbeddedTask looks up a legacy task inside the shifts JSONB.
// Returns (nil, nil) when no shift embeds the id.
func (r *PostgresShiftsRepository) FindEmbeddedTask(ctx context.Context, tenantID, taskID string) (*domain.EmbeddedTask, error) {
	if tenantID == "" || taskID == "" {
		return nil, nil
	}

	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE tenant_id = $1
		  AND tasks @> $2::jsonb
		LIMIT 1
	`

	match := fmt.Sprintf(`[{"task_id": %q}]`, taskID)
	row := r.db.QueryRowContext(ctx, query, tenantID, match)
	shift, err := scanShift(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find embedded task: %w", err)
	}

	for i := range shift.Tasks {
		if shift.Tasks[i].TaskID == taskID {
			return &shift.Tasks[i], nil
		}
	}
	return nil, nil
}

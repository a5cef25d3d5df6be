package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hospital-ops/internal/domain"
)

// PostgresTasksRepository tasks table implementation.
type PostgresTasksRepository struct {
	db *sql.DB
}

func NewPostgresTasksRepository(db *sql.DB) *PostgresTasksRepository {
	return &PostgresTasksRepository{db: db}
}

var _ TasksRepository = (*PostgresTasksRepository)(nil)

const taskColumns = `
	task_id::text,
	tenant_id::text,
	patient_id::text,
	title,
	task_type,
	priority,
	due_time,
	status,
	prescription_id,
	template_key,
	legacy_id,
	assigned_to,
	completed_at,
	completed_by,
	notes
`

func scanTask(scan func(...any) error) (*domain.Task, error) {
	var t domain.Task
	var dueTime, completedAt sql.NullTime
	var prescriptionID, templateKey, legacyID, assignedTo, completedBy, notes sql.NullString

	if err := scan(
		&t.TaskID,
		&t.TenantID,
		&t.PatientID,
		&t.Title,
		&t.TaskType,
		&t.Priority,
		&dueTime,
		&t.Status,
		&prescriptionID,
		&templateKey,
		&legacyID,
		&assignedTo,
		&completedAt,
		&completedBy,
		&notes,
	); err != nil {
		return nil, err
	}

	if dueTime.Valid {
		t.DueTime = &dueTime.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if prescriptionID.Valid {
		t.PrescriptionID = prescriptionID.String
	}
	if templateKey.Valid {
		t.TemplateKey = templateKey.String
	}
	if legacyID.Valid {
		t.LegacyID = legacyID.String
	}
	if assignedTo.Valid {
		t.AssignedTo = assignedTo.String
	}
	if completedBy.Valid {
		t.CompletedBy = completedBy.String
	}
	if notes.Valid {
		t.Notes = notes.String
	}
	t.Source = domain.TaskSourcePersisted

	return &t, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// GetTask fetches one task scoped to its tenant.
func (r *PostgresTasksRepository) GetTask(ctx context.Context, tenantID, taskID string) (*domain.Task, error) {
	if tenantID == "" || taskID == "" {
		return nil, fmt.Errorf("task not found: %w", domain.ErrNotFound)
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE tenant_id = $1 AND task_id = $2
	`

	row := r.db.QueryRowContext(ctx, query, tenantID, taskID)
	task, err := scanTask(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("task not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ListPatientTasks returns all tasks of a patient, pending first.
func (r *PostgresTasksRepository) ListPatientTasks(ctx context.Context, tenantID, patientID string) ([]*domain.Task, error) {
	if tenantID == "" || patientID == "" {
		return []*domain.Task{}, nil
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE tenant_id = $1 AND patient_id = $2
		ORDER BY status, due_time NULLS LAST
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// CreateTask inserts a task. The due_bucket unique index (tenant, dedupe key,
// type, 5-minute bucket) makes concurrent duplicate materialization
// structurally impossible; on conflict the existing row's id is returned.
func (r *PostgresTasksRepository) CreateTask(ctx context.Context, tenantID string, task *domain.Task) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("tenant_id is required")
	}
	if task.PatientID == "" {
		return "", fmt.Errorf("patient_id is required")
	}
	if task.Status == "" {
		task.Status = domain.TaskPending
	}

	var dueBucket any
	if task.DueTime != nil {
		dueBucket = domain.DueBucket(*task.DueTime)
	}

	query := `
		INSERT INTO tasks (
			tenant_id,
			patient_id,
			title,
			task_type,
			priority,
			due_time,
			due_bucket,
			status,
			prescription_id,
			template_key,
			legacy_id,
			assigned_to,
			completed_at,
			completed_by,
			notes,
			dedupe_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (tenant_id, dedupe_key, task_type, due_bucket) DO NOTHING
		RETURNING task_id::text
	`

	var taskID string
	err := r.db.QueryRowContext(ctx, query, tenantID, task.PatientID, task.Title,
		task.TaskType, task.Priority, task.DueTime, dueBucket, task.Status,
		nullable(task.PrescriptionID), nullable(task.TemplateKey), nullable(task.LegacyID),
		nullable(task.AssignedTo), task.CompletedAt, nullable(task.CompletedBy),
		nullable(task.Notes), task.DedupeKey()).Scan(&taskID)
	if err == sql.ErrNoRows {
		// Conflict: another materialization won the race, return the winner.
		existing, ferr := r.FindNearDue(ctx, tenantID, task.DedupeKey(), task.TaskType,
			derefTime(task.DueTime), domain.DedupeTolerance)
		if ferr != nil {
			return "", ferr
		}
		if existing != nil {
			return existing.TaskID, nil
		}
		return "", fmt.Errorf("failed to create task: conflict without winner")
	}
	if err != nil {
		return "", fmt.Errorf("failed to create task: %w", err)
	}

	return taskID, nil
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// UpdateTask persists the mutable completion state of a task.
func (r *PostgresTasksRepository) UpdateTask(ctx context.Context, tenantID, taskID string, task *domain.Task) error {
	if tenantID == "" || taskID == "" {
		return fmt.Errorf("tenant_id and task_id are required")
	}

	query := `
		UPDATE tasks
		SET
			priority = $3,
			status = $4,
			assigned_to = $5,
			completed_at = $6,
			completed_by = $7,
			notes = $8
		WHERE tenant_id = $1 AND task_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, tenantID, taskID, task.Priority,
		task.Status, nullable(task.AssignedTo), task.CompletedAt,
		nullable(task.CompletedBy), nullable(task.Notes))
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task not found: %w", domain.ErrNotFound)
	}

	return nil
}

// FindNearDue looks for an existing task with the same dedupe key and type
// within tolerance of due. Returns (nil, nil) when none exists.
func (r *PostgresTasksRepository) FindNearDue(ctx context.Context, tenantID, dedupeKey, taskType string, due time.Time, tolerance time.Duration) (*domain.Task, error) {
	if tenantID == "" || dedupeKey == "" {
		return nil, nil
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE tenant_id = $1
		  AND dedupe_key = $2
		  AND task_type = $3
		  AND due_time >= $4
		  AND due_time <= $5
		LIMIT 1
	`

	row := r.db.QueryRowContext(ctx, query, tenantID, dedupeKey, taskType,
		due.Add(-tolerance), due.Add(tolerance))
	task, err := scanTask(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find task near due time: %w", err)
	}

	return task, nil
}

// FindByLegacyID returns the persisted task migrated from an embedded shift
// task, or (nil, nil).
func (r *PostgresTasksRepository) FindByLegacyID(ctx context.Context, tenantID, legacyID string) (*domain.Task, error) {
	if tenantID == "" || legacyID == "" {
		return nil, nil
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE tenant_id = $1 AND legacy_id = $2
		LIMIT 1
	`

	row := r.db.QueryRowContext(ctx, query, tenantID, legacyID)
	task, err := scanTask(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find task by legacy id: %w", err)
	}

	return task, nil
}

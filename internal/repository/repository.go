package repository

import (
	"context"
	"time"

	"hospital-ops/internal/domain"
)

// ShiftFilters narrows shift listings. Zero values are ignored.
type ShiftFilters struct {
	UserID    string
	Status    string
	StartTime *time.Time
	EndTime   *time.Time
}

// ShiftsRepository owns the shifts table.
type ShiftsRepository interface {
	GetShift(ctx context.Context, tenantID, shiftID string) (*domain.Shift, error)
	ListShifts(ctx context.Context, tenantID string, filters *ShiftFilters, page, size int) ([]*domain.Shift, int, error)
	CreateShift(ctx context.Context, tenantID string, shift *domain.Shift) (string, error)
	UpdateShift(ctx context.Context, tenantID, shiftID string, shift *domain.Shift) error

	// CountOverlapping counts non-cancelled shifts for the user whose
	// scheduled window intersects the half-open interval [start, end).
	CountOverlapping(ctx context.Context, tenantID, userID string, start, end time.Time) (int, error)

	// Legacy embedded tasks (read-only migration path).
	ListShiftsWithTasksForPatient(ctx context.Context, tenantID, patientID string) ([]*domain.Shift, error)
	FindEmbeddedTask(ctx context.Context, tenantID, taskID string) (*domain.EmbeddedTask, error)
}

// TasksRepository owns the tasks table.
type TasksRepository interface {
	GetTask(ctx context.Context, tenantID, taskID string) (*domain.Task, error)
	ListPatientTasks(ctx context.Context, tenantID, patientID string) ([]*domain.Task, error)
	CreateTask(ctx context.Context, tenantID string, task *domain.Task) (string, error)
	UpdateTask(ctx context.Context, tenantID, taskID string, task *domain.Task) error

	// FindNearDue returns an existing task with the same dedupe key and type
	// whose due time lies within tolerance of due, or (nil, nil).
	FindNearDue(ctx context.Context, tenantID, dedupeKey, taskType string, due time.Time, tolerance time.Duration) (*domain.Task, error)

	// FindByLegacyID returns the persisted task migrated from an embedded
	// shift task, or (nil, nil).
	FindByLegacyID(ctx context.Context, tenantID, legacyID string) (*domain.Task, error)
}

// PrescriptionsRepository reads prescriptions; this core never writes them.
type PrescriptionsRepository interface {
	GetPrescription(ctx context.Context, tenantID, prescriptionID string) (*domain.Prescription, error)
	ListActiveForPatient(ctx context.Context, tenantID, patientID string) ([]*domain.Prescription, error)
}

// AdmissionsRepository owns the admissions table.
type AdmissionsRepository interface {
	GetAdmission(ctx context.Context, tenantID, admissionID string) (*domain.Admission, error)
	ListAdmissions(ctx context.Context, tenantID, status string, page, size int) ([]*domain.Admission, int, error)
	CreateAdmission(ctx context.Context, tenantID string, admission *domain.Admission) (string, error)
	UpdateAdmission(ctx context.Context, tenantID, admissionID string, admission *domain.Admission) error
}

// WardsRepository owns the wards table and its capacity counter.
type WardsRepository interface {
	GetWard(ctx context.Context, tenantID, wardID string) (*domain.Ward, error)

	// ReserveBed atomically increments occupied_beds iff capacity remains.
	// Returns domain.ErrCapacityExceeded when the ward is full and
	// domain.ErrNotFound when the ward does not exist.
	ReserveBed(ctx context.Context, tenantID, wardID string) error

	// ReleaseBed decrements occupied_beds, flooring at zero.
	ReleaseBed(ctx context.Context, tenantID, wardID string) error
}

// PatientsRepository reads patients; patient CRUD lives outside this core.
type PatientsRepository interface {
	GetPatient(ctx context.Context, tenantID, patientID string) (*domain.Patient, error)
}

// DischargesRepository is consulted for the admission-completion precondition.
type DischargesRepository interface {
	ExistsForAdmission(ctx context.Context, tenantID, admissionID string) (bool, error)
}

// AuditRepository is the append-only audit sink.
type AuditRepository interface {
	AppendEvent(ctx context.Context, event *domain.AuditEvent) (string, error)
}

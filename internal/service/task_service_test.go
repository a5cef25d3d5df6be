package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hospital-ops/internal/domain"
	"hospital-ops/internal/repository"
)

type taskFixture struct {
	svc      *taskService
	tasks    *repository.MemoryTasksRepo
	shifts   *repository.MemoryShiftsRepo
	patients *repository.MemoryPatientsRepo
	rx       *repository.MemoryPrescriptionsRepo
	audit    *repository.MemoryAuditRepo
	now      time.Time

	patientID string
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()

	tasks := repository.NewMemoryTasksRepo()
	shifts := repository.NewMemoryShiftsRepo()
	patients := repository.NewMemoryPatientsRepo()
	rx := repository.NewMemoryPrescriptionsRepo()
	audit := repository.NewMemoryAuditRepo()
	recorder := NewAuditRecorder(audit, nil, "", false, zap.NewNop())

	svc := NewTaskService(tasks, shifts, patients, rx, NewPermissionGate(), recorder, zap.NewNop()).(*taskService)
	f := &taskFixture{
		svc:      svc,
		tasks:    tasks,
		shifts:   shifts,
		patients: patients,
		rx:       rx,
		audit:    audit,
		now:      time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC),
	}
	svc.now = func() time.Time { return f.now }

	f.patientID = patients.SeedPatient(domain.Patient{
		TenantID: testTenant,
		FullName: "Pat One",
	})
	return f
}

func (f *taskFixture) list(t *testing.T) []*domain.Task {
	t.Helper()
	nurse := domain.Actor{UserID: "nurse-1", Role: domain.RoleNurse}
	tasks, err := f.svc.GetPatientTasks(context.Background(), GetPatientTasksRequest{
		TenantID:  testTenant,
		Actor:     nurse,
		PatientID: f.patientID,
	})
	require.NoError(t, err)
	return tasks
}

func tasksOfType(tasks []*domain.Task, taskType string) []*domain.Task {
	var out []*domain.Task
	for _, task := range tasks {
		if task.TaskType == taskType {
			out = append(out, task)
		}
	}
	return out
}

func TestGetPatientTasksDerivesMedication(t *testing.T) {
	f := newTaskFixture(t)

	start := f.now.Add(-13 * time.Hour)
	rxID := f.rx.SeedPrescription(domain.Prescription{
		TenantID:   testTenant,
		PatientID:  f.patientID,
		Medication: "Amoxicillin",
		Dose:       "500mg",
		Frequency:  "q4h",
		StartDate:  start,
		Administrations: []domain.Administration{
			{AdministeredAt: start},
		},
	})

	tasks := f.list(t)
	meds := tasksOfType(tasks, domain.TaskTypeMedication)
	require.Len(t, meds, 1, "missed doses collapse into a single task")

	med := meds[0]
	assert.Equal(t, rxID, med.PrescriptionID)
	assert.Equal(t, "Administer Amoxicillin 500mg", med.Title)
	require.NotNil(t, med.DueTime)
	assert.Equal(t, start.Add(16*time.Hour), *med.DueTime)
	assert.Equal(t, domain.TaskPending, med.Status)

	// Repeated listings converge on the same record.
	again := tasksOfType(f.list(t), domain.TaskTypeMedication)
	require.Len(t, again, 1)
	assert.Equal(t, med.TaskID, again[0].TaskID)
}

func TestGetPatientTasksSkipsFarFutureDoses(t *testing.T) {
	f := newTaskFixture(t)

	// Starts in three days: outside the derivation horizon.
	f.rx.SeedPrescription(domain.Prescription{
		TenantID:   testTenant,
		PatientID:  f.patientID,
		Medication: "Warfarin",
		Dose:       "5mg",
		Frequency:  "daily",
		StartDate:  f.now.Add(72 * time.Hour),
	})

	assert.Empty(t, tasksOfType(f.list(t), domain.TaskTypeMedication))
}

func TestGetPatientTasksStandingTasks(t *testing.T) {
	f := newTaskFixture(t)

	tasks := f.list(t)

	assessments := tasksOfType(tasks, domain.TaskTypeAssessment)
	rounds := tasksOfType(tasks, domain.TaskTypeRounds)
	require.Len(t, assessments, 1)
	require.Len(t, rounds, 1)

	require.NotNil(t, assessments[0].DueTime)
	assert.Equal(t, f.now.Add(2*time.Hour), *assessments[0].DueTime)
	assert.Equal(t, f.now.Add(time.Hour), *rounds[0].DueTime)

	// Idempotent across calls.
	again := f.list(t)
	assert.Len(t, tasksOfType(again, domain.TaskTypeAssessment), 1)
	assert.Len(t, tasksOfType(again, domain.TaskTypeRounds), 1)
}

func TestGetPatientTasksOrdering(t *testing.T) {
	f := newTaskFixture(t)

	// Due in 10 minutes: urgent, sorts above the standing tasks.
	f.rx.SeedPrescription(domain.Prescription{
		TenantID:   testTenant,
		PatientID:  f.patientID,
		Medication: "Insulin",
		Dose:       "10u",
		Frequency:  "q4h",
		StartDate:  f.now.Add(10 * time.Minute),
	})

	tasks := f.list(t)
	require.NotEmpty(t, tasks)
	assert.Equal(t, domain.TaskTypeMedication, tasks[0].TaskType)
	assert.Equal(t, domain.PriorityUrgent, tasks[0].Priority)

	for i := 1; i < len(tasks); i++ {
		assert.GreaterOrEqual(t,
			domain.PriorityRank(tasks[i-1].Priority),
			domain.PriorityRank(tasks[i].Priority))
	}
}

func TestGetPatientTasksSurfacesLegacy(t *testing.T) {
	f := newTaskFixture(t)

	due := f.now.Add(2 * time.Hour)
	f.shifts.SeedShift(domain.Shift{
		TenantID:       testTenant,
		UserID:         "nurse-9",
		ScheduledStart: f.now.Add(-time.Hour),
		ScheduledEnd:   f.now.Add(7 * time.Hour),
		Status:         domain.ShiftActive,
		Tasks: []domain.EmbeddedTask{
			{
				TaskID:    "legacy-001",
				PatientID: f.patientID,
				Title:     "Wound dressing change",
				TaskType:  "wound_care",
				Priority:  domain.PriorityHigh,
				DueTime:   &due,
				Status:    domain.TaskPending,
			},
			{
				TaskID:    "legacy-002",
				PatientID: f.patientID,
				Title:     "Old completed task",
				TaskType:  "wound_care",
				Priority:  domain.PriorityLow,
				Status:    domain.TaskCompleted,
			},
		},
	})

	tasks := f.list(t)
	legacy := tasksOfType(tasks, "wound_care")
	require.Len(t, legacy, 1, "completed embedded tasks stay hidden")
	assert.Equal(t, "legacy-001", legacy[0].TaskID)
	assert.Equal(t, domain.TaskSourceLegacy, legacy[0].Source)
	assert.Equal(t, "nurse-9", legacy[0].AssignedTo)
}

func TestCompleteTaskPersisted(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	nurse := domain.Actor{UserID: "nurse-1", Role: domain.RoleNurse}

	tasks := f.list(t)
	rounds := tasksOfType(tasks, domain.TaskTypeRounds)
	require.Len(t, rounds, 1)

	f.now = f.now.Add(2 * time.Minute)
	done, err := f.svc.CompleteTask(ctx, CompleteTaskRequest{
		TenantID: testTenant,
		Actor:    nurse,
		TaskID:   rounds[0].TaskID,
		Notes:    "all quiet",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, done.Status)
	assert.Equal(t, "nurse-1", done.CompletedBy)
	assert.Equal(t, "all quiet", done.Notes)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, f.now, *done.CompletedAt)

	// Completed tasks drop out of the listing.
	assert.Empty(t, tasksOfType(f.list(t), domain.TaskTypeRounds))

	// Double completion is a no-op, not an error, and does not restamp.
	completedAt := *done.CompletedAt
	f.now = f.now.Add(time.Hour)
	again, err := f.svc.CompleteTask(ctx, CompleteTaskRequest{
		TenantID: testTenant,
		Actor:    domain.Actor{UserID: "nurse-2", Role: domain.RoleNurse},
		TaskID:   done.TaskID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, again.Status)
	assert.Equal(t, "nurse-1", again.CompletedBy)
	assert.Equal(t, completedAt, *again.CompletedAt)
}

func TestCompleteTaskByMedicationRef(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	nurse := domain.Actor{UserID: "nurse-1", Role: domain.RoleNurse}

	rxID := f.rx.SeedPrescription(domain.Prescription{
		TenantID:   testTenant,
		PatientID:  f.patientID,
		Medication: "Amoxicillin",
		Dose:       "500mg",
		Frequency:  "q6h",
		StartDate:  f.now.Add(-2 * time.Hour),
	})

	// Complete straight off the structured reference, without listing first.
	due := f.now.Add(4 * time.Hour)
	ref := virtualTaskID("med", rxID, due)

	done, err := f.svc.CompleteTask(ctx, CompleteTaskRequest{
		TenantID: testTenant,
		Actor:    nurse,
		TaskID:   ref,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, done.Status)
	assert.Equal(t, rxID, done.PrescriptionID)
	assert.NotEqual(t, ref, done.TaskID, "materialized under a real id")

	// Completing the same reference again resolves to the same record.
	again, err := f.svc.CompleteTask(ctx, CompleteTaskRequest{
		TenantID: testTenant,
		Actor:    nurse,
		TaskID:   ref,
	})
	require.NoError(t, err)
	assert.Equal(t, done.TaskID, again.TaskID)
}

func TestCompleteTaskLegacyMigration(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	nurse := domain.Actor{UserID: "nurse-1", Role: domain.RoleNurse}

	due := f.now.Add(time.Hour)
	f.shifts.SeedShift(domain.Shift{
		TenantID:       testTenant,
		UserID:         "nurse-9",
		ScheduledStart: f.now.Add(-time.Hour),
		ScheduledEnd:   f.now.Add(7 * time.Hour),
		Status:         domain.ShiftActive,
		Tasks: []domain.EmbeddedTask{
			{
				TaskID:    "legacy-777",
				PatientID: f.patientID,
				Title:     "Turn patient",
				TaskType:  "positioning",
				Priority:  domain.PriorityMedium,
				DueTime:   &due,
				Status:    domain.TaskPending,
			},
		},
	})

	done, err := f.svc.CompleteTask(ctx, CompleteTaskRequest{
		TenantID: testTenant,
		Actor:    nurse,
		TaskID:   "legacy-777",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, done.Status)
	assert.Equal(t, "legacy-777", done.LegacyID)

	// The migrated record shadows the embedded one in later listings.
	assert.Empty(t, tasksOfType(f.list(t), "positioning"))

	// And resolving the legacy id again finds the migrated row.
	again, err := f.svc.CompleteTask(ctx, CompleteTaskRequest{
		TenantID: testTenant,
		Actor:    nurse,
		TaskID:   "legacy-777",
	})
	require.NoError(t, err)
	assert.Equal(t, done.TaskID, again.TaskID)
}

func TestCompleteTaskUnknownRef(t *testing.T) {
	f := newTaskFixture(t)
	nurse := domain.Actor{UserID: "nurse-1", Role: domain.RoleNurse}

	_, err := f.svc.CompleteTask(context.Background(), CompleteTaskRequest{
		TenantID: testTenant,
		Actor:    nurse,
		TaskID:   "no-such-task",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompleteTaskDeniedForUnknownRole(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	nurse := domain.Actor{UserID: "nurse-1", Role: domain.RoleNurse}
	porter := domain.Actor{UserID: "porter-1", Role: "porter"}

	rounds := tasksOfType(f.list(t), domain.TaskTypeRounds)
	require.Len(t, rounds, 1)
	done, err := f.svc.CompleteTask(ctx, CompleteTaskRequest{
		TenantID: testTenant, Actor: nurse, TaskID: rounds[0].TaskID,
	})
	require.NoError(t, err)

	// An already-completed task is gated the same as a pending one: the
	// no-op path must not hand the record to an unauthorized role.
	got, err := f.svc.CompleteTask(ctx, CompleteTaskRequest{
		TenantID: testTenant, Actor: porter, TaskID: done.TaskID,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Nil(t, got)
}

func TestCompleteTaskDeniedBeforeMaterializing(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	porter := domain.Actor{UserID: "porter-1", Role: "porter"}

	rxID := f.rx.SeedPrescription(domain.Prescription{
		TenantID:   testTenant,
		PatientID:  f.patientID,
		Medication: "Amoxicillin",
		Dose:       "500mg",
		Frequency:  "q6h",
		StartDate:  f.now.Add(-2 * time.Hour),
	})
	ref := virtualTaskID("med", rxID, f.now.Add(4*time.Hour))

	_, err := f.svc.CompleteTask(ctx, CompleteTaskRequest{
		TenantID: testTenant, Actor: porter, TaskID: ref,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// The rejected call must not leave a materialized task behind.
	persisted, err := f.tasks.ListPatientTasks(ctx, testTenant, f.patientID)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestTaskAccessDeniedForUnknownRole(t *testing.T) {
	f := newTaskFixture(t)
	porter := domain.Actor{UserID: "porter-1", Role: "porter"}

	_, err := f.svc.GetPatientTasks(context.Background(), GetPatientTasksRequest{
		TenantID:  testTenant,
		Actor:     porter,
		PatientID: f.patientID,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"hospital-ops/internal/domain"
	"hospital-ops/internal/repository"
)

// PrescriptionSource feeds the medication task derivation. Backed by the
// prescriptions table, or by the external pharmacy service when enabled.
type PrescriptionSource interface {
	GetPrescription(ctx context.Context, tenantID, prescriptionID string) (*domain.Prescription, error)
	ListActiveForPatient(ctx context.Context, tenantID, patientID string) ([]*domain.Prescription, error)
}

// TaskService derives, deduplicates and completes clinical tasks.
type TaskService interface {
	GetPatientTasks(ctx context.Context, req GetPatientTasksRequest) ([]*domain.Task, error)
	CompleteTask(ctx context.Context, req CompleteTaskRequest) (*domain.Task, error)
}

type taskService struct {
	tasksRepo     repository.TasksRepository
	shiftsRepo    repository.ShiftsRepository
	patientsRepo  repository.PatientsRepository
	prescriptions PrescriptionSource
	gate          PermissionGate
	audit         AuditRecorder
	logger        *zap.Logger
	now           func() time.Time
}

func NewTaskService(
	tasksRepo repository.TasksRepository,
	shiftsRepo repository.ShiftsRepository,
	patientsRepo repository.PatientsRepository,
	prescriptions PrescriptionSource,
	gate PermissionGate,
	audit AuditRecorder,
	logger *zap.Logger,
) TaskService {
	return &taskService{
		tasksRepo:     tasksRepo,
		shiftsRepo:    shiftsRepo,
		patientsRepo:  patientsRepo,
		prescriptions: prescriptions,
		gate:          gate,
		audit:         audit,
		logger:        logger,
		now:           time.Now,
	}
}

// GetPatientTasksRequest lists the open work for one patient.
type GetPatientTasksRequest struct {
	TenantID  string
	Actor     domain.Actor
	PatientID string
}

// CompleteTaskRequest completes a task by any reference shape.
type CompleteTaskRequest struct {
	TenantID string
	Actor    domain.Actor

	TaskID string
	Notes  string
}

// GetPatientTasks merges four sources into one deduplicated, priority-ordered
// worklist: persisted tasks, legacy tasks embedded in shift records, freshly
// derived medication tasks, and the standing nursing tasks. Derivation
// materializes eagerly and idempotently, so repeated calls converge on the
// same records.
func (s *taskService) GetPatientTasks(ctx context.Context, req GetPatientTasksRequest) ([]*domain.Task, error) {
	if !req.Actor.Valid() {
		return nil, fmt.Errorf("missing actor: %w", domain.ErrUnauthorized)
	}
	if !s.gate.Can(req.Actor, "read", Resource{Type: "task"}) {
		return nil, fmt.Errorf("actor may not read tasks: %w", domain.ErrForbidden)
	}

	if _, err := s.patientsRepo.GetPatient(ctx, req.TenantID, req.PatientID); err != nil {
		return nil, err
	}

	now := s.now()

	if err := s.materializeMedicationTasks(ctx, req.TenantID, req.PatientID, now); err != nil {
		return nil, err
	}
	if err := s.materializeStandingTasks(ctx, req.TenantID, req.PatientID, now); err != nil {
		return nil, err
	}

	persisted, err := s.tasksRepo.ListPatientTasks(ctx, req.TenantID, req.PatientID)
	if err != nil {
		return nil, err
	}

	tasks := make([]*domain.Task, 0, len(persisted))
	migrated := map[string]bool{}
	for _, t := range persisted {
		if t.LegacyID != "" {
			migrated[t.LegacyID] = true
		}
		if t.Status == domain.TaskCompleted {
			continue
		}
		tasks = append(tasks, t)
	}

	legacy, err := s.collectLegacyTasks(ctx, req.TenantID, req.PatientID, migrated)
	if err != nil {
		return nil, err
	}
	tasks = append(tasks, legacy...)

	sortTasks(tasks)
	return tasks, nil
}

// materializeMedicationTasks derives the next dose of every active
// prescription and persists it unless an equivalent task already exists
// within the dedupe window. Only doses due inside the 24-hour horizon
// materialize.
func (s *taskService) materializeMedicationTasks(ctx context.Context, tenantID, patientID string, now time.Time) error {
	prescriptions, err := s.prescriptions.ListActiveForPatient(ctx, tenantID, patientID)
	if err != nil {
		return fmt.Errorf("failed to load prescriptions: %w", err)
	}

	for _, p := range prescriptions {
		due := NextDoseTime(p, now)
		if due.After(now.Add(taskHorizon)) {
			continue
		}

		existing, err := s.tasksRepo.FindNearDue(ctx, tenantID, p.PrescriptionID,
			domain.TaskTypeMedication, due, domain.DedupeTolerance)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		task := &domain.Task{
			TenantID:       tenantID,
			PatientID:      patientID,
			Title:          fmt.Sprintf("Administer %s %s", p.Medication, p.Dose),
			TaskType:       domain.TaskTypeMedication,
			Priority:       DuePriority(due, now),
			DueTime:        &due,
			Status:         domain.TaskPending,
			PrescriptionID: p.PrescriptionID,
		}
		if _, err := s.tasksRepo.CreateTask(ctx, tenantID, task); err != nil {
			return err
		}
	}

	return nil
}

// materializeStandingTasks keeps the assessment and rounds tasks present,
// one per patient per window.
func (s *taskService) materializeStandingTasks(ctx context.Context, tenantID, patientID string, now time.Time) error {
	standing := []struct {
		key   string
		title string
		due   time.Time
	}{
		{domain.TaskTypeAssessment, "Patient assessment", now.Add(assessmentLead)},
		{domain.TaskTypeRounds, "Ward rounds check", now.Add(roundsLead)},
	}

	for _, st := range standing {
		dedupeKey := st.key + ":" + patientID
		existing, err := s.tasksRepo.FindNearDue(ctx, tenantID, dedupeKey, st.key, st.due, domain.DedupeTolerance)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		task := &domain.Task{
			TenantID:    tenantID,
			PatientID:   patientID,
			Title:       st.title,
			TaskType:    st.key,
			Priority:    DuePriority(st.due, now),
			DueTime:     &st.due,
			Status:      domain.TaskPending,
			TemplateKey: st.key,
		}
		if _, err := s.tasksRepo.CreateTask(ctx, tenantID, task); err != nil {
			return err
		}
	}

	return nil
}

// collectLegacyTasks surfaces still-pending tasks embedded in shift records,
// skipping any that were already migrated into the tasks table.
func (s *taskService) collectLegacyTasks(ctx context.Context, tenantID, patientID string, migrated map[string]bool) ([]*domain.Task, error) {
	shifts, err := s.shiftsRepo.ListShiftsWithTasksForPatient(ctx, tenantID, patientID)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []*domain.Task
	for _, shift := range shifts {
		for _, et := range shift.Tasks {
			if et.PatientID != patientID || et.Status == domain.TaskCompleted {
				continue
			}
			if migrated[et.TaskID] || seen[et.TaskID] {
				continue
			}
			seen[et.TaskID] = true
			out = append(out, &domain.Task{
				TaskID:     et.TaskID,
				TenantID:   tenantID,
				PatientID:  et.PatientID,
				Title:      et.Title,
				TaskType:   et.TaskType,
				Priority:   et.Priority,
				DueTime:    et.DueTime,
				Status:     et.Status,
				LegacyID:   et.TaskID,
				AssignedTo: shift.UserID,
				Source:     domain.TaskSourceLegacy,
			})
		}
	}

	return out, nil
}

// sortTasks orders by priority descending, then due time ascending with
// undated tasks last.
func sortTasks(tasks []*domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		ri, rj := domain.PriorityRank(tasks[i].Priority), domain.PriorityRank(tasks[j].Priority)
		if ri != rj {
			return ri > rj
		}
		di, dj := tasks[i].DueTime, tasks[j].DueTime
		switch {
		case di == nil && dj == nil:
			return false
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.Before(*dj)
		}
	})
}

// CompleteTask resolves a task reference of any shape, materializing the
// backing record first when needed, and stamps it completed exactly once.
// Completing an already-completed task is a no-op returning the stored task.
func (s *taskService) CompleteTask(ctx context.Context, req CompleteTaskRequest) (*domain.Task, error) {
	if !req.Actor.Valid() {
		return nil, fmt.Errorf("missing actor: %w", domain.ErrUnauthorized)
	}

	// Gate before resolving: resolving a derivable or legacy reference
	// persists the backing record, and a rejected caller must not leave
	// one behind.
	if !s.gate.Can(req.Actor, "complete", Resource{Type: "task", State: domain.TaskPending}) {
		return nil, fmt.Errorf("actor may not complete tasks: %w", domain.ErrForbidden)
	}

	task, err := s.resolveTask(ctx, req.TenantID, req.TaskID)
	if err != nil {
		return nil, err
	}

	if task.Status == domain.TaskCompleted {
		return task, nil
	}

	before := *task
	now := s.now()
	task.Status = domain.TaskCompleted
	task.CompletedAt = &now
	task.CompletedBy = req.Actor.UserID
	if req.Notes != "" {
		task.Notes = req.Notes
	}

	if err := s.tasksRepo.UpdateTask(ctx, req.TenantID, task.TaskID, task); err != nil {
		return nil, fmt.Errorf("failed to persist task completion: %w", err)
	}

	s.audit.Record(ctx, req.TenantID, req.Actor, "complete", "task", task.TaskID, &before, task)

	return task, nil
}

// resolveTask turns any task reference into a persisted record.
func (s *taskService) resolveTask(ctx context.Context, tenantID, taskID string) (*domain.Task, error) {
	ref := parseTaskRef(taskID)

	switch ref.kind {
	case refPersisted:
		task, err := s.tasksRepo.GetTask(ctx, tenantID, taskID)
		if err == nil {
			return task, nil
		}
		// A legacy embedded id may happen to be a UUID too.
		return s.resolveLegacy(ctx, tenantID, taskID, err)

	case refMedication:
		return s.materializeMedicationRef(ctx, tenantID, ref)

	case refAssessment, refRounds:
		return s.materializeStandingRef(ctx, tenantID, ref)

	default:
		return s.resolveLegacy(ctx, tenantID, taskID, fmt.Errorf("task not found: %w", domain.ErrNotFound))
	}
}

func (s *taskService) materializeMedicationRef(ctx context.Context, tenantID string, ref taskRef) (*domain.Task, error) {
	p, err := s.prescriptions.GetPrescription(ctx, tenantID, ref.prescriptionID)
	if err != nil {
		return nil, err
	}

	existing, err := s.tasksRepo.FindNearDue(ctx, tenantID, p.PrescriptionID,
		domain.TaskTypeMedication, ref.due, domain.DedupeTolerance)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.now()
	due := ref.due
	task := &domain.Task{
		TenantID:       tenantID,
		PatientID:      p.PatientID,
		Title:          fmt.Sprintf("Administer %s %s", p.Medication, p.Dose),
		TaskType:       domain.TaskTypeMedication,
		Priority:       DuePriority(due, now),
		DueTime:        &due,
		Status:         domain.TaskPending,
		PrescriptionID: p.PrescriptionID,
	}
	taskID, err := s.tasksRepo.CreateTask(ctx, tenantID, task)
	if err != nil {
		return nil, err
	}
	return s.tasksRepo.GetTask(ctx, tenantID, taskID)
}

func (s *taskService) materializeStandingRef(ctx context.Context, tenantID string, ref taskRef) (*domain.Task, error) {
	if _, err := s.patientsRepo.GetPatient(ctx, tenantID, ref.patientID); err != nil {
		return nil, err
	}

	taskType := domain.TaskTypeAssessment
	title := "Patient assessment"
	if ref.kind == refRounds {
		taskType = domain.TaskTypeRounds
		title = "Ward rounds check"
	}

	dedupeKey := taskType + ":" + ref.patientID
	existing, err := s.tasksRepo.FindNearDue(ctx, tenantID, dedupeKey, taskType, ref.due, domain.DedupeTolerance)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.now()
	due := ref.due
	task := &domain.Task{
		TenantID:    tenantID,
		PatientID:   ref.patientID,
		Title:       title,
		TaskType:    taskType,
		Priority:    DuePriority(due, now),
		DueTime:     &due,
		Status:      domain.TaskPending,
		TemplateKey: taskType,
	}
	taskID, err := s.tasksRepo.CreateTask(ctx, tenantID, task)
	if err != nil {
		return nil, err
	}
	return s.tasksRepo.GetTask(ctx, tenantID, taskID)
}

// resolveLegacy migrates an embedded shift task into the tasks table on first
// touch. The shift JSONB is never written back.
func (s *taskService) resolveLegacy(ctx context.Context, tenantID, taskID string, notFound error) (*domain.Task, error) {
	if task, err := s.tasksRepo.FindByLegacyID(ctx, tenantID, taskID); err != nil {
		return nil, err
	} else if task != nil {
		return task, nil
	}

	embedded, err := s.shiftsRepo.FindEmbeddedTask(ctx, tenantID, taskID)
	if err != nil {
		return nil, err
	}
	if embedded == nil {
		return nil, notFound
	}

	task := &domain.Task{
		TenantID:  tenantID,
		PatientID: embedded.PatientID,
		Title:     embedded.Title,
		TaskType:  embedded.TaskType,
		Priority:  embedded.Priority,
		DueTime:   embedded.DueTime,
		Status:    embedded.Status,
		LegacyID:  embedded.TaskID,
	}
	newID, err := s.tasksRepo.CreateTask(ctx, tenantID, task)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Migrated legacy embedded task",
		zap.String("legacy_id", embedded.TaskID),
		zap.String("task_id", newID),
	)

	return s.tasksRepo.GetTask(ctx, tenantID, newID)
}

package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"hospital-ops/internal/domain"
)

// In-memory repositories backing local dev (DB_ENABLED=false) and unit tests.
// Same contracts as the Postgres implementations, including the conditional
// bed reservation and the task dedupe window.

// --- Shifts ---

type MemoryShiftsRepo struct {
	mu     sync.RWMutex
	shifts map[string]domain.Shift // shiftID -> Shift
}

func NewMemoryShiftsRepo() *MemoryShiftsRepo {
	return &MemoryShiftsRepo{shifts: map[string]domain.Shift{}}
}

var _ ShiftsRepository = (*MemoryShiftsRepo)(nil)

func copyShift(s domain.Shift) *domain.Shift {
	out := s
	out.Breaks = append([]domain.BreakInterval(nil), s.Breaks...)
	out.LoginEvents = append([]domain.LoginEvent(nil), s.LoginEvents...)
	out.Tasks = append([]domain.EmbeddedTask(nil), s.Tasks...)
	return &out
}

func (r *MemoryShiftsRepo) GetShift(_ context.Context, tenantID, shiftID string) (*domain.Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shifts[shiftID]
	if !ok || s.TenantID != tenantID {
		return nil, fmt.Errorf("shift not found: %w", domain.ErrNotFound)
	}
	return copyShift(s), nil
}

func (r *MemoryShiftsRepo) ListShifts(_ context.Context, tenantID string, filters *ShiftFilters, page, size int) ([]*domain.Shift, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*domain.Shift
	for _, s := range r.shifts {
		if s.TenantID != tenantID {
			continue
		}
		if filters != nil {
			if filters.UserID != "" && s.UserID != filters.UserID {
				continue
			}
			if filters.Status != "" && s.Status != filters.Status {
				continue
			}
			if filters.StartTime != nil && s.ScheduledStart.Before(*filters.StartTime) {
				continue
			}
			if filters.EndTime != nil && s.ScheduledStart.After(*filters.EndTime) {
				continue
			}
		}
		all = append(all, copyShift(s))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ScheduledStart.After(all[j].ScheduledStart)
	})

	total := len(all)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *MemoryShiftsRepo) CreateShift(_ context.Context, tenantID string, shift *domain.Shift) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if shift.Status == "" {
		shift.Status = domain.ShiftScheduled
	}
	s := *copyShift(*shift)
	s.ShiftID = uuid.NewString()
	s.TenantID = tenantID
	r.shifts[s.ShiftID] = s
	return s.ShiftID, nil
}

func (r *MemoryShiftsRepo) UpdateShift(_ context.Context, tenantID, shiftID string, shift *domain.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.shifts[shiftID]
	if !ok || old.TenantID != tenantID {
		return fmt.Errorf("shift not found: %w", domain.ErrNotFound)
	}
	s := *copyShift(*shift)
	s.ShiftID = shiftID
	s.TenantID = tenantID
	s.Tasks = old.Tasks // embedded tasks are a read-only migration path
	r.shifts[shiftID] = s
	return nil
}

func (r *MemoryShiftsRepo) CountOverlapping(_ context.Context, tenantID, userID string, start, end time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, s := range r.shifts {
		if s.TenantID != tenantID || s.UserID != userID || s.Status == domain.ShiftCancelled {
			continue
		}
		if s.Overlaps(start, end) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryShiftsRepo) ListShiftsWithTasksForPatient(_ context.Context, tenantID, patientID string) ([]*domain.Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Shift
	for _, s := range r.shifts {
		if s.TenantID != tenantID {
			continue
		}
		for _, t := range s.Tasks {
			if t.PatientID == patientID {
				out = append(out, copyShift(s))
				break
			}
		}
	}
	return out, nil
}

func (r *MemoryShiftsRepo) FindEmbeddedTask(_ context.Context, tenantID, taskID string) (*domain.EmbeddedTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.shifts {
		if s.TenantID != tenantID {
			continue
		}
		for i := range s.Tasks {
			if s.Tasks[i].TaskID == taskID {
				t := s.Tasks[i]
				return &t, nil
			}
		}
	}
	return nil, nil
}

// SeedShift inserts a shift verbatim, embedded tasks included. Test helper.
func (r *MemoryShiftsRepo) SeedShift(shift domain.Shift) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if shift.ShiftID == "" {
		shift.ShiftID = uuid.NewString()
	}
	r.shifts[shift.ShiftID] = shift
	return shift.ShiftID
}

// --- Tasks ---

type MemoryTasksRepo struct {
	mu    sync.RWMutex
	tasks map[string]domain.Task
}

func NewMemoryTasksRepo() *MemoryTasksRepo {
	return &MemoryTasksRepo{tasks: map[string]domain.Task{}}
}

var _ TasksRepository = (*MemoryTasksRepo)(nil)

func copyTask(t domain.Task) *domain.Task {
	out := t
	out.Source = domain.TaskSourcePersisted
	return &out
}

func (r *MemoryTasksRepo) GetTask(_ context.Context, tenantID, taskID string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[taskID]
	if !ok || t.TenantID != tenantID {
		return nil, fmt.Errorf("task not found: %w", domain.ErrNotFound)
	}
	return copyTask(t), nil
}

func (r *MemoryTasksRepo) ListPatientTasks(_ context.Context, tenantID, patientID string) ([]*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Task
	for _, t := range r.tasks {
		if t.TenantID == tenantID && t.PatientID == patientID {
			out = append(out, copyTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out, nil
}

func (r *MemoryTasksRepo) CreateTask(_ context.Context, tenantID string, task *domain.Task) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.Status == "" {
		task.Status = domain.TaskPending
	}

	// Mirror the unique-index guard: same dedupe key, type and 5-minute
	// window resolve to the existing row.
	if task.DueTime != nil {
		for id, existing := range r.tasks {
			if existing.TenantID != tenantID || existing.TaskType != task.TaskType {
				continue
			}
			if existing.DedupeKey() != task.DedupeKey() || existing.DueTime == nil {
				continue
			}
			if within(*existing.DueTime, *task.DueTime, domain.DedupeTolerance) {
				return id, nil
			}
		}
	}

	t := *copyTask(*task)
	t.TaskID = uuid.NewString()
	t.TenantID = tenantID
	r.tasks[t.TaskID] = t
	return t.TaskID, nil
}

func (r *MemoryTasksRepo) UpdateTask(_ context.Context, tenantID, taskID string, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.tasks[taskID]
	if !ok || old.TenantID != tenantID {
		return fmt.Errorf("task not found: %w", domain.ErrNotFound)
	}
	t := *copyTask(*task)
	t.TaskID = taskID
	t.TenantID = tenantID
	r.tasks[taskID] = t
	return nil
}

func (r *MemoryTasksRepo) FindNearDue(_ context.Context, tenantID, dedupeKey, taskType string, due time.Time, tolerance time.Duration) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tasks {
		if t.TenantID != tenantID || t.TaskType != taskType || t.DueTime == nil {
			continue
		}
		if t.DedupeKey() == dedupeKey && within(*t.DueTime, due, tolerance) {
			return copyTask(t), nil
		}
	}
	return nil, nil
}

func (r *MemoryTasksRepo) FindByLegacyID(_ context.Context, tenantID, legacyID string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tasks {
		if t.TenantID == tenantID && t.LegacyID == legacyID {
			return copyTask(t), nil
		}
	}
	return nil, nil
}

func within(a, b time.Time, tolerance time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}

// --- Prescriptions ---

type MemoryPrescriptionsRepo struct {
	mu            sync.RWMutex
	prescriptions map[string]domain.Prescription
}

func NewMemoryPrescriptionsRepo() *MemoryPrescriptionsRepo {
	return &MemoryPrescriptionsRepo{prescriptions: map[string]domain.Prescription{}}
}

var _ PrescriptionsRepository = (*MemoryPrescriptionsRepo)(nil)

func (r *MemoryPrescriptionsRepo) GetPrescription(_ context.Context, tenantID, prescriptionID string) (*domain.Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.prescriptions[prescriptionID]
	if !ok || p.TenantID != tenantID {
		return nil, fmt.Errorf("prescription not found: %w", domain.ErrNotFound)
	}
	out := p
	out.Administrations = append([]domain.Administration(nil), p.Administrations...)
	return &out, nil
}

func (r *MemoryPrescriptionsRepo) ListActiveForPatient(_ context.Context, tenantID, patientID string) ([]*domain.Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Prescription
	for _, p := range r.prescriptions {
		if p.TenantID != tenantID || p.PatientID != patientID || p.Status != "active" {
			continue
		}
		q := p
		q.Administrations = append([]domain.Administration(nil), p.Administrations...)
		out = append(out, &q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PrescriptionID < out[j].PrescriptionID })
	return out, nil
}

// SeedPrescription inserts a prescription verbatim. Test helper.
func (r *MemoryPrescriptionsRepo) SeedPrescription(p domain.Prescription) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.PrescriptionID == "" {
		p.PrescriptionID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = "active"
	}
	r.prescriptions[p.PrescriptionID] = p
	return p.PrescriptionID
}

// --- Admissions ---

type MemoryAdmissionsRepo struct {
	mu         sync.RWMutex
	admissions map[string]domain.Admission
}

func NewMemoryAdmissionsRepo() *MemoryAdmissionsRepo {
	return &MemoryAdmissionsRepo{admissions: map[string]domain.Admission{}}
}

var _ AdmissionsRepository = (*MemoryAdmissionsRepo)(nil)

func (r *MemoryAdmissionsRepo) GetAdmission(_ context.Context, tenantID, admissionID string) (*domain.Admission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.admissions[admissionID]
	if !ok || a.TenantID != tenantID {
		return nil, fmt.Errorf("admission not found: %w", domain.ErrNotFound)
	}
	out := a
	return &out, nil
}

func (r *MemoryAdmissionsRepo) ListAdmissions(_ context.Context, tenantID, status string, page, size int) ([]*domain.Admission, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*domain.Admission
	for _, a := range r.admissions {
		if a.TenantID != tenantID {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		b := a
		all = append(all, &b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *MemoryAdmissionsRepo) CreateAdmission(_ context.Context, tenantID string, admission *domain.Admission) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := *admission
	a.AdmissionID = uuid.NewString()
	a.TenantID = tenantID
	if a.Status == "" {
		a.Status = domain.AdmissionPending
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	r.admissions[a.AdmissionID] = a
	return a.AdmissionID, nil
}

func (r *MemoryAdmissionsRepo) UpdateAdmission(_ context.Context, tenantID, admissionID string, admission *domain.Admission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.admissions[admissionID]
	if !ok || old.TenantID != tenantID {
		return fmt.Errorf("admission not found: %w", domain.ErrNotFound)
	}
	a := *admission
	a.AdmissionID = admissionID
	a.TenantID = tenantID
	a.CreatedAt = old.CreatedAt
	r.admissions[admissionID] = a
	return nil
}

// --- Wards ---

type MemoryWardsRepo struct {
	mu    sync.Mutex
	wards map[string]domain.Ward
}

func NewMemoryWardsRepo() *MemoryWardsRepo {
	return &MemoryWardsRepo{wards: map[string]domain.Ward{}}
}

var _ WardsRepository = (*MemoryWardsRepo)(nil)

func (r *MemoryWardsRepo) GetWard(_ context.Context, tenantID, wardID string) (*domain.Ward, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.wards[wardID]
	if !ok || w.TenantID != tenantID {
		return nil, fmt.Errorf("ward not found: %w", domain.ErrNotFound)
	}
	out := w
	return &out, nil
}

// ReserveBed mirrors the conditional UPDATE under one lock.
func (r *MemoryWardsRepo) ReserveBed(_ context.Context, tenantID, wardID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.wards[wardID]
	if !ok || w.TenantID != tenantID {
		return fmt.Errorf("ward not found: %w", domain.ErrNotFound)
	}
	if w.OccupiedBeds >= w.TotalBeds {
		return fmt.Errorf("ward has no free beds: %w", domain.ErrCapacityExceeded)
	}
	w.OccupiedBeds++
	r.wards[wardID] = w
	return nil
}

func (r *MemoryWardsRepo) ReleaseBed(_ context.Context, tenantID, wardID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.wards[wardID]
	if !ok || w.TenantID != tenantID {
		return fmt.Errorf("ward not found: %w", domain.ErrNotFound)
	}
	if w.OccupiedBeds > 0 {
		w.OccupiedBeds--
	}
	r.wards[wardID] = w
	return nil
}

// SeedWard inserts a ward verbatim. Test helper.
func (r *MemoryWardsRepo) SeedWard(w domain.Ward) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w.WardID == "" {
		w.WardID = uuid.NewString()
	}
	r.wards[w.WardID] = w
	return w.WardID
}

// --- Patients ---

type MemoryPatientsRepo struct {
	mu       sync.RWMutex
	patients map[string]domain.Patient
}

func NewMemoryPatientsRepo() *MemoryPatientsRepo {
	return &MemoryPatientsRepo{patients: map[string]domain.Patient{}}
}

var _ PatientsRepository = (*MemoryPatientsRepo)(nil)

func (r *MemoryPatientsRepo) GetPatient(_ context.Context, tenantID, patientID string) (*domain.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[patientID]
	if !ok || p.TenantID != tenantID {
		return nil, fmt.Errorf("patient not found: %w", domain.ErrNotFound)
	}
	out := p
	return &out, nil
}

// SeedPatient inserts a patient verbatim. Test helper.
func (r *MemoryPatientsRepo) SeedPatient(p domain.Patient) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.PatientID == "" {
		p.PatientID = uuid.NewString()
	}
	r.patients[p.PatientID] = p
	return p.PatientID
}

// --- Discharges ---

type MemoryDischargesRepo struct {
	mu         sync.RWMutex
	discharges map[string]domain.Discharge
}

func NewMemoryDischargesRepo() *MemoryDischargesRepo {
	return &MemoryDischargesRepo{discharges: map[string]domain.Discharge{}}
}

var _ DischargesRepository = (*MemoryDischargesRepo)(nil)

func (r *MemoryDischargesRepo) ExistsForAdmission(_ context.Context, tenantID, admissionID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.discharges {
		if d.TenantID == tenantID && d.AdmissionID == admissionID {
			return true, nil
		}
	}
	return false, nil
}

// SeedDischarge inserts a discharge verbatim. Test helper.
func (r *MemoryDischargesRepo) SeedDischarge(d domain.Discharge) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.DischargeID == "" {
		d.DischargeID = uuid.NewString()
	}
	if d.DischargedAt.IsZero() {
		d.DischargedAt = time.Now()
	}
	r.discharges[d.DischargeID] = d
	return d.DischargeID
}

// --- Audit ---

type MemoryAuditRepo struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func NewMemoryAuditRepo() *MemoryAuditRepo {
	return &MemoryAuditRepo{}
}

var _ AuditRepository = (*MemoryAuditRepo)(nil)

func (r *MemoryAuditRepo) AppendEvent(_ context.Context, event *domain.AuditEvent) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := *event
	e.EventID = uuid.NewString()
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	r.events = append(r.events, e)
	return e.EventID, nil
}

// Events returns a snapshot of the recorded trail. Test helper.
func (r *MemoryAuditRepo) Events() []domain.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditEvent(nil), r.events...)
}

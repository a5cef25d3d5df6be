package domain

import "time"

// Task types.
const (
	TaskTypeMedication = "medication"
	TaskTypeAssessment = "assessment"
	TaskTypeRounds     = "rounds"
)

// Task priorities, ordered by urgency.
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Task statuses.
const (
	TaskPending   = "pending"
	TaskCompleted = "completed"
)

// Task sources (derived field, not persisted).
const (
	TaskSourcePersisted = "persisted"
	TaskSourceLegacy    = "legacy"
	TaskSourceDerived   = "derived"
)

// DedupeTolerance is the window within which two materializations of the
// same prescription/template count as the same task.
const DedupeTolerance = 5 * time.Minute

// Task is a unit of clinical work (tasks table). A Task may also exist as a
// legacy entry embedded in a Shift, or be derivable from a prescription or
// standing template and not yet materialized; those carry structured ids
// ("med-", "assessment-", "rounds-" prefixes) until then.
type Task struct {
	TaskID    string `db:"task_id" json:"task_id"` // UUID once persisted
	TenantID  string `db:"tenant_id" json:"tenant_id"`
	PatientID string `db:"patient_id" json:"patient_id"`

	Title    string `db:"title" json:"title"`
	TaskType string `db:"task_type" json:"task_type"`
	Priority string `db:"priority" json:"priority"`

	DueTime *time.Time `db:"due_time" json:"due_time,omitempty"`
	Status  string     `db:"status" json:"status"`

	PrescriptionID string `db:"prescription_id" json:"prescription_id,omitempty"` // nullable
	TemplateKey    string `db:"template_key" json:"template_key,omitempty"`       // nullable, standing tasks
	LegacyID       string `db:"legacy_id" json:"legacy_id,omitempty"`             // embedded-task id when migrated

	AssignedTo  string     `db:"assigned_to" json:"assigned_to,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy string     `db:"completed_by" json:"completed_by,omitempty"`
	Notes       string     `db:"notes" json:"notes,omitempty"`

	Source string `db:"-" json:"source,omitempty"`
}

// DedupeKey identifies the logical task for idempotent materialization:
// the prescription for medication tasks, the template+patient otherwise.
func (t *Task) DedupeKey() string {
	switch {
	case t.PrescriptionID != "":
		return t.PrescriptionID
	case t.TemplateKey != "":
		return t.TemplateKey + ":" + t.PatientID
	case t.LegacyID != "":
		return "legacy:" + t.LegacyID
	default:
		return t.TaskID
	}
}

// DueBucket maps a due time onto the 5-minute dedupe grid used by the
// tasks unique index.
func DueBucket(due time.Time) int64 {
	return due.Unix() / int64(DedupeTolerance/time.Second)
}

// PriorityRank orders priorities for sorting, higher is more urgent.
func PriorityRank(p string) int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

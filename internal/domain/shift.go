package domain

import "time"

// Shift lifecycle states.
const (
	ShiftScheduled = "scheduled"
	ShiftActive    = "active"
	ShiftOnBreak   = "on_break"
	ShiftOnCall    = "on_call"
	ShiftCompleted = "completed"
	ShiftAbsent    = "absent"
	ShiftCancelled = "cancelled"
)

// Shift transition actions.
const (
	ShiftActionClockIn    = "clock_in"
	ShiftActionClockOut   = "clock_out"
	ShiftActionStartBreak = "start_break"
	ShiftActionEndBreak   = "end_break"
	ShiftActionGoOnCall   = "go_on_call"
	ShiftActionGoOffCall  = "go_off_call"
	ShiftActionCancel     = "cancel"
	ShiftActionModify     = "modify"
	ShiftActionMarkAbsent = "mark_absent"
)

// MissedShiftGrace is the tolerance before an unstarted scheduled shift is
// classified as missed.
const MissedShiftGrace = 30 * time.Minute

// Shift is a scheduled duty block for one staff member (shifts table).
// Breaks, login events and the legacy embedded tasks live in JSONB columns.
type Shift struct {
	ShiftID  string `db:"shift_id" json:"shift_id"` // UUID, PRIMARY KEY
	TenantID string `db:"tenant_id" json:"tenant_id"`
	UserID   string `db:"user_id" json:"user_id"` // owning staff member

	ShiftDate      time.Time  `db:"shift_date" json:"shift_date"`
	ScheduledStart time.Time  `db:"scheduled_start" json:"scheduled_start"`
	ScheduledEnd   time.Time  `db:"scheduled_end" json:"scheduled_end"`
	ActualStart    *time.Time `db:"actual_start" json:"actual_start,omitempty"`
	ActualEnd      *time.Time `db:"actual_end" json:"actual_end,omitempty"`

	Status string `db:"status" json:"status"`

	Breaks []BreakInterval `db:"breaks" json:"breaks"` // JSONB

	OnCallStart   *time.Time `db:"on_call_start" json:"on_call_start,omitempty"`
	OnCallEnd     *time.Time `db:"on_call_end" json:"on_call_end,omitempty"`
	OnCallMinutes *int       `db:"on_call_minutes" json:"on_call_minutes,omitempty"`

	LoginEvents []LoginEvent `db:"login_events" json:"login_events"` // JSONB

	// Legacy embedded tasks: read-only migration path, never written back.
	Tasks []EmbeddedTask `db:"tasks" json:"tasks,omitempty"` // JSONB

	ModifiedBy         string `db:"modified_by" json:"modified_by,omitempty"`
	ModificationReason string `db:"modification_reason" json:"modification_reason,omitempty"`

	// Derived on every read, never persisted.
	IsMissed      bool `db:"-" json:"is_missed"`
	MissedMinutes int  `db:"-" json:"missed_minutes,omitempty"`
	WorkedMinutes int  `db:"-" json:"worked_minutes,omitempty"`
}

// BreakInterval is an off-duty sub-period within an active shift.
// DurationMinutes is computed only when the break is closed.
type BreakInterval struct {
	Type            string     `json:"type"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
}

// Open reports whether the break has not been closed yet.
func (b BreakInterval) Open() bool { return b.EndTime == nil }

// OpenBreak returns the index of the open break, or -1.
// Invariant: at most one break is open at a time.
func (s *Shift) OpenBreak() int {
	for i := range s.Breaks {
		if s.Breaks[i].Open() {
			return i
		}
	}
	return -1
}

// LoginEvent records a clock-in/clock-out on the shift.
type LoginEvent struct {
	Event string    `json:"event"` // "login" / "logout"
	At    time.Time `json:"at"`
}

// EmbeddedTask is the legacy task shape stored inside the shift record.
type EmbeddedTask struct {
	TaskID      string     `json:"task_id"`
	PatientID   string     `json:"patient_id"`
	Title       string     `json:"title"`
	TaskType    string     `json:"task_type"`
	Priority    string     `json:"priority"`
	DueTime     *time.Time `json:"due_time,omitempty"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ClassifyMissed derives the missed flag for a shift at the given instant.
// A shift is missed iff it is still scheduled, never started, and the grace
// period has strictly elapsed. The result is recomputed per read so it is
// safe under concurrent readers.
func (s *Shift) ClassifyMissed(now time.Time) {
	s.IsMissed = false
	s.MissedMinutes = 0
	if s.Status != ShiftScheduled || s.ActualStart != nil {
		return
	}
	if now.After(s.ScheduledStart.Add(MissedShiftGrace)) {
		s.IsMissed = true
		s.MissedMinutes = int(now.Sub(s.ScheduledStart) / time.Minute)
	}
}

// ActualMinutes derives the net worked duration: actual end minus actual
// start, less every closed break. Zero until both timestamps are set; an
// open break at clock-out subtracts nothing.
func (s *Shift) ActualMinutes() int {
	if s.ActualStart == nil || s.ActualEnd == nil {
		return 0
	}
	worked := s.ActualEnd.Sub(*s.ActualStart)
	for _, b := range s.Breaks {
		if b.DurationMinutes != nil {
			worked -= time.Duration(*b.DurationMinutes) * time.Minute
		}
	}
	if worked < 0 {
		worked = 0
	}
	return int(worked / time.Minute)
}

// Overlaps reports whether [start, end) intersects the shift's scheduled
// half-open window.
func (s *Shift) Overlaps(start, end time.Time) bool {
	return s.ScheduledStart.Before(end) && s.ScheduledEnd.After(start)
}

package domain

import "time"

// Admission lifecycle states.
const (
	AdmissionPending   = "pending"
	AdmissionApproved  = "approved"
	AdmissionAssigned  = "assigned"
	AdmissionCompleted = "completed"
	AdmissionCancelled = "cancelled"
)

// Admission transition actions.
const (
	AdmissionActionApprove  = "approve"
	AdmissionActionAssign   = "assign"
	AdmissionActionComplete = "complete"
	AdmissionActionCancel   = "cancel"
)

// Admission moves a patient from referral to an assigned ward bed
// (admissions table).
type Admission struct {
	AdmissionID string `db:"admission_id" json:"admission_id"`
	TenantID    string `db:"tenant_id" json:"tenant_id"`
	PatientID   string `db:"patient_id" json:"patient_id"`

	DoctorID      string `db:"doctor_id" json:"doctor_id"`                       // referring doctor, owner
	MatronNurseID string `db:"matron_nurse_id" json:"matron_nurse_id,omitempty"` // set on approval

	Department string `db:"department" json:"department,omitempty"`
	WardID     string `db:"ward_id" json:"ward_id,omitempty"`
	BedNumber  string `db:"bed_number" json:"bed_number,omitempty"`

	Status string `db:"status" json:"status"`

	ReviewedAt  *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	AssignedAt  *time.Time `db:"assigned_at" json:"assigned_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

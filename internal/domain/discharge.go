package domain

import "time"

// Discharge is consumed for existence checks only: completing an admission
// requires a discharge record to exist already.
type Discharge struct {
	DischargeID  string    `db:"discharge_id" json:"discharge_id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	AdmissionID  string    `db:"admission_id" json:"admission_id"`
	PatientID    string    `db:"patient_id" json:"patient_id"`
	DischargedAt time.Time `db:"discharged_at" json:"discharged_at"`
}

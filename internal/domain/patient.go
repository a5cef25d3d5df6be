package domain

// Patient is consumed read-only: patient CRUD lives outside this core.
type Patient struct {
	PatientID     string `db:"patient_id" json:"patient_id"`
	TenantID      string `db:"tenant_id" json:"tenant_id"`
	FullName      string `db:"full_name" json:"full_name"`
	Department    string `db:"department" json:"department,omitempty"`
	WardID        string `db:"ward_id" json:"ward_id,omitempty"`
	AssignedNurse string `db:"assigned_nurse" json:"assigned_nurse,omitempty"`
}

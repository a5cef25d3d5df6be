package domain

import "time"

// Prescription is read-only here: it drives medication task due times
// (prescriptions table, or the external pharmacy feed).
type Prescription struct {
	PrescriptionID string `db:"prescription_id" json:"prescription_id"`
	TenantID       string `db:"tenant_id" json:"tenant_id"`
	PatientID      string `db:"patient_id" json:"patient_id"`

	Medication string    `db:"medication" json:"medication"`
	Dose       string    `db:"dose" json:"dose"`
	Frequency  string    `db:"frequency" json:"frequency"` // "q4h", "q6h", "bid", "daily", ...
	StartDate  time.Time `db:"start_date" json:"start_date"`
	Status     string    `db:"status" json:"status"` // 'active'/'discontinued'

	Administrations []Administration `db:"administrations" json:"administrations"` // JSONB
}

// Administration is one recorded dose.
type Administration struct {
	AdministeredAt time.Time `json:"administered_at"`
	AdministeredBy string    `json:"administered_by,omitempty"`
}

// LastAdministration returns the most recent administration, or nil.
func (p *Prescription) LastAdministration() *Administration {
	var last *Administration
	for i := range p.Administrations {
		if last == nil || p.Administrations[i].AdministeredAt.After(last.AdministeredAt) {
			last = &p.Administrations[i]
		}
	}
	return last
}

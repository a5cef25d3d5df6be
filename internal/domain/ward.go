package domain

// Ward is the shared bed-capacity resource (wards table).
// Invariant: 0 <= OccupiedBeds <= TotalBeds, enforced by the repository's
// conditional reserve/release updates, never by read-check-write.
type Ward struct {
	WardID     string `db:"ward_id" json:"ward_id"`
	TenantID   string `db:"tenant_id" json:"tenant_id"`
	WardName   string `db:"ward_name" json:"ward_name"`
	Department string `db:"department" json:"department"`

	TotalBeds    int `db:"total_beds" json:"total_beds"`
	OccupiedBeds int `db:"occupied_beds" json:"occupied_beds"`
}

// FreeBeds is a convenience for listings; never used as a write guard.
func (w *Ward) FreeBeds() int {
	free := w.TotalBeds - w.OccupiedBeds
	if free < 0 {
		return 0
	}
	return free
}

package domain

// Staff roles consulted by the permission table.
const (
	RoleDoctor      = "doctor"
	RoleNurse       = "nurse"
	RoleMatronNurse = "matron_nurse"
	RoleAdmin       = "admin"
)

// Actor is the authenticated caller of a transition. Authentication itself
// happens upstream; this layer only sees the resolved identity.
type Actor struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

func (a Actor) Valid() bool { return a.UserID != "" && a.Role != "" }

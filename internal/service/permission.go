package service

import "hospital-ops/internal/domain"

// Resource is the transition target presented to the permission gate.
// OwnerID is the primary owner (shift staff member, admission doctor);
// StewardID is the secondary responsible party (admission matron nurse).
type Resource struct {
	Type      string // "shift" | "task" | "admission"
	State     string // current lifecycle state, "" for creation/reads
	OwnerID   string
	StewardID string
}

// PermissionGate is the role/ownership predicate consulted before every write.
type PermissionGate interface {
	Can(actor domain.Actor, action string, res Resource) bool
}

// Ownership rules. The gate checks the matched rule's roles first, then its
// ownership requirement; admin does not bypass owner-only rules (clocking in
// someone else's shift is never legal).
type ownership int

const (
	anyActor ownership = iota
	ownerOnly
	ownerOrAdmin
	ownerOrSteward
	stewardOrAdmin
)

type rule struct {
	roles []string // empty means any role
	own   ownership
}

// One declarative table for the whole transition matrix, keyed by
// "<resource>/<state>/<action>". Anything not listed is denied.
var transitionRules = map[string]rule{
	// Shift lifecycle: self-service actions are strictly owner-bound,
	// administrative actions are role-bound.
	"shift//create":               {own: ownerOrAdmin},
	"shift/scheduled/clock_in":    {own: ownerOnly},
	"shift/active/clock_out":      {own: ownerOnly},
	"shift/on_break/clock_out":    {own: ownerOnly},
	"shift/active/start_break":    {own: ownerOnly},
	"shift/on_break/end_break":    {own: ownerOnly},
	"shift/scheduled/go_on_call":  {own: ownerOnly},
	"shift/active/go_on_call":     {own: ownerOnly},
	"shift/on_call/go_off_call":   {own: ownerOnly},
	"shift/scheduled/cancel":      {roles: []string{domain.RoleAdmin}},
	"shift/active/cancel":         {roles: []string{domain.RoleAdmin}},
	"shift/on_break/cancel":       {roles: []string{domain.RoleAdmin}},
	"shift/on_call/cancel":        {roles: []string{domain.RoleAdmin}},
	"shift/scheduled/modify":      {roles: []string{domain.RoleAdmin}},
	"shift/active/modify":         {roles: []string{domain.RoleAdmin}},
	"shift/scheduled/mark_absent": {roles: []string{domain.RoleAdmin}},

	// Tasks: any clinical staff may read and complete.
	"task//read":            {roles: []string{domain.RoleNurse, domain.RoleMatronNurse, domain.RoleDoctor, domain.RoleAdmin}},
	"task/pending/complete": {roles: []string{domain.RoleNurse, domain.RoleMatronNurse, domain.RoleDoctor, domain.RoleAdmin}},

	// Admissions: doctor opens, matron nurse reviews and runs the ward side.
	"admission//create":           {roles: []string{domain.RoleDoctor, domain.RoleAdmin}},
	"admission/pending/approve":   {roles: []string{domain.RoleMatronNurse, domain.RoleAdmin}},
	"admission/approved/assign":   {roles: []string{domain.RoleMatronNurse, domain.RoleAdmin}, own: stewardOrAdmin},
	"admission/assigned/complete": {roles: []string{domain.RoleMatronNurse}},
	"admission/pending/cancel":    {own: ownerOrSteward},
	"admission/approved/cancel":   {own: ownerOrSteward},
	"admission/assigned/cancel":   {own: ownerOrSteward},
}

// TablePermissionGate evaluates the declarative transition table.
type TablePermissionGate struct {
	rules map[string]rule
}

func NewPermissionGate() *TablePermissionGate {
	return &TablePermissionGate{rules: transitionRules}
}

var _ PermissionGate = (*TablePermissionGate)(nil)

func (g *TablePermissionGate) Can(actor domain.Actor, action string, res Resource) bool {
	if !actor.Valid() {
		return false
	}

	r, ok := g.rules[res.Type+"/"+res.State+"/"+action]
	if !ok {
		return false
	}

	if len(r.roles) > 0 {
		matched := false
		for _, role := range r.roles {
			if actor.Role == role {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	switch r.own {
	case anyActor:
		return true
	case ownerOnly:
		return actor.UserID == res.OwnerID
	case ownerOrAdmin:
		return actor.UserID == res.OwnerID || actor.IsAdmin()
	case ownerOrSteward:
		return actor.UserID == res.OwnerID || (res.StewardID != "" && actor.UserID == res.StewardID)
	case stewardOrAdmin:
		return (res.StewardID != "" && actor.UserID == res.StewardID) || actor.IsAdmin()
	default:
		return false
	}
}

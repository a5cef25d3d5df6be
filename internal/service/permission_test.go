package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hospital-ops/internal/domain"
)

func TestPermissionGateShiftOwnership(t *testing.T) {
	gate := NewPermissionGate()

	owner := domain.Actor{UserID: "nurse-1", Role: domain.RoleNurse}
	other := domain.Actor{UserID: "nurse-2", Role: domain.RoleNurse}
	admin := domain.Actor{UserID: "admin-1", Role: domain.RoleAdmin}

	shift := Resource{Type: "shift", State: domain.ShiftScheduled, OwnerID: "nurse-1"}

	assert.True(t, gate.Can(owner, domain.ShiftActionClockIn, shift))
	assert.False(t, gate.Can(other, domain.ShiftActionClockIn, shift))
	// Clocking in on someone else's behalf is never legal, admin included.
	assert.False(t, gate.Can(admin, domain.ShiftActionClockIn, shift))

	// Cancel and modify are administrative.
	assert.True(t, gate.Can(admin, domain.ShiftActionCancel, shift))
	assert.False(t, gate.Can(owner, domain.ShiftActionCancel, shift))
	assert.True(t, gate.Can(admin, domain.ShiftActionMarkAbsent, shift))
	assert.False(t, gate.Can(other, domain.ShiftActionModify, shift))
}

func TestPermissionGateUnknownTransitionDenied(t *testing.T) {
	gate := NewPermissionGate()
	admin := domain.Actor{UserID: "admin-1", Role: domain.RoleAdmin}

	// Not in the table at all.
	assert.False(t, gate.Can(admin, domain.ShiftActionClockIn, Resource{Type: "shift", State: domain.ShiftCompleted, OwnerID: "admin-1"}))
	assert.False(t, gate.Can(admin, "reap", Resource{Type: "shift", State: domain.ShiftScheduled}))
}

func TestPermissionGateInvalidActor(t *testing.T) {
	gate := NewPermissionGate()

	assert.False(t, gate.Can(domain.Actor{}, domain.ShiftActionClockIn, Resource{Type: "shift", State: domain.ShiftScheduled}))
	assert.False(t, gate.Can(domain.Actor{UserID: "u1"}, "read", Resource{Type: "task"}))
}

func TestPermissionGateTasks(t *testing.T) {
	gate := NewPermissionGate()

	nurse := domain.Actor{UserID: "nurse-1", Role: domain.RoleNurse}
	doctor := domain.Actor{UserID: "doc-1", Role: domain.RoleDoctor}
	porter := domain.Actor{UserID: "porter-1", Role: "porter"}

	read := Resource{Type: "task"}
	complete := Resource{Type: "task", State: domain.TaskPending}

	assert.True(t, gate.Can(nurse, "read", read))
	assert.True(t, gate.Can(doctor, "complete", complete))
	assert.False(t, gate.Can(porter, "read", read))
	assert.False(t, gate.Can(porter, "complete", complete))
}

func TestPermissionGateAdmissions(t *testing.T) {
	gate := NewPermissionGate()

	doctor := domain.Actor{UserID: "doc-1", Role: domain.RoleDoctor}
	otherDoctor := domain.Actor{UserID: "doc-2", Role: domain.RoleDoctor}
	matron := domain.Actor{UserID: "matron-1", Role: domain.RoleMatronNurse}
	otherMatron := domain.Actor{UserID: "matron-2", Role: domain.RoleMatronNurse}
	nurse := domain.Actor{UserID: "nurse-1", Role: domain.RoleNurse}

	assert.True(t, gate.Can(doctor, "create", Resource{Type: "admission"}))
	assert.False(t, gate.Can(nurse, "create", Resource{Type: "admission"}))

	pending := Resource{Type: "admission", State: domain.AdmissionPending, OwnerID: "doc-1"}
	assert.True(t, gate.Can(matron, domain.AdmissionActionApprove, pending))
	assert.False(t, gate.Can(nurse, domain.AdmissionActionApprove, pending))

	// Assignment is bound to the reviewing matron nurse.
	approved := Resource{Type: "admission", State: domain.AdmissionApproved, OwnerID: "doc-1", StewardID: "matron-1"}
	assert.True(t, gate.Can(matron, domain.AdmissionActionAssign, approved))
	assert.False(t, gate.Can(otherMatron, domain.AdmissionActionAssign, approved))

	// Cancellation belongs to the referring doctor or the steward.
	assert.True(t, gate.Can(doctor, domain.AdmissionActionCancel, approved))
	assert.True(t, gate.Can(matron, domain.AdmissionActionCancel, approved))
	assert.False(t, gate.Can(otherDoctor, domain.AdmissionActionCancel, approved))
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hospital-ops/internal/domain"
	"hospital-ops/internal/repository"
)

type admissionFixture struct {
	svc        *admissionService
	admissions *repository.MemoryAdmissionsRepo
	wards      *repository.MemoryWardsRepo
	discharges *repository.MemoryDischargesRepo
	audit      *repository.MemoryAuditRepo
	now        time.Time

	patientID string
	wardID    string
}

func newAdmissionFixture(t *testing.T) *admissionFixture {
	t.Helper()

	admissions := repository.NewMemoryAdmissionsRepo()
	wards := repository.NewMemoryWardsRepo()
	patients := repository.NewMemoryPatientsRepo()
	discharges := repository.NewMemoryDischargesRepo()
	audit := repository.NewMemoryAuditRepo()
	recorder := NewAuditRecorder(audit, nil, "", false, zap.NewNop())

	svc := NewAdmissionService(admissions, wards, patients, discharges,
		NewPermissionGate(), recorder, zap.NewNop()).(*admissionService)

	f := &admissionFixture{
		svc:        svc,
		admissions: admissions,
		wards:      wards,
		discharges: discharges,
		audit:      audit,
		now:        time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	svc.now = func() time.Time { return f.now }

	f.patientID = patients.SeedPatient(domain.Patient{
		TenantID: testTenant,
		FullName: "Pat One",
	})
	f.wardID = f.wards.SeedWard(domain.Ward{
		TenantID:   testTenant,
		WardName:   "Ward A",
		Department: "cardiology",
		TotalBeds:  2,
	})
	return f
}

var (
	doctor = domain.Actor{UserID: "doc-1", Role: domain.RoleDoctor}
	matron = domain.Actor{UserID: "matron-1", Role: domain.RoleMatronNurse}
)

func (f *admissionFixture) createPending(t *testing.T) *domain.Admission {
	t.Helper()
	a, err := f.svc.CreateAdmission(context.Background(), CreateAdmissionRequest{
		TenantID:  testTenant,
		Actor:     doctor,
		PatientID: f.patientID,
	})
	require.NoError(t, err)
	return a
}

func (f *admissionFixture) transition(t *testing.T, actor domain.Actor, id, action string, payload AdmissionTransitionPayload) (*domain.Admission, error) {
	t.Helper()
	return f.svc.TransitionAdmission(context.Background(), AdmissionTransitionRequest{
		TenantID:    testTenant,
		Actor:       actor,
		AdmissionID: id,
		Action:      action,
		Payload:     payload,
	})
}

func TestAdmissionHappyPath(t *testing.T) {
	f := newAdmissionFixture(t)

	a := f.createPending(t)
	assert.Equal(t, domain.AdmissionPending, a.Status)
	assert.Equal(t, "doc-1", a.DoctorID)

	a, err := f.transition(t, matron, a.AdmissionID, domain.AdmissionActionApprove,
		AdmissionTransitionPayload{Department: "cardiology"})
	require.NoError(t, err)
	assert.Equal(t, domain.AdmissionApproved, a.Status)
	assert.Equal(t, "matron-1", a.MatronNurseID)
	assert.Equal(t, "cardiology", a.Department)
	require.NotNil(t, a.ReviewedAt)

	a, err = f.transition(t, matron, a.AdmissionID, domain.AdmissionActionAssign,
		AdmissionTransitionPayload{WardID: f.wardID, BedNumber: "A-3"})
	require.NoError(t, err)
	assert.Equal(t, domain.AdmissionAssigned, a.Status)
	assert.Equal(t, "A-3", a.BedNumber)
	require.NotNil(t, a.AssignedAt)

	ward, err := f.wards.GetWard(context.Background(), testTenant, f.wardID)
	require.NoError(t, err)
	assert.Equal(t, 1, ward.OccupiedBeds)

	// Completion requires the discharge record.
	_, err = f.transition(t, matron, a.AdmissionID, domain.AdmissionActionComplete, AdmissionTransitionPayload{})
	assert.ErrorIs(t, err, domain.ErrMissingPrecondition)

	f.discharges.SeedDischarge(domain.Discharge{
		TenantID:    testTenant,
		AdmissionID: a.AdmissionID,
		PatientID:   f.patientID,
	})

	a, err = f.transition(t, matron, a.AdmissionID, domain.AdmissionActionComplete, AdmissionTransitionPayload{})
	require.NoError(t, err)
	assert.Equal(t, domain.AdmissionCompleted, a.Status)
	require.NotNil(t, a.CompletedAt)

	// The bed frees on completion.
	ward, err = f.wards.GetWard(context.Background(), testTenant, f.wardID)
	require.NoError(t, err)
	assert.Equal(t, 0, ward.OccupiedBeds)

	// create, approve, assign, complete.
	assert.Len(t, f.audit.Events(), 4)
}

func TestAdmissionApproveRequiresDepartment(t *testing.T) {
	f := newAdmissionFixture(t)
	a := f.createPending(t)

	_, err := f.transition(t, matron, a.AdmissionID, domain.AdmissionActionApprove, AdmissionTransitionPayload{})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	// Still pending after the failed approval.
	got, err := f.admissions.GetAdmission(context.Background(), testTenant, a.AdmissionID)
	require.NoError(t, err)
	assert.Equal(t, domain.AdmissionPending, got.Status)
}

func TestAdmissionAssignRequiresWardAndBed(t *testing.T) {
	f := newAdmissionFixture(t)
	a := f.createPending(t)
	_, err := f.transition(t, matron, a.AdmissionID, domain.AdmissionActionApprove,
		AdmissionTransitionPayload{Department: "cardiology"})
	require.NoError(t, err)

	_, err = f.transition(t, matron, a.AdmissionID, domain.AdmissionActionAssign,
		AdmissionTransitionPayload{WardID: f.wardID})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	ward, err := f.wards.GetWard(context.Background(), testTenant, f.wardID)
	require.NoError(t, err)
	assert.Equal(t, 0, ward.OccupiedBeds, "nothing reserved on a rejected assignment")
}

func TestAdmissionCapacityEnforced(t *testing.T) {
	f := newAdmissionFixture(t)

	assign := func(t *testing.T) (*domain.Admission, error) {
		a := f.createPending(t)
		_, err := f.transition(t, matron, a.AdmissionID, domain.AdmissionActionApprove,
			AdmissionTransitionPayload{Department: "cardiology"})
		require.NoError(t, err)
		return f.transition(t, matron, a.AdmissionID, domain.AdmissionActionAssign,
			AdmissionTransitionPayload{WardID: f.wardID, BedNumber: "X"})
	}

	_, err := assign(t)
	require.NoError(t, err)
	_, err = assign(t)
	require.NoError(t, err)

	// Third admission into a two-bed ward.
	_, err = assign(t)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	ward, err := f.wards.GetWard(context.Background(), testTenant, f.wardID)
	require.NoError(t, err)
	assert.Equal(t, 2, ward.OccupiedBeds)
}

func TestAdmissionCancelKeepsBed(t *testing.T) {
	f := newAdmissionFixture(t)

	a := f.createPending(t)
	_, err := f.transition(t, matron, a.AdmissionID, domain.AdmissionActionApprove,
		AdmissionTransitionPayload{Department: "cardiology"})
	require.NoError(t, err)
	_, err = f.transition(t, matron, a.AdmissionID, domain.AdmissionActionAssign,
		AdmissionTransitionPayload{WardID: f.wardID, BedNumber: "A-1"})
	require.NoError(t, err)

	a, err = f.transition(t, doctor, a.AdmissionID, domain.AdmissionActionCancel, AdmissionTransitionPayload{})
	require.NoError(t, err)
	assert.Equal(t, domain.AdmissionCancelled, a.Status)
	require.NotNil(t, a.CancelledAt)

	// The counter only moves on completion.
	ward, err := f.wards.GetWard(context.Background(), testTenant, f.wardID)
	require.NoError(t, err)
	assert.Equal(t, 1, ward.OccupiedBeds)
}

func TestAdmissionCancelOwnership(t *testing.T) {
	f := newAdmissionFixture(t)

	a := f.createPending(t)
	_, err := f.transition(t, matron, a.AdmissionID, domain.AdmissionActionApprove,
		AdmissionTransitionPayload{Department: "cardiology"})
	require.NoError(t, err)

	// A doctor who did not refer the patient may not cancel.
	otherDoctor := domain.Actor{UserID: "doc-2", Role: domain.RoleDoctor}
	_, err = f.transition(t, otherDoctor, a.AdmissionID, domain.AdmissionActionCancel, AdmissionTransitionPayload{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// The reviewing matron nurse may.
	_, err = f.transition(t, matron, a.AdmissionID, domain.AdmissionActionCancel, AdmissionTransitionPayload{})
	assert.NoError(t, err)
}

func TestAdmissionInvalidTransitions(t *testing.T) {
	f := newAdmissionFixture(t)

	a := f.createPending(t)

	// Assign straight from pending skips the review step.
	_, err := f.transition(t, matron, a.AdmissionID, domain.AdmissionActionAssign,
		AdmissionTransitionPayload{WardID: f.wardID, BedNumber: "A-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.transition(t, matron, a.AdmissionID, domain.AdmissionActionApprove,
		AdmissionTransitionPayload{Department: "cardiology"})
	require.NoError(t, err)

	// Approving twice is illegal whoever asks.
	_, err = f.transition(t, matron, a.AdmissionID, domain.AdmissionActionApprove,
		AdmissionTransitionPayload{Department: "cardiology"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// A cancelled admission is terminal.
	_, err = f.transition(t, doctor, a.AdmissionID, domain.AdmissionActionCancel, AdmissionTransitionPayload{})
	require.NoError(t, err)
	_, err = f.transition(t, matron, a.AdmissionID, domain.AdmissionActionApprove,
		AdmissionTransitionPayload{Department: "cardiology"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestAdmissionCreateRequiresDoctor(t *testing.T) {
	f := newAdmissionFixture(t)

	nurse := domain.Actor{UserID: "nurse-1", Role: domain.RoleNurse}
	_, err := f.svc.CreateAdmission(context.Background(), CreateAdmissionRequest{
		TenantID:  testTenant,
		Actor:     nurse,
		PatientID: f.patientID,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.CreateAdmission(context.Background(), CreateAdmissionRequest{
		TenantID:  testTenant,
		Actor:     doctor,
		PatientID: "missing",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

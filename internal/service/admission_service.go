package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hospital-ops/internal/domain"
	"hospital-ops/internal/repository"
)

// AdmissionService owns the admission lifecycle and the ward bed-capacity
// invariant.
type AdmissionService interface {
	CreateAdmission(ctx context.Context, req CreateAdmissionRequest) (*domain.Admission, error)
	TransitionAdmission(ctx context.Context, req AdmissionTransitionRequest) (*domain.Admission, error)
	ListAdmissions(ctx context.Context, req ListAdmissionsRequest) (*ListAdmissionsResponse, error)
}

type admissionService struct {
	admissionsRepo repository.AdmissionsRepository
	wardsRepo      repository.WardsRepository
	patientsRepo   repository.PatientsRepository
	dischargesRepo repository.DischargesRepository
	gate           PermissionGate
	audit          AuditRecorder
	logger         *zap.Logger
	now            func() time.Time
}

func NewAdmissionService(
	admissionsRepo repository.AdmissionsRepository,
	wardsRepo repository.WardsRepository,
	patientsRepo repository.PatientsRepository,
	dischargesRepo repository.DischargesRepository,
	gate PermissionGate,
	audit AuditRecorder,
	logger *zap.Logger,
) AdmissionService {
	return &admissionService{
		admissionsRepo: admissionsRepo,
		wardsRepo:      wardsRepo,
		patientsRepo:   patientsRepo,
		dischargesRepo: dischargesRepo,
		gate:           gate,
		audit:          audit,
		logger:         logger,
		now:            time.Now,
	}
}

// CreateAdmissionRequest opens a pending admission for a patient.
type CreateAdmissionRequest struct {
	TenantID string
	Actor    domain.Actor

	PatientID  string
	Department string
}

// AdmissionTransitionRequest applies one lifecycle action.
type AdmissionTransitionRequest struct {
	TenantID string
	Actor    domain.Actor

	AdmissionID string
	Action      string
	Payload     AdmissionTransitionPayload
}

// AdmissionTransitionPayload carries the optional per-action inputs.
type AdmissionTransitionPayload struct {
	Department string `json:"department,omitempty"`
	WardID     string `json:"ward_id,omitempty"`
	BedNumber  string `json:"bed_number,omitempty"`
}

// ListAdmissionsRequest filters the admission listing.
type ListAdmissionsRequest struct {
	TenantID string
	Actor    domain.Actor

	Status string
	Page   int
	Size   int
}

// ListAdmissionsResponse carries one page of admissions.
type ListAdmissionsResponse struct {
	Items []*domain.Admission
	Total int
}

// The declared edge set for admissions.
var admissionEdges = map[string][]string{
	domain.AdmissionActionApprove:  {domain.AdmissionPending},
	domain.AdmissionActionAssign:   {domain.AdmissionApproved},
	domain.AdmissionActionComplete: {domain.AdmissionAssigned},
	domain.AdmissionActionCancel:   {domain.AdmissionPending, domain.AdmissionApproved, domain.AdmissionAssigned},
}

func admissionEdgeAllowed(action, state string) bool {
	for _, s := range admissionEdges[action] {
		if s == state {
			return true
		}
	}
	return false
}

// CreateAdmission opens a pending admission owned by the referring doctor.
func (s *admissionService) CreateAdmission(ctx context.Context, req CreateAdmissionRequest) (*domain.Admission, error) {
	if !req.Actor.Valid() {
		return nil, fmt.Errorf("missing actor: %w", domain.ErrUnauthorized)
	}
	if req.PatientID == "" {
		return nil, fmt.Errorf("patient_id is required: %w", domain.ErrInvalidArgument)
	}
	if !s.gate.Can(req.Actor, "create", Resource{Type: "admission"}) {
		return nil, fmt.Errorf("actor may not create admissions: %w", domain.ErrForbidden)
	}

	if _, err := s.patientsRepo.GetPatient(ctx, req.TenantID, req.PatientID); err != nil {
		return nil, err
	}

	admission := &domain.Admission{
		TenantID:   req.TenantID,
		PatientID:  req.PatientID,
		DoctorID:   req.Actor.UserID,
		Department: req.Department,
		Status:     domain.AdmissionPending,
		CreatedAt:  s.now(),
	}

	admissionID, err := s.admissionsRepo.CreateAdmission(ctx, req.TenantID, admission)
	if err != nil {
		return nil, fmt.Errorf("failed to create admission: %w", err)
	}
	admission.AdmissionID = admissionID

	s.audit.Record(ctx, req.TenantID, req.Actor, "create", "admission", admissionID, nil, admission)

	return admission, nil
}

// TransitionAdmission validates and applies one action. Everything is
// validated before any write; the only multi-resource step (bed reservation)
// happens through the ward repository's conditional update so capacity can
// never go over.
func (s *admissionService) TransitionAdmission(ctx context.Context, req AdmissionTransitionRequest) (*domain.Admission, error) {
	if !req.Actor.Valid() {
		return nil, fmt.Errorf("missing actor: %w", domain.ErrUnauthorized)
	}

	admission, err := s.admissionsRepo.GetAdmission(ctx, req.TenantID, req.AdmissionID)
	if err != nil {
		return nil, err
	}

	if !admissionEdgeAllowed(req.Action, admission.Status) {
		return nil, fmt.Errorf("action %q is not legal from state %q: %w",
			req.Action, admission.Status, domain.ErrInvalidTransition)
	}

	res := Resource{
		Type:      "admission",
		State:     admission.Status,
		OwnerID:   admission.DoctorID,
		StewardID: admission.MatronNurseID,
	}
	if !s.gate.Can(req.Actor, req.Action, res) {
		return nil, fmt.Errorf("actor may not %s this admission: %w", req.Action, domain.ErrForbidden)
	}

	before := *admission
	now := s.now()
	reservedWard := ""

	switch req.Action {
	case domain.AdmissionActionApprove:
		department := req.Payload.Department
		if department == "" {
			department = admission.Department
		}
		if department == "" {
			return nil, fmt.Errorf("department is required to approve: %w", domain.ErrInvalidArgument)
		}
		admission.Department = department
		admission.MatronNurseID = req.Actor.UserID
		admission.Status = domain.AdmissionApproved
		admission.ReviewedAt = &now

	case domain.AdmissionActionAssign:
		if req.Payload.WardID == "" || req.Payload.BedNumber == "" {
			return nil, fmt.Errorf("ward_id and bed_number are required to assign: %w", domain.ErrInvalidArgument)
		}
		if err := s.wardsRepo.ReserveBed(ctx, req.TenantID, req.Payload.WardID); err != nil {
			return nil, err
		}
		reservedWard = req.Payload.WardID
		admission.WardID = req.Payload.WardID
		admission.BedNumber = req.Payload.BedNumber
		admission.Status = domain.AdmissionAssigned
		admission.AssignedAt = &now

	case domain.AdmissionActionComplete:
		exists, err := s.dischargesRepo.ExistsForAdmission(ctx, req.TenantID, req.AdmissionID)
		if err != nil {
			return nil, fmt.Errorf("failed to check discharge: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("no discharge record for admission: %w", domain.ErrMissingPrecondition)
		}
		admission.Status = domain.AdmissionCompleted
		admission.CompletedAt = &now

	case domain.AdmissionActionCancel:
		admission.Status = domain.AdmissionCancelled
		admission.CancelledAt = &now

	default:
		return nil, fmt.Errorf("unknown action %q: %w", req.Action, domain.ErrInvalidTransition)
	}

	if err := s.admissionsRepo.UpdateAdmission(ctx, req.TenantID, req.AdmissionID, admission); err != nil {
		// Undo the reservation so a failed assignment does not strand a bed.
		if reservedWard != "" {
			if rerr := s.wardsRepo.ReleaseBed(ctx, req.TenantID, reservedWard); rerr != nil {
				s.logger.Error("Failed to release bed after aborted assignment",
					zap.Error(rerr),
					zap.String("ward_id", reservedWard),
					zap.String("admission_id", req.AdmissionID),
				)
			}
		}
		return nil, fmt.Errorf("failed to persist admission transition: %w", err)
	}

	// Beds are freed on completion only; cancellation of an assigned
	// admission keeps the bed until the patient is off the ward.
	if req.Action == domain.AdmissionActionComplete && admission.WardID != "" {
		if err := s.wardsRepo.ReleaseBed(ctx, req.TenantID, admission.WardID); err != nil {
			s.logger.Error("Failed to release bed on completion",
				zap.Error(err),
				zap.String("ward_id", admission.WardID),
				zap.String("admission_id", req.AdmissionID),
			)
		}
	}

	s.audit.Record(ctx, req.TenantID, req.Actor, req.Action, "admission", req.AdmissionID, &before, admission)

	s.logger.Info("Admission transition applied",
		zap.String("admission_id", req.AdmissionID),
		zap.String("action", req.Action),
		zap.String("from", before.Status),
		zap.String("to", admission.Status),
	)

	return admission, nil
}

// ListAdmissions returns one page of admissions.
func (s *admissionService) ListAdmissions(ctx context.Context, req ListAdmissionsRequest) (*ListAdmissionsResponse, error) {
	if !req.Actor.Valid() {
		return nil, fmt.Errorf("missing actor: %w", domain.ErrUnauthorized)
	}

	items, total, err := s.admissionsRepo.ListAdmissions(ctx, req.TenantID, req.Status, req.Page, req.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to list admissions: %w", err)
	}

	return &ListAdmissionsResponse{Items: items, Total: total}, nil
}

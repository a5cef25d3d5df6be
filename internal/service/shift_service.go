package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"hospital-ops/internal/domain"
	"hospital-ops/internal/repository"
)

// ShiftService owns the shift lifecycle state machine.
type ShiftService interface {
	CreateShift(ctx context.Context, req CreateShiftRequest) (*domain.Shift, error)
	TransitionShift(ctx context.Context, req ShiftTransitionRequest) (*domain.Shift, error)
	ListShifts(ctx context.Context, req ListShiftsRequest) (*ListShiftsResponse, error)
}

type shiftService struct {
	shiftsRepo repository.ShiftsRepository
	gate       PermissionGate
	audit      AuditRecorder
	logger     *zap.Logger
	now        func() time.Time
}

func NewShiftService(shiftsRepo repository.ShiftsRepository, gate PermissionGate, audit AuditRecorder, logger *zap.Logger) ShiftService {
	return &shiftService{
		shiftsRepo: shiftsRepo,
		gate:       gate,
		audit:      audit,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateShiftRequest schedules a new duty block.
type CreateShiftRequest struct {
	TenantID string
	Actor    domain.Actor

	UserID         string
	ShiftDate      time.Time
	ScheduledStart time.Time
	ScheduledEnd   time.Time
}

// ShiftTransitionRequest applies one lifecycle action to a shift.
type ShiftTransitionRequest struct {
	TenantID string
	Actor    domain.Actor

	ShiftID string
	Action  string
	Payload ShiftTransitionPayload
}

// ShiftTransitionPayload carries the optional per-action inputs.
type ShiftTransitionPayload struct {
	BreakType      string     `json:"break_type,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
}

// ListShiftsRequest filters the shift listing.
type ListShiftsRequest struct {
	TenantID string
	Actor    domain.Actor

	UserID    string
	Status    string
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	Size      int
}

// ListShiftsResponse carries one page of shifts with derived missed flags.
type ListShiftsResponse struct {
	Items []*domain.Shift
	Total int
}

// The declared edge set: action -> legal source states. Any action applied
// from a state outside its set is an invalid transition, whoever asks.
var shiftEdges = map[string][]string{
	domain.ShiftActionClockIn:    {domain.ShiftScheduled},
	domain.ShiftActionClockOut:   {domain.ShiftActive, domain.ShiftOnBreak},
	domain.ShiftActionStartBreak: {domain.ShiftActive},
	domain.ShiftActionEndBreak:   {domain.ShiftOnBreak},
	domain.ShiftActionGoOnCall:   {domain.ShiftScheduled, domain.ShiftActive},
	domain.ShiftActionGoOffCall:  {domain.ShiftOnCall},
	domain.ShiftActionCancel:     {domain.ShiftScheduled, domain.ShiftActive, domain.ShiftOnBreak, domain.ShiftOnCall},
	domain.ShiftActionModify:     {domain.ShiftScheduled, domain.ShiftActive},
	domain.ShiftActionMarkAbsent: {domain.ShiftScheduled},
}

func shiftEdgeAllowed(action, state string) bool {
	for _, s := range shiftEdges[action] {
		if s == state {
			return true
		}
	}
	return false
}

// CreateShift schedules a shift after the overlap guard: no non-cancelled
// shift of the same user may intersect the half-open [start, end) window.
func (s *shiftService) CreateShift(ctx context.Context, req CreateShiftRequest) (*domain.Shift, error) {
	if !req.Actor.Valid() {
		return nil, fmt.Errorf("missing actor: %w", domain.ErrUnauthorized)
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("user_id is required: %w", domain.ErrInvalidArgument)
	}
	if !req.ScheduledEnd.After(req.ScheduledStart) {
		return nil, fmt.Errorf("scheduled_end must be after scheduled_start: %w", domain.ErrInvalidArgument)
	}

	if !s.gate.Can(req.Actor, "create", Resource{Type: "shift", OwnerID: req.UserID}) {
		return nil, fmt.Errorf("actor may not create this shift: %w", domain.ErrForbidden)
	}

	overlapping, err := s.shiftsRepo.CountOverlapping(ctx, req.TenantID, req.UserID, req.ScheduledStart, req.ScheduledEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to check shift overlap: %w", err)
	}
	if overlapping > 0 {
		return nil, fmt.Errorf("shift overlaps an existing shift: %w", domain.ErrConflict)
	}

	shift := &domain.Shift{
		TenantID:       req.TenantID,
		UserID:         req.UserID,
		ShiftDate:      req.ShiftDate,
		ScheduledStart: req.ScheduledStart,
		ScheduledEnd:   req.ScheduledEnd,
		Status:         domain.ShiftScheduled,
	}
	if shift.ShiftDate.IsZero() {
		shift.ShiftDate = req.ScheduledStart.Truncate(24 * time.Hour)
	}

	shiftID, err := s.shiftsRepo.CreateShift(ctx, req.TenantID, shift)
	if err != nil {
		return nil, fmt.Errorf("failed to create shift: %w", err)
	}
	shift.ShiftID = shiftID

	s.audit.Record(ctx, req.TenantID, req.Actor, "create", "shift", shiftID, nil, shift)

	return shift, nil
}

// TransitionShift validates and applies one action. The edge set is checked
// before the permission gate so an illegal transition reads the same for
// every role; nothing is persisted until the whole effect is computed.
func (s *shiftService) TransitionShift(ctx context.Context, req ShiftTransitionRequest) (*domain.Shift, error) {
	if !req.Actor.Valid() {
		return nil, fmt.Errorf("missing actor: %w", domain.ErrUnauthorized)
	}

	shift, err := s.shiftsRepo.GetShift(ctx, req.TenantID, req.ShiftID)
	if err != nil {
		return nil, err
	}

	if !shiftEdgeAllowed(req.Action, shift.Status) {
		return nil, fmt.Errorf("action %q is not legal from state %q: %w",
			req.Action, shift.Status, domain.ErrInvalidTransition)
	}

	if !s.gate.Can(req.Actor, req.Action, Resource{Type: "shift", State: shift.Status, OwnerID: shift.UserID}) {
		return nil, fmt.Errorf("actor may not %s this shift: %w", req.Action, domain.ErrForbidden)
	}

	before := *shift
	now := s.now()

	switch req.Action {
	case domain.ShiftActionClockIn:
		shift.Status = domain.ShiftActive
		shift.ActualStart = &now
		shift.LoginEvents = append(shift.LoginEvents, domain.LoginEvent{Event: "login", At: now})

	case domain.ShiftActionClockOut:
		shift.Status = domain.ShiftCompleted
		shift.ActualEnd = &now
		shift.LoginEvents = append(shift.LoginEvents, domain.LoginEvent{Event: "logout", At: now})
		shift.WorkedMinutes = shift.ActualMinutes()

	case domain.ShiftActionStartBreak:
		if shift.OpenBreak() >= 0 {
			return nil, fmt.Errorf("a break is already open: %w", domain.ErrInvalidTransition)
		}
		breakType := req.Payload.BreakType
		if breakType == "" {
			breakType = "rest"
		}
		shift.Status = domain.ShiftOnBreak
		shift.Breaks = append(shift.Breaks, domain.BreakInterval{Type: breakType, StartTime: now})

	case domain.ShiftActionEndBreak:
		idx := shift.OpenBreak()
		if idx < 0 {
			return nil, fmt.Errorf("no open break to end: %w", domain.ErrInvalidTransition)
		}
		duration := int(math.Round(now.Sub(shift.Breaks[idx].StartTime).Minutes()))
		shift.Breaks[idx].EndTime = &now
		shift.Breaks[idx].DurationMinutes = &duration
		shift.Status = domain.ShiftActive

	case domain.ShiftActionGoOnCall:
		shift.Status = domain.ShiftOnCall
		shift.OnCallStart = &now

	case domain.ShiftActionGoOffCall:
		shift.OnCallEnd = &now
		if shift.OnCallStart != nil {
			minutes := int(math.Round(now.Sub(*shift.OnCallStart).Minutes()))
			shift.OnCallMinutes = &minutes
		}
		if shift.ActualStart != nil {
			shift.Status = domain.ShiftActive
		} else {
			shift.Status = domain.ShiftScheduled
		}

	case domain.ShiftActionCancel:
		shift.Status = domain.ShiftCancelled
		shift.ModifiedBy = req.Actor.UserID
		shift.ModificationReason = req.Payload.Reason

	case domain.ShiftActionModify:
		if req.Payload.ScheduledStart != nil {
			shift.ScheduledStart = *req.Payload.ScheduledStart
		}
		if req.Payload.ScheduledEnd != nil {
			shift.ScheduledEnd = *req.Payload.ScheduledEnd
		}
		if !shift.ScheduledEnd.After(shift.ScheduledStart) {
			return nil, fmt.Errorf("scheduled_end must be after scheduled_start: %w", domain.ErrInvalidArgument)
		}
		shift.ModifiedBy = req.Actor.UserID
		shift.ModificationReason = req.Payload.Reason

	case domain.ShiftActionMarkAbsent:
		shift.Status = domain.ShiftAbsent
		shift.ModifiedBy = req.Actor.UserID
		shift.ModificationReason = req.Payload.Reason

	default:
		return nil, fmt.Errorf("unknown action %q: %w", req.Action, domain.ErrInvalidTransition)
	}

	if err := s.shiftsRepo.UpdateShift(ctx, req.TenantID, req.ShiftID, shift); err != nil {
		return nil, fmt.Errorf("failed to persist shift transition: %w", err)
	}

	s.audit.Record(ctx, req.TenantID, req.Actor, req.Action, "shift", req.ShiftID, &before, shift)

	s.logger.Info("Shift transition applied",
		zap.String("shift_id", req.ShiftID),
		zap.String("action", req.Action),
		zap.String("from", before.Status),
		zap.String("to", shift.Status),
	)

	return shift, nil
}

// ListShifts returns one page of shifts. Missed classification is derived on
// every call and never persisted, so concurrent readers need no coordination.
func (s *shiftService) ListShifts(ctx context.Context, req ListShiftsRequest) (*ListShiftsResponse, error) {
	if !req.Actor.Valid() {
		return nil, fmt.Errorf("missing actor: %w", domain.ErrUnauthorized)
	}

	filters := &repository.ShiftFilters{
		UserID:    req.UserID,
		Status:    req.Status,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}

	shifts, total, err := s.shiftsRepo.ListShifts(ctx, req.TenantID, filters, req.Page, req.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}

	now := s.now()
	for _, shift := range shifts {
		shift.ClassifyMissed(now)
		shift.WorkedMinutes = shift.ActualMinutes()
	}

	return &ListShiftsResponse{Items: shifts, Total: total}, nil
}

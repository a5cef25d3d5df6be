package httpapi

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"hospital-ops/internal/service"
)

// ShiftHandler exposes the shift lifecycle over HTTP.
type ShiftHandler struct {
	shiftService service.ShiftService
	logger       *zap.Logger
}

func NewShiftHandler(shiftService service.ShiftService, logger *zap.Logger) *ShiftHandler {
	return &ShiftHandler{
		shiftService: shiftService,
		logger:       logger,
	}
}

// ServeHTTP dispatches shift routes.
func (h *ShiftHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/ops/api/v1/shifts" && r.Method == http.MethodGet:
		h.ListShifts(w, r)
	case r.URL.Path == "/ops/api/v1/shifts" && r.Method == http.MethodPost:
		h.CreateShift(w, r)
	case r.URL.Path == "/ops/api/v1/shifts/export" && r.Method == http.MethodGet:
		h.ExportShifts(w, r)
	case strings.HasPrefix(r.URL.Path, "/ops/api/v1/shifts/") &&
		strings.HasSuffix(r.URL.Path, "/transition") && r.Method == http.MethodPost:
		h.TransitionShift(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type createShiftBody struct {
	UserID         string    `json:"user_id"`
	ShiftDate      time.Time `json:"shift_date"`
	ScheduledStart time.Time `json:"scheduled_start"`
	ScheduledEnd   time.Time `json:"scheduled_end"`
}

// CreateShift schedules a new shift.
func (h *ShiftHandler) CreateShift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}
	actor, ok := actorFromReq(w, r)
	if !ok {
		return
	}

	var body createShiftBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	req := service.CreateShiftRequest{
		TenantID:       tenantID,
		Actor:          actor,
		UserID:         body.UserID,
		ShiftDate:      body.ShiftDate,
		ScheduledStart: body.ScheduledStart,
		ScheduledEnd:   body.ScheduledEnd,
	}

	shift, err := h.shiftService.CreateShift(ctx, req)
	if err != nil {
		h.logger.Error("CreateShift failed", zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(shift))
}

type transitionShiftBody struct {
	Action  string                         `json:"action"`
	Payload service.ShiftTransitionPayload `json:"payload"`
}

// TransitionShift applies one lifecycle action to a shift.
func (h *ShiftHandler) TransitionShift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	shiftID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/ops/api/v1/shifts/"), "/transition")
	if shiftID == "" || strings.Contains(shiftID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}
	actor, ok := actorFromReq(w, r)
	if !ok {
		return
	}

	var body transitionShiftBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if body.Action == "" {
		writeJSON(w, http.StatusBadRequest, Fail("action is required"))
		return
	}

	req := service.ShiftTransitionRequest{
		TenantID: tenantID,
		Actor:    actor,
		ShiftID:  shiftID,
		Action:   body.Action,
		Payload:  body.Payload,
	}

	shift, err := h.shiftService.TransitionShift(ctx, req)
	if err != nil {
		h.logger.Error("TransitionShift failed",
			zap.Error(err),
			zap.String("shift_id", shiftID),
			zap.String("action", body.Action),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(shift))
}

func (h *ShiftHandler) listRequestFromQuery(w http.ResponseWriter, r *http.Request) (service.ListShiftsRequest, bool) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return service.ListShiftsRequest{}, false
	}
	actor, ok := actorFromReq(w, r)
	if !ok {
		return service.ListShiftsRequest{}, false
	}

	q := r.URL.Query()
	return service.ListShiftsRequest{
		TenantID:  tenantID,
		Actor:     actor,
		UserID:    q.Get("user_id"),
		Status:    q.Get("status"),
		StartTime: parseTimeParam(q.Get("start_time")),
		EndTime:   parseTimeParam(q.Get("end_time")),
		Page:      parseInt(q.Get("page"), 1),
		Size:      parseInt(q.Get("size"), 20),
	}, true
}

// ListShifts returns one page of shifts with the missed flag derived.
func (h *ShiftHandler) ListShifts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := h.listRequestFromQuery(w, r)
	if !ok {
		return
	}

	resp, err := h.shiftService.ListShifts(ctx, req)
	if err != nil {
		h.logger.Error("ListShifts failed", zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": resp.Items,
		"total": resp.Total,
	}))
}

// ExportShifts streams the filtered roster as an xlsx workbook.
func (h *ShiftHandler) ExportShifts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := h.listRequestFromQuery(w, r)
	if !ok {
		return
	}
	// Export is unpaginated within a sane bound.
	req.Page = 1
	req.Size = 10000

	resp, err := h.shiftService.ListShifts(ctx, req)
	if err != nil {
		h.logger.Error("ExportShifts failed", zap.Error(err))
		writeError(w, err)
		return
	}

	data, err := GenerateShiftRosterExport(resp.Items)
	if err != nil {
		h.logger.Error("Failed to generate roster workbook", zap.Error(err))
		writeError(w, err)
		return
	}

	filename := "shift_roster_" + time.Now().Format("20060102_150405") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"hospital-ops/internal/service"
)

// AdmissionHandler exposes the admission lifecycle over HTTP.
type AdmissionHandler struct {
	admissionService service.AdmissionService
	logger           *zap.Logger
}

func NewAdmissionHandler(admissionService service.AdmissionService, logger *zap.Logger) *AdmissionHandler {
	return &AdmissionHandler{
		admissionService: admissionService,
		logger:           logger,
	}
}

// ServeHTTP dispatches admission routes.
func (h *AdmissionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/ops/api/v1/admissions" && r.Method == http.MethodGet:
		h.ListAdmissions(w, r)
	case r.URL.Path == "/ops/api/v1/admissions" && r.Method == http.MethodPost:
		h.CreateAdmission(w, r)
	case strings.HasPrefix(r.URL.Path, "/ops/api/v1/admissions/") &&
		strings.HasSuffix(r.URL.Path, "/transition") && r.Method == http.MethodPost:
		h.TransitionAdmission(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type createAdmissionBody struct {
	PatientID  string `json:"patient_id"`
	Department string `json:"department"`
}

// CreateAdmission opens a pending admission.
func (h *AdmissionHandler) CreateAdmission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}
	actor, ok := actorFromReq(w, r)
	if !ok {
		return
	}

	var body createAdmissionBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	admission, err := h.admissionService.CreateAdmission(ctx, service.CreateAdmissionRequest{
		TenantID:   tenantID,
		Actor:      actor,
		PatientID:  body.PatientID,
		Department: body.Department,
	})
	if err != nil {
		h.logger.Error("CreateAdmission failed", zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(admission))
}

type transitionAdmissionBody struct {
	Action  string                             `json:"action"`
	Payload service.AdmissionTransitionPayload `json:"payload"`
}

// TransitionAdmission applies one lifecycle action to an admission.
func (h *AdmissionHandler) TransitionAdmission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	admissionID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/ops/api/v1/admissions/"), "/transition")
	if admissionID == "" || strings.Contains(admissionID, "/") {
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

	var body transitionAdmissionBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if body.Action == "" {
		writeJSON(w, http.StatusBadRequest, Fail("action is required"))
		return
	}

	admission, err := h.admissionService.TransitionAdmission(ctx, service.AdmissionTransitionRequest{
		TenantID:    tenantID,
		Actor:       actor,
		AdmissionID: admissionID,
		Action:      body.Action,
		Payload:     body.Payload,
	})
	if err != nil {
		h.logger.Error("TransitionAdmission failed",
			zap.Error(err),
			zap.String("admission_id", admissionID),
			zap.String("action", body.Action),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(admission))
}

// ListAdmissions returns one page of admissions.
func (h *AdmissionHandler) ListAdmissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}
	actor, ok := actorFromReq(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	resp, err := h.admissionService.ListAdmissions(ctx, service.ListAdmissionsRequest{
		TenantID: tenantID,
		Actor:    actor,
		Status:   q.Get("status"),
		Page:     parseInt(q.Get("page"), 1),
		Size:     parseInt(q.Get("size"), 20),
	})
	if err != nil {
		h.logger.Error("ListAdmissions failed", zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": resp.Items,
		"total": resp.Total,
	}))
}

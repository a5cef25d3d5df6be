package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"hospital-ops/internal/service"
)

// TaskHandler exposes the patient worklist and task completion.
type TaskHandler struct {
	taskService service.TaskService
	logger      *zap.Logger
}

func NewTaskHandler(taskService service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// ServeHTTP dispatches task routes.
func (h *TaskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/ops/api/v1/patients/") &&
		strings.HasSuffix(r.URL.Path, "/tasks") && r.Method == http.MethodGet:
		h.GetPatientTasks(w, r)
	case strings.HasPrefix(r.URL.Path, "/ops/api/v1/tasks/") &&
		strings.HasSuffix(r.URL.Path, "/complete") && r.Method == http.MethodPost:
		h.CompleteTask(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// GetPatientTasks lists the open tasks for one patient, medication tasks
// derived on the fly.
func (h *TaskHandler) GetPatientTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	patientID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/ops/api/v1/patients/"), "/tasks")
	if patientID == "" || strings.Contains(patientID, "/") {
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

	tasks, err := h.taskService.GetPatientTasks(ctx, service.GetPatientTasksRequest{
		TenantID:  tenantID,
		Actor:     actor,
		PatientID: patientID,
	})
	if err != nil {
		h.logger.Error("GetPatientTasks failed",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(tasks))
}

type completeTaskBody struct {
	Notes string `json:"notes"`
}

// CompleteTask completes a task referenced by any id shape the feed emits.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	taskID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/ops/api/v1/tasks/"), "/complete")
	if taskID == "" || strings.Contains(taskID, "/") {
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

	var body completeTaskBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	task, err := h.taskService.CompleteTask(ctx, service.CompleteTaskRequest{
		TenantID: tenantID,
		Actor:    actor,
		TaskID:   taskID,
		Notes:    body.Notes,
	})
	if err != nil {
		h.logger.Error("CompleteTask failed",
			zap.Error(err),
			zap.String("task_id", taskID),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(task))
}

package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router uses the standard library http.ServeMux (no third-party router).
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler registers an http.Handler (used for the dispatching handlers).
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterOpsRoutes wires the operations API.
func (r *Router) RegisterOpsRoutes(shifts *ShiftHandler, tasks *TaskHandler, admissions *AdmissionHandler) {
	r.HandleHandler("/ops/api/v1/shifts", shifts)
	r.HandleHandler("/ops/api/v1/shifts/", shifts)

	r.HandleHandler("/ops/api/v1/patients/", tasks)
	r.HandleHandler("/ops/api/v1/tasks/", tasks)

	r.HandleHandler("/ops/api/v1/admissions", admissions)
	r.HandleHandler("/ops/api/v1/admissions/", admissions)

	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok("ok"))
	})
}

package httpapi

import (
	"net/http"

	"hospital-ops/internal/domain"
)

// tenantIDFromReq reads the tenant from the query string or the X-Tenant-Id
// header the gateway injects. Writes the error response itself on failure.
func tenantIDFromReq(w http.ResponseWriter, r *http.Request) (string, bool) {
	if tid := r.URL.Query().Get("tenant_id"); tid != "" && tid != "null" {
		return tid, true
	}
	if tid := r.Header.Get("X-Tenant-Id"); tid != "" && tid != "null" {
		return tid, true
	}
	writeJSON(w, http.StatusBadRequest, Fail("tenant_id is required"))
	return "", false
}

// actorFromReq reads the authenticated caller identity the gateway injects.
// Role validity is enforced here so services only ever see known roles.
func actorFromReq(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor := domain.Actor{
		UserID: r.Header.Get("X-User-Id"),
		Role:   r.Header.Get("X-User-Role"),
	}
	if !actor.Valid() {
		writeJSON(w, http.StatusUnauthorized, Fail("missing or invalid caller identity"))
		return domain.Actor{}, false
	}
	return actor, true
}

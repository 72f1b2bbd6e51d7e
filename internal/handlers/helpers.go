// Package handlers exposes the REST surface. Handlers decode one tagged
// input struct per operation, validate it at the boundary, check the gate,
// and delegate multi-step writes to the services package.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/diewo77/gestion-boutique/auth"
	"github.com/diewo77/gestion-boutique/gate"
	"github.com/diewo77/gestion-boutique/httpx"
)

const defaultPageSize = 15

// pathID parses the {id} path segment.
func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// decodeJSON decodes the request body into dst, reporting malformed JSON
// through the envelope.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Corps de requête JSON invalide", nil)
		return false
	}
	return true
}

// paginate reads limit/page query params with the API's defaults.
func paginate(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	return limit, offset
}

// authorize runs the gate for the current principal, writing the 403
// envelope on denial.
func authorize(w http.ResponseWriter, r *http.Request, g *gate.Gate[uint], action gate.Action, resourceType string, resource any) bool {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := g.Authorize(r.Context(), uid, action, resourceType, resource); err != nil {
		httpx.Error(w, http.StatusForbidden, "Action non autorisée", nil)
		return false
	}
	return true
}

// listPayload is the shape of every paginated collection response.
func listPayload(items any, total int64, limit, offset int) map[string]any {
	return map[string]any{"items": items, "total": total, "limit": limit, "offset": offset}
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/api/middleware"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/api/request"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/api/response"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/core"
)

type GroupDatabase struct {
	svc *core.GroupConfigService
}

func NewGroupDatabase(svc *core.GroupConfigService) *GroupDatabase {
	return &GroupDatabase{svc: svc}
}

// Get returns a group's database configuration with the password
// redacted.
func (h *GroupDatabase) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.svc.Config(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, cfg)
}

// Configure stores a group's database configuration. Enabled
// configurations must pass a connectivity test first.
func (h *GroupDatabase) Configure(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.ConfigureDatabase
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	cfg, err := h.svc.Configure(r.Context(), middleware.PrincipalFrom(r.Context()), id, req.ConnectionString, req.Password, enabled)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, cfg)
}

// Test probes a candidate configuration without persisting it.
func (h *GroupDatabase) Test(w http.ResponseWriter, r *http.Request) {
	var req request.TestDatabase
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.TestConnection(r.Context(), req.ConnectionString, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AccessibleWithLogs lists the caller's groups that have a usable
// database, with per-group connectivity.
func (h *GroupDatabase) AccessibleWithLogs(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.svc.AccessibleWithLogs(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"groups": statuses})
}

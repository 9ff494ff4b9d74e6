package handler

import (
	"net/http"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/api/middleware"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/api/request"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/api/response"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/core"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/model"
)

type Logs struct {
	svc *core.LogService
}

func NewLogs(svc *core.LogService) *Logs {
	return &Logs{svc: svc}
}

// Query runs a federated log query across every tenant database the
// caller may see.
func (h *Logs) Query(w http.ResponseWriter, r *http.Request) {
	spec, err := request.ParseLogQuery(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Query(r.Context(), middleware.PrincipalFrom(r.Context()), spec)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, result)
}

// Create writes a new log entry into one group's database.
func (h *Logs) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateLog
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry := model.NewLogEntry{
		InsightTitle:    req.InsightTitle,
		InsightContent:  req.InsightContent,
		ProblemCategory: req.ProblemCategory,
		RootCause:       req.RootCause,
		SolutionSteps:   req.SolutionSteps,
		ToolsRequired:   req.ToolsRequired,
		Tags:            req.Tags,
		EquipmentGroup:  req.EquipmentGroup,
		Notes:           req.Notes,
	}

	id, err := h.svc.Create(r.Context(), middleware.PrincipalFrom(r.Context()), req.GroupID, entry)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":       id,
		"group_id": req.GroupID,
	})
}

// Categories lists distinct problem categories across the caller's
// tenant databases.
func (h *Logs) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Categories(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// EquipmentGroups lists active equipment entries across the caller's
// tenant databases, de-duplicated by name.
func (h *Logs) EquipmentGroups(w http.ResponseWriter, r *http.Request) {
	equipment, err := h.svc.EquipmentGroups(r.Context(), middleware.PrincipalFrom(r.Context()), r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"equipment_groups": equipment})
}

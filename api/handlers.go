/*
handlers.go - HTTP API handlers for the capacity planner

PURPOSE:
  Exposes the planning engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the Planner.

ENDPOINTS:
  Organisation:
    GET/POST   /api/teams, /api/roles, /api/quarters, /api/members
    PUT/DELETE /api/{collection}/{id}

  Capacity:
    PUT  /api/members/{id}/capacities/{quarterId}  Member capacity for a quarter
    GET  /api/teams/{id}/capacity?quarter_id=      Aggregated team capacity
    PUT  /api/teams/{id}/capacities/{quarterId}    Legacy manual team capacity

  Tasks:
    GET/POST /api/tasks          List / create
    PUT      /api/tasks/{id}     Update (virtual ids allowed)
    POST     /api/tasks/delete   Batch delete {"ids": [...]}

  Variants:
    GET/POST   /api/variants            List (by scope) / create
    PUT/DELETE /api/variants/{id}       Rename / delete
    POST       /api/variants/{id}/main  Make main

  Board:
    GET  /api/board?team_id=&quarter_id=&mode=&variant_id=
    POST /api/board/drop

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (record in use, duplicate)
  - 500: Store failures

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/capacity-planner/planning"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Planner *planning.Planner

	log *zap.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over the given planner.
func NewHandler(planner *planning.Planner, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Planner: planner, log: log.Named("api")}
}

// =============================================================================
// TEAMS
// =============================================================================

// ListTeams returns all teams.
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Planner.Snapshot(r.Context())
	if err != nil {
		h.writePlanningError(w, "Failed to list teams", err)
		return
	}
	dtos := make([]TeamDTO, len(snap.Teams))
	for i, t := range snap.Teams {
		dtos[i] = toTeamDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTeam creates a team.
func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req TeamRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	team, err := h.Planner.CreateTeam(r.Context(), planning.Team{Name: req.Name, Color: req.Color})
	if err != nil {
		h.writePlanningError(w, "Failed to create team", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTeamDTO(team))
}

// UpdateTeam renames or recolors a team.
func (h *Handler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	var req TeamRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := planning.TeamID(chi.URLParam(r, "id"))
	team, err := h.Planner.UpdateTeam(r.Context(), planning.Team{ID: id, Name: req.Name, Color: req.Color})
	if err != nil {
		h.writePlanningError(w, "Failed to update team", err)
		return
	}
	writeJSON(w, http.StatusOK, toTeamDTO(team))
}

// DeleteTeam deletes a team without members or tasks.
func (h *Handler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	id := planning.TeamID(chi.URLParam(r, "id"))
	if err := h.Planner.DeleteTeam(r.Context(), id); err != nil {
		h.writePlanningError(w, "Failed to delete team", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTeamCapacity returns the team's aggregated capacity for a quarter.
// GET /api/teams/{id}/capacity?quarter_id=
func (h *Handler) GetTeamCapacity(w http.ResponseWriter, r *http.Request) {
	team := planning.TeamID(chi.URLParam(r, "id"))
	quarter := planning.QuarterID(r.URL.Query().Get("quarter_id"))
	if quarter == "" {
		writeError(w, http.StatusBadRequest, "quarter_id is required", nil)
		return
	}

	agg, err := h.Planner.Aggregator(r.Context())
	if err != nil {
		h.writePlanningError(w, "Failed to load capacity", err)
		return
	}
	snap := agg.Snapshot()
	if _, ok := snap.Team(team); !ok {
		writeError(w, http.StatusNotFound, "Team not found", nil)
		return
	}
	if _, ok := snap.Quarter(quarter); !ok {
		writeError(w, http.StatusNotFound, "Quarter not found", nil)
		return
	}

	perRole := make(map[string]decimal.Decimal, len(snap.Roles))
	for _, role := range snap.Roles {
		perRole[string(role.ID)] = agg.TeamRoleCapacity(team, role.ID, quarter)
	}
	dto := TeamCapacityReportDTO{
		TeamID:    string(team),
		QuarterID: string(quarter),
		Capacity:  agg.TeamCapacity(team, quarter),
		PerRole:   perRole,
	}
	if legacy, ok := agg.LegacyTeamCapacity(team, quarter); ok {
		dto.Legacy = &legacy
	}
	writeJSON(w, http.StatusOK, dto)
}

// SaveTeamCapacity upserts the legacy manual team capacity.
// PUT /api/teams/{id}/capacities/{quarterId}
func (h *Handler) SaveTeamCapacity(w http.ResponseWriter, r *http.Request) {
	var req CapacityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tc, err := h.Planner.SaveTeamCapacity(r.Context(),
		planning.TeamID(chi.URLParam(r, "id")),
		planning.QuarterID(chi.URLParam(r, "quarterId")),
		req.Capacity)
	if err != nil {
		h.writePlanningError(w, "Failed to save team capacity", err)
		return
	}
	writeJSON(w, http.StatusOK, TeamCapacityDTO{
		ID:        string(tc.ID),
		TeamID:    string(tc.TeamID),
		QuarterID: string(tc.QuarterID),
		Capacity:  tc.Capacity,
	})
}

// =============================================================================
// ROLES
// =============================================================================

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Planner.Snapshot(r.Context())
	if err != nil {
		h.writePlanningError(w, "Failed to list roles", err)
		return
	}
	dtos := make([]RoleDTO, len(snap.Roles))
	for i, role := range snap.Roles {
		dtos[i] = toRoleDTO(role)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := h.Planner.CreateRole(r.Context(), planning.Role{Name: req.Name, Description: req.Description})
	if err != nil {
		h.writePlanningError(w, "Failed to create role", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoleDTO(role))
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := planning.RoleID(chi.URLParam(r, "id"))
	role, err := h.Planner.UpdateRole(r.Context(), planning.Role{ID: id, Name: req.Name, Description: req.Description})
	if err != nil {
		h.writePlanningError(w, "Failed to update role", err)
		return
	}
	writeJSON(w, http.StatusOK, toRoleDTO(role))
}

// DeleteRole deletes a role no member holds.
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.Planner.DeleteRole(r.Context(), planning.RoleID(chi.URLParam(r, "id"))); err != nil {
		h.writePlanningError(w, "Failed to delete role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// QUARTERS
// =============================================================================

func (h *Handler) ListQuarters(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Planner.Snapshot(r.Context())
	if err != nil {
		h.writePlanningError(w, "Failed to list quarters", err)
		return
	}
	dtos := make([]QuarterDTO, len(snap.Quarters))
	for i, q := range snap.Quarters {
		dtos[i] = toQuarterDTO(q)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateQuarter(w http.ResponseWriter, r *http.Request) {
	var req QuarterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	q, err := h.Planner.CreateQuarter(r.Context(), planning.Quarter{Name: req.Name, Year: req.Year, Number: req.Quarter})
	if err != nil {
		h.writePlanningError(w, "Failed to create quarter", err)
		return
	}
	writeJSON(w, http.StatusCreated, toQuarterDTO(q))
}

func (h *Handler) UpdateQuarter(w http.ResponseWriter, r *http.Request) {
	var req QuarterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := planning.QuarterID(chi.URLParam(r, "id"))
	q, err := h.Planner.UpdateQuarter(r.Context(), planning.Quarter{ID: id, Name: req.Name, Year: req.Year, Number: req.Quarter})
	if err != nil {
		h.writePlanningError(w, "Failed to update quarter", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuarterDTO(q))
}

// DeleteQuarter deletes a quarter no task or variant references.
func (h *Handler) DeleteQuarter(w http.ResponseWriter, r *http.Request) {
	if err := h.Planner.DeleteQuarter(r.Context(), planning.QuarterID(chi.URLParam(r, "id"))); err != nil {
		h.writePlanningError(w, "Failed to delete quarter", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// MEMBERS
// =============================================================================

// ListMembers returns members with their capacities, optionally for one team.
// GET /api/members?team_id=
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	agg, err := h.Planner.Aggregator(r.Context())
	if err != nil {
		h.writePlanningError(w, "Failed to list members", err)
		return
	}
	team := planning.TeamID(r.URL.Query().Get("team_id"))
	members := agg.Snapshot().Members
	if team != "" {
		members = agg.MembersOf(team)
	}
	dtos := make([]MemberDTO, len(members))
	for i, m := range members {
		dtos[i] = toMemberDTO(agg, m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req MemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.Planner.CreateMember(r.Context(), memberFromRequest("", req))
	if err != nil {
		h.writePlanningError(w, "Failed to create member", err)
		return
	}
	h.writeMember(w, r, http.StatusCreated, m)
}

func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	var req MemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := planning.MemberID(chi.URLParam(r, "id"))
	m, err := h.Planner.UpdateMember(r.Context(), memberFromRequest(id, req))
	if err != nil {
		h.writePlanningError(w, "Failed to update member", err)
		return
	}
	h.writeMember(w, r, http.StatusOK, m)
}

func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	if err := h.Planner.DeleteMember(r.Context(), planning.MemberID(chi.URLParam(r, "id"))); err != nil {
		h.writePlanningError(w, "Failed to delete member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveMemberCapacity upserts a member's capacity for a quarter.
// PUT /api/members/{id}/capacities/{quarterId}
func (h *Handler) SaveMemberCapacity(w http.ResponseWriter, r *http.Request) {
	var req CapacityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mc, err := h.Planner.SaveMemberCapacity(r.Context(),
		planning.MemberID(chi.URLParam(r, "id")),
		planning.QuarterID(chi.URLParam(r, "quarterId")),
		req.Capacity)
	if err != nil {
		h.writePlanningError(w, "Failed to save member capacity", err)
		return
	}
	writeJSON(w, http.StatusOK, MemberCapacityDTO{
		ID:        string(mc.ID),
		MemberID:  string(mc.MemberID),
		QuarterID: string(mc.QuarterID),
		Capacity:  mc.Capacity,
	})
}

func memberFromRequest(id planning.MemberID, req MemberRequest) planning.Member {
	return planning.Member{
		ID:     id,
		Name:   req.Name,
		Email:  req.Email,
		TeamID: planning.TeamID(req.TeamID),
		RoleID: planning.RoleID(req.RoleID),
	}
}

func (h *Handler) writeMember(w http.ResponseWriter, r *http.Request, status int, m planning.Member) {
	agg, err := h.Planner.Aggregator(r.Context())
	if err != nil {
		h.writePlanningError(w, "Failed to load member", err)
		return
	}
	writeJSON(w, status, toMemberDTO(agg, m))
}

// =============================================================================
// TASKS
// =============================================================================

// ListTasks returns stored task rows, optionally filtered by team and quarter.
// GET /api/tasks?team_id=&quarter_id=
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	agg, err := h.Planner.Aggregator(r.Context())
	if err != nil {
		h.writePlanningError(w, "Failed to list tasks", err)
		return
	}
	team := planning.TeamID(r.URL.Query().Get("team_id"))
	quarter := planning.QuarterID(r.URL.Query().Get("quarter_id"))

	dtos := []TaskDTO{}
	for _, t := range agg.Snapshot().Tasks {
		if team != "" && t.TeamID != team {
			continue
		}
		if quarter != "" && !t.InQuarter(quarter) {
			continue
		}
		base, _ := planning.SplitTaskID(t.ID)
		dtos = append(dtos, toTaskDTO(agg, planning.TaskView{Task: t, BaseID: base}))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTask creates a task together with its role capacities.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.saveTask(w, r, http.StatusCreated, taskInputFromRequest("", req))
}

// UpdateTask updates a task. A virtual id updates the template task and the
// planning state of that variant.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := planning.TaskID(chi.URLParam(r, "id"))
	h.saveTask(w, r, http.StatusOK, taskInputFromRequest(id, req))
}

func (h *Handler) saveTask(w http.ResponseWriter, r *http.Request, status int, in planning.TaskInput) {
	saved, err := h.Planner.SaveTask(r.Context(), in)
	if err != nil {
		h.writePlanningError(w, "Failed to save task", err)
		return
	}
	agg, err := h.Planner.Aggregator(r.Context())
	if err != nil {
		h.writePlanningError(w, "Failed to load task", err)
		return
	}
	base, _ := planning.SplitTaskID(saved.ID)
	writeJSON(w, status, toTaskDTO(agg, planning.TaskView{Task: saved, BaseID: base}))
}

func taskInputFromRequest(id planning.TaskID, req TaskRequest) planning.TaskInput {
	caps := make(map[planning.RoleID]decimal.Decimal, len(req.RoleCapacities))
	for role, c := range req.RoleCapacities {
		caps[planning.RoleID(role)] = c
	}
	return planning.TaskInput{
		Task: planning.Task{
			ID:              id,
			Title:           req.Title,
			Description:     req.Description,
			TeamID:          planning.TeamID(req.TeamID),
			QuarterID:       optID[planning.QuarterID](req.QuarterID),
			PlanVariantID:   optID[planning.VariantID](req.PlanVariantID),
			IsPlanned:       req.IsPlanned,
			Impact:          req.Impact,
			Confidence:      req.Confidence,
			Ease:            req.Ease,
			ExpressEstimate: req.ExpressEstimate,
		},
		RoleCapacities: caps,
	}
}

// DeleteTasks deletes tasks in one transaction.
// POST /api/tasks/delete {"ids": [...]}
func (h *Handler) DeleteTasks(w http.ResponseWriter, r *http.Request) {
	var req DeleteTasksRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids must not be empty", nil)
		return
	}
	ids := make([]planning.TaskID, len(req.IDs))
	for i, id := range req.IDs {
		ids[i] = planning.TaskID(id)
	}
	if err := h.Planner.DeleteTasks(r.Context(), ids); err != nil {
		h.writePlanningError(w, "Failed to delete tasks", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// VARIANTS
// =============================================================================

// ListVariants returns variants, optionally one group.
// GET /api/variants?team_id=&quarter_id=&mode=
func (h *Handler) ListVariants(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Planner.Snapshot(r.Context())
	if err != nil {
		h.writePlanningError(w, "Failed to list variants", err)
		return
	}
	q := r.URL.Query()
	if q.Get("team_id") == "" || q.Get("quarter_id") == "" {
		writeJSON(w, http.StatusOK, toVariantDTOs(snap.Variants))
		return
	}
	mode, err := planning.ParseMode(q.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid mode", err)
		return
	}
	group := planning.VariantGroup(snap, planning.Scope{
		TeamID:    planning.TeamID(q.Get("team_id")),
		QuarterID: planning.QuarterID(q.Get("quarter_id")),
		Mode:      mode,
	})
	writeJSON(w, http.StatusOK, toVariantDTOs(group))
}

func (h *Handler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	var req VariantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mode, err := planning.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid mode", err)
		return
	}
	v, err := h.Planner.CreateVariant(r.Context(), planning.PlanVariant{
		Name:      req.Name,
		TeamID:    planning.TeamID(req.TeamID),
		QuarterID: planning.QuarterID(req.QuarterID),
		IsExpress: mode.IsExpress(),
		IsMain:    req.IsMain,
	})
	if err != nil {
		h.writePlanningError(w, "Failed to create variant", err)
		return
	}
	writeJSON(w, http.StatusCreated, toVariantDTO(v))
}

// UpdateVariant renames a variant; is_main=true also makes it main.
func (h *Handler) UpdateVariant(w http.ResponseWriter, r *http.Request) {
	var req VariantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := planning.VariantID(chi.URLParam(r, "id"))
	v, err := h.Planner.RenameVariant(r.Context(), id, req.Name)
	if err != nil {
		h.writePlanningError(w, "Failed to update variant", err)
		return
	}
	if req.IsMain && !v.IsMain {
		if err := h.Planner.SetMainVariant(r.Context(), id); err != nil {
			h.writePlanningError(w, "Failed to set main variant", err)
			return
		}
		v.IsMain = true
	}
	writeJSON(w, http.StatusOK, toVariantDTO(v))
}

func (h *Handler) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	if err := h.Planner.DeleteVariant(r.Context(), planning.VariantID(chi.URLParam(r, "id"))); err != nil {
		h.writePlanningError(w, "Failed to delete variant", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetMainVariant makes the variant the only main one of its group.
// POST /api/variants/{id}/main
func (h *Handler) SetMainVariant(w http.ResponseWriter, r *http.Request) {
	if err := h.Planner.SetMainVariant(r.Context(), planning.VariantID(chi.URLParam(r, "id"))); err != nil {
		h.writePlanningError(w, "Failed to set main variant", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// BOARD
// =============================================================================

// GetBoard returns the planned/backlog projection and utilization of a scope.
// GET /api/board?team_id=&quarter_id=&mode=&variant_id=
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := planning.ParseMode(q.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid mode", err)
		return
	}
	board, err := h.Planner.Board(r.Context(), planning.BoardRequest{
		TeamID:    planning.TeamID(q.Get("team_id")),
		QuarterID: planning.QuarterID(q.Get("quarter_id")),
		Mode:      mode,
		VariantID: planning.VariantID(q.Get("variant_id")),
	})
	if err != nil {
		h.writePlanningError(w, "Failed to load board", err)
		return
	}
	agg, err := h.Planner.Aggregator(r.Context())
	if err != nil {
		h.writePlanningError(w, "Failed to load board", err)
		return
	}
	writeJSON(w, http.StatusOK, toBoardDTO(agg, board))
}

// Drop applies a drag-end event. Drops that resolve to nothing return
// applied=false with status 200.
// POST /api/board/drop
func (h *Handler) Drop(w http.ResponseWriter, r *http.Request) {
	var req DropRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mode, err := planning.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid mode", err)
		return
	}
	res, err := h.Planner.Drop(r.Context(), planning.BoardRequest{
		TeamID:    planning.TeamID(req.TeamID),
		QuarterID: planning.QuarterID(req.QuarterID),
		Mode:      mode,
		VariantID: planning.VariantID(req.VariantID),
	}, planning.TaskID(req.TaskID), req.Container)
	if err != nil {
		h.writePlanningError(w, "Failed to move task", err)
		return
	}

	resp := DropResponse{Applied: res.Applied, Provisioned: res.Provisioned}
	if res.Applied {
		agg, err := h.Planner.Aggregator(r.Context())
		if err != nil {
			h.writePlanningError(w, "Failed to load task", err)
			return
		}
		v := toVariantDTO(res.Variant)
		t := toTaskDTO(agg, planning.TaskView{Task: res.Task, BaseID: res.Task.ID})
		resp.Variant = &v
		resp.Task = &t
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Planner.Reset(r.Context()); err != nil {
		h.writePlanningError(w, "Failed to reset database", err)
		return
	}
	h.setScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writePlanningError maps planning errors to HTTP status codes.
func (h *Handler) writePlanningError(w http.ResponseWriter, message string, err error) {
	status, code := http.StatusInternalServerError, "store"
	switch {
	case planning.IsClientError(err):
		status, code = http.StatusBadRequest, "validation"
	case planning.IsNotFound(err):
		status, code = http.StatusNotFound, "not_found"
	case planning.IsConflict(err):
		status, code = http.StatusConflict, "conflict"
	default:
		h.log.Error(message, zap.Error(err))
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: err.Error()})
}

// decodeJSON reads the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

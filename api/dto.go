/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the planning domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

EFFORT VALUES:
  Capacities and estimates are decimal.Decimal. They serialize as JSON
  strings ("1.5") and accept either strings or numbers on input.

TYPES:
  Organisation:
    TeamDTO, RoleDTO, QuarterDTO, MemberDTO (+ requests)

  Capacity:
    CapacityRequest, MemberCapacityDTO, TeamCapacityDTO, TeamCapacityReportDTO

  Tasks & Variants:
    TaskDTO, TaskRequest, DeleteTasksRequest, VariantDTO, VariantRequest

  Board:
    BoardDTO, UtilizationDTO, LoadDTO, DropRequest, DropResponse

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done by the planning package, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/capacity-planner/planning"
)

// =============================================================================
// ORGANISATION
// =============================================================================

type TeamDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type TeamRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type RoleDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type RoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type QuarterDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Year      int    `json:"year"`
	Quarter   int    `json:"quarter"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type QuarterRequest struct {
	Name    string `json:"name"`
	Year    int    `json:"year"`
	Quarter int    `json:"quarter"`
}

// MemberDTO includes the member's capacity per quarter id.
type MemberDTO struct {
	ID         string                     `json:"id"`
	Name       string                     `json:"name"`
	Email      string                     `json:"email,omitempty"`
	TeamID     string                     `json:"team_id"`
	RoleID     string                     `json:"role_id"`
	Capacities map[string]decimal.Decimal `json:"capacities"`
}

type MemberRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	TeamID string `json:"team_id"`
	RoleID string `json:"role_id"`
}

// =============================================================================
// CAPACITY
// =============================================================================

type CapacityRequest struct {
	Capacity decimal.Decimal `json:"capacity"`
}

type MemberCapacityDTO struct {
	ID        string          `json:"id"`
	MemberID  string          `json:"member_id"`
	QuarterID string          `json:"quarter_id"`
	Capacity  decimal.Decimal `json:"capacity"`
}

type TeamCapacityDTO struct {
	ID        string          `json:"id"`
	TeamID    string          `json:"team_id"`
	QuarterID string          `json:"quarter_id"`
	Capacity  decimal.Decimal `json:"capacity"`
}

// TeamCapacityReportDTO is the aggregated capacity of a team for a quarter.
type TeamCapacityReportDTO struct {
	TeamID    string                     `json:"team_id"`
	QuarterID string                     `json:"quarter_id"`
	Capacity  decimal.Decimal            `json:"capacity"`
	PerRole   map[string]decimal.Decimal `json:"per_role"`
	// Legacy is the manually entered team capacity, if any.
	Legacy *decimal.Decimal `json:"legacy,omitempty"`
}

// =============================================================================
// TASKS & VARIANTS
// =============================================================================

type TaskDTO struct {
	ID               string                     `json:"id"`
	BaseID           string                     `json:"base_id"`
	Virtual          bool                       `json:"virtual,omitempty"`
	Title            string                     `json:"title"`
	Description      string                     `json:"description,omitempty"`
	TeamID           string                     `json:"team_id"`
	QuarterID        *string                    `json:"quarter_id"`
	PlanVariantID    *string                    `json:"plan_variant_id"`
	IsPlanned        bool                       `json:"is_planned"`
	Impact           int                        `json:"impact"`
	Confidence       int                        `json:"confidence"`
	Ease             int                        `json:"ease"`
	ICEScore         int                        `json:"ice_score"`
	ExpressEstimate  *decimal.Decimal           `json:"express_estimate"`
	DetailedEstimate decimal.Decimal            `json:"detailed_estimate"`
	RoleCapacities   map[string]decimal.Decimal `json:"role_capacities"`
}

type TaskRequest struct {
	Title           string                     `json:"title"`
	Description     string                     `json:"description"`
	TeamID          string                     `json:"team_id"`
	QuarterID       *string                    `json:"quarter_id"`
	PlanVariantID   *string                    `json:"plan_variant_id"`
	IsPlanned       bool                       `json:"is_planned"`
	Impact          int                        `json:"impact"`
	Confidence      int                        `json:"confidence"`
	Ease            int                        `json:"ease"`
	ExpressEstimate *decimal.Decimal           `json:"express_estimate"`
	RoleCapacities  map[string]decimal.Decimal `json:"role_capacities"`
}

type DeleteTasksRequest struct {
	IDs []string `json:"ids"`
}

type VariantDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TeamID    string `json:"team_id"`
	QuarterID string `json:"quarter_id"`
	Mode      string `json:"mode"`
	IsExpress bool   `json:"is_express"`
	IsMain    bool   `json:"is_main"`
}

type VariantRequest struct {
	Name      string `json:"name"`
	TeamID    string `json:"team_id"`
	QuarterID string `json:"quarter_id"`
	Mode      string `json:"mode"`
	IsMain    bool   `json:"is_main"`
}

// =============================================================================
// BOARD
// =============================================================================

type LoadDTO struct {
	Used       decimal.Decimal `json:"used"`
	Total      decimal.Decimal `json:"total"`
	Percentage decimal.Decimal `json:"percentage"`
	Tier       string          `json:"tier"`
	Configured bool            `json:"configured"`
}

type UtilizationDTO struct {
	Mode    string             `json:"mode"`
	Team    LoadDTO            `json:"team"`
	PerRole map[string]LoadDTO `json:"per_role"`
}

type BoardDTO struct {
	TeamID         string           `json:"team_id"`
	QuarterID      string           `json:"quarter_id"`
	Mode           string           `json:"mode"`
	Variants       []VariantDTO     `json:"variants"`
	Variant        *VariantDTO      `json:"variant"`
	Planned        []TaskDTO        `json:"planned"`
	Backlog        []TaskDTO        `json:"backlog"`
	Utilization    UtilizationDTO   `json:"utilization"`
	LegacyCapacity *decimal.Decimal `json:"legacy_capacity,omitempty"`
}

// DropRequest is a drag-end event: which row landed on which container.
type DropRequest struct {
	TeamID    string `json:"team_id"`
	QuarterID string `json:"quarter_id"`
	Mode      string `json:"mode"`
	VariantID string `json:"variant_id"`
	TaskID    string `json:"task_id"`
	Container string `json:"container"` // "planned-tasks" or "backlog-tasks"
}

type DropResponse struct {
	Applied     bool        `json:"applied"`
	Provisioned bool        `json:"provisioned,omitempty"`
	Variant     *VariantDTO `json:"variant,omitempty"`
	Task        *TaskDTO    `json:"task,omitempty"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

const dateLayout = "2006-01-02"

func toTeamDTO(t planning.Team) TeamDTO {
	return TeamDTO{ID: string(t.ID), Name: t.Name, Color: t.Color}
}

func toRoleDTO(r planning.Role) RoleDTO {
	dto := RoleDTO{ID: string(r.ID), Name: r.Name, Description: r.Description}
	if !r.CreatedAt.IsZero() {
		dto.CreatedAt = r.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toQuarterDTO(q planning.Quarter) QuarterDTO {
	return QuarterDTO{
		ID:        string(q.ID),
		Name:      q.Name,
		Year:      q.Year,
		Quarter:   q.Number,
		StartDate: q.StartDate().Format(dateLayout),
		EndDate:   q.EndDate().Format(dateLayout),
	}
}

func toMemberDTO(agg *planning.Aggregator, m planning.Member) MemberDTO {
	caps := make(map[string]decimal.Decimal)
	for _, q := range agg.Snapshot().Quarters {
		if agg.HasMemberCapacity(m.ID, q.ID) {
			caps[string(q.ID)] = agg.MemberCapacity(m.ID, q.ID)
		}
	}
	return MemberDTO{
		ID:         string(m.ID),
		Name:       m.Name,
		Email:      m.Email,
		TeamID:     string(m.TeamID),
		RoleID:     string(m.RoleID),
		Capacities: caps,
	}
}

func toVariantDTO(v planning.PlanVariant) VariantDTO {
	return VariantDTO{
		ID:        string(v.ID),
		Name:      v.Name,
		TeamID:    string(v.TeamID),
		QuarterID: string(v.QuarterID),
		Mode:      string(planning.ModeOf(v.IsExpress)),
		IsExpress: v.IsExpress,
		IsMain:    v.IsMain,
	}
}

func toVariantDTOs(vs []planning.PlanVariant) []VariantDTO {
	dtos := make([]VariantDTO, len(vs))
	for i, v := range vs {
		dtos[i] = toVariantDTO(v)
	}
	return dtos
}

func optString[T ~string](p *T) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

func optID[T ~string](p *string) *T {
	if p == nil || *p == "" {
		return nil
	}
	id := T(*p)
	return &id
}

// toTaskDTO renders a task view; estimates come from the base task.
func toTaskDTO(agg *planning.Aggregator, v planning.TaskView) TaskDTO {
	t := v.Task
	base := v.BaseID
	if base == "" {
		base, _ = planning.SplitTaskID(t.ID)
	}
	roles := make(map[string]decimal.Decimal)
	for _, r := range agg.Snapshot().Roles {
		if c := agg.TaskRoleCapacity(base, r.ID); !c.IsZero() {
			roles[string(r.ID)] = c
		}
	}
	return TaskDTO{
		ID:               string(t.ID),
		BaseID:           string(base),
		Virtual:          v.Virtual,
		Title:            t.Title,
		Description:      t.Description,
		TeamID:           string(t.TeamID),
		QuarterID:        optString(t.QuarterID),
		PlanVariantID:    optString(t.PlanVariantID),
		IsPlanned:        t.IsPlanned,
		Impact:           t.Impact,
		Confidence:       t.Confidence,
		Ease:             t.Ease,
		ICEScore:         t.ICEScore(),
		ExpressEstimate:  t.ExpressEstimate,
		DetailedEstimate: agg.TaskDetailedEstimate(base),
		RoleCapacities:   roles,
	}
}

func toTaskDTOs(agg *planning.Aggregator, views []planning.TaskView) []TaskDTO {
	dtos := make([]TaskDTO, len(views))
	for i, v := range views {
		dtos[i] = toTaskDTO(agg, v)
	}
	return dtos
}

func toLoadDTO(l planning.Load) LoadDTO {
	return LoadDTO{
		Used:       l.Used,
		Total:      l.Total,
		Percentage: l.Percentage.Round(1),
		Tier:       string(l.Tier),
		Configured: l.Configured,
	}
}

func toUtilizationDTO(u planning.Utilization) UtilizationDTO {
	perRole := make(map[string]LoadDTO, len(u.PerRole))
	for role, l := range u.PerRole {
		perRole[string(role)] = toLoadDTO(l)
	}
	return UtilizationDTO{Mode: string(u.Mode), Team: toLoadDTO(u.Team), PerRole: perRole}
}

func toBoardDTO(agg *planning.Aggregator, b *planning.Board) BoardDTO {
	dto := BoardDTO{
		TeamID:      string(b.Scope.TeamID),
		QuarterID:   string(b.Scope.QuarterID),
		Mode:        string(b.Scope.Mode),
		Variants:    toVariantDTOs(b.Variants),
		Planned:     toTaskDTOs(agg, b.Planned),
		Backlog:     toTaskDTOs(agg, b.Backlog),
		Utilization: toUtilizationDTO(b.Utilization),
	}
	if b.Variant != nil {
		v := toVariantDTO(*b.Variant)
		dto.Variant = &v
	}
	if b.LegacyCapacity != nil {
		c := b.LegacyCapacity.Capacity
		dto.LegacyCapacity = &c
	}
	return dto
}

/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
	Provides pre-built scenarios that populate the database with realistic
	planning data. Everything is created through the Planner, so the
	capacity matrix is dense and each variant group has one main variant.

AVAILABLE SCENARIOS:
	default:    Three teams, five roles, four members, 2025 quarters,
	            a main "Основной" variant per team/quarter/mode, sample tasks
	overloaded: One team whose planned work exceeds its Q1 capacity

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create roles, teams and quarters
 3. Create members (capacities are seeded per quarter)
 4. Create variants and tasks, then plan tasks into the main variant

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "default"}

NOTE:
	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase
  - planning/planner.go: All writes go through the Planner
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/capacity-planner/planning"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "default",
		Name:        "Default Organisation",
		Description: "Frontend, Backend and DevOps teams planning 2025 with sample tasks",
	},
	{
		ID:          "overloaded",
		Name:        "Overloaded Team",
		Description: "A team whose planned Q1 work exceeds member capacity",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.scenario()
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		if planning.IsClientError(err) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", err)
			return
		}
		h.writePlanningError(w, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	loaders := map[string]func(context.Context, *planning.Planner) error{
		"default":    loadDefaultScenario,
		"overloaded": loadOverloadedScenario,
	}
	load, ok := loaders[id]
	if !ok {
		return &planning.ValidationError{Field: "scenario_id", Message: fmt.Sprintf("unknown scenario %q", id)}
	}

	if err := h.Planner.Reset(ctx); err != nil {
		return err
	}
	h.setScenario("")
	if err := load(ctx, h.Planner); err != nil {
		return err
	}
	h.setScenario(id)
	h.log.Info("scenario loaded", zap.String("scenario", id))
	return nil
}

// Seed loads scenario id only when the database holds no teams yet.
func (h *Handler) Seed(ctx context.Context, id string) (bool, error) {
	snap, err := h.Planner.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	if len(snap.Teams) > 0 {
		return false, nil
	}
	return true, h.loadScenario(ctx, id)
}

func (h *Handler) scenario() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentScenario
}

func (h *Handler) setScenario(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = id
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

type seededTask struct {
	team    string
	title   string
	express float64
	roles   map[string]float64
	ice     [3]int
	planned bool
}

func loadDefaultScenario(ctx context.Context, p *planning.Planner) error {
	roles, err := createRoles(ctx, p, []planning.Role{
		{Name: "Frontend Developer", Description: "Builds the web client"},
		{Name: "Backend Developer", Description: "Builds services and APIs"},
		{Name: "DevOps Engineer", Description: "Runs infrastructure and CI/CD"},
		{Name: "Team Lead", Description: "Leads the team"},
		{Name: "QA Engineer", Description: "Owns test plans and release quality"},
	})
	if err != nil {
		return err
	}

	teams, err := createTeams(ctx, p, []planning.Team{
		{Name: "Frontend", Color: "#3B82F6"},
		{Name: "Backend", Color: "#10B981"},
		{Name: "DevOps", Color: "#F59E0B"},
	})
	if err != nil {
		return err
	}

	quarters, err := createQuarters(ctx, p, 2025, 1, 2, 3, 4)
	if err != nil {
		return err
	}

	members := []struct{ name, email, team, role string }{
		{"Alice Johnson", "alice@example.com", "Frontend", "Frontend Developer"},
		{"Bob Smith", "bob@example.com", "Frontend", "Team Lead"},
		{"Carol Davis", "carol@example.com", "Backend", "Backend Developer"},
		{"Dan Wilson", "dan@example.com", "DevOps", "DevOps Engineer"},
	}
	for _, m := range members {
		if _, err := p.CreateMember(ctx, planning.Member{
			Name:   m.name,
			Email:  m.email,
			TeamID: teams[m.team],
			RoleID: roles[m.role],
		}); err != nil {
			return fmt.Errorf("create member %s: %w", m.name, err)
		}
	}

	q1 := quarters[0]
	for name, c := range map[string]int64{"Frontend": 8, "Backend": 10, "DevOps": 6} {
		if _, err := p.SaveTeamCapacity(ctx, teams[name], q1, decimal.NewFromInt(c)); err != nil {
			return fmt.Errorf("save team capacity %s: %w", name, err)
		}
	}

	for _, name := range []string{"Frontend", "Backend", "DevOps"} {
		team := teams[name]
		for _, q := range quarters {
			for _, mode := range []planning.Mode{planning.ModeExpress, planning.ModeDetailed} {
				if _, err := p.CreateVariant(ctx, planning.PlanVariant{
					Name:      planning.DefaultVariantName,
					TeamID:    team,
					QuarterID: q,
					IsExpress: mode.IsExpress(),
					IsMain:    true,
				}); err != nil {
					return fmt.Errorf("create variant: %w", err)
				}
			}
		}
	}

	return seedTasks(ctx, p, teams, roles, q1, []seededTask{
		{team: "Frontend", title: "Redesign planning board", express: 2, ice: [3]int{8, 7, 6}, planned: true,
			roles: map[string]float64{"Frontend Developer": 1.5, "Team Lead": 0.5}},
		{team: "Frontend", title: "Component library migration", express: 3, ice: [3]int{6, 6, 4}, planned: true,
			roles: map[string]float64{"Frontend Developer": 2.5}},
		{team: "Frontend", title: "Accessibility audit", express: 1, ice: [3]int{5, 8, 8},
			roles: map[string]float64{"Frontend Developer": 0.5, "QA Engineer": 0.5}},
		{team: "Backend", title: "Capacity API", express: 1.5, ice: [3]int{9, 7, 6}, planned: true,
			roles: map[string]float64{"Backend Developer": 1.5}},
		{team: "Backend", title: "Audit log storage", express: 2, ice: [3]int{4, 5, 5},
			roles: map[string]float64{"Backend Developer": 2}},
		{team: "DevOps", title: "CI pipeline caching", express: 1, ice: [3]int{7, 8, 9}, planned: true,
			roles: map[string]float64{"DevOps Engineer": 1}},
	})
}

func loadOverloadedScenario(ctx context.Context, p *planning.Planner) error {
	roles, err := createRoles(ctx, p, []planning.Role{
		{Name: "Backend Developer"},
		{Name: "QA Engineer"},
	})
	if err != nil {
		return err
	}
	teams, err := createTeams(ctx, p, []planning.Team{{Name: "Platform", Color: "#EF4444"}})
	if err != nil {
		return err
	}
	quarters, err := createQuarters(ctx, p, 2025, 1)
	if err != nil {
		return err
	}
	for _, name := range []string{"Erin Clark", "Frank Lee"} {
		if _, err := p.CreateMember(ctx, planning.Member{Name: name, TeamID: teams["Platform"], RoleID: roles["Backend Developer"]}); err != nil {
			return fmt.Errorf("create member %s: %w", name, err)
		}
	}

	// Two members at the default capacity of 2 give 4; 5.5 is planned.
	return seedTasks(ctx, p, teams, roles, quarters[0], []seededTask{
		{team: "Platform", title: "Split monolith billing module", express: 3, ice: [3]int{9, 5, 3}, planned: true,
			roles: map[string]float64{"Backend Developer": 3, "QA Engineer": 0.5}},
		{team: "Platform", title: "Queue-based notifications", express: 2.5, ice: [3]int{7, 6, 5}, planned: true,
			roles: map[string]float64{"Backend Developer": 2.5}},
		{team: "Platform", title: "Load test suite", express: 1, ice: [3]int{5, 7, 7},
			roles: map[string]float64{"QA Engineer": 1}},
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func createRoles(ctx context.Context, p *planning.Planner, rs []planning.Role) (map[string]planning.RoleID, error) {
	ids := make(map[string]planning.RoleID, len(rs))
	for _, r := range rs {
		created, err := p.CreateRole(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("create role %s: %w", r.Name, err)
		}
		ids[r.Name] = created.ID
	}
	return ids, nil
}

func createTeams(ctx context.Context, p *planning.Planner, ts []planning.Team) (map[string]planning.TeamID, error) {
	ids := make(map[string]planning.TeamID, len(ts))
	for _, t := range ts {
		created, err := p.CreateTeam(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("create team %s: %w", t.Name, err)
		}
		ids[t.Name] = created.ID
	}
	return ids, nil
}

func createQuarters(ctx context.Context, p *planning.Planner, year int, numbers ...int) ([]planning.QuarterID, error) {
	ids := make([]planning.QuarterID, 0, len(numbers))
	for _, n := range numbers {
		q, err := p.CreateQuarter(ctx, planning.Quarter{Year: year, Number: n})
		if err != nil {
			return nil, fmt.Errorf("create quarter Q%d %d: %w", n, year, err)
		}
		ids = append(ids, q.ID)
	}
	return ids, nil
}

// seedTasks creates tasks in the backlog and drops the planned ones onto the
// express board of quarter, which links them to its main variant.
func seedTasks(ctx context.Context, p *planning.Planner, teams map[string]planning.TeamID, roles map[string]planning.RoleID, quarter planning.QuarterID, tasks []seededTask) error {
	for _, st := range tasks {
		est := planning.Effort(st.express)
		caps := make(map[planning.RoleID]decimal.Decimal, len(st.roles))
		for role, c := range st.roles {
			caps[roles[role]] = planning.Effort(c)
		}
		saved, err := p.SaveTask(ctx, planning.TaskInput{
			Task: planning.Task{
				Title:           st.title,
				TeamID:          teams[st.team],
				Impact:          st.ice[0],
				Confidence:      st.ice[1],
				Ease:            st.ice[2],
				ExpressEstimate: &est,
			},
			RoleCapacities: caps,
		})
		if err != nil {
			return fmt.Errorf("create task %q: %w", st.title, err)
		}
		if !st.planned {
			continue
		}
		board := planning.BoardRequest{TeamID: teams[st.team], QuarterID: quarter, Mode: planning.ModeExpress}
		if _, err := p.Drop(ctx, board, saved.ID, planning.ContainerPlanned); err != nil {
			return fmt.Errorf("plan task %q: %w", st.title, err)
		}
	}
	return nil
}

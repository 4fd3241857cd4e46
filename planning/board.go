package planning

import "context"

// BoardRequest selects what the planning board shows.
type BoardRequest struct {
	TeamID    TeamID
	QuarterID QuarterID
	Mode      Mode
	VariantID VariantID // optional explicit selection
}

func (r BoardRequest) Scope() Scope {
	mode := r.Mode
	if mode == "" {
		mode = ModeExpress
	}
	return Scope{TeamID: r.TeamID, QuarterID: r.QuarterID, Mode: mode}
}

// Board is the planned/backlog view of one scope plus its utilization.
type Board struct {
	Scope       Scope
	Variants    []PlanVariant
	Variant     *PlanVariant
	Planned     []TaskView
	Backlog     []TaskView
	Utilization Utilization
	// LegacyCapacity is the manual team capacity, when one was entered.
	LegacyCapacity *TeamCapacity
}

// Board resolves the variant, projects tasks and reports utilization.
// A missing team, quarter or variant yields an empty board, not an error.
func (p *Planner) Board(ctx context.Context, req BoardRequest) (*Board, error) {
	agg, err := p.Aggregator(ctx)
	if err != nil {
		return nil, err
	}
	snap := agg.Snapshot()
	scope := req.Scope()

	b := &Board{
		Scope:    scope,
		Variants: []PlanVariant{},
		Planned:  []TaskView{},
		Backlog:  []TaskView{},
	}
	if _, ok := snap.Team(scope.TeamID); !ok {
		return b, nil
	}
	if _, ok := snap.Quarter(scope.QuarterID); !ok {
		return b, nil
	}

	for _, tc := range snap.TeamCapacities {
		if tc.TeamID == scope.TeamID && tc.QuarterID == scope.QuarterID {
			b.LegacyCapacity = &tc
		}
	}

	b.Variants = append(b.Variants, VariantGroup(snap, scope)...)
	if v, ok := ResolveVariant(snap, scope, req.VariantID); ok {
		proj := Project(snap, scope.TeamID, scope.QuarterID, v)
		b.Variant = proj.Variant
		b.Planned = proj.Planned
		b.Backlog = proj.Backlog
	}

	planned := Projection{Planned: b.Planned}.PlannedTasks()
	b.Utilization = agg.Report(scope.TeamID, scope.QuarterID, scope.Mode, planned)
	return b, nil
}

package planning

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// TASK SAVE
// =============================================================================

// TaskInput is a task together with its per-role estimates.
type TaskInput struct {
	Task           Task
	RoleCapacities map[RoleID]decimal.Decimal
}

const defaultICE = 5

func validateTask(snap *Snapshot, t *Task, creating bool) error {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	if t.Title == "" {
		return invalid("title", "task title is required")
	}
	if t.TeamID == "" {
		return invalid("team_id", "team is required")
	}
	if _, ok := snap.Team(t.TeamID); !ok {
		return notFound("team", t.TeamID)
	}

	for _, f := range []struct {
		name string
		v    *int
	}{{"impact", &t.Impact}, {"confidence", &t.Confidence}, {"ease", &t.Ease}} {
		if *f.v == 0 && creating {
			*f.v = defaultICE
		}
		if *f.v < 1 || *f.v > 10 {
			return invalid(f.name, "must be between 1 and 10")
		}
	}

	if t.ExpressEstimate != nil && t.ExpressEstimate.IsNegative() {
		return invalid("express_estimate", "estimate must not be negative")
	}
	if t.IsPlanned && t.QuarterID == nil {
		return invalid("quarter_id", "a planned task needs a quarter")
	}
	if t.QuarterID != nil {
		if _, ok := snap.Quarter(*t.QuarterID); !ok {
			return notFound("quarter", *t.QuarterID)
		}
	}
	if t.PlanVariantID != nil {
		if _, ok := snap.Variant(*t.PlanVariantID); !ok {
			return notFound("plan variant", *t.PlanVariantID)
		}
	}
	return nil
}

func validateRoleCapacities(snap *Snapshot, caps map[RoleID]decimal.Decimal) error {
	for role, c := range caps {
		if _, ok := snap.Role(role); !ok {
			return notFound("role", role)
		}
		if c.IsNegative() {
			return invalid("role_capacities", "capacity must not be negative")
		}
	}
	return nil
}

// SaveTask creates a task (empty ID) or updates an existing one, then writes
// its role capacities in the same transaction. New tasks skip zero capacities.
//
// A row tagged with a variant also records its planning state for that
// variant. Saving a virtual row updates the template's intrinsic fields and
// records the submitted planning state for that variant only.
func (p *Planner) SaveTask(ctx context.Context, in TaskInput) (Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	agg, err := p.viewLocked(ctx)
	if err != nil {
		return Task{}, err
	}
	snap := agg.Snapshot()
	t := in.Task
	creating := t.ID == ""

	if err := validateTask(snap, &t, creating); err != nil {
		return Task{}, err
	}
	if err := validateRoleCapacities(snap, in.RoleCapacities); err != nil {
		return Task{}, err
	}

	base, virtual := SplitTaskID(t.ID)
	var existing Task
	if !creating {
		var ok bool
		if existing, ok = snap.Task(base); !ok {
			return Task{}, notFound("task", base)
		}
	}

	var saved Task
	err = p.write(ctx, "save task", func(s Store) error {
		var err error
		switch {
		case creating:
			saved, err = s.CreateTask(ctx, t)
		case virtual:
			saved, err = p.saveVirtual(ctx, s, existing, t)
		default:
			t.CreatedAt = existing.CreatedAt
			saved, err = s.UpdateTask(ctx, t)
		}
		if err != nil {
			return err
		}
		if !virtual && saved.PlanVariantID != nil {
			if _, err := s.UpsertVariantState(ctx, stateOf(saved)); err != nil {
				return err
			}
		}
		for role, c := range in.RoleCapacities {
			if creating && c.IsZero() {
				continue
			}
			if _, err := s.UpsertTaskRoleCapacity(ctx, saved.ID, role, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	if creating {
		p.log.Debug("task created", zap.String("task_id", string(saved.ID)), zap.Int("role_capacities", len(in.RoleCapacities)))
	}
	return saved, nil
}

// stateOf is the planning state a variant-tagged row records for its variant.
func stateOf(t Task) TaskVariantState {
	return TaskVariantState{
		TaskID:    t.ID,
		VariantID: *t.PlanVariantID,
		IsPlanned: t.IsPlanned,
		QuarterID: t.QuarterID,
	}
}

func (p *Planner) saveVirtual(ctx context.Context, s Store, template, edited Task) (Task, error) {
	intrinsic := template
	intrinsic.Title = edited.Title
	intrinsic.Description = edited.Description
	intrinsic.Impact = edited.Impact
	intrinsic.Confidence = edited.Confidence
	intrinsic.Ease = edited.Ease
	intrinsic.ExpressEstimate = edited.ExpressEstimate
	saved, err := s.UpdateTask(ctx, intrinsic)
	if err != nil {
		return Task{}, err
	}
	if edited.PlanVariantID != nil {
		if _, err := s.UpsertVariantState(ctx, TaskVariantState{
			TaskID:    template.ID,
			VariantID: *edited.PlanVariantID,
			IsPlanned: edited.IsPlanned,
			QuarterID: edited.QuarterID,
		}); err != nil {
			return Task{}, err
		}
	}
	return saved, nil
}

// =============================================================================
// TASK DELETE
// =============================================================================

// DeleteTasks removes tasks (virtual ids resolve to their base task) with
// their role capacities and variant states.
func (p *Planner) DeleteTasks(ctx context.Context, ids []TaskID) error {
	if len(ids) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	agg, err := p.viewLocked(ctx)
	if err != nil {
		return err
	}
	snap := agg.Snapshot()

	bases := make(map[TaskID]bool, len(ids))
	for _, id := range ids {
		base, _ := SplitTaskID(id)
		bases[base] = true
	}

	var rows []TaskID
	for _, t := range snap.Tasks {
		if base, _ := SplitTaskID(t.ID); bases[base] {
			rows = append(rows, t.ID)
		}
	}
	if len(rows) == 0 {
		return notFound("task", ids[0])
	}
	gone := make(map[TaskID]bool, len(rows))
	for _, id := range rows {
		gone[id] = true
	}

	var trcIDs []TaskRoleCapacityID
	for _, trc := range snap.TaskRoleCapacities {
		if gone[trc.TaskID] {
			trcIDs = append(trcIDs, trc.ID)
		}
	}
	stateIDs := statesOf(snap, func(st TaskVariantState) bool { return gone[st.TaskID] })

	return p.write(ctx, "delete tasks", func(s Store) error {
		if err := s.DeleteTaskRoleCapacities(ctx, trcIDs); err != nil {
			return err
		}
		if err := s.DeleteVariantStates(ctx, stateIDs); err != nil {
			return err
		}
		return s.DeleteTasks(ctx, rows)
	})
}

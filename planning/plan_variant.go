package planning

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// =============================================================================
// PLAN VARIANT ACTIONS
// =============================================================================
// Invariant kept here, not by the store: within a (team, quarter, mode)
// group exactly one variant is main as soon as the group is non-empty.

// CreateVariant adds a variant. The first variant of a group is always main;
// creating a main variant in a non-empty group demotes the previous main.
func (p *Planner) CreateVariant(ctx context.Context, v PlanVariant) (PlanVariant, error) {
	v.Name = strings.TrimSpace(v.Name)
	if v.Name == "" {
		return PlanVariant{}, invalid("name", "variant name is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	agg, err := p.viewLocked(ctx)
	if err != nil {
		return PlanVariant{}, err
	}
	snap := agg.Snapshot()
	if _, ok := snap.Team(v.TeamID); !ok {
		return PlanVariant{}, notFound("team", v.TeamID)
	}
	if _, ok := snap.Quarter(v.QuarterID); !ok {
		return PlanVariant{}, notFound("quarter", v.QuarterID)
	}

	var created PlanVariant
	err = p.write(ctx, "create variant", func(s Store) error {
		var err error
		created, err = createVariant(ctx, s, snap, v)
		return err
	})
	return created, err
}

func createVariant(ctx context.Context, s Store, snap *Snapshot, v PlanVariant) (PlanVariant, error) {
	group := VariantGroup(snap, v.Scope())
	if len(group) == 0 {
		v.IsMain = true
	}
	created, err := s.CreateVariant(ctx, v)
	if err != nil {
		return PlanVariant{}, err
	}
	if created.IsMain {
		if err := demoteOthers(ctx, s, group, created.ID); err != nil {
			return PlanVariant{}, err
		}
	}
	return created, nil
}

func demoteOthers(ctx context.Context, s Store, group []PlanVariant, main VariantID) error {
	for _, w := range group {
		if w.ID != main && w.IsMain {
			w.IsMain = false
			if _, err := s.UpdateVariant(ctx, w); err != nil {
				return err
			}
		}
	}
	return nil
}

// RenameVariant changes a variant's name. Scope and main flag are not editable
// here; use SetMainVariant.
func (p *Planner) RenameVariant(ctx context.Context, id VariantID, name string) (PlanVariant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return PlanVariant{}, invalid("name", "variant name is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	agg, err := p.viewLocked(ctx)
	if err != nil {
		return PlanVariant{}, err
	}
	v, ok := agg.Snapshot().Variant(id)
	if !ok {
		return PlanVariant{}, notFound("plan variant", id)
	}
	v.Name = name

	var updated PlanVariant
	err = p.write(ctx, "rename variant", func(s Store) error {
		var err error
		updated, err = s.UpdateVariant(ctx, v)
		return err
	})
	return updated, err
}

// SetMainVariant makes id the only main variant of its group.
func (p *Planner) SetMainVariant(ctx context.Context, id VariantID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	agg, err := p.viewLocked(ctx)
	if err != nil {
		return err
	}
	snap := agg.Snapshot()
	v, ok := snap.Variant(id)
	if !ok {
		return notFound("plan variant", id)
	}
	group := VariantGroup(snap, v.Scope())

	return p.write(ctx, "set main variant", func(s Store) error {
		for _, w := range group {
			want := w.ID == id
			if w.IsMain == want {
				continue
			}
			w.IsMain = want
			if _, err := s.UpdateVariant(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteVariant removes a variant, unlinks tasks that referenced it and drops
// its task states. If it was main, the next variant of the group is promoted.
func (p *Planner) DeleteVariant(ctx context.Context, id VariantID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	agg, err := p.viewLocked(ctx)
	if err != nil {
		return err
	}
	snap := agg.Snapshot()
	v, ok := snap.Variant(id)
	if !ok {
		return notFound("plan variant", id)
	}

	var promote *PlanVariant
	if v.IsMain {
		for _, w := range VariantGroup(snap, v.Scope()) {
			if w.ID != id {
				w.IsMain = true
				promote = &w
				break
			}
		}
	}

	err = p.write(ctx, "delete variant", func(s Store) error {
		for _, t := range snap.Tasks {
			if t.PlanVariantID != nil && *t.PlanVariantID == id {
				t.PlanVariantID = nil
				if _, err := s.UpdateTask(ctx, t); err != nil {
					return err
				}
			}
		}
		if err := s.DeleteVariantStates(ctx, statesOf(snap, func(st TaskVariantState) bool { return st.VariantID == id })); err != nil {
			return err
		}
		if err := s.DeleteVariant(ctx, id); err != nil {
			return err
		}
		if promote != nil {
			if _, err := s.UpdateVariant(ctx, *promote); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil && promote != nil {
		p.log.Info("main variant promoted",
			zap.String("deleted", string(id)),
			zap.String("promoted", string(promote.ID)))
	}
	return err
}

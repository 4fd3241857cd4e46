/*
drag.go - Drag-Reconciliation Engine

PURPOSE:
  Translates a drop of a task onto the planned or backlog container into a
  task-state mutation: quarter assignment, isPlanned flag and variant link.

DROP CONTRACT:
  1. Resolve the dragged row from the real tasks, else from the projection.
  2. Unresolvable row, or a drop outside both containers: no-op.
  3. Strip the virtual suffix to get the base task id.
  4. Empty variant group: provision the default main variant first.
  5. Target state: planned iff the container is "planned-tasks".
  6. Virtual row: update the template task. Real row: update it directly.
     Both get planVariantId = variant, isPlanned, quarterId (nil in backlog),
     and a TaskVariantState for (base, variant) so the variant keeps its
     state even after another variant re-tags the template row.

  All writes of one drop happen in one transaction.

REORDERING:
  Moving within a partition is cosmetic and never persisted.

DRAG SESSION:
  DragSession tracks the "active dragged item". Drop always clears it,
  whether or not anything was written.
*/
package planning

import (
	"context"

	"go.uber.org/zap"
)

// Drop target containers.
const (
	ContainerPlanned = "planned-tasks"
	ContainerBacklog = "backlog-tasks"
)

// DropResult describes what a drop did.
type DropResult struct {
	Applied bool
	// Provisioned is set when the default variant was created for the drop.
	Provisioned bool
	Variant     PlanVariant
	Task        Task
}

// Drop moves a task into a container of the board's active variant.
func (p *Planner) Drop(ctx context.Context, sel BoardRequest, taskID TaskID, container string) (DropResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	agg, err := p.viewLocked(ctx)
	if err != nil {
		return DropResult{}, err
	}
	snap := agg.Snapshot()
	if sel.TeamID == "" || sel.QuarterID == "" {
		return DropResult{}, nil
	}
	scope := sel.Scope()

	dragged, ok := resolveDragged(snap, sel, taskID)
	if !ok {
		return DropResult{}, nil
	}
	if container != ContainerPlanned && container != ContainerBacklog {
		return DropResult{}, nil
	}

	target := dragged.Task
	if dragged.Virtual {
		template, ok := snap.Task(dragged.BaseID)
		if !ok {
			return DropResult{}, nil
		}
		target = template
	}

	toPlanned := container == ContainerPlanned
	variant, haveVariant := ResolveVariant(snap, scope, sel.VariantID)

	var res DropResult
	err = p.write(ctx, "drop task", func(s Store) error {
		if !haveVariant {
			v, err := createVariant(ctx, s, snap, PlanVariant{
				Name:      DefaultVariantName,
				TeamID:    scope.TeamID,
				QuarterID: scope.QuarterID,
				IsExpress: scope.Mode.IsExpress(),
				IsMain:    true,
			})
			if err != nil {
				return err
			}
			variant = v
			res.Provisioned = true
		}

		var quarter *QuarterID
		if toPlanned {
			quarter = ptr(scope.QuarterID)
		}
		target.PlanVariantID = ptr(variant.ID)
		target.IsPlanned = toPlanned
		target.QuarterID = quarter

		updated, err := s.UpdateTask(ctx, target)
		if err != nil {
			return err
		}
		if _, err := s.UpsertVariantState(ctx, TaskVariantState{
			TaskID:    updated.ID,
			VariantID: variant.ID,
			IsPlanned: toPlanned,
			QuarterID: quarter,
		}); err != nil {
			return err
		}
		res.Task = updated
		return nil
	})
	if err != nil {
		p.log.Warn("drop rejected",
			zap.String("task_id", string(taskID)),
			zap.String("container", container),
			zap.Error(err))
		return DropResult{}, err
	}

	res.Applied = true
	res.Variant = variant
	p.log.Debug("task dropped",
		zap.String("task_id", string(res.Task.ID)),
		zap.String("variant_id", string(variant.ID)),
		zap.Bool("planned", toPlanned),
		zap.Bool("virtual", dragged.Virtual))
	return res, nil
}

// resolveDragged finds a row among the real tasks, then the projection.
// Rows of other teams are not on the board and never resolve.
func resolveDragged(snap *Snapshot, sel BoardRequest, id TaskID) (TaskView, bool) {
	if t, ok := snap.Task(id); ok {
		if t.TeamID != sel.TeamID {
			return TaskView{}, false
		}
		base, _ := SplitTaskID(t.ID)
		return TaskView{Task: t, BaseID: base}, true
	}
	variant, ok := ResolveVariant(snap, sel.Scope(), sel.VariantID)
	if !ok {
		return TaskView{}, false
	}
	return Project(snap, sel.TeamID, sel.QuarterID, variant).Find(id)
}

// =============================================================================
// DRAG SESSION
// =============================================================================

// DragSession holds the active dragged item between Start and Drop.
type DragSession struct {
	planner *Planner
	board   BoardRequest
	active  *TaskView
}

func (p *Planner) NewDragSession(board BoardRequest) *DragSession {
	return &DragSession{planner: p, board: board}
}

// Start marks id as the dragged item. An unknown id leaves nothing active.
func (s *DragSession) Start(ctx context.Context, id TaskID) error {
	snap, err := s.planner.Snapshot(ctx)
	if err != nil {
		return err
	}
	s.active = nil
	if v, ok := resolveDragged(snap, s.board, id); ok {
		s.active = &v
	}
	return nil
}

// Active returns the dragged item, if any.
func (s *DragSession) Active() (TaskView, bool) {
	if s.active == nil {
		return TaskView{}, false
	}
	return *s.active, true
}

// Drop drops the active item on container and clears it.
func (s *DragSession) Drop(ctx context.Context, container string) (DropResult, error) {
	defer func() { s.active = nil }()
	if s.active == nil {
		return DropResult{}, nil
	}
	return s.planner.Drop(ctx, s.board, s.active.ID, container)
}

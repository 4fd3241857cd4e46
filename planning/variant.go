/*
variant.go - Variant Resolver and task projection

PURPOSE:
  For a (team, quarter, mode) scope, picks the active plan variant and
  projects every task of the team into the "planned" or "backlog" partition
  of that variant.

VARIANT SELECTION:
  1. An explicit selection that belongs to the group wins.
  2. Otherwise the variant flagged main.
  3. Otherwise the first variant of the group (store order).
  4. Otherwise none: the board renders empty and the caller may provision one.

PROJECTION:
  Task rows are grouped by base id (virtual suffix stripped). For each group:
  - a row tagged with the variant is used as is;
  - otherwise a virtual row is cloned from the template (the untagged row, or
    else the first row), given id "<base>-variant-<variant>", tagged with the
    variant and forced into the backlog (no quarter, not planned).
  If a TaskVariantState exists for (base, variant) its planning state is
  overlaid, so variants keep independent state even though drops also update
  the shared template row.

  A view is PLANNED iff IsPlanned and its quarter is the selected quarter.

EXAMPLE:
  v, ok := ResolveVariant(snap, scope, "")
  p := Project(snap, scope.TeamID, scope.QuarterID, v)
  for _, t := range p.Planned { ... }
*/
package planning

// TaskView is one task as seen from a variant.
type TaskView struct {
	Task
	BaseID  TaskID
	Virtual bool
}

// Projection partitions a team's tasks for one variant.
type Projection struct {
	Variant *PlanVariant
	Planned []TaskView
	Backlog []TaskView
}

// Find returns the view with the given id from either partition.
func (p Projection) Find(id TaskID) (TaskView, bool) {
	for _, v := range p.Planned {
		if v.ID == id {
			return v, true
		}
	}
	for _, v := range p.Backlog {
		if v.ID == id {
			return v, true
		}
	}
	return TaskView{}, false
}

// PlannedTasks returns the planned views as tasks.
func (p Projection) PlannedTasks() []Task {
	out := make([]Task, len(p.Planned))
	for i, v := range p.Planned {
		out[i] = v.Task
	}
	return out
}

// =============================================================================
// VARIANT SELECTION
// =============================================================================

// VariantGroup returns the variants of a scope in store order.
func VariantGroup(snap *Snapshot, scope Scope) []PlanVariant {
	var group []PlanVariant
	for _, v := range snap.Variants {
		if v.TeamID == scope.TeamID && v.QuarterID == scope.QuarterID && v.IsExpress == scope.Mode.IsExpress() {
			group = append(group, v)
		}
	}
	return group
}

// ResolveVariant picks the active variant of a scope. explicit may be empty.
func ResolveVariant(snap *Snapshot, scope Scope, explicit VariantID) (PlanVariant, bool) {
	group := VariantGroup(snap, scope)
	if len(group) == 0 {
		return PlanVariant{}, false
	}
	if explicit != "" {
		for _, v := range group {
			if v.ID == explicit {
				return v, true
			}
		}
	}
	for _, v := range group {
		if v.IsMain {
			return v, true
		}
	}
	return group[0], true
}

// =============================================================================
// PROJECTION
// =============================================================================

// Project materializes the team's tasks into the variant's partitions.
func Project(snap *Snapshot, team TeamID, quarter QuarterID, variant PlanVariant) Projection {
	proj := Projection{Variant: &variant, Planned: []TaskView{}, Backlog: []TaskView{}}

	// Group rows by base id, keeping first-seen order.
	var order []TaskID
	groups := make(map[TaskID][]Task)
	for _, t := range snap.Tasks {
		if t.TeamID != team {
			continue
		}
		base, _ := SplitTaskID(t.ID)
		if _, ok := groups[base]; !ok {
			order = append(order, base)
		}
		groups[base] = append(groups[base], t)
	}

	states := make(map[TaskID]TaskVariantState)
	for _, s := range snap.VariantStates {
		if s.VariantID == variant.ID {
			states[s.TaskID] = s
		}
	}

	for _, base := range order {
		view := viewFor(base, groups[base], variant.ID)
		if s, ok := states[base]; ok {
			view.IsPlanned = s.IsPlanned
			view.QuarterID = s.QuarterID
		}
		if view.IsPlanned && view.InQuarter(quarter) {
			proj.Planned = append(proj.Planned, view)
		} else {
			proj.Backlog = append(proj.Backlog, view)
		}
	}
	return proj
}

func viewFor(base TaskID, rows []Task, variant VariantID) TaskView {
	for _, t := range rows {
		if t.PlanVariantID != nil && *t.PlanVariantID == variant {
			return TaskView{Task: t, BaseID: base}
		}
	}

	template := rows[0]
	for _, t := range rows {
		if t.IsTemplate() {
			template = t
			break
		}
	}

	virtual := template
	virtual.ID = VirtualTaskID(base, variant)
	virtual.PlanVariantID = ptr(variant)
	virtual.IsPlanned = false
	virtual.QuarterID = nil
	return TaskView{Task: virtual, BaseID: base, Virtual: true}
}

/*
capacity.go - Capacity Aggregator

PURPOSE:
  Pure functions over a Snapshot answering "how much effort is available"
  and "how much effort does a task need".

RULES:
  - MemberCapacity(m, q): the single record for the pair, or zero if absent.
    Absence means "not yet configured" and is never an error.
  - TeamCapacity(t, q): sum of MemberCapacity over the team's members.
  - TeamRoleCapacity(t, r, q): same, restricted to members holding role r.
  - TaskDetailedEstimate(task): sum over all roles of TaskRoleCapacity;
    roles without a record contribute zero.

The Aggregator indexes the snapshot once; it must be rebuilt whenever the
snapshot version changes (see Planner.view).
*/
package planning

import "github.com/shopspring/decimal"

type memberQuarter struct {
	member  MemberID
	quarter QuarterID
}

type teamQuarter struct {
	team    TeamID
	quarter QuarterID
}

type taskRole struct {
	task TaskID
	role RoleID
}

// Aggregator answers capacity queries against one snapshot.
type Aggregator struct {
	snap *Snapshot

	memberCaps    map[memberQuarter]decimal.Decimal
	teamCaps      map[teamQuarter]decimal.Decimal
	taskRoleCaps  map[taskRole]decimal.Decimal
	membersByTeam map[TeamID][]Member
}

func NewAggregator(snap *Snapshot) *Aggregator {
	a := &Aggregator{
		snap:          snap,
		memberCaps:    make(map[memberQuarter]decimal.Decimal, len(snap.MemberCapacities)),
		teamCaps:      make(map[teamQuarter]decimal.Decimal, len(snap.TeamCapacities)),
		taskRoleCaps:  make(map[taskRole]decimal.Decimal, len(snap.TaskRoleCapacities)),
		membersByTeam: make(map[TeamID][]Member),
	}
	for _, mc := range snap.MemberCapacities {
		a.memberCaps[memberQuarter{mc.MemberID, mc.QuarterID}] = mc.Capacity
	}
	for _, tc := range snap.TeamCapacities {
		a.teamCaps[teamQuarter{tc.TeamID, tc.QuarterID}] = tc.Capacity
	}
	for _, trc := range snap.TaskRoleCapacities {
		a.taskRoleCaps[taskRole{trc.TaskID, trc.RoleID}] = trc.Capacity
	}
	for _, m := range snap.Members {
		a.membersByTeam[m.TeamID] = append(a.membersByTeam[m.TeamID], m)
	}
	return a
}

// Snapshot returns the snapshot the aggregator was built from.
func (a *Aggregator) Snapshot() *Snapshot { return a.snap }

// MemberCapacity returns the member's capacity for the quarter, zero if unset.
func (a *Aggregator) MemberCapacity(member MemberID, quarter QuarterID) decimal.Decimal {
	return a.memberCaps[memberQuarter{member, quarter}]
}

// HasMemberCapacity distinguishes an explicit zero from an absent record.
func (a *Aggregator) HasMemberCapacity(member MemberID, quarter QuarterID) bool {
	_, ok := a.memberCaps[memberQuarter{member, quarter}]
	return ok
}

// TeamCapacity sums the capacities of the team's members for the quarter.
func (a *Aggregator) TeamCapacity(team TeamID, quarter QuarterID) decimal.Decimal {
	total := decimal.Zero
	for _, m := range a.membersByTeam[team] {
		total = total.Add(a.MemberCapacity(m.ID, quarter))
	}
	return total
}

// TeamRoleCapacity sums capacities of the team's members holding role.
func (a *Aggregator) TeamRoleCapacity(team TeamID, role RoleID, quarter QuarterID) decimal.Decimal {
	total := decimal.Zero
	for _, m := range a.membersByTeam[team] {
		if m.RoleID == role {
			total = total.Add(a.MemberCapacity(m.ID, quarter))
		}
	}
	return total
}

// LegacyTeamCapacity returns the manually entered team capacity, if any.
func (a *Aggregator) LegacyTeamCapacity(team TeamID, quarter QuarterID) (decimal.Decimal, bool) {
	c, ok := a.teamCaps[teamQuarter{team, quarter}]
	return c, ok
}

// TaskRoleCapacity returns the effort a task needs from a role, zero if unset.
func (a *Aggregator) TaskRoleCapacity(task TaskID, role RoleID) decimal.Decimal {
	return a.taskRoleCaps[taskRole{task, role}]
}

// TaskDetailedEstimate sums the task's per-role capacities over all roles.
// Virtual ids resolve to their template task.
func (a *Aggregator) TaskDetailedEstimate(task TaskID) decimal.Decimal {
	base, _ := SplitTaskID(task)
	total := decimal.Zero
	for _, r := range a.snap.Roles {
		total = total.Add(a.TaskRoleCapacity(base, r.ID))
	}
	return total
}

// TaskEstimate returns the estimate used for load in the given mode.
func (a *Aggregator) TaskEstimate(t Task, mode Mode) decimal.Decimal {
	if mode == ModeDetailed {
		return a.TaskDetailedEstimate(t.ID)
	}
	return t.ExpressValue()
}

// MembersOf returns the team's members in store order.
func (a *Aggregator) MembersOf(team TeamID) []Member {
	return a.membersByTeam[team]
}

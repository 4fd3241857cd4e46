package planning

import "github.com/shopspring/decimal"

// =============================================================================
// UTILIZATION - Load versus capacity
// =============================================================================

// Tier classifies a utilization percentage.
type Tier string

const (
	TierNominal Tier = "nominal" // below 80%
	TierNear    Tier = "near"    // 80% to 100% inclusive
	TierOver    Tier = "over"    // above 100%
)

var (
	nearThreshold = decimal.NewFromInt(80)
	overThreshold = decimal.NewFromInt(100)
	hundred       = decimal.NewFromInt(100)
)

// TierFor classifies a percentage. 80 is near, 100 is still near.
func TierFor(pct decimal.Decimal) Tier {
	switch {
	case pct.GreaterThan(overThreshold):
		return TierOver
	case pct.GreaterThanOrEqual(nearThreshold):
		return TierNear
	default:
		return TierNominal
	}
}

// Load is used effort against available capacity.
type Load struct {
	Used       decimal.Decimal
	Total      decimal.Decimal
	Percentage decimal.Decimal
	Tier       Tier
	// Configured is false when Total is zero. Percentage is then reported as
	// zero and the tier is over if anything is used, nominal otherwise.
	Configured bool
}

func newLoad(used, total decimal.Decimal) Load {
	if !total.IsPositive() {
		tier := TierNominal
		if used.IsPositive() {
			tier = TierOver
		}
		return Load{Used: used, Total: total, Percentage: decimal.Zero, Tier: tier}
	}
	pct := used.Div(total).Mul(hundred)
	return Load{Used: used, Total: total, Percentage: pct, Tier: TierFor(pct), Configured: true}
}

// Utilization is the team-level and per-role load of a set of planned tasks.
type Utilization struct {
	Mode    Mode
	Team    Load
	PerRole map[RoleID]Load
}

// Report computes utilization of planned tasks for a team and quarter.
// Team load uses the mode's estimate; per-role load always uses role capacities.
func (a *Aggregator) Report(team TeamID, quarter QuarterID, mode Mode, planned []Task) Utilization {
	used := decimal.Zero
	for _, t := range planned {
		used = used.Add(a.TaskEstimate(t, mode))
	}

	perRole := make(map[RoleID]Load, len(a.snap.Roles))
	for _, r := range a.snap.Roles {
		roleUsed := decimal.Zero
		for _, t := range planned {
			base, _ := SplitTaskID(t.ID)
			roleUsed = roleUsed.Add(a.TaskRoleCapacity(base, r.ID))
		}
		perRole[r.ID] = newLoad(roleUsed, a.TeamRoleCapacity(team, r.ID, quarter))
	}

	return Utilization{
		Mode:    mode,
		Team:    newLoad(used, a.TeamCapacity(team, quarter)),
		PerRole: perRole,
	}
}

package planning

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fixture is a small org: team "core" with two frontend developers and one
// backend developer, team "ops" with one devops engineer, quarters q1 and q2.
func fixture() *Snapshot {
	q1, q2 := QuarterID("q1"), QuarterID("q2")
	return &Snapshot{
		Version: 1,
		Teams:   []Team{{ID: "core", Name: "Core"}, {ID: "ops", Name: "Ops"}},
		Roles: []Role{
			{ID: "fe", Name: "Frontend Developer"},
			{ID: "be", Name: "Backend Developer"},
			{ID: "devops", Name: "DevOps"},
		},
		Quarters: []Quarter{
			{ID: q1, Name: "Q1'25", Year: 2025, Number: 1},
			{ID: q2, Name: "Q2'25", Year: 2025, Number: 2},
		},
		Members: []Member{
			{ID: "alice", TeamID: "core", RoleID: "fe"},
			{ID: "bob", TeamID: "core", RoleID: "fe"},
			{ID: "carol", TeamID: "core", RoleID: "be"},
			{ID: "dan", TeamID: "ops", RoleID: "devops"},
		},
		MemberCapacities: []MemberCapacity{
			{ID: "mc1", MemberID: "alice", QuarterID: q1, Capacity: effort("2")},
			{ID: "mc2", MemberID: "bob", QuarterID: q1, Capacity: effort("1.5")},
			{ID: "mc3", MemberID: "carol", QuarterID: q1, Capacity: effort("3")},
			{ID: "mc4", MemberID: "dan", QuarterID: q1, Capacity: effort("5")},
			{ID: "mc5", MemberID: "carol", QuarterID: q2, Capacity: effort("0")},
		},
		TeamCapacities: []TeamCapacity{
			{ID: "tc1", TeamID: "core", QuarterID: q1, Capacity: effort("8")},
		},
		Tasks: []Task{
			{ID: "login", Title: "Login page", TeamID: "core", Impact: 8, Confidence: 7, Ease: 6, ExpressEstimate: ptr(effort("2"))},
			{ID: "api", Title: "Public API", TeamID: "core", Impact: 5, Confidence: 5, Ease: 5, ExpressEstimate: ptr(effort("3"))},
			{ID: "ci", Title: "CI pipeline", TeamID: "ops", Impact: 5, Confidence: 5, Ease: 5},
		},
		TaskRoleCapacities: []TaskRoleCapacity{
			{ID: "trc1", TaskID: "login", RoleID: "fe", Capacity: effort("1.5")},
			{ID: "trc2", TaskID: "login", RoleID: "be", Capacity: effort("0.5")},
			{ID: "trc3", TaskID: "api", RoleID: "be", Capacity: effort("4")},
		},
	}
}

func effort(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertEffort(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, effort(want).Equal(got), "expected %s, got %s", want, got)
}

func withVariants(snap *Snapshot, vs ...PlanVariant) *Snapshot {
	snap.Variants = append(snap.Variants, vs...)
	return snap
}

func express(id VariantID, team TeamID, quarter QuarterID, main bool) PlanVariant {
	return PlanVariant{ID: id, Name: string(id), TeamID: team, QuarterID: quarter, IsExpress: true, IsMain: main}
}

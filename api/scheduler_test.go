package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/warp/capacity-planner/planning"
	"github.com/warp/capacity-planner/planning/store"
)

// newGappedPlanner returns a planner whose only member was written straight
// to the store and so has no capacity record.
func newGappedPlanner(t *testing.T) (*planning.Planner, planning.MemberID, planning.QuarterID) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	p := planning.NewPlanner(mem)

	team, err := p.CreateTeam(ctx, planning.Team{Name: "Core"})
	require.NoError(t, err)
	role, err := p.CreateRole(ctx, planning.Role{Name: "Backend Developer"})
	require.NoError(t, err)
	q, err := p.CreateQuarter(ctx, planning.Quarter{Year: 2025, Number: 2})
	require.NoError(t, err)
	m, err := mem.CreateMember(ctx, planning.Member{Name: "Carol", TeamID: team.ID, RoleID: role.ID})
	require.NoError(t, err)
	return p, m.ID, q.ID
}

func hasCapacity(t *testing.T, p *planning.Planner, m planning.MemberID, q planning.QuarterID) bool {
	t.Helper()
	agg, err := p.Aggregator(context.Background())
	require.NoError(t, err)
	return agg.HasMemberCapacity(m, q)
}

func TestCapacityScheduler_RunNow(t *testing.T) {
	// GIVEN: one missing capacity record
	p, member, quarter := newGappedPlanner(t)
	cs := NewCapacityScheduler(p, zaptest.NewLogger(t))

	// WHEN / THEN: the first run seeds it, the second finds nothing
	assert.Equal(t, 1, cs.RunNow(context.Background()))
	assert.True(t, hasCapacity(t, p, member, quarter))
	assert.Equal(t, 0, cs.RunNow(context.Background()))
}

func TestCapacityScheduler_StartRunsImmediately(t *testing.T) {
	p, member, quarter := newGappedPlanner(t)
	cs := NewCapacityScheduler(p, zaptest.NewLogger(t))
	cs.CheckInterval = time.Hour

	cs.Start()
	defer cs.Stop()

	assert.Eventually(t, func() bool {
		return hasCapacity(t, p, member, quarter)
	}, time.Second, 10*time.Millisecond)
}

func TestCapacityScheduler_Disabled(t *testing.T) {
	p, member, quarter := newGappedPlanner(t)
	cs := NewCapacityScheduler(p, nil)
	cs.Enabled = false

	cs.Start()
	cs.Stop()

	assert.False(t, hasCapacity(t, p, member, quarter))
}

func TestCapacityScheduler_StopIsIdempotent(t *testing.T) {
	p, _, _ := newGappedPlanner(t)
	cs := NewCapacityScheduler(p, nil)

	cs.Start()
	cs.Stop()
	cs.Stop()

	// restart after stop
	cs.Start()
	cs.Stop()
}

func TestCapacityScheduler_NextRunTime(t *testing.T) {
	p, _, _ := newGappedPlanner(t)
	cs := NewCapacityScheduler(p, nil)
	cs.CheckInterval = 10 * time.Minute

	before := time.Now()
	assert.False(t, cs.NextRunTime().Before(before))

	cs.RunNow(context.Background())
	next := cs.NextRunTime()
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), next, 5*time.Second)
}

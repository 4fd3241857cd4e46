package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/capacity-planner/planning"
)

func TestMemory_CreateAssignsIDs(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	team, err := m.CreateTeam(ctx, planning.Team{Name: "Core"})
	require.NoError(t, err)
	task, err := m.CreateTask(ctx, planning.Task{Title: "Login", TeamID: team.ID})
	require.NoError(t, err)

	assert.NotEmpty(t, team.ID)
	assert.NotEmpty(t, task.ID)
	assert.False(t, task.CreatedAt.IsZero())
}

func TestMemory_VersionBumpsOnWrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	v0 := m.Version()

	_, err := m.CreateRole(ctx, planning.Role{Name: "QA"})
	require.NoError(t, err)

	assert.Greater(t, m.Version(), v0)
	snap, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, m.Version(), snap.Version)
}

func TestMemory_UpsertKeepsOneRecordPerPair(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first, err := m.UpsertMemberCapacity(ctx, "alice", "q1", decimal.NewFromInt(2))
	require.NoError(t, err)
	second, err := m.UpsertMemberCapacity(ctx, "alice", "q1", decimal.NewFromFloat(1.5))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	snap, err := m.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.MemberCapacities, 1)
	assert.Equal(t, "1.5", snap.MemberCapacities[0].Capacity.String())
}

func TestMemory_UpsertVariantState(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	a, err := m.UpsertVariantState(ctx, planning.TaskVariantState{TaskID: "t1", VariantID: "v1", IsPlanned: true})
	require.NoError(t, err)
	b, err := m.UpsertVariantState(ctx, planning.TaskVariantState{TaskID: "t1", VariantID: "v1"})
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	snap, err := m.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.VariantStates, 1)
	assert.False(t, snap.VariantStates[0].IsPlanned)
}

func TestMemory_UpdateMissing(t *testing.T) {
	m := NewMemory()

	_, err := m.UpdateTeam(context.Background(), planning.Team{ID: "ghost", Name: "x"})

	var nf *planning.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "team", nf.Kind)
	assert.Equal(t, "ghost", nf.ID)
}

func TestMemory_UpdateKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	task, err := m.CreateTask(ctx, planning.Task{Title: "Login", TeamID: "core"})
	require.NoError(t, err)

	task.Title = "Login v2"
	updated, err := m.UpdateTask(ctx, task)
	require.NoError(t, err)

	assert.Equal(t, task.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Login v2", updated.Title)
}

func TestMemory_WithTxRollsBack(t *testing.T) {
	// GIVEN: one team
	ctx := context.Background()
	m := NewMemory()
	_, err := m.CreateTeam(ctx, planning.Team{Name: "Core"})
	require.NoError(t, err)
	before := m.Version()
	boom := errors.New("boom")

	// WHEN: a transaction writes twice then fails
	err = m.WithTx(ctx, func(s planning.Store) error {
		if _, err := s.CreateTeam(ctx, planning.Team{Name: "Ops"}); err != nil {
			return err
		}
		if _, err := s.UpsertTeamCapacity(ctx, "core", "q1", decimal.NewFromInt(3)); err != nil {
			return err
		}
		return boom
	})

	// THEN: nothing persisted and the version is restored
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, m.Version())
	snap, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Teams, 1)
	assert.Empty(t, snap.TeamCapacities)
}

func TestMemory_WithTxCommits(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.WithTx(ctx, func(s planning.Store) error {
		_, err := s.CreateTeam(ctx, planning.Team{Name: "Core"})
		return err
	})

	require.NoError(t, err)
	snap, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Teams, 1)
}

func TestMemory_BatchDeleteIgnoresUnknown(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	trc, err := m.UpsertTaskRoleCapacity(ctx, "t1", "fe", decimal.NewFromInt(1))
	require.NoError(t, err)

	err = m.DeleteTaskRoleCapacities(ctx, []planning.TaskRoleCapacityID{"ghost", trc.ID})

	require.NoError(t, err)
	snap, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.TaskRoleCapacities)
}

func TestMemory_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.CreateTeam(ctx, planning.Team{Name: "Core"})
	require.NoError(t, err)

	snap, err := m.Load(ctx)
	require.NoError(t, err)
	snap.Teams[0].Name = "Mutated"

	again, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Core", again.Teams[0].Name)
}

func TestMemory_Reset(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.CreateTeam(ctx, planning.Team{Name: "Core"})
	require.NoError(t, err)
	before := m.Version()

	require.NoError(t, m.Reset(ctx))

	assert.Greater(t, m.Version(), before)
	snap, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Teams)
}

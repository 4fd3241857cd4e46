package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/capacity-planner/planning"
	"github.com/warp/capacity-planner/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type fixture struct {
	team    planning.Team
	role    planning.Role
	quarter planning.Quarter
	member  planning.Member
}

func seed(t *testing.T, s *sqlite.Store) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture
	var err error

	f.team, err = s.CreateTeam(ctx, planning.Team{Name: "Core", Color: "#10b981"})
	require.NoError(t, err)
	f.role, err = s.CreateRole(ctx, planning.Role{Name: "Backend Developer"})
	require.NoError(t, err)
	f.quarter, err = s.CreateQuarter(ctx, planning.Quarter{Name: "Q1'25", Year: 2025, Number: 1})
	require.NoError(t, err)
	f.member, err = s.CreateMember(ctx, planning.Member{Name: "Carol", TeamID: f.team.ID, RoleID: f.role.ID})
	require.NoError(t, err)
	return f
}

// =============================================================================
// CRUD
// =============================================================================

func TestStore_MigratesAndLoadsEmpty(t *testing.T) {
	s := newStore(t)

	snap, err := s.Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, snap.Teams)
	assert.Empty(t, snap.Tasks)
}

func TestStore_CreateAndLoad(t *testing.T) {
	s := newStore(t)
	f := seed(t, s)

	snap, err := s.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Teams, 1)
	assert.Equal(t, f.team, snap.Teams[0])
	require.Len(t, snap.Quarters, 1)
	assert.Equal(t, 1, snap.Quarters[0].Number)
	assert.Equal(t, "Q1'25", snap.Quarters[0].Name)
	require.Len(t, snap.Members, 1)
	assert.Equal(t, f.role.ID, snap.Members[0].RoleID)
}

func TestStore_LoadKeepsInsertionOrder(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	names := []string{"Zeta", "Alpha", "Mu"}
	for _, n := range names {
		_, err := s.CreateTeam(ctx, planning.Team{Name: n})
		require.NoError(t, err)
	}

	snap, err := s.Load(ctx)
	require.NoError(t, err)

	var got []string
	for _, tm := range snap.Teams {
		got = append(got, tm.Name)
	}
	assert.Equal(t, names, got)
}

func TestStore_TaskRoundTrip(t *testing.T) {
	// GIVEN: a planned task with a fractional estimate in a variant
	s := newStore(t)
	f := seed(t, s)
	ctx := context.Background()
	v, err := s.CreateVariant(ctx, planning.PlanVariant{Name: "Main", TeamID: f.team.ID, QuarterID: f.quarter.ID, IsExpress: true, IsMain: true})
	require.NoError(t, err)
	est := decimal.RequireFromString("2.75")

	// WHEN
	created, err := s.CreateTask(ctx, planning.Task{
		Title: "Login", TeamID: f.team.ID, QuarterID: &f.quarter.ID, PlanVariantID: &v.ID,
		IsPlanned: true, Impact: 8, Confidence: 6, Ease: 4, ExpressEstimate: &est,
	})
	require.NoError(t, err)

	// THEN
	snap, err := s.Load(ctx)
	require.NoError(t, err)
	task, ok := snap.Task(created.ID)
	require.True(t, ok)
	assert.True(t, task.IsPlanned)
	assert.Equal(t, f.quarter.ID, *task.QuarterID)
	assert.Equal(t, v.ID, *task.PlanVariantID)
	assert.True(t, est.Equal(*task.ExpressEstimate))
	assert.Equal(t, 192, task.ICEScore())

	variant, ok := snap.Variant(v.ID)
	require.True(t, ok)
	assert.True(t, variant.IsMain)
	assert.True(t, variant.IsExpress)
}

func TestStore_NullableTaskFields(t *testing.T) {
	s := newStore(t)
	f := seed(t, s)
	ctx := context.Background()

	created, err := s.CreateTask(ctx, planning.Task{Title: "Backlog item", TeamID: f.team.ID, Impact: 5, Confidence: 5, Ease: 5})
	require.NoError(t, err)

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	task, ok := snap.Task(created.ID)
	require.True(t, ok)
	assert.Nil(t, task.QuarterID)
	assert.Nil(t, task.PlanVariantID)
	assert.Nil(t, task.ExpressEstimate)
	assert.True(t, task.IsTemplate())
}

func TestStore_UpdateMissingIsNotFound(t *testing.T) {
	s := newStore(t)

	_, err := s.UpdateRole(context.Background(), planning.Role{ID: "ghost", Name: "x"})

	var nf *planning.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "role", nf.Kind)
}

func TestStore_DeleteMissingIsNotFound(t *testing.T) {
	s := newStore(t)

	err := s.DeleteTeam(context.Background(), "ghost")

	assert.True(t, planning.IsNotFound(err))
}

// =============================================================================
// UPSERTS
// =============================================================================

func TestStore_UpsertMemberCapacity(t *testing.T) {
	s := newStore(t)
	f := seed(t, s)
	ctx := context.Background()

	first, err := s.UpsertMemberCapacity(ctx, f.member.ID, f.quarter.ID, decimal.NewFromInt(2))
	require.NoError(t, err)
	second, err := s.UpsertMemberCapacity(ctx, f.member.ID, f.quarter.ID, decimal.RequireFromString("1.25"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "1.25", second.Capacity.String())
	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.MemberCapacities, 1)
}

func TestStore_UpsertVariantState(t *testing.T) {
	s := newStore(t)
	f := seed(t, s)
	ctx := context.Background()
	v, err := s.CreateVariant(ctx, planning.PlanVariant{Name: "A", TeamID: f.team.ID, QuarterID: f.quarter.ID, IsExpress: true})
	require.NoError(t, err)
	task, err := s.CreateTask(ctx, planning.Task{Title: "Login", TeamID: f.team.ID, Impact: 5, Confidence: 5, Ease: 5})
	require.NoError(t, err)

	planned, err := s.UpsertVariantState(ctx, planning.TaskVariantState{TaskID: task.ID, VariantID: v.ID, IsPlanned: true, QuarterID: &f.quarter.ID})
	require.NoError(t, err)
	backlog, err := s.UpsertVariantState(ctx, planning.TaskVariantState{TaskID: task.ID, VariantID: v.ID})
	require.NoError(t, err)

	assert.Equal(t, planned.ID, backlog.ID)
	assert.False(t, backlog.IsPlanned)
	assert.Nil(t, backlog.QuarterID)
}

func TestStore_BatchDelete(t *testing.T) {
	s := newStore(t)
	f := seed(t, s)
	ctx := context.Background()
	a, err := s.CreateTask(ctx, planning.Task{Title: "A", TeamID: f.team.ID, Impact: 5, Confidence: 5, Ease: 5})
	require.NoError(t, err)
	b, err := s.CreateTask(ctx, planning.Task{Title: "B", TeamID: f.team.ID, Impact: 5, Confidence: 5, Ease: 5})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, planning.Task{Title: "C", TeamID: f.team.ID, Impact: 5, Confidence: 5, Ease: 5})
	require.NoError(t, err)

	require.NoError(t, s.DeleteTasks(ctx, []planning.TaskID{a.ID, b.ID, "ghost"}))

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, "C", snap.Tasks[0].Title)
}

// =============================================================================
// TRANSACTIONS & VERSIONING
// =============================================================================

func TestStore_VersionBumpsOnWrite(t *testing.T) {
	s := newStore(t)
	v0 := s.Version()

	seed(t, s)

	assert.Greater(t, s.Version(), v0)
}

func TestStore_WithTxRollsBack(t *testing.T) {
	s := newStore(t)
	f := seed(t, s)
	ctx := context.Background()
	before := s.Version()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx planning.Store) error {
		if _, err := tx.CreateTeam(ctx, planning.Team{Name: "Ops"}); err != nil {
			return err
		}
		if _, err := tx.UpsertTeamCapacity(ctx, f.team.ID, f.quarter.ID, decimal.NewFromInt(9)); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, s.Version())
	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Teams, 1)
	assert.Empty(t, snap.TeamCapacities)
}

func TestStore_WithTxCommitBumpsOnce(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	before := s.Version()

	err := s.WithTx(ctx, func(tx planning.Store) error {
		for _, n := range []string{"A", "B", "C"} {
			if _, err := tx.CreateTeam(ctx, planning.Team{Name: n}); err != nil {
				return err
			}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, before+1, s.Version())
}

func TestStore_Reset(t *testing.T) {
	s := newStore(t)
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.Reset(ctx))

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Teams)
	assert.Empty(t, snap.Members)
	assert.Empty(t, snap.Quarters)
}

// =============================================================================
// PLANNER ON SQLITE
// =============================================================================

func TestPlanner_DropOnSQLite(t *testing.T) {
	// GIVEN: a planner over SQLite with one seeded member and task
	s := newStore(t)
	p := planning.NewPlanner(s)
	ctx := context.Background()
	team, err := p.CreateTeam(ctx, planning.Team{Name: "Core"})
	require.NoError(t, err)
	role, err := p.CreateRole(ctx, planning.Role{Name: "Backend Developer"})
	require.NoError(t, err)
	q, err := p.CreateQuarter(ctx, planning.Quarter{Year: 2025, Number: 1})
	require.NoError(t, err)
	_, err = p.CreateMember(ctx, planning.Member{Name: "Carol", TeamID: team.ID, RoleID: role.ID})
	require.NoError(t, err)
	est := decimal.NewFromInt(1)
	task, err := p.SaveTask(ctx, planning.TaskInput{Task: planning.Task{Title: "Login", TeamID: team.ID, ExpressEstimate: &est}})
	require.NoError(t, err)
	req := planning.BoardRequest{TeamID: team.ID, QuarterID: q.ID, Mode: planning.ModeExpress}

	// WHEN
	res, err := p.Drop(ctx, req, task.ID, planning.ContainerPlanned)
	require.NoError(t, err)

	// THEN: a default variant was provisioned and load is 1 of 2
	assert.True(t, res.Provisioned)
	board, err := p.Board(ctx, req)
	require.NoError(t, err)
	require.Len(t, board.Planned, 1)
	assert.Equal(t, "50", board.Utilization.Team.Percentage.String())
	assert.Equal(t, planning.TierNominal, board.Utilization.Team.Tier)
}

func TestPlanner_DeleteVariantOnSQLite(t *testing.T) {
	s := newStore(t)
	f := seed(t, s)
	p := planning.NewPlanner(s)
	ctx := context.Background()
	a, err := p.CreateVariant(ctx, planning.PlanVariant{Name: "A", TeamID: f.team.ID, QuarterID: f.quarter.ID, IsExpress: true})
	require.NoError(t, err)
	b, err := p.CreateVariant(ctx, planning.PlanVariant{Name: "B", TeamID: f.team.ID, QuarterID: f.quarter.ID, IsExpress: true})
	require.NoError(t, err)

	require.NoError(t, p.DeleteVariant(ctx, a.ID))

	snap, err := p.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Variants, 1)
	assert.Equal(t, b.ID, snap.Variants[0].ID)
	assert.True(t, snap.Variants[0].IsMain)
}

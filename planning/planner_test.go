package planning_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/capacity-planner/planning"
	"github.com/warp/capacity-planner/planning/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type org struct {
	core     planning.TeamID
	fe, be   planning.RoleID
	q1       planning.QuarterID
	alice    planning.MemberID
	carol    planning.MemberID
	login    planning.TaskID
	api      planning.TaskID
	expressQ planning.BoardRequest
}

func newPlanner() (*planning.Planner, *store.Memory) {
	mem := store.NewMemory()
	return planning.NewPlanner(mem), mem
}

// seedOrg creates team Core with a frontend and a backend developer, quarter
// Q1'25 and two unplanned tasks.
func seedOrg(t *testing.T, p *planning.Planner) org {
	t.Helper()
	ctx := context.Background()
	var o org

	team, err := p.CreateTeam(ctx, planning.Team{Name: "Core", Color: "#3b82f6"})
	require.NoError(t, err)
	o.core = team.ID

	fe, err := p.CreateRole(ctx, planning.Role{Name: "Frontend Developer"})
	require.NoError(t, err)
	be, err := p.CreateRole(ctx, planning.Role{Name: "Backend Developer"})
	require.NoError(t, err)
	o.fe, o.be = fe.ID, be.ID

	q, err := p.CreateQuarter(ctx, planning.Quarter{Year: 2025, Number: 1})
	require.NoError(t, err)
	o.q1 = q.ID

	alice, err := p.CreateMember(ctx, planning.Member{Name: "Alice", TeamID: o.core, RoleID: o.fe})
	require.NoError(t, err)
	carol, err := p.CreateMember(ctx, planning.Member{Name: "Carol", TeamID: o.core, RoleID: o.be})
	require.NoError(t, err)
	o.alice, o.carol = alice.ID, carol.ID

	login, err := p.SaveTask(ctx, planning.TaskInput{
		Task:           planning.Task{Title: "Login page", TeamID: o.core, ExpressEstimate: effortPtr("1.5")},
		RoleCapacities: map[planning.RoleID]decimal.Decimal{o.fe: effort("1"), o.be: effort("0.5")},
	})
	require.NoError(t, err)
	api, err := p.SaveTask(ctx, planning.TaskInput{
		Task: planning.Task{Title: "Public API", TeamID: o.core, ExpressEstimate: effortPtr("3")},
	})
	require.NoError(t, err)
	o.login, o.api = login.ID, api.ID

	o.expressQ = planning.BoardRequest{TeamID: o.core, QuarterID: o.q1, Mode: planning.ModeExpress}
	return o
}

func effort(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func effortPtr(s string) *decimal.Decimal {
	d := effort(s)
	return &d
}

func assertEffort(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, effort(want).Equal(got), "expected %s, got %s", want, got)
}

func ids(views []planning.TaskView) []planning.TaskID {
	out := make([]planning.TaskID, len(views))
	for i, v := range views {
		out[i] = v.BaseID
	}
	return out
}

// failingStore fails the named write inside transactions.
type failingStore struct {
	*store.Memory
	failOn string
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) WithTx(ctx context.Context, fn func(planning.Store) error) error {
	return f.Memory.WithTx(ctx, func(s planning.Store) error {
		return fn(&failingTx{Store: s, failOn: f.failOn})
	})
}

type failingTx struct {
	planning.Store
	failOn string
}

func (f *failingTx) UpsertVariantState(ctx context.Context, s planning.TaskVariantState) (planning.TaskVariantState, error) {
	if f.failOn == "variant state" {
		return planning.TaskVariantState{}, errDiskFull
	}
	return f.Store.UpsertVariantState(ctx, s)
}

func (f *failingTx) UpsertMemberCapacity(ctx context.Context, m planning.MemberID, q planning.QuarterID, c decimal.Decimal) (planning.MemberCapacity, error) {
	if f.failOn == "member capacity" {
		return planning.MemberCapacity{}, errDiskFull
	}
	return f.Store.UpsertMemberCapacity(ctx, m, q, c)
}

// =============================================================================
// CAPACITY MATRIX
// =============================================================================

func TestCreateMember_SeedsDefaultCapacityPerQuarter(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)

	agg, err := p.Aggregator(context.Background())
	require.NoError(t, err)

	assertEffort(t, "2", agg.MemberCapacity(o.alice, o.q1))
	assertEffort(t, "4", agg.TeamCapacity(o.core, o.q1))
}

func TestCreateQuarter_SeedsEveryMember(t *testing.T) {
	// GIVEN: two members
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()

	// WHEN: a new quarter is added
	q2, err := p.CreateQuarter(ctx, planning.Quarter{Year: 2025, Number: 2})
	require.NoError(t, err)

	// THEN: both members have a record for it
	agg, err := p.Aggregator(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Q2'25", q2.Name)
	assert.True(t, agg.HasMemberCapacity(o.alice, q2.ID))
	assert.True(t, agg.HasMemberCapacity(o.carol, q2.ID))
	assert.Len(t, agg.Snapshot().MemberCapacities, 4)
}

func TestWithDefaultCapacity(t *testing.T) {
	p := planning.NewPlanner(store.NewMemory(), planning.WithDefaultCapacity(effort("3")))
	o := seedOrg(t, p)

	agg, err := p.Aggregator(context.Background())
	require.NoError(t, err)
	assertEffort(t, "6", agg.TeamCapacity(o.core, o.q1))
}

func TestSaveMemberCapacity_UpsertsSingleRecord(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()

	_, err := p.SaveMemberCapacity(ctx, o.alice, o.q1, effort("0.5"))
	require.NoError(t, err)

	agg, err := p.Aggregator(ctx)
	require.NoError(t, err)
	assertEffort(t, "2.5", agg.TeamCapacity(o.core, o.q1))
	assert.Len(t, agg.Snapshot().MemberCapacities, 2)
}

func TestSaveMemberCapacity_Validation(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()

	_, err := p.SaveMemberCapacity(ctx, o.alice, o.q1, effort("-1"))
	assert.True(t, planning.IsClientError(err))

	_, err = p.SaveMemberCapacity(ctx, "ghost", o.q1, effort("1"))
	assert.True(t, planning.IsNotFound(err))
}

func TestBackfillMemberCapacities_FillsGaps(t *testing.T) {
	// GIVEN: a member written straight to the store, bypassing seeding
	p, mem := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()
	dan, err := mem.CreateMember(ctx, planning.Member{Name: "Dan", TeamID: o.core, RoleID: o.be})
	require.NoError(t, err)

	// WHEN
	n, err := p.BackfillMemberCapacities(ctx)

	// THEN: only the missing pair is written, and a second run is a no-op
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	agg, err := p.Aggregator(ctx)
	require.NoError(t, err)
	assertEffort(t, "2", agg.MemberCapacity(dan.ID, o.q1))

	n, err = p.BackfillMemberCapacities(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// =============================================================================
// REFERENTIAL INTEGRITY
// =============================================================================

func TestDeleteRole_BlockedByMembers(t *testing.T) {
	p, mem := newPlanner()
	o := seedOrg(t, p)
	before := mem.Version()

	err := p.DeleteRole(context.Background(), o.fe)

	var inUse *planning.InUseError
	require.ErrorAs(t, err, &inUse)
	assert.Equal(t, "members", inUse.By)
	assert.True(t, planning.IsConflict(err))
	assert.Equal(t, before, mem.Version(), "nothing written")
}

func TestDeleteRole_CascadesTaskEstimates(t *testing.T) {
	// GIVEN: a role no one holds but a task estimates against
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()
	qa, err := p.CreateRole(ctx, planning.Role{Name: "QA"})
	require.NoError(t, err)
	_, err = p.SaveTask(ctx, planning.TaskInput{
		Task:           planning.Task{ID: o.api, Title: "Public API", TeamID: o.core, Impact: 5, Confidence: 5, Ease: 5},
		RoleCapacities: map[planning.RoleID]decimal.Decimal{qa.ID: effort("2")},
	})
	require.NoError(t, err)

	// WHEN
	require.NoError(t, p.DeleteRole(ctx, qa.ID))

	// THEN
	agg, err := p.Aggregator(ctx)
	require.NoError(t, err)
	assertEffort(t, "0", agg.TaskDetailedEstimate(o.api))
	_, ok := agg.Snapshot().Role(qa.ID)
	assert.False(t, ok)
}

func TestDeleteTeam_BlockedByMembers(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)

	err := p.DeleteTeam(context.Background(), o.core)

	assert.ErrorIs(t, err, planning.ErrInUse)
}

func TestDeleteTeam_EmptyTeamCascadesVariants(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()
	empty, err := p.CreateTeam(ctx, planning.Team{Name: "Empty"})
	require.NoError(t, err)
	_, err = p.CreateVariant(ctx, planning.PlanVariant{Name: "A", TeamID: empty.ID, QuarterID: o.q1, IsExpress: true})
	require.NoError(t, err)
	_, err = p.SaveTeamCapacity(ctx, empty.ID, o.q1, effort("5"))
	require.NoError(t, err)

	require.NoError(t, p.DeleteTeam(ctx, empty.ID))

	snap, err := p.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Teams, 1)
	assert.Empty(t, snap.Variants)
	assert.Empty(t, snap.TeamCapacities)
}

func TestDeleteQuarter_BlockedByPlannedTasks(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()
	_, err := p.Drop(ctx, o.expressQ, o.login, planning.ContainerPlanned)
	require.NoError(t, err)

	err = p.DeleteQuarter(ctx, o.q1)

	assert.True(t, planning.IsConflict(err))
}

func TestDeleteQuarter_CascadesCapacities(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()
	q2, err := p.CreateQuarter(ctx, planning.Quarter{Year: 2025, Number: 2})
	require.NoError(t, err)

	require.NoError(t, p.DeleteQuarter(ctx, q2.ID))

	agg, err := p.Aggregator(ctx)
	require.NoError(t, err)
	assert.Len(t, agg.Snapshot().MemberCapacities, 2)
	assert.True(t, agg.HasMemberCapacity(o.alice, o.q1))
}

func TestDeleteMember_RemovesCapacities(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()

	require.NoError(t, p.DeleteMember(ctx, o.carol))

	agg, err := p.Aggregator(ctx)
	require.NoError(t, err)
	assertEffort(t, "2", agg.TeamCapacity(o.core, o.q1))
	assert.Len(t, agg.Snapshot().MemberCapacities, 1)
}

func TestCreateMember_UnknownRole(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)

	_, err := p.CreateMember(context.Background(), planning.Member{Name: "Eve", TeamID: o.core, RoleID: "ghost"})

	var nf *planning.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "role", nf.Kind)
}

func TestCreateTeam_NameRequired(t *testing.T) {
	p, _ := newPlanner()

	_, err := p.CreateTeam(context.Background(), planning.Team{Name: "   "})

	var ve *planning.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)
}

// =============================================================================
// TASKS
// =============================================================================

func TestSaveTask_CreateDefaultsICE(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)

	snap, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	login, ok := snap.Task(o.login)
	require.True(t, ok)

	assert.Equal(t, 125, login.ICEScore())
	assert.True(t, login.IsTemplate())
}

func TestSaveTask_Validation(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()

	tests := []struct {
		name  string
		task  planning.Task
		field string
	}{
		{"no title", planning.Task{TeamID: o.core}, "title"},
		{"no team", planning.Task{Title: "x"}, "team_id"},
		{"impact too high", planning.Task{Title: "x", TeamID: o.core, Impact: 11}, "impact"},
		{"negative estimate", planning.Task{Title: "x", TeamID: o.core, ExpressEstimate: effortPtr("-1")}, "express_estimate"},
		{"planned without quarter", planning.Task{Title: "x", TeamID: o.core, IsPlanned: true}, "quarter_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.SaveTask(ctx, planning.TaskInput{Task: tt.task})

			var ve *planning.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestSaveTask_CreateSkipsZeroRoleCapacities(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()

	task, err := p.SaveTask(ctx, planning.TaskInput{
		Task:           planning.Task{Title: "Docs", TeamID: o.core},
		RoleCapacities: map[planning.RoleID]decimal.Decimal{o.fe: decimal.Zero, o.be: effort("1")},
	})
	require.NoError(t, err)

	snap, err := p.Snapshot(ctx)
	require.NoError(t, err)
	count := 0
	for _, trc := range snap.TaskRoleCapacities {
		if trc.TaskID == task.ID {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestSaveTask_VirtualRowUpdatesTemplateAndVariantState(t *testing.T) {
	// GIVEN: a variant in which login is a virtual backlog row
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()
	v, err := p.CreateVariant(ctx, planning.PlanVariant{Name: "Plan A", TeamID: o.core, QuarterID: o.q1, IsExpress: true})
	require.NoError(t, err)
	virtualID := planning.VirtualTaskID(o.login, v.ID)

	// WHEN: it is saved as planned with a new title
	_, err = p.SaveTask(ctx, planning.TaskInput{Task: planning.Task{
		ID: virtualID, Title: "Login v2", TeamID: o.core,
		Impact: 5, Confidence: 5, Ease: 5,
		PlanVariantID: &v.ID, IsPlanned: true, QuarterID: &o.q1,
	}})
	require.NoError(t, err)

	// THEN: the template carries the title, the variant shows it planned
	board, err := p.Board(ctx, o.expressQ)
	require.NoError(t, err)
	require.Len(t, board.Planned, 1)
	assert.Equal(t, o.login, board.Planned[0].BaseID)
	assert.Equal(t, "Login v2", board.Planned[0].Title)

	snap, err := p.Snapshot(ctx)
	require.NoError(t, err)
	template, _ := snap.Task(o.login)
	assert.Nil(t, template.PlanVariantID)
	assert.Len(t, snap.Tasks, 2, "no extra row")
}

func TestDeleteTasks_VirtualIDRemovesBase(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()

	err := p.DeleteTasks(ctx, []planning.TaskID{planning.VirtualTaskID(o.login, "any")})
	require.NoError(t, err)

	snap, err := p.Snapshot(ctx)
	require.NoError(t, err)
	_, ok := snap.Task(o.login)
	assert.False(t, ok)
	assert.Empty(t, snap.TaskRoleCapacities)
}

func TestDeleteTasks_Unknown(t *testing.T) {
	p, _ := newPlanner()
	seedOrg(t, p)

	err := p.DeleteTasks(context.Background(), []planning.TaskID{"ghost"})

	assert.True(t, planning.IsNotFound(err))
}

// =============================================================================
// PLAN VARIANTS
// =============================================================================

func TestCreateVariant_FirstInGroupIsMain(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()

	a, err := p.CreateVariant(ctx, planning.PlanVariant{Name: "A", TeamID: o.core, QuarterID: o.q1, IsExpress: true})
	require.NoError(t, err)
	b, err := p.CreateVariant(ctx, planning.PlanVariant{Name: "B", TeamID: o.core, QuarterID: o.q1, IsExpress: true})
	require.NoError(t, err)
	d, err := p.CreateVariant(ctx, planning.PlanVariant{Name: "D", TeamID: o.core, QuarterID: o.q1, IsExpress: false})
	require.NoError(t, err)

	assert.True(t, a.IsMain)
	assert.False(t, b.IsMain)
	assert.True(t, d.IsMain, "detailed mode is its own group")
}

func TestCreateVariant_MainDemotesPrevious(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()
	_, err := p.CreateVariant(ctx, planning.PlanVariant{Name: "A", TeamID: o.core, QuarterID: o.q1, IsExpress: true})
	require.NoError(t, err)

	b, err := p.CreateVariant(ctx, planning.PlanVariant{Name: "B", TeamID: o.core, QuarterID: o.q1, IsExpress: true, IsMain: true})
	require.NoError(t, err)

	assertSingleMain(t, p, o, b.ID)
}

func TestSetMainVariant_Exclusive(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()
	_, err := p.CreateVariant(ctx, planning.PlanVariant{Name: "A", TeamID: o.core, QuarterID: o.q1, IsExpress: true})
	require.NoError(t, err)
	b, err := p.CreateVariant(ctx, planning.PlanVariant{Name: "B", TeamID: o.core, QuarterID: o.q1, IsExpress: true})
	require.NoError(t, err)

	require.NoError(t, p.SetMainVariant(ctx, b.ID))

	assertSingleMain(t, p, o, b.ID)
}

func TestDeleteVariant_PromotesNextAndUnlinksTasks(t *testing.T) {
	// GIVEN: login dropped into main variant A, and a second variant B
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()
	a, err := p.CreateVariant(ctx, planning.PlanVariant{Name: "A", TeamID: o.core, QuarterID: o.q1, IsExpress: true})
	require.NoError(t, err)
	b, err := p.CreateVariant(ctx, planning.PlanVariant{Name: "B", TeamID: o.core, QuarterID: o.q1, IsExpress: true})
	require.NoError(t, err)
	_, err = p.Drop(ctx, o.expressQ, planning.VirtualTaskID(o.login, a.ID), planning.ContainerPlanned)
	require.NoError(t, err)

	// WHEN
	require.NoError(t, p.DeleteVariant(ctx, a.ID))

	// THEN
	assertSingleMain(t, p, o, b.ID)
	snap, err := p.Snapshot(ctx)
	require.NoError(t, err)
	login, _ := snap.Task(o.login)
	assert.Nil(t, login.PlanVariantID)
	assert.Empty(t, snap.VariantStates)
}

func TestRenameVariant(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()
	a, err := p.CreateVariant(ctx, planning.PlanVariant{Name: "A", TeamID: o.core, QuarterID: o.q1, IsExpress: true})
	require.NoError(t, err)

	renamed, err := p.RenameVariant(ctx, a.ID, "Optimistic")
	require.NoError(t, err)
	assert.Equal(t, "Optimistic", renamed.Name)
	assert.True(t, renamed.IsMain)

	_, err = p.RenameVariant(ctx, a.ID, "")
	assert.True(t, planning.IsClientError(err))
}

func assertSingleMain(t *testing.T, p *planning.Planner, o org, want planning.VariantID) {
	t.Helper()
	snap, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	var mains []planning.VariantID
	for _, v := range planning.VariantGroup(snap, o.expressQ.Scope()) {
		if v.IsMain {
			mains = append(mains, v.ID)
		}
	}
	assert.Equal(t, []planning.VariantID{want}, mains)
}

// =============================================================================
// READ PATH
// =============================================================================

func TestAggregator_MemoizedByVersion(t *testing.T) {
	p, _ := newPlanner()
	o := seedOrg(t, p)
	ctx := context.Background()

	first, err := p.Aggregator(ctx)
	require.NoError(t, err)
	again, err := p.Aggregator(ctx)
	require.NoError(t, err)
	assert.Same(t, first, again)

	_, err = p.SaveMemberCapacity(ctx, o.alice, o.q1, effort("1"))
	require.NoError(t, err)
	after, err := p.Aggregator(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, after)
}

func TestReset_ClearsEverything(t *testing.T) {
	p, _ := newPlanner()
	seedOrg(t, p)
	ctx := context.Background()

	require.NoError(t, p.Reset(ctx))

	snap, err := p.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Teams)
	assert.Empty(t, snap.Tasks)
}

func TestStoreFailure_LeavesStateUnchanged(t *testing.T) {
	// GIVEN: a store whose capacity writes fail
	mem := store.NewMemory()
	fs := &failingStore{Memory: mem}
	p := planning.NewPlanner(fs)
	seedOrg(t, p)
	fs.failOn = "member capacity"
	before := mem.Version()

	// WHEN: a quarter is created (quarter row, then capacity seeding)
	_, err := p.CreateQuarter(context.Background(), planning.Quarter{Year: 2025, Number: 2})

	// THEN: the quarter is not half-created
	require.ErrorIs(t, err, planning.ErrStore)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, before, mem.Version())
	snap, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Quarters, 1)
}

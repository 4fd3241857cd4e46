/*
planner.go - Action handlers over a Store

PURPOSE:
  The Planner is the single mutator of planning data. It validates input,
  enforces referential integrity, keeps the member-capacity matrix dense and
  keeps exactly one main variant per group. Every multi-record change runs in
  one Store transaction so a failure never leaves a partial mutation.

READ PATH:
  Reads go through a memoized view (Snapshot + Aggregator) keyed on the
  store's Version(). A committed write bumps the version; the next read
  reloads. Nothing is updated optimistically.

WRITE PATH:
  1. Validate (ValidationError, rejected before any write)
  2. Check references against the current snapshot (NotFoundError, InUseError)
  3. Write through TxStore.WithTx
  4. On store failure: log, wrap in StoreError, leave state unchanged

SEE ALSO:
  - drag.go: Drop handling
  - board.go: Board query (variant + projection + utilization)
*/
package planning

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Planner exposes the planning queries and action handlers.
type Planner struct {
	store           TxStore
	log             *zap.Logger
	defaultCapacity decimal.Decimal

	mu    sync.Mutex
	cache *Aggregator
}

type Option func(*Planner)

func WithLogger(l *zap.Logger) Option {
	return func(p *Planner) { p.log = l }
}

// WithDefaultCapacity sets the capacity seeded for new (member, quarter) pairs.
func WithDefaultCapacity(c decimal.Decimal) Option {
	return func(p *Planner) { p.defaultCapacity = c }
}

func NewPlanner(store TxStore, opts ...Option) *Planner {
	p := &Planner{
		store:           store,
		log:             zap.NewNop(),
		defaultCapacity: DefaultMemberCapacity,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// =============================================================================
// READ PATH
// =============================================================================

// Aggregator returns the capacity aggregator for the current store version.
func (p *Planner) Aggregator(ctx context.Context) (*Aggregator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked(ctx)
}

// Snapshot returns the current snapshot. Callers must not modify it.
func (p *Planner) Snapshot(ctx context.Context) (*Snapshot, error) {
	agg, err := p.Aggregator(ctx)
	if err != nil {
		return nil, err
	}
	return agg.Snapshot(), nil
}

func (p *Planner) viewLocked(ctx context.Context) (*Aggregator, error) {
	if p.cache != nil && p.cache.snap.Version == p.store.Version() {
		return p.cache, nil
	}
	snap, err := p.store.Load(ctx)
	if err != nil {
		return nil, p.storeFailure("load", err)
	}
	p.cache = NewAggregator(snap)
	return p.cache, nil
}

// write runs fn in a transaction and normalizes its error.
func (p *Planner) write(ctx context.Context, op string, fn func(Store) error) error {
	if err := p.store.WithTx(ctx, fn); err != nil {
		return p.storeFailure(op, err)
	}
	return nil
}

// storeFailure passes domain errors through and wraps everything else.
func (p *Planner) storeFailure(op string, err error) error {
	var se *StoreError
	switch {
	case errors.As(err, &se):
		return err
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInUse), errors.Is(err, ErrDuplicate):
		return err
	}
	p.log.Error("store operation failed", zap.String("op", op), zap.Error(err))
	return &StoreError{Op: op, Err: err}
}

// =============================================================================
// TEAMS
// =============================================================================

func (p *Planner) CreateTeam(ctx context.Context, t Team) (Team, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return Team{}, invalid("name", "team name is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var created Team
	err := p.write(ctx, "create team", func(s Store) error {
		var err error
		created, err = s.CreateTeam(ctx, t)
		return err
	})
	return created, err
}

func (p *Planner) UpdateTeam(ctx context.Context, t Team) (Team, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return Team{}, invalid("name", "team name is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var updated Team
	err := p.write(ctx, "update team", func(s Store) error {
		var err error
		updated, err = s.UpdateTeam(ctx, t)
		return err
	})
	return updated, err
}

// DeleteTeam removes a team that has no members and no tasks, together with
// its legacy capacities and plan variants.
func (p *Planner) DeleteTeam(ctx context.Context, id TeamID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	agg, err := p.viewLocked(ctx)
	if err != nil {
		return err
	}
	snap := agg.Snapshot()
	if _, ok := snap.Team(id); !ok {
		return notFound("team", id)
	}
	if n := len(agg.MembersOf(id)); n > 0 {
		return &InUseError{Kind: "team", ID: string(id), By: "members", Refs: n}
	}
	if n := countTasks(snap, func(t Task) bool { return t.TeamID == id }); n > 0 {
		return &InUseError{Kind: "team", ID: string(id), By: "tasks", Refs: n}
	}

	var capIDs []TeamCapacityID
	for _, tc := range snap.TeamCapacities {
		if tc.TeamID == id {
			capIDs = append(capIDs, tc.ID)
		}
	}
	variants := make(map[VariantID]bool)
	for _, v := range snap.Variants {
		if v.TeamID == id {
			variants[v.ID] = true
		}
	}

	err = p.write(ctx, "delete team", func(s Store) error {
		if err := s.DeleteTeamCapacities(ctx, capIDs); err != nil {
			return err
		}
		if err := s.DeleteVariantStates(ctx, statesOf(snap, func(st TaskVariantState) bool { return variants[st.VariantID] })); err != nil {
			return err
		}
		for vid := range variants {
			if err := s.DeleteVariant(ctx, vid); err != nil {
				return err
			}
		}
		return s.DeleteTeam(ctx, id)
	})
	if err == nil {
		p.log.Info("team deleted", zap.String("team_id", string(id)))
	}
	return err
}

// =============================================================================
// ROLES
// =============================================================================

func (p *Planner) CreateRole(ctx context.Context, r Role) (Role, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return Role{}, invalid("name", "role name is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var created Role
	err := p.write(ctx, "create role", func(s Store) error {
		var err error
		created, err = s.CreateRole(ctx, r)
		return err
	})
	return created, err
}

func (p *Planner) UpdateRole(ctx context.Context, r Role) (Role, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return Role{}, invalid("name", "role name is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var updated Role
	err := p.write(ctx, "update role", func(s Store) error {
		var err error
		updated, err = s.UpdateRole(ctx, r)
		return err
	})
	return updated, err
}

// DeleteRole removes a role no member holds, with its task estimates.
func (p *Planner) DeleteRole(ctx context.Context, id RoleID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	agg, err := p.viewLocked(ctx)
	if err != nil {
		return err
	}
	snap := agg.Snapshot()
	if _, ok := snap.Role(id); !ok {
		return notFound("role", id)
	}
	holders := 0
	for _, m := range snap.Members {
		if m.RoleID == id {
			holders++
		}
	}
	if holders > 0 {
		return &InUseError{Kind: "role", ID: string(id), By: "members", Refs: holders}
	}

	var trcIDs []TaskRoleCapacityID
	for _, trc := range snap.TaskRoleCapacities {
		if trc.RoleID == id {
			trcIDs = append(trcIDs, trc.ID)
		}
	}
	return p.write(ctx, "delete role", func(s Store) error {
		if err := s.DeleteTaskRoleCapacities(ctx, trcIDs); err != nil {
			return err
		}
		return s.DeleteRole(ctx, id)
	})
}

// =============================================================================
// QUARTERS
// =============================================================================

func validateQuarter(q *Quarter) error {
	q.Name = strings.TrimSpace(q.Name)
	if q.Number < 1 || q.Number > 4 {
		return invalid("quarter", "quarter number must be between 1 and 4")
	}
	if q.Year < 1 {
		return invalid("year", "year is required")
	}
	if q.Name == "" {
		q.Name = QuarterName(q.Year, q.Number)
	}
	return nil
}

// CreateQuarter adds a quarter and seeds the default capacity for every member.
func (p *Planner) CreateQuarter(ctx context.Context, q Quarter) (Quarter, error) {
	if err := validateQuarter(&q); err != nil {
		return Quarter{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	agg, err := p.viewLocked(ctx)
	if err != nil {
		return Quarter{}, err
	}
	members := agg.Snapshot().Members

	var created Quarter
	err = p.write(ctx, "create quarter", func(s Store) error {
		var err error
		if created, err = s.CreateQuarter(ctx, q); err != nil {
			return err
		}
		for _, m := range members {
			if _, err := s.UpsertMemberCapacity(ctx, m.ID, created.ID, p.defaultCapacity); err != nil {
				return err
			}
		}
		return nil
	})
	return created, err
}

func (p *Planner) UpdateQuarter(ctx context.Context, q Quarter) (Quarter, error) {
	if err := validateQuarter(&q); err != nil {
		return Quarter{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var updated Quarter
	err := p.write(ctx, "update quarter", func(s Store) error {
		var err error
		updated, err = s.UpdateQuarter(ctx, q)
		return err
	})
	return updated, err
}

// DeleteQuarter removes a quarter no task or variant references, with its
// capacity records.
func (p *Planner) DeleteQuarter(ctx context.Context, id QuarterID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	agg, err := p.viewLocked(ctx)
	if err != nil {
		return err
	}
	snap := agg.Snapshot()
	if _, ok := snap.Quarter(id); !ok {
		return notFound("quarter", id)
	}
	if n := countTasks(snap, func(t Task) bool { return t.InQuarter(id) }); n > 0 {
		return &InUseError{Kind: "quarter", ID: string(id), By: "tasks", Refs: n}
	}
	variants := 0
	for _, v := range snap.Variants {
		if v.QuarterID == id {
			variants++
		}
	}
	if variants > 0 {
		return &InUseError{Kind: "quarter", ID: string(id), By: "plan variants", Refs: variants}
	}

	var mcIDs []MemberCapacityID
	for _, mc := range snap.MemberCapacities {
		if mc.QuarterID == id {
			mcIDs = append(mcIDs, mc.ID)
		}
	}
	var tcIDs []TeamCapacityID
	for _, tc := range snap.TeamCapacities {
		if tc.QuarterID == id {
			tcIDs = append(tcIDs, tc.ID)
		}
	}
	return p.write(ctx, "delete quarter", func(s Store) error {
		if err := s.DeleteMemberCapacities(ctx, mcIDs); err != nil {
			return err
		}
		if err := s.DeleteTeamCapacities(ctx, tcIDs); err != nil {
			return err
		}
		return s.DeleteQuarter(ctx, id)
	})
}

// =============================================================================
// MEMBERS
// =============================================================================

func validateMember(snap *Snapshot, m *Member) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	if m.Name == "" {
		return invalid("name", "member name is required")
	}
	if m.TeamID == "" {
		return invalid("team_id", "team is required")
	}
	if m.RoleID == "" {
		return invalid("role_id", "role is required")
	}
	if _, ok := snap.Team(m.TeamID); !ok {
		return notFound("team", m.TeamID)
	}
	if _, ok := snap.Role(m.RoleID); !ok {
		return notFound("role", m.RoleID)
	}
	return nil
}

// CreateMember adds a member and seeds the default capacity for every quarter.
func (p *Planner) CreateMember(ctx context.Context, m Member) (Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	agg, err := p.viewLocked(ctx)
	if err != nil {
		return Member{}, err
	}
	snap := agg.Snapshot()
	if err := validateMember(snap, &m); err != nil {
		return Member{}, err
	}

	var created Member
	err = p.write(ctx, "create member", func(s Store) error {
		var err error
		if created, err = s.CreateMember(ctx, m); err != nil {
			return err
		}
		for _, q := range snap.Quarters {
			if _, err := s.UpsertMemberCapacity(ctx, created.ID, q.ID, p.defaultCapacity); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		p.log.Info("member created",
			zap.String("member_id", string(created.ID)),
			zap.String("team_id", string(created.TeamID)),
			zap.Int("quarters_seeded", len(snap.Quarters)))
	}
	return created, err
}

func (p *Planner) UpdateMember(ctx context.Context, m Member) (Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	agg, err := p.viewLocked(ctx)
	if err != nil {
		return Member{}, err
	}
	if err := validateMember(agg.Snapshot(), &m); err != nil {
		return Member{}, err
	}

	var updated Member
	err = p.write(ctx, "update member", func(s Store) error {
		var err error
		updated, err = s.UpdateMember(ctx, m)
		return err
	})
	return updated, err
}

// DeleteMember removes a member and its capacity records.
func (p *Planner) DeleteMember(ctx context.Context, id MemberID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	agg, err := p.viewLocked(ctx)
	if err != nil {
		return err
	}
	snap := agg.Snapshot()
	if _, ok := snap.Member(id); !ok {
		return notFound("member", id)
	}
	var mcIDs []MemberCapacityID
	for _, mc := range snap.MemberCapacities {
		if mc.MemberID == id {
			mcIDs = append(mcIDs, mc.ID)
		}
	}
	return p.write(ctx, "delete member", func(s Store) error {
		if err := s.DeleteMemberCapacities(ctx, mcIDs); err != nil {
			return err
		}
		return s.DeleteMember(ctx, id)
	})
}

// =============================================================================
// CAPACITIES
// =============================================================================

// SaveMemberCapacity upserts the member's capacity for a quarter.
func (p *Planner) SaveMemberCapacity(ctx context.Context, member MemberID, quarter QuarterID, capacity decimal.Decimal) (MemberCapacity, error) {
	if capacity.IsNegative() {
		return MemberCapacity{}, invalid("capacity", "capacity must not be negative")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	agg, err := p.viewLocked(ctx)
	if err != nil {
		return MemberCapacity{}, err
	}
	snap := agg.Snapshot()
	if _, ok := snap.Member(member); !ok {
		return MemberCapacity{}, notFound("member", member)
	}
	if _, ok := snap.Quarter(quarter); !ok {
		return MemberCapacity{}, notFound("quarter", quarter)
	}

	var saved MemberCapacity
	err = p.write(ctx, "save member capacity", func(s Store) error {
		var err error
		saved, err = s.UpsertMemberCapacity(ctx, member, quarter, capacity)
		return err
	})
	return saved, err
}

// SaveTeamCapacity upserts the legacy manual team capacity.
func (p *Planner) SaveTeamCapacity(ctx context.Context, team TeamID, quarter QuarterID, capacity decimal.Decimal) (TeamCapacity, error) {
	if capacity.IsNegative() {
		return TeamCapacity{}, invalid("capacity", "capacity must not be negative")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	agg, err := p.viewLocked(ctx)
	if err != nil {
		return TeamCapacity{}, err
	}
	snap := agg.Snapshot()
	if _, ok := snap.Team(team); !ok {
		return TeamCapacity{}, notFound("team", team)
	}
	if _, ok := snap.Quarter(quarter); !ok {
		return TeamCapacity{}, notFound("quarter", quarter)
	}

	var saved TeamCapacity
	err = p.write(ctx, "save team capacity", func(s Store) error {
		var err error
		saved, err = s.UpsertTeamCapacity(ctx, team, quarter, capacity)
		return err
	})
	return saved, err
}

// BackfillMemberCapacities seeds the default capacity for every (member,
// quarter) pair that has no record. It returns how many records it wrote.
func (p *Planner) BackfillMemberCapacities(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	agg, err := p.viewLocked(ctx)
	if err != nil {
		return 0, err
	}
	snap := agg.Snapshot()

	type pair struct {
		member  MemberID
		quarter QuarterID
	}
	var gaps []pair
	for _, m := range snap.Members {
		for _, q := range snap.Quarters {
			if !agg.HasMemberCapacity(m.ID, q.ID) {
				gaps = append(gaps, pair{m.ID, q.ID})
			}
		}
	}
	if len(gaps) == 0 {
		return 0, nil
	}

	err = p.write(ctx, "backfill member capacities", func(s Store) error {
		for _, g := range gaps {
			if _, err := s.UpsertMemberCapacity(ctx, g.member, g.quarter, p.defaultCapacity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	p.log.Info("member capacities backfilled", zap.Int("records", len(gaps)))
	return len(gaps), nil
}

// Reset removes all planning data.
func (p *Planner) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.Reset(ctx); err != nil {
		return p.storeFailure("reset", err)
	}
	p.cache = nil
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func countTasks(snap *Snapshot, match func(Task) bool) int {
	n := 0
	for _, t := range snap.Tasks {
		if match(t) {
			n++
		}
	}
	return n
}

func statesOf(snap *Snapshot, match func(TaskVariantState) bool) []VariantStateID {
	var ids []VariantStateID
	for _, st := range snap.VariantStates {
		if match(st) {
			ids = append(ids, st.ID)
		}
	}
	return ids
}

// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/capacity-planner/planning"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements planning.TxStore. Every call holds the lock, so it is
// safe for concurrent use.
type Memory struct {
	mu sync.RWMutex
	st *state
}

var _ planning.TxStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{st: &state{}}
}

// state holds the collections in store order. It implements planning.Store
// without locking; Memory and transactions wrap it.
type state struct {
	version            uint64
	teams              []planning.Team
	roles              []planning.Role
	quarters           []planning.Quarter
	members            []planning.Member
	memberCapacities   []planning.MemberCapacity
	teamCapacities     []planning.TeamCapacity
	tasks              []planning.Task
	taskRoleCapacities []planning.TaskRoleCapacity
	variants           []planning.PlanVariant
	variantStates      []planning.TaskVariantState
}

func (s *state) clone() *state {
	return &state{
		version:            s.version,
		teams:              append([]planning.Team(nil), s.teams...),
		roles:              append([]planning.Role(nil), s.roles...),
		quarters:           append([]planning.Quarter(nil), s.quarters...),
		members:            append([]planning.Member(nil), s.members...),
		memberCapacities:   append([]planning.MemberCapacity(nil), s.memberCapacities...),
		teamCapacities:     append([]planning.TeamCapacity(nil), s.teamCapacities...),
		tasks:              append([]planning.Task(nil), s.tasks...),
		taskRoleCapacities: append([]planning.TaskRoleCapacity(nil), s.taskRoleCapacities...),
		variants:           append([]planning.PlanVariant(nil), s.variants...),
		variantStates:      append([]planning.TaskVariantState(nil), s.variantStates...),
	}
}

func now() time.Time { return time.Now().UTC() }

func indexOf[T any](rows []T, match func(T) bool) int {
	for i, r := range rows {
		if match(r) {
			return i
		}
	}
	return -1
}

func removeIDs[T any, ID comparable](rows []T, id func(T) ID, ids []ID) []T {
	if len(ids) == 0 {
		return rows
	}
	drop := make(map[ID]bool, len(ids))
	for _, i := range ids {
		drop[i] = true
	}
	kept := rows[:0:0]
	for _, r := range rows {
		if !drop[id(r)] {
			kept = append(kept, r)
		}
	}
	return kept
}

func missing(kind string, id any) error {
	return &planning.NotFoundError{Kind: kind, ID: fmt.Sprint(id)}
}

// =============================================================================
// state: planning.Store
// =============================================================================

func (s *state) Load(_ context.Context) (*planning.Snapshot, error) {
	c := s.clone()
	return &planning.Snapshot{
		Version:            c.version,
		Teams:              c.teams,
		Roles:              c.roles,
		Quarters:           c.quarters,
		Members:            c.members,
		MemberCapacities:   c.memberCapacities,
		TeamCapacities:     c.teamCapacities,
		Tasks:              c.tasks,
		TaskRoleCapacities: c.taskRoleCapacities,
		Variants:           c.variants,
		VariantStates:      c.variantStates,
	}, nil
}

func (s *state) Version() uint64 { return s.version }

func (s *state) bump() { s.version++ }

// Teams

func (s *state) CreateTeam(_ context.Context, t planning.Team) (planning.Team, error) {
	t.ID = planning.TeamID(uuid.NewString())
	s.teams = append(s.teams, t)
	s.bump()
	return t, nil
}

func (s *state) UpdateTeam(_ context.Context, t planning.Team) (planning.Team, error) {
	i := indexOf(s.teams, func(x planning.Team) bool { return x.ID == t.ID })
	if i < 0 {
		return planning.Team{}, missing("team", t.ID)
	}
	s.teams[i] = t
	s.bump()
	return t, nil
}

func (s *state) DeleteTeam(_ context.Context, id planning.TeamID) error {
	if indexOf(s.teams, func(x planning.Team) bool { return x.ID == id }) < 0 {
		return missing("team", id)
	}
	s.teams = removeIDs(s.teams, func(x planning.Team) planning.TeamID { return x.ID }, []planning.TeamID{id})
	s.bump()
	return nil
}

// Roles

func (s *state) CreateRole(_ context.Context, r planning.Role) (planning.Role, error) {
	r.ID = planning.RoleID(uuid.NewString())
	r.CreatedAt = now()
	s.roles = append(s.roles, r)
	s.bump()
	return r, nil
}

func (s *state) UpdateRole(_ context.Context, r planning.Role) (planning.Role, error) {
	i := indexOf(s.roles, func(x planning.Role) bool { return x.ID == r.ID })
	if i < 0 {
		return planning.Role{}, missing("role", r.ID)
	}
	r.CreatedAt = s.roles[i].CreatedAt
	s.roles[i] = r
	s.bump()
	return r, nil
}

func (s *state) DeleteRole(_ context.Context, id planning.RoleID) error {
	if indexOf(s.roles, func(x planning.Role) bool { return x.ID == id }) < 0 {
		return missing("role", id)
	}
	s.roles = removeIDs(s.roles, func(x planning.Role) planning.RoleID { return x.ID }, []planning.RoleID{id})
	s.bump()
	return nil
}

// Quarters

func (s *state) CreateQuarter(_ context.Context, q planning.Quarter) (planning.Quarter, error) {
	q.ID = planning.QuarterID(uuid.NewString())
	q.CreatedAt = now()
	s.quarters = append(s.quarters, q)
	s.bump()
	return q, nil
}

func (s *state) UpdateQuarter(_ context.Context, q planning.Quarter) (planning.Quarter, error) {
	i := indexOf(s.quarters, func(x planning.Quarter) bool { return x.ID == q.ID })
	if i < 0 {
		return planning.Quarter{}, missing("quarter", q.ID)
	}
	q.CreatedAt = s.quarters[i].CreatedAt
	s.quarters[i] = q
	s.bump()
	return q, nil
}

func (s *state) DeleteQuarter(_ context.Context, id planning.QuarterID) error {
	if indexOf(s.quarters, func(x planning.Quarter) bool { return x.ID == id }) < 0 {
		return missing("quarter", id)
	}
	s.quarters = removeIDs(s.quarters, func(x planning.Quarter) planning.QuarterID { return x.ID }, []planning.QuarterID{id})
	s.bump()
	return nil
}

// Members

func (s *state) CreateMember(_ context.Context, m planning.Member) (planning.Member, error) {
	m.ID = planning.MemberID(uuid.NewString())
	m.CreatedAt = now()
	m.UpdatedAt = m.CreatedAt
	s.members = append(s.members, m)
	s.bump()
	return m, nil
}

func (s *state) UpdateMember(_ context.Context, m planning.Member) (planning.Member, error) {
	i := indexOf(s.members, func(x planning.Member) bool { return x.ID == m.ID })
	if i < 0 {
		return planning.Member{}, missing("member", m.ID)
	}
	m.CreatedAt = s.members[i].CreatedAt
	m.UpdatedAt = now()
	s.members[i] = m
	s.bump()
	return m, nil
}

func (s *state) DeleteMember(_ context.Context, id planning.MemberID) error {
	if indexOf(s.members, func(x planning.Member) bool { return x.ID == id }) < 0 {
		return missing("member", id)
	}
	s.members = removeIDs(s.members, func(x planning.Member) planning.MemberID { return x.ID }, []planning.MemberID{id})
	s.bump()
	return nil
}

// Tasks

func (s *state) CreateTask(_ context.Context, t planning.Task) (planning.Task, error) {
	t.ID = planning.TaskID(uuid.NewString())
	t.CreatedAt = now()
	t.UpdatedAt = t.CreatedAt
	s.tasks = append(s.tasks, t)
	s.bump()
	return t, nil
}

func (s *state) UpdateTask(_ context.Context, t planning.Task) (planning.Task, error) {
	i := indexOf(s.tasks, func(x planning.Task) bool { return x.ID == t.ID })
	if i < 0 {
		return planning.Task{}, missing("task", t.ID)
	}
	t.CreatedAt = s.tasks[i].CreatedAt
	t.UpdatedAt = now()
	s.tasks[i] = t
	s.bump()
	return t, nil
}

func (s *state) DeleteTasks(_ context.Context, ids []planning.TaskID) error {
	s.tasks = removeIDs(s.tasks, func(x planning.Task) planning.TaskID { return x.ID }, ids)
	s.bump()
	return nil
}

// Variants

func (s *state) CreateVariant(_ context.Context, v planning.PlanVariant) (planning.PlanVariant, error) {
	v.ID = planning.VariantID(uuid.NewString())
	v.CreatedAt = now()
	v.UpdatedAt = v.CreatedAt
	s.variants = append(s.variants, v)
	s.bump()
	return v, nil
}

func (s *state) UpdateVariant(_ context.Context, v planning.PlanVariant) (planning.PlanVariant, error) {
	i := indexOf(s.variants, func(x planning.PlanVariant) bool { return x.ID == v.ID })
	if i < 0 {
		return planning.PlanVariant{}, missing("plan variant", v.ID)
	}
	v.CreatedAt = s.variants[i].CreatedAt
	v.UpdatedAt = now()
	s.variants[i] = v
	s.bump()
	return v, nil
}

func (s *state) DeleteVariant(_ context.Context, id planning.VariantID) error {
	if indexOf(s.variants, func(x planning.PlanVariant) bool { return x.ID == id }) < 0 {
		return missing("plan variant", id)
	}
	s.variants = removeIDs(s.variants, func(x planning.PlanVariant) planning.VariantID { return x.ID }, []planning.VariantID{id})
	s.bump()
	return nil
}

// Capacity upserts

func (s *state) UpsertMemberCapacity(_ context.Context, member planning.MemberID, quarter planning.QuarterID, capacity decimal.Decimal) (planning.MemberCapacity, error) {
	defer s.bump()
	ts := now()
	if i := indexOf(s.memberCapacities, func(x planning.MemberCapacity) bool {
		return x.MemberID == member && x.QuarterID == quarter
	}); i >= 0 {
		s.memberCapacities[i].Capacity = capacity
		s.memberCapacities[i].UpdatedAt = ts
		return s.memberCapacities[i], nil
	}
	mc := planning.MemberCapacity{
		ID:        planning.MemberCapacityID(uuid.NewString()),
		MemberID:  member,
		QuarterID: quarter,
		Capacity:  capacity,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	s.memberCapacities = append(s.memberCapacities, mc)
	return mc, nil
}

func (s *state) UpsertTeamCapacity(_ context.Context, team planning.TeamID, quarter planning.QuarterID, capacity decimal.Decimal) (planning.TeamCapacity, error) {
	defer s.bump()
	ts := now()
	if i := indexOf(s.teamCapacities, func(x planning.TeamCapacity) bool {
		return x.TeamID == team && x.QuarterID == quarter
	}); i >= 0 {
		s.teamCapacities[i].Capacity = capacity
		s.teamCapacities[i].UpdatedAt = ts
		return s.teamCapacities[i], nil
	}
	tc := planning.TeamCapacity{
		ID:        planning.TeamCapacityID(uuid.NewString()),
		TeamID:    team,
		QuarterID: quarter,
		Capacity:  capacity,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	s.teamCapacities = append(s.teamCapacities, tc)
	return tc, nil
}

func (s *state) UpsertTaskRoleCapacity(_ context.Context, task planning.TaskID, role planning.RoleID, capacity decimal.Decimal) (planning.TaskRoleCapacity, error) {
	defer s.bump()
	ts := now()
	if i := indexOf(s.taskRoleCapacities, func(x planning.TaskRoleCapacity) bool {
		return x.TaskID == task && x.RoleID == role
	}); i >= 0 {
		s.taskRoleCapacities[i].Capacity = capacity
		s.taskRoleCapacities[i].UpdatedAt = ts
		return s.taskRoleCapacities[i], nil
	}
	trc := planning.TaskRoleCapacity{
		ID:        planning.TaskRoleCapacityID(uuid.NewString()),
		TaskID:    task,
		RoleID:    role,
		Capacity:  capacity,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	s.taskRoleCapacities = append(s.taskRoleCapacities, trc)
	return trc, nil
}

func (s *state) UpsertVariantState(_ context.Context, vs planning.TaskVariantState) (planning.TaskVariantState, error) {
	defer s.bump()
	vs.UpdatedAt = now()
	if i := indexOf(s.variantStates, func(x planning.TaskVariantState) bool {
		return x.TaskID == vs.TaskID && x.VariantID == vs.VariantID
	}); i >= 0 {
		vs.ID = s.variantStates[i].ID
		s.variantStates[i] = vs
		return vs, nil
	}
	vs.ID = planning.VariantStateID(uuid.NewString())
	s.variantStates = append(s.variantStates, vs)
	return vs, nil
}

// Batch deletes ignore unknown ids.

func (s *state) DeleteMemberCapacities(_ context.Context, ids []planning.MemberCapacityID) error {
	s.memberCapacities = removeIDs(s.memberCapacities, func(x planning.MemberCapacity) planning.MemberCapacityID { return x.ID }, ids)
	s.bump()
	return nil
}

func (s *state) DeleteTeamCapacities(_ context.Context, ids []planning.TeamCapacityID) error {
	s.teamCapacities = removeIDs(s.teamCapacities, func(x planning.TeamCapacity) planning.TeamCapacityID { return x.ID }, ids)
	s.bump()
	return nil
}

func (s *state) DeleteTaskRoleCapacities(_ context.Context, ids []planning.TaskRoleCapacityID) error {
	s.taskRoleCapacities = removeIDs(s.taskRoleCapacities, func(x planning.TaskRoleCapacity) planning.TaskRoleCapacityID { return x.ID }, ids)
	s.bump()
	return nil
}

func (s *state) DeleteVariantStates(_ context.Context, ids []planning.VariantStateID) error {
	s.variantStates = removeIDs(s.variantStates, func(x planning.TaskVariantState) planning.VariantStateID { return x.ID }, ids)
	s.bump()
	return nil
}

// =============================================================================
// MEMORY: locked delegation
// =============================================================================

func read[T any](m *Memory, fn func(*state) T) T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(m.st)
}

func write[T any](m *Memory, fn func(*state) (T, error)) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.st)
}

func writeErr(m *Memory, fn func(*state) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.st)
}

func (m *Memory) Load(ctx context.Context) (*planning.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Load(ctx)
}

func (m *Memory) Version() uint64 {
	return read(m, (*state).Version)
}

func (m *Memory) CreateTeam(ctx context.Context, t planning.Team) (planning.Team, error) {
	return write(m, func(s *state) (planning.Team, error) { return s.CreateTeam(ctx, t) })
}

func (m *Memory) UpdateTeam(ctx context.Context, t planning.Team) (planning.Team, error) {
	return write(m, func(s *state) (planning.Team, error) { return s.UpdateTeam(ctx, t) })
}

func (m *Memory) DeleteTeam(ctx context.Context, id planning.TeamID) error {
	return writeErr(m, func(s *state) error { return s.DeleteTeam(ctx, id) })
}

func (m *Memory) CreateRole(ctx context.Context, r planning.Role) (planning.Role, error) {
	return write(m, func(s *state) (planning.Role, error) { return s.CreateRole(ctx, r) })
}

func (m *Memory) UpdateRole(ctx context.Context, r planning.Role) (planning.Role, error) {
	return write(m, func(s *state) (planning.Role, error) { return s.UpdateRole(ctx, r) })
}

func (m *Memory) DeleteRole(ctx context.Context, id planning.RoleID) error {
	return writeErr(m, func(s *state) error { return s.DeleteRole(ctx, id) })
}

func (m *Memory) CreateQuarter(ctx context.Context, q planning.Quarter) (planning.Quarter, error) {
	return write(m, func(s *state) (planning.Quarter, error) { return s.CreateQuarter(ctx, q) })
}

func (m *Memory) UpdateQuarter(ctx context.Context, q planning.Quarter) (planning.Quarter, error) {
	return write(m, func(s *state) (planning.Quarter, error) { return s.UpdateQuarter(ctx, q) })
}

func (m *Memory) DeleteQuarter(ctx context.Context, id planning.QuarterID) error {
	return writeErr(m, func(s *state) error { return s.DeleteQuarter(ctx, id) })
}

func (m *Memory) CreateMember(ctx context.Context, mb planning.Member) (planning.Member, error) {
	return write(m, func(s *state) (planning.Member, error) { return s.CreateMember(ctx, mb) })
}

func (m *Memory) UpdateMember(ctx context.Context, mb planning.Member) (planning.Member, error) {
	return write(m, func(s *state) (planning.Member, error) { return s.UpdateMember(ctx, mb) })
}

func (m *Memory) DeleteMember(ctx context.Context, id planning.MemberID) error {
	return writeErr(m, func(s *state) error { return s.DeleteMember(ctx, id) })
}

func (m *Memory) CreateTask(ctx context.Context, t planning.Task) (planning.Task, error) {
	return write(m, func(s *state) (planning.Task, error) { return s.CreateTask(ctx, t) })
}

func (m *Memory) UpdateTask(ctx context.Context, t planning.Task) (planning.Task, error) {
	return write(m, func(s *state) (planning.Task, error) { return s.UpdateTask(ctx, t) })
}

func (m *Memory) DeleteTasks(ctx context.Context, ids []planning.TaskID) error {
	return writeErr(m, func(s *state) error { return s.DeleteTasks(ctx, ids) })
}

func (m *Memory) CreateVariant(ctx context.Context, v planning.PlanVariant) (planning.PlanVariant, error) {
	return write(m, func(s *state) (planning.PlanVariant, error) { return s.CreateVariant(ctx, v) })
}

func (m *Memory) UpdateVariant(ctx context.Context, v planning.PlanVariant) (planning.PlanVariant, error) {
	return write(m, func(s *state) (planning.PlanVariant, error) { return s.UpdateVariant(ctx, v) })
}

func (m *Memory) DeleteVariant(ctx context.Context, id planning.VariantID) error {
	return writeErr(m, func(s *state) error { return s.DeleteVariant(ctx, id) })
}

func (m *Memory) UpsertMemberCapacity(ctx context.Context, member planning.MemberID, quarter planning.QuarterID, c decimal.Decimal) (planning.MemberCapacity, error) {
	return write(m, func(s *state) (planning.MemberCapacity, error) { return s.UpsertMemberCapacity(ctx, member, quarter, c) })
}

func (m *Memory) UpsertTeamCapacity(ctx context.Context, team planning.TeamID, quarter planning.QuarterID, c decimal.Decimal) (planning.TeamCapacity, error) {
	return write(m, func(s *state) (planning.TeamCapacity, error) { return s.UpsertTeamCapacity(ctx, team, quarter, c) })
}

func (m *Memory) UpsertTaskRoleCapacity(ctx context.Context, task planning.TaskID, role planning.RoleID, c decimal.Decimal) (planning.TaskRoleCapacity, error) {
	return write(m, func(s *state) (planning.TaskRoleCapacity, error) { return s.UpsertTaskRoleCapacity(ctx, task, role, c) })
}

func (m *Memory) UpsertVariantState(ctx context.Context, vs planning.TaskVariantState) (planning.TaskVariantState, error) {
	return write(m, func(s *state) (planning.TaskVariantState, error) { return s.UpsertVariantState(ctx, vs) })
}

func (m *Memory) DeleteMemberCapacities(ctx context.Context, ids []planning.MemberCapacityID) error {
	return writeErr(m, func(s *state) error { return s.DeleteMemberCapacities(ctx, ids) })
}

func (m *Memory) DeleteTeamCapacities(ctx context.Context, ids []planning.TeamCapacityID) error {
	return writeErr(m, func(s *state) error { return s.DeleteTeamCapacities(ctx, ids) })
}

func (m *Memory) DeleteTaskRoleCapacities(ctx context.Context, ids []planning.TaskRoleCapacityID) error {
	return writeErr(m, func(s *state) error { return s.DeleteTaskRoleCapacities(ctx, ids) })
}

func (m *Memory) DeleteVariantStates(ctx context.Context, ids []planning.VariantStateID) error {
	return writeErr(m, func(s *state) error { return s.DeleteVariantStates(ctx, ids) })
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// fn must not call back into m.
func (m *Memory) WithTx(_ context.Context, fn func(planning.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	backup := m.st.clone()
	if err := fn(m.st); err != nil {
		m.st = backup
		return err
	}
	return nil
}

// Reset drops every collection. The version keeps counting up so cached
// views are invalidated.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = &state{version: m.st.version + 1}
	return nil
}

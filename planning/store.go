/*
store.go - Persistence interface for the planning collections

PURPOSE:
  Defines the boundary between the planning engine and its backing store.
  The engine reads a whole Snapshot and writes through typed mutation
  methods; it never mutates store state directly.

KEY INTERFACES:
  Store:   Load + per-collection create/update/delete/upsert
  TxStore: Store with atomic multi-write transactions

CREATE RETURNS THE ENTITY:
  Create* assigns the id and timestamps and returns the stored record, so
  dependent writes (e.g. a new task's role capacities) can follow at once.

VERSIONING:
  Version() increases on every committed write. The Planner memoizes its
  snapshot and aggregator on it. A rolled-back transaction leaves it unchanged.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - planning/store/memory.go: In-memory for testing

SEE ALSO:
  - planner.go: Uses Store for all writes
*/
package planning

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Interface for planning persistence
// =============================================================================

type Store interface {
	// Load returns every collection at the current version.
	Load(ctx context.Context) (*Snapshot, error)

	// Version returns the current write version.
	Version() uint64

	CreateTeam(ctx context.Context, t Team) (Team, error)
	UpdateTeam(ctx context.Context, t Team) (Team, error)
	DeleteTeam(ctx context.Context, id TeamID) error

	CreateRole(ctx context.Context, r Role) (Role, error)
	UpdateRole(ctx context.Context, r Role) (Role, error)
	DeleteRole(ctx context.Context, id RoleID) error

	CreateQuarter(ctx context.Context, q Quarter) (Quarter, error)
	UpdateQuarter(ctx context.Context, q Quarter) (Quarter, error)
	DeleteQuarter(ctx context.Context, id QuarterID) error

	CreateMember(ctx context.Context, m Member) (Member, error)
	UpdateMember(ctx context.Context, m Member) (Member, error)
	DeleteMember(ctx context.Context, id MemberID) error

	CreateTask(ctx context.Context, t Task) (Task, error)
	UpdateTask(ctx context.Context, t Task) (Task, error)
	DeleteTasks(ctx context.Context, ids []TaskID) error

	CreateVariant(ctx context.Context, v PlanVariant) (PlanVariant, error)
	UpdateVariant(ctx context.Context, v PlanVariant) (PlanVariant, error)
	DeleteVariant(ctx context.Context, id VariantID) error

	// Upserts keep at most one record per owner pair.
	UpsertMemberCapacity(ctx context.Context, member MemberID, quarter QuarterID, capacity decimal.Decimal) (MemberCapacity, error)
	UpsertTeamCapacity(ctx context.Context, team TeamID, quarter QuarterID, capacity decimal.Decimal) (TeamCapacity, error)
	UpsertTaskRoleCapacity(ctx context.Context, task TaskID, role RoleID, capacity decimal.Decimal) (TaskRoleCapacity, error)
	UpsertVariantState(ctx context.Context, s TaskVariantState) (TaskVariantState, error)

	DeleteMemberCapacities(ctx context.Context, ids []MemberCapacityID) error
	DeleteTeamCapacities(ctx context.Context, ids []TeamCapacityID) error
	DeleteTaskRoleCapacities(ctx context.Context, ids []TaskRoleCapacityID) error
	DeleteVariantStates(ctx context.Context, ids []VariantStateID) error
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, every write made through the given Store is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Reset removes all data.
	Reset(ctx context.Context) error
}

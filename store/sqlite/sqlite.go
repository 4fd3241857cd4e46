/*
Package sqlite provides a SQLite-backed implementation of planning.TxStore.

PURPOSE:
  Persists every planning collection in SQLite through sqlx. Ids are
  uuids assigned on create; effort values are stored as decimal TEXT so
  fractional capacities survive a round trip exactly.

KEY TABLES:
  teams, roles, quarters, members:  organisation
  member_capacities, team_capacities: capacity per quarter, UNIQUE per pair
  tasks, task_role_capacities:       work items and per-role estimates
  plan_variants, task_variant_states: planning scenarios and per-variant state

VERSIONING:
  The store keeps an in-process write counter. Direct writes bump it when
  they succeed; a transaction bumps it once after commit. The Planner keys
  its cached view on it.

CONCURRENCY:
  Transactions are serialized with a mutex. SQLite is opened with WAL and
  a busy timeout so readers don't block the single writer.

MIGRATION:
  Schema is migrated on New() by golang-migrate from the embedded
  migrations/ directory.

USAGE:
  store, err := sqlite.New("./data/planner.db", sqlite.WithLogger(log))
  if err != nil {
      log.Fatal("open store", zap.Error(err))
  }
  defer store.Close()

  planner := planning.NewPlanner(store)

SEE ALSO:
  - planning/store.go: Interface definitions
  - planning/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/warp/capacity-planner/planning"
)

// Store implements planning.TxStore using SQLite.
type Store struct {
	*queries

	db      *sqlx.DB
	log     *zap.Logger
	mu      sync.Mutex
	version atomic.Uint64
}

var _ planning.TxStore = (*Store)(nil)

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.queries = &queries{ext: db, written: func() { s.version.Add(1) }, version: s.Version}

	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Version returns the number of committed writes since the store was opened.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// =============================================================================
// TRANSACTIONAL STORE (planning.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(planning.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	wrote := false
	txq := &queries{ext: tx, written: func() { wrote = true }, version: s.Version}
	if err := fn(txq); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	if wrote {
		s.version.Add(1)
	}
	return nil
}

// resetOrder lists tables children first so foreign keys hold while deleting.
var resetOrder = []string{
	"task_variant_states",
	"task_role_capacities",
	"tasks",
	"plan_variants",
	"team_capacities",
	"member_capacities",
	"members",
	"quarters",
	"roles",
	"teams",
}

// Reset removes all planning data. The schema is kept.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range resetOrder {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	s.version.Add(1)
	s.log.Info("store reset")
	return nil
}

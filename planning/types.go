/*
Package planning provides the quarterly capacity planning engine.

PURPOSE:
  Teams plan work per fiscal quarter. Each team member contributes capacity
  (effort-units per quarter), tasks carry estimates, and the engine reconciles
  the two: how much of a team's capacity the planned tasks consume, overall and
  per role, across several alternative plan variants.

KEY CONCEPTS IN THIS FILE (types.go):
  - Effort: decimal quantity of "person-sprints"
  - Team, Role, Quarter, Member: organisational structure
  - MemberCapacity / TeamCapacity: capacity records per quarter
  - Task / TaskRoleCapacity: work items and their per-role estimates
  - PlanVariant / TaskVariantState: named planning scenarios and per-variant task state

DESIGN PRINCIPLES:
  1. The engine holds no state of its own; everything derives from a Snapshot.
  2. Precision: effort uses decimal.Decimal, never float64.
  3. Type Safety: distinct ID types prevent mixing team/role/task ids.

SEE ALSO:
  - capacity.go: Capacity Aggregator
  - variant.go: Variant Resolver and task projection
  - drag.go: Drag-Reconciliation Engine
  - utilization.go: Utilization Reporter
  - planner.go: action handlers over a Store
*/
package planning

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// EFFORT - Quantity of person-sprints
// =============================================================================

// DefaultMemberCapacity is assigned to every new (member, quarter) pair.
var DefaultMemberCapacity = decimal.NewFromInt(2)

// Effort converts a float to a decimal effort value.
func Effort(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TeamID string
type RoleID string
type QuarterID string
type MemberID string
type TaskID string
type VariantID string

type MemberCapacityID string
type TeamCapacityID string
type TaskRoleCapacityID string
type VariantStateID string

// virtualSeparator joins a template task id and a variant id into a virtual id.
const virtualSeparator = "-variant-"

// VirtualTaskID returns the derived identity of a task projected into a variant
// that has no persisted row of its own.
func VirtualTaskID(base TaskID, variant VariantID) TaskID {
	return TaskID(string(base) + virtualSeparator + string(variant))
}

// SplitTaskID strips the virtual suffix, if any.
func SplitTaskID(id TaskID) (base TaskID, virtual bool) {
	b, _, found := strings.Cut(string(id), virtualSeparator)
	return TaskID(b), found
}

// =============================================================================
// ORGANISATION
// =============================================================================

type Team struct {
	ID    TeamID
	Name  string
	Color string
}

type Role struct {
	ID          RoleID
	Name        string
	Description string
	CreatedAt   time.Time
}

type Quarter struct {
	ID        QuarterID
	Name      string // e.g. "Q1'25"
	Year      int
	Number    int // 1-4
	CreatedAt time.Time
}

// StartDate is the first day of the quarter.
func (q Quarter) StartDate() time.Time {
	return time.Date(q.Year, time.Month((q.Number-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
}

// EndDate is the last day of the quarter.
func (q Quarter) EndDate() time.Time {
	return q.StartDate().AddDate(0, 3, -1)
}

// QuarterName formats the conventional short name, e.g. "Q3'25".
func QuarterName(year, number int) string {
	return fmt.Sprintf("Q%d'%02d", number, year%100)
}

type Member struct {
	ID        MemberID
	Name      string
	Email     string
	TeamID    TeamID
	RoleID    RoleID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// CAPACITY RECORDS
// =============================================================================

// MemberCapacity is the effort a member can contribute in one quarter.
// At most one record per (MemberID, QuarterID).
type MemberCapacity struct {
	ID        MemberCapacityID
	MemberID  MemberID
	QuarterID QuarterID
	Capacity  decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TeamCapacity is the legacy, manually entered team capacity.
// At most one record per (TeamID, QuarterID).
type TeamCapacity struct {
	ID        TeamCapacityID
	TeamID    TeamID
	QuarterID QuarterID
	Capacity  decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskRoleCapacity is the effort a task needs from one role.
// At most one record per (TaskID, RoleID).
type TaskRoleCapacity struct {
	ID        TaskRoleCapacityID
	TaskID    TaskID
	RoleID    RoleID
	Capacity  decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// PLANNING MODE & VARIANTS
// =============================================================================

// Mode selects one of the two parallel estimation strategies.
type Mode string

const (
	ModeExpress  Mode = "express"
	ModeDetailed Mode = "detailed"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeExpress, "":
		return ModeExpress, nil
	case ModeDetailed:
		return ModeDetailed, nil
	}
	return "", &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown planning mode %q", s)}
}

// IsExpress reports whether variants of this mode carry isExpress = true.
func (m Mode) IsExpress() bool { return m != ModeDetailed }

func ModeOf(isExpress bool) Mode {
	if isExpress {
		return ModeExpress
	}
	return ModeDetailed
}

// DefaultVariantName is used when a variant is provisioned implicitly.
const DefaultVariantName = "Основной"

type PlanVariant struct {
	ID        VariantID
	Name      string
	TeamID    TeamID
	QuarterID QuarterID
	IsExpress bool
	IsMain    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Scope identifies the variant group a variant belongs to.
func (v PlanVariant) Scope() Scope {
	return Scope{TeamID: v.TeamID, QuarterID: v.QuarterID, Mode: ModeOf(v.IsExpress)}
}

// Scope is a (team, quarter, mode) triple. Variants sharing a scope form a group.
type Scope struct {
	TeamID    TeamID
	QuarterID QuarterID
	Mode      Mode
}

// =============================================================================
// TASKS
// =============================================================================

type Task struct {
	ID              TaskID
	Title           string
	Description     string
	TeamID          TeamID
	QuarterID       *QuarterID
	PlanVariantID   *VariantID
	IsPlanned       bool
	Impact          int // 1-10
	Confidence      int // 1-10
	Ease            int // 1-10
	ExpressEstimate *decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ICEScore is Impact × Confidence × Ease.
func (t Task) ICEScore() int {
	return t.Impact * t.Confidence * t.Ease
}

// IsTemplate reports whether the row carries the task's variant-independent fields.
func (t Task) IsTemplate() bool {
	return t.PlanVariantID == nil
}

// ExpressValue returns the express estimate, treating unset as zero.
func (t Task) ExpressValue() decimal.Decimal {
	if t.ExpressEstimate == nil {
		return decimal.Zero
	}
	return *t.ExpressEstimate
}

// InQuarter reports whether the task is assigned to quarter q.
func (t Task) InQuarter(q QuarterID) bool {
	return t.QuarterID != nil && *t.QuarterID == q
}

// TaskVariantState is the planning state of one task within one variant.
// At most one record per (TaskID, VariantID).
type TaskVariantState struct {
	ID        VariantStateID
	TaskID    TaskID
	VariantID VariantID
	IsPlanned bool
	QuarterID *QuarterID
	UpdatedAt time.Time
}

// =============================================================================
// SNAPSHOT - Everything the engine reads
// =============================================================================

// Snapshot is a consistent read of all collections at one store version.
// Slices are in store order (creation order).
type Snapshot struct {
	Version            uint64
	Teams              []Team
	Roles              []Role
	Quarters           []Quarter
	Members            []Member
	MemberCapacities   []MemberCapacity
	TeamCapacities     []TeamCapacity
	Tasks              []Task
	TaskRoleCapacities []TaskRoleCapacity
	Variants           []PlanVariant
	VariantStates      []TaskVariantState
}

func (s *Snapshot) Team(id TeamID) (Team, bool) {
	for _, t := range s.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

func (s *Snapshot) Role(id RoleID) (Role, bool) {
	for _, r := range s.Roles {
		if r.ID == id {
			return r, true
		}
	}
	return Role{}, false
}

func (s *Snapshot) Quarter(id QuarterID) (Quarter, bool) {
	for _, q := range s.Quarters {
		if q.ID == id {
			return q, true
		}
	}
	return Quarter{}, false
}

func (s *Snapshot) Member(id MemberID) (Member, bool) {
	for _, m := range s.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

func (s *Snapshot) Task(id TaskID) (Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

func (s *Snapshot) Variant(id VariantID) (PlanVariant, bool) {
	for _, v := range s.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return PlanVariant{}, false
}

func ptr[T any](v T) *T { return &v }

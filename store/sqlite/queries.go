package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/capacity-planner/planning"
)

// queries implements planning.Store over a *sqlx.DB or a *sqlx.Tx.
type queries struct {
	ext     sqlx.ExtContext
	written func()
	version func() uint64
}

func (q *queries) Version() uint64 { return q.version() }

func now() time.Time { return time.Now().UTC() }

func newID() string { return uuid.NewString() }

// =============================================================================
// ROWS
// =============================================================================

type teamRow struct {
	ID    string `db:"id"`
	Name  string `db:"name"`
	Color string `db:"color"`
}

type roleRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

type quarterRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Year      int       `db:"year"`
	Number    int       `db:"quarter"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	CreatedAt time.Time `db:"created_at"`
}

type memberRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	TeamID    string    `db:"team_id"`
	RoleID    string    `db:"role_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// capacityRow serves all three capacity tables; Owner and Other are the
// pair the record is unique on.
type capacityRow struct {
	ID        string          `db:"id"`
	Owner     string          `db:"owner_id"`
	Other     string          `db:"other_id"`
	Capacity  decimal.Decimal `db:"capacity"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

type taskRow struct {
	ID              string              `db:"id"`
	Title           string              `db:"title"`
	Description     string              `db:"description"`
	TeamID          string              `db:"team_id"`
	QuarterID       sql.NullString      `db:"quarter_id"`
	PlanVariantID   sql.NullString      `db:"plan_variant_id"`
	IsPlanned       bool                `db:"is_planned"`
	Impact          int                 `db:"impact"`
	Confidence      int                 `db:"confidence"`
	Ease            int                 `db:"ease"`
	ExpressEstimate decimal.NullDecimal `db:"express_estimate"`
	CreatedAt       time.Time           `db:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at"`
}

type variantRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	TeamID    string    `db:"team_id"`
	QuarterID string    `db:"quarter_id"`
	IsExpress bool      `db:"is_express"`
	IsMain    bool      `db:"is_main"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type stateRow struct {
	ID        string         `db:"id"`
	TaskID    string         `db:"task_id"`
	VariantID string         `db:"variant_id"`
	IsPlanned bool           `db:"is_planned"`
	QuarterID sql.NullString `db:"quarter_id"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func nullID[T ~string](id *T) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*id), Valid: true}
}

func idPtr[T ~string](ns sql.NullString) *T {
	if !ns.Valid {
		return nil
	}
	id := T(ns.String)
	return &id
}

func toTaskRow(t planning.Task) taskRow {
	r := taskRow{
		ID:            string(t.ID),
		Title:         t.Title,
		Description:   t.Description,
		TeamID:        string(t.TeamID),
		QuarterID:     nullID(t.QuarterID),
		PlanVariantID: nullID(t.PlanVariantID),
		IsPlanned:     t.IsPlanned,
		Impact:        t.Impact,
		Confidence:    t.Confidence,
		Ease:          t.Ease,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if t.ExpressEstimate != nil {
		r.ExpressEstimate = decimal.NewNullDecimal(*t.ExpressEstimate)
	}
	return r
}

func (r taskRow) task() planning.Task {
	t := planning.Task{
		ID:            planning.TaskID(r.ID),
		Title:         r.Title,
		Description:   r.Description,
		TeamID:        planning.TeamID(r.TeamID),
		QuarterID:     idPtr[planning.QuarterID](r.QuarterID),
		PlanVariantID: idPtr[planning.VariantID](r.PlanVariantID),
		IsPlanned:     r.IsPlanned,
		Impact:        r.Impact,
		Confidence:    r.Confidence,
		Ease:          r.Ease,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.ExpressEstimate.Valid {
		est := r.ExpressEstimate.Decimal
		t.ExpressEstimate = &est
	}
	return t
}

func toVariantRow(v planning.PlanVariant) variantRow {
	return variantRow{
		ID:        string(v.ID),
		Name:      v.Name,
		TeamID:    string(v.TeamID),
		QuarterID: string(v.QuarterID),
		IsExpress: v.IsExpress,
		IsMain:    v.IsMain,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

func (r variantRow) variant() planning.PlanVariant {
	return planning.PlanVariant{
		ID:        planning.VariantID(r.ID),
		Name:      r.Name,
		TeamID:    planning.TeamID(r.TeamID),
		QuarterID: planning.QuarterID(r.QuarterID),
		IsExpress: r.IsExpress,
		IsMain:    r.IsMain,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r stateRow) state() planning.TaskVariantState {
	return planning.TaskVariantState{
		ID:        planning.VariantStateID(r.ID),
		TaskID:    planning.TaskID(r.TaskID),
		VariantID: planning.VariantID(r.VariantID),
		IsPlanned: r.IsPlanned,
		QuarterID: idPtr[planning.QuarterID](r.QuarterID),
		UpdatedAt: r.UpdatedAt,
	}
}

// =============================================================================
// LOAD
// =============================================================================

func selectAll[R, T any](ctx context.Context, q *queries, query string, conv func(R) T) ([]T, error) {
	var rows []R
	if err := sqlx.SelectContext(ctx, q.ext, &rows, query); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, conv(r))
	}
	return out, nil
}

// Load reads every collection in insertion order.
func (q *queries) Load(ctx context.Context) (*planning.Snapshot, error) {
	snap := &planning.Snapshot{Version: q.version()}
	var err error

	if snap.Teams, err = selectAll(ctx, q,
		`SELECT id, name, color FROM teams ORDER BY rowid`,
		func(r teamRow) planning.Team {
			return planning.Team{ID: planning.TeamID(r.ID), Name: r.Name, Color: r.Color}
		}); err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}

	if snap.Roles, err = selectAll(ctx, q,
		`SELECT id, name, description, created_at FROM roles ORDER BY rowid`,
		func(r roleRow) planning.Role {
			return planning.Role{ID: planning.RoleID(r.ID), Name: r.Name, Description: r.Description, CreatedAt: r.CreatedAt}
		}); err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	if snap.Quarters, err = selectAll(ctx, q,
		`SELECT id, name, year, quarter, start_date, end_date, created_at FROM quarters ORDER BY rowid`,
		func(r quarterRow) planning.Quarter {
			return planning.Quarter{ID: planning.QuarterID(r.ID), Name: r.Name, Year: r.Year, Number: r.Number, CreatedAt: r.CreatedAt}
		}); err != nil {
		return nil, fmt.Errorf("failed to load quarters: %w", err)
	}

	if snap.Members, err = selectAll(ctx, q,
		`SELECT id, name, email, team_id, role_id, created_at, updated_at FROM members ORDER BY rowid`,
		func(r memberRow) planning.Member {
			return planning.Member{
				ID:        planning.MemberID(r.ID),
				Name:      r.Name,
				Email:     r.Email,
				TeamID:    planning.TeamID(r.TeamID),
				RoleID:    planning.RoleID(r.RoleID),
				CreatedAt: r.CreatedAt,
				UpdatedAt: r.UpdatedAt,
			}
		}); err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	if snap.MemberCapacities, err = selectAll(ctx, q,
		`SELECT id, member_id AS owner_id, quarter_id AS other_id, capacity, created_at, updated_at
		 FROM member_capacities ORDER BY rowid`,
		capacityRow.memberCapacity); err != nil {
		return nil, fmt.Errorf("failed to load member capacities: %w", err)
	}

	if snap.TeamCapacities, err = selectAll(ctx, q,
		`SELECT id, team_id AS owner_id, quarter_id AS other_id, capacity, created_at, updated_at
		 FROM team_capacities ORDER BY rowid`,
		capacityRow.teamCapacity); err != nil {
		return nil, fmt.Errorf("failed to load team capacities: %w", err)
	}

	if snap.Tasks, err = selectAll(ctx, q,
		`SELECT id, title, description, team_id, quarter_id, plan_variant_id, is_planned,
		        impact, confidence, ease, express_estimate, created_at, updated_at
		 FROM tasks ORDER BY rowid`,
		taskRow.task); err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	if snap.TaskRoleCapacities, err = selectAll(ctx, q,
		`SELECT id, task_id AS owner_id, role_id AS other_id, capacity, created_at, updated_at
		 FROM task_role_capacities ORDER BY rowid`,
		capacityRow.taskRoleCapacity); err != nil {
		return nil, fmt.Errorf("failed to load task role capacities: %w", err)
	}

	if snap.Variants, err = selectAll(ctx, q,
		`SELECT id, name, team_id, quarter_id, is_express, is_main, created_at, updated_at
		 FROM plan_variants ORDER BY rowid`,
		variantRow.variant); err != nil {
		return nil, fmt.Errorf("failed to load plan variants: %w", err)
	}

	if snap.VariantStates, err = selectAll(ctx, q,
		`SELECT id, task_id, variant_id, is_planned, quarter_id, updated_at
		 FROM task_variant_states ORDER BY rowid`,
		stateRow.state); err != nil {
		return nil, fmt.Errorf("failed to load task variant states: %w", err)
	}

	return snap, nil
}

func (r capacityRow) memberCapacity() planning.MemberCapacity {
	return planning.MemberCapacity{
		ID:        planning.MemberCapacityID(r.ID),
		MemberID:  planning.MemberID(r.Owner),
		QuarterID: planning.QuarterID(r.Other),
		Capacity:  r.Capacity,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r capacityRow) teamCapacity() planning.TeamCapacity {
	return planning.TeamCapacity{
		ID:        planning.TeamCapacityID(r.ID),
		TeamID:    planning.TeamID(r.Owner),
		QuarterID: planning.QuarterID(r.Other),
		Capacity:  r.Capacity,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r capacityRow) taskRoleCapacity() planning.TaskRoleCapacity {
	return planning.TaskRoleCapacity{
		ID:        planning.TaskRoleCapacityID(r.ID),
		TaskID:    planning.TaskID(r.Owner),
		RoleID:    planning.RoleID(r.Other),
		Capacity:  r.Capacity,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// =============================================================================
// WRITE HELPERS
// =============================================================================

func (q *queries) insert(ctx context.Context, kind, query string, arg any) error {
	if _, err := sqlx.NamedExecContext(ctx, q.ext, query, arg); err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("insert %s: %w", kind, planning.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert %s: %w", kind, err)
	}
	q.written()
	return nil
}

// updateOne runs a named UPDATE and reports NotFoundError when no row matched.
func (q *queries) updateOne(ctx context.Context, kind, id, query string, arg any) error {
	res, err := sqlx.NamedExecContext(ctx, q.ext, query, arg)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", kind, err)
	}
	return q.affected(res, kind, id)
}

func (q *queries) deleteOne(ctx context.Context, kind, table, id string) error {
	res, err := q.ext.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	return q.affected(res, kind, id)
}

func (q *queries) affected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return &planning.NotFoundError{Kind: kind, ID: id}
	}
	q.written()
	return nil
}

// deleteIn removes rows by id. Unknown ids are ignored.
func deleteIn[ID ~string](ctx context.Context, q *queries, table string, ids []ID) error {
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = string(id)
	}
	query, args, err := sqlx.In("DELETE FROM "+table+" WHERE id IN (?)", strs)
	if err != nil {
		return fmt.Errorf("failed to build delete for %s: %w", table, err)
	}
	if _, err := q.ext.ExecContext(ctx, q.ext.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	q.written()
	return nil
}

// =============================================================================
// TEAMS, ROLES, QUARTERS, MEMBERS
// =============================================================================

func (q *queries) CreateTeam(ctx context.Context, t planning.Team) (planning.Team, error) {
	t.ID = planning.TeamID(newID())
	err := q.insert(ctx, "team",
		`INSERT INTO teams (id, name, color) VALUES (:id, :name, :color)`,
		teamRow{ID: string(t.ID), Name: t.Name, Color: t.Color})
	return t, err
}

func (q *queries) UpdateTeam(ctx context.Context, t planning.Team) (planning.Team, error) {
	err := q.updateOne(ctx, "team", string(t.ID),
		`UPDATE teams SET name = :name, color = :color WHERE id = :id`,
		teamRow{ID: string(t.ID), Name: t.Name, Color: t.Color})
	return t, err
}

func (q *queries) DeleteTeam(ctx context.Context, id planning.TeamID) error {
	return q.deleteOne(ctx, "team", "teams", string(id))
}

func (q *queries) CreateRole(ctx context.Context, r planning.Role) (planning.Role, error) {
	r.ID = planning.RoleID(newID())
	r.CreatedAt = now()
	err := q.insert(ctx, "role",
		`INSERT INTO roles (id, name, description, created_at) VALUES (:id, :name, :description, :created_at)`,
		roleRow{ID: string(r.ID), Name: r.Name, Description: r.Description, CreatedAt: r.CreatedAt})
	return r, err
}

func (q *queries) UpdateRole(ctx context.Context, r planning.Role) (planning.Role, error) {
	err := q.updateOne(ctx, "role", string(r.ID),
		`UPDATE roles SET name = :name, description = :description WHERE id = :id`,
		roleRow{ID: string(r.ID), Name: r.Name, Description: r.Description})
	return r, err
}

func (q *queries) DeleteRole(ctx context.Context, id planning.RoleID) error {
	return q.deleteOne(ctx, "role", "roles", string(id))
}

func toQuarterRow(qt planning.Quarter) quarterRow {
	return quarterRow{
		ID:        string(qt.ID),
		Name:      qt.Name,
		Year:      qt.Year,
		Number:    qt.Number,
		StartDate: qt.StartDate(),
		EndDate:   qt.EndDate(),
		CreatedAt: qt.CreatedAt,
	}
}

func (q *queries) CreateQuarter(ctx context.Context, qt planning.Quarter) (planning.Quarter, error) {
	qt.ID = planning.QuarterID(newID())
	qt.CreatedAt = now()
	err := q.insert(ctx, "quarter",
		`INSERT INTO quarters (id, name, year, quarter, start_date, end_date, created_at)
		 VALUES (:id, :name, :year, :quarter, :start_date, :end_date, :created_at)`,
		toQuarterRow(qt))
	return qt, err
}

func (q *queries) UpdateQuarter(ctx context.Context, qt planning.Quarter) (planning.Quarter, error) {
	err := q.updateOne(ctx, "quarter", string(qt.ID),
		`UPDATE quarters SET name = :name, year = :year, quarter = :quarter,
		        start_date = :start_date, end_date = :end_date
		 WHERE id = :id`,
		toQuarterRow(qt))
	return qt, err
}

func (q *queries) DeleteQuarter(ctx context.Context, id planning.QuarterID) error {
	return q.deleteOne(ctx, "quarter", "quarters", string(id))
}

func toMemberRow(m planning.Member) memberRow {
	return memberRow{
		ID:        string(m.ID),
		Name:      m.Name,
		Email:     m.Email,
		TeamID:    string(m.TeamID),
		RoleID:    string(m.RoleID),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (q *queries) CreateMember(ctx context.Context, m planning.Member) (planning.Member, error) {
	m.ID = planning.MemberID(newID())
	m.CreatedAt = now()
	m.UpdatedAt = m.CreatedAt
	err := q.insert(ctx, "member",
		`INSERT INTO members (id, name, email, team_id, role_id, created_at, updated_at)
		 VALUES (:id, :name, :email, :team_id, :role_id, :created_at, :updated_at)`,
		toMemberRow(m))
	return m, err
}

func (q *queries) UpdateMember(ctx context.Context, m planning.Member) (planning.Member, error) {
	m.UpdatedAt = now()
	err := q.updateOne(ctx, "member", string(m.ID),
		`UPDATE members SET name = :name, email = :email, team_id = :team_id,
		        role_id = :role_id, updated_at = :updated_at
		 WHERE id = :id`,
		toMemberRow(m))
	return m, err
}

func (q *queries) DeleteMember(ctx context.Context, id planning.MemberID) error {
	return q.deleteOne(ctx, "member", "members", string(id))
}

// =============================================================================
// TASKS & VARIANTS
// =============================================================================

func (q *queries) CreateTask(ctx context.Context, t planning.Task) (planning.Task, error) {
	t.ID = planning.TaskID(newID())
	t.CreatedAt = now()
	t.UpdatedAt = t.CreatedAt
	err := q.insert(ctx, "task",
		`INSERT INTO tasks (id, title, description, team_id, quarter_id, plan_variant_id, is_planned,
		                    impact, confidence, ease, express_estimate, created_at, updated_at)
		 VALUES (:id, :title, :description, :team_id, :quarter_id, :plan_variant_id, :is_planned,
		         :impact, :confidence, :ease, :express_estimate, :created_at, :updated_at)`,
		toTaskRow(t))
	return t, err
}

func (q *queries) UpdateTask(ctx context.Context, t planning.Task) (planning.Task, error) {
	t.UpdatedAt = now()
	err := q.updateOne(ctx, "task", string(t.ID),
		`UPDATE tasks SET title = :title, description = :description, team_id = :team_id,
		        quarter_id = :quarter_id, plan_variant_id = :plan_variant_id, is_planned = :is_planned,
		        impact = :impact, confidence = :confidence, ease = :ease,
		        express_estimate = :express_estimate, updated_at = :updated_at
		 WHERE id = :id`,
		toTaskRow(t))
	return t, err
}

func (q *queries) DeleteTasks(ctx context.Context, ids []planning.TaskID) error {
	return deleteIn(ctx, q, "tasks", ids)
}

func (q *queries) CreateVariant(ctx context.Context, v planning.PlanVariant) (planning.PlanVariant, error) {
	v.ID = planning.VariantID(newID())
	v.CreatedAt = now()
	v.UpdatedAt = v.CreatedAt
	err := q.insert(ctx, "plan variant",
		`INSERT INTO plan_variants (id, name, team_id, quarter_id, is_express, is_main, created_at, updated_at)
		 VALUES (:id, :name, :team_id, :quarter_id, :is_express, :is_main, :created_at, :updated_at)`,
		toVariantRow(v))
	return v, err
}

func (q *queries) UpdateVariant(ctx context.Context, v planning.PlanVariant) (planning.PlanVariant, error) {
	v.UpdatedAt = now()
	err := q.updateOne(ctx, "plan variant", string(v.ID),
		`UPDATE plan_variants SET name = :name, team_id = :team_id, quarter_id = :quarter_id,
		        is_express = :is_express, is_main = :is_main, updated_at = :updated_at
		 WHERE id = :id`,
		toVariantRow(v))
	return v, err
}

func (q *queries) DeleteVariant(ctx context.Context, id planning.VariantID) error {
	return q.deleteOne(ctx, "plan variant", "plan_variants", string(id))
}

// =============================================================================
// UPSERTS
// =============================================================================

// upsertCapacity writes one capacity record keyed on (owner, other) and reads
// it back.
func (q *queries) upsertCapacity(ctx context.Context, table, ownerCol, otherCol, owner, other string, capacity decimal.Decimal) (capacityRow, error) {
	ts := now()
	row := capacityRow{ID: newID(), Owner: owner, Other: other, Capacity: capacity, CreatedAt: ts, UpdatedAt: ts}

	query := fmt.Sprintf(`INSERT INTO %[1]s (id, %[2]s, %[3]s, capacity, created_at, updated_at)
		VALUES (:id, :owner_id, :other_id, :capacity, :created_at, :updated_at)
		ON CONFLICT (%[2]s, %[3]s) DO UPDATE SET capacity = excluded.capacity, updated_at = excluded.updated_at`,
		table, ownerCol, otherCol)
	if _, err := sqlx.NamedExecContext(ctx, q.ext, query, row); err != nil {
		return capacityRow{}, fmt.Errorf("failed to upsert %s: %w", table, err)
	}
	q.written()

	var stored capacityRow
	err := sqlx.GetContext(ctx, q.ext, &stored, fmt.Sprintf(
		`SELECT id, %[2]s AS owner_id, %[3]s AS other_id, capacity, created_at, updated_at
		 FROM %[1]s WHERE %[2]s = ? AND %[3]s = ?`, table, ownerCol, otherCol), owner, other)
	if err != nil {
		return capacityRow{}, fmt.Errorf("failed to read back %s: %w", table, err)
	}
	return stored, nil
}

func (q *queries) UpsertMemberCapacity(ctx context.Context, member planning.MemberID, quarter planning.QuarterID, capacity decimal.Decimal) (planning.MemberCapacity, error) {
	r, err := q.upsertCapacity(ctx, "member_capacities", "member_id", "quarter_id", string(member), string(quarter), capacity)
	if err != nil {
		return planning.MemberCapacity{}, err
	}
	return r.memberCapacity(), nil
}

func (q *queries) UpsertTeamCapacity(ctx context.Context, team planning.TeamID, quarter planning.QuarterID, capacity decimal.Decimal) (planning.TeamCapacity, error) {
	r, err := q.upsertCapacity(ctx, "team_capacities", "team_id", "quarter_id", string(team), string(quarter), capacity)
	if err != nil {
		return planning.TeamCapacity{}, err
	}
	return r.teamCapacity(), nil
}

func (q *queries) UpsertTaskRoleCapacity(ctx context.Context, task planning.TaskID, role planning.RoleID, capacity decimal.Decimal) (planning.TaskRoleCapacity, error) {
	r, err := q.upsertCapacity(ctx, "task_role_capacities", "task_id", "role_id", string(task), string(role), capacity)
	if err != nil {
		return planning.TaskRoleCapacity{}, err
	}
	return r.taskRoleCapacity(), nil
}

func (q *queries) UpsertVariantState(ctx context.Context, vs planning.TaskVariantState) (planning.TaskVariantState, error) {
	row := stateRow{
		ID:        newID(),
		TaskID:    string(vs.TaskID),
		VariantID: string(vs.VariantID),
		IsPlanned: vs.IsPlanned,
		QuarterID: nullID(vs.QuarterID),
		UpdatedAt: now(),
	}
	_, err := sqlx.NamedExecContext(ctx, q.ext,
		`INSERT INTO task_variant_states (id, task_id, variant_id, is_planned, quarter_id, updated_at)
		 VALUES (:id, :task_id, :variant_id, :is_planned, :quarter_id, :updated_at)
		 ON CONFLICT (task_id, variant_id) DO UPDATE SET
		     is_planned = excluded.is_planned,
		     quarter_id = excluded.quarter_id,
		     updated_at = excluded.updated_at`, row)
	if err != nil {
		return planning.TaskVariantState{}, fmt.Errorf("failed to upsert task variant state: %w", err)
	}
	q.written()

	var stored stateRow
	if err := sqlx.GetContext(ctx, q.ext, &stored,
		`SELECT id, task_id, variant_id, is_planned, quarter_id, updated_at
		 FROM task_variant_states WHERE task_id = ? AND variant_id = ?`,
		row.TaskID, row.VariantID); err != nil {
		return planning.TaskVariantState{}, fmt.Errorf("failed to read back task variant state: %w", err)
	}
	return stored.state(), nil
}

// =============================================================================
// BATCH DELETES
// =============================================================================

func (q *queries) DeleteMemberCapacities(ctx context.Context, ids []planning.MemberCapacityID) error {
	return deleteIn(ctx, q, "member_capacities", ids)
}

func (q *queries) DeleteTeamCapacities(ctx context.Context, ids []planning.TeamCapacityID) error {
	return deleteIn(ctx, q, "team_capacities", ids)
}

func (q *queries) DeleteTaskRoleCapacities(ctx context.Context, ids []planning.TaskRoleCapacityID) error {
	return deleteIn(ctx, q, "task_role_capacities", ids)
}

func (q *queries) DeleteVariantStates(ctx context.Context, ids []planning.VariantStateID) error {
	return deleteIn(ctx, q, "task_variant_states", ids)
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

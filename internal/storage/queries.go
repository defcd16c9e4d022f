package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"envelopes/internal/core"
)

// timeLayout is fixed width so that text comparison orders instants.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// timestamp stores a time.Time as UTC text; the zero time is stored as ''.
type timestamp time.Time

func (t timestamp) Value() (driver.Value, error) {
	tt := time.Time(t)
	if tt.IsZero() {
		return "", nil
	}
	return tt.UTC().Format(timeLayout), nil
}

func (t *timestamp) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
	if s == "" {
		*t = timestamp(time.Time{})
		return nil
	}
	parsed, err := time.Parse(timeLayout, s)
	if err != nil {
		return fmt.Errorf("scan timestamp: %w", err)
	}
	*t = timestamp(parsed)
	return nil
}

// optionalID stores uuid.Nil as ''.
type optionalID uuid.UUID

func (o optionalID) Value() (driver.Value, error) {
	if uuid.UUID(o) == uuid.Nil {
		return "", nil
	}
	return uuid.UUID(o).String(), nil
}

func (o *optionalID) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("scan id: unsupported type %T", src)
	}
	if s == "" {
		*o = optionalID(uuid.Nil)
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("scan id: %w", err)
	}
	*o = optionalID(id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

const entityColumns = "id, created_at, modified_at, deleted_at, hidden_at"

func entityDest(e *core.Entity) []any {
	return []any{
		&e.ID,
		(*timestamp)(&e.CreatedDateTime),
		(*timestamp)(&e.ModifiedDateTime),
		(*timestamp)(&e.DeletedDateTime),
		(*timestamp)(&e.HiddenDateTime),
	}
}

func entityArgs(e core.Entity) []any {
	return []any{
		e.ID,
		timestamp(e.CreatedDateTime),
		timestamp(e.ModifiedDateTime),
		timestamp(e.DeletedDateTime),
		timestamp(e.HiddenDateTime),
	}
}

// Queries wraps the statements of the ledger schema.
type Queries struct {
	db *sql.DB
}

func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

func list[T any](ctx context.Context, q *Queries, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func one[T any](ctx context.Context, q *Queries, scan func(scanner) (T, error), query string, args ...any) (T, error) {
	v, err := scan(q.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return v, core.ErrNotFound
	}
	return v, err
}

// exec runs a write and maps a missing row and unique violations to the ledger errors.
func (q *Queries) exec(ctx context.Context, query string, args ...any) error {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %v", core.ErrConflict, err)
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Accounts

const accountColumns = entityColumns + ", description, on_budget, notes"

func scanAccount(s scanner) (core.Account, error) {
	var a core.Account
	dest := append(entityDest(&a.Entity), &a.Description, &a.OnBudget, &a.Notes)
	return a, s.Scan(dest...)
}

func (q *Queries) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return list(ctx, q, scanAccount, "SELECT "+accountColumns+" FROM accounts ORDER BY created_at, id")
}

func (q *Queries) GetAccount(ctx context.Context, id uuid.UUID) (core.Account, error) {
	return one(ctx, q, scanAccount, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
}

func (q *Queries) InsertAccount(ctx context.Context, a core.Account) error {
	args := append(entityArgs(a.Entity), a.Description, a.OnBudget, a.Notes)
	return q.exec(ctx, "INSERT INTO accounts ("+accountColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)", args...)
}

func (q *Queries) UpdateAccount(ctx context.Context, a core.Account) error {
	return q.exec(ctx, `UPDATE accounts SET modified_at = ?, deleted_at = ?, hidden_at = ?,
		description = ?, on_budget = ?, notes = ? WHERE id = ?`,
		timestamp(a.ModifiedDateTime), timestamp(a.DeletedDateTime), timestamp(a.HiddenDateTime),
		a.Description, a.OnBudget, a.Notes, a.ID)
}

// Payees

const payeeColumns = entityColumns + ", description, notes"

func scanPayee(s scanner) (core.Payee, error) {
	var p core.Payee
	dest := append(entityDest(&p.Entity), &p.Description, &p.Notes)
	return p, s.Scan(dest...)
}

func (q *Queries) ListPayees(ctx context.Context) ([]core.Payee, error) {
	return list(ctx, q, scanPayee, "SELECT "+payeeColumns+" FROM payees ORDER BY created_at, id")
}

func (q *Queries) GetPayee(ctx context.Context, id uuid.UUID) (core.Payee, error) {
	return one(ctx, q, scanPayee, "SELECT "+payeeColumns+" FROM payees WHERE id = ?", id)
}

func (q *Queries) InsertPayee(ctx context.Context, p core.Payee) error {
	args := append(entityArgs(p.Entity), p.Description, p.Notes)
	return q.exec(ctx, "INSERT INTO payees ("+payeeColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)", args...)
}

func (q *Queries) UpdatePayee(ctx context.Context, p core.Payee) error {
	return q.exec(ctx, `UPDATE payees SET modified_at = ?, deleted_at = ?, hidden_at = ?,
		description = ?, notes = ? WHERE id = ?`,
		timestamp(p.ModifiedDateTime), timestamp(p.DeletedDateTime), timestamp(p.HiddenDateTime),
		p.Description, p.Notes, p.ID)
}

// Envelope groups

const groupColumns = entityColumns + ", description, notes"

func scanGroup(s scanner) (core.EnvelopeGroup, error) {
	var g core.EnvelopeGroup
	dest := append(entityDest(&g.Entity), &g.Description, &g.Notes)
	return g, s.Scan(dest...)
}

func (q *Queries) ListEnvelopeGroups(ctx context.Context) ([]core.EnvelopeGroup, error) {
	return list(ctx, q, scanGroup, "SELECT "+groupColumns+" FROM envelope_groups ORDER BY created_at, id")
}

func (q *Queries) GetEnvelopeGroup(ctx context.Context, id uuid.UUID) (core.EnvelopeGroup, error) {
	return one(ctx, q, scanGroup, "SELECT "+groupColumns+" FROM envelope_groups WHERE id = ?", id)
}

func (q *Queries) InsertEnvelopeGroup(ctx context.Context, g core.EnvelopeGroup) error {
	args := append(entityArgs(g.Entity), g.Description, g.Notes)
	return q.exec(ctx, "INSERT INTO envelope_groups ("+groupColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)", args...)
}

func (q *Queries) UpdateEnvelopeGroup(ctx context.Context, g core.EnvelopeGroup) error {
	return q.exec(ctx, `UPDATE envelope_groups SET modified_at = ?, deleted_at = ?, hidden_at = ?,
		description = ?, notes = ? WHERE id = ?`,
		timestamp(g.ModifiedDateTime), timestamp(g.DeletedDateTime), timestamp(g.HiddenDateTime),
		g.Description, g.Notes, g.ID)
}

// Envelopes

const envelopeColumns = entityColumns + ", description, notes, group_id, ignore_overspend"

func scanEnvelope(s scanner) (core.Envelope, error) {
	var e core.Envelope
	dest := append(entityDest(&e.Entity), &e.Description, &e.Notes, &e.Group.ID, &e.IgnoreOverspend)
	return e, s.Scan(dest...)
}

func (q *Queries) ListEnvelopes(ctx context.Context) ([]core.Envelope, error) {
	return list(ctx, q, scanEnvelope, "SELECT "+envelopeColumns+" FROM envelopes ORDER BY created_at, id")
}

func (q *Queries) GetEnvelope(ctx context.Context, id uuid.UUID) (core.Envelope, error) {
	return one(ctx, q, scanEnvelope, "SELECT "+envelopeColumns+" FROM envelopes WHERE id = ?", id)
}

func (q *Queries) InsertEnvelope(ctx context.Context, e core.Envelope) error {
	args := append(entityArgs(e.Entity), e.Description, e.Notes, e.Group.ID, e.IgnoreOverspend)
	return q.exec(ctx, "INSERT INTO envelopes ("+envelopeColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", args...)
}

func (q *Queries) UpdateEnvelope(ctx context.Context, e core.Envelope) error {
	return q.exec(ctx, `UPDATE envelopes SET modified_at = ?, deleted_at = ?, hidden_at = ?,
		description = ?, notes = ?, group_id = ?, ignore_overspend = ? WHERE id = ?`,
		timestamp(e.ModifiedDateTime), timestamp(e.DeletedDateTime), timestamp(e.HiddenDateTime),
		e.Description, e.Notes, e.Group.ID, e.IgnoreOverspend, e.ID)
}

// Schedules

const scheduleColumns = entityColumns + ", begin_date, end_date"

func scanSchedule(s scanner) (core.BudgetSchedule, error) {
	var sc core.BudgetSchedule
	dest := append(entityDest(&sc.Entity), (*timestamp)(&sc.BeginDate), (*timestamp)(&sc.EndDate))
	return sc, s.Scan(dest...)
}

func (q *Queries) ListSchedules(ctx context.Context) ([]core.BudgetSchedule, error) {
	return list(ctx, q, scanSchedule, "SELECT "+scheduleColumns+" FROM budget_schedules ORDER BY begin_date")
}

func (q *Queries) GetSchedule(ctx context.Context, id uuid.UUID) (core.BudgetSchedule, error) {
	return one(ctx, q, scanSchedule, "SELECT "+scheduleColumns+" FROM budget_schedules WHERE id = ?", id)
}

func (q *Queries) InsertSchedule(ctx context.Context, sc core.BudgetSchedule) error {
	args := append(entityArgs(sc.Entity), timestamp(sc.BeginDate), timestamp(sc.EndDate))
	return q.exec(ctx, "INSERT INTO budget_schedules ("+scheduleColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)", args...)
}

func (q *Queries) UpdateSchedule(ctx context.Context, sc core.BudgetSchedule) error {
	return q.exec(ctx, `UPDATE budget_schedules SET modified_at = ?, deleted_at = ?, hidden_at = ?,
		begin_date = ?, end_date = ? WHERE id = ?`,
		timestamp(sc.ModifiedDateTime), timestamp(sc.DeletedDateTime), timestamp(sc.HiddenDateTime),
		timestamp(sc.BeginDate), timestamp(sc.EndDate), sc.ID)
}

// Budgets

const budgetColumns = entityColumns + ", envelope_id, schedule_id, schedule_begin, amount, ignore_overspend"

func scanBudget(s scanner) (core.Budget, error) {
	var b core.Budget
	dest := append(entityDest(&b.Entity),
		&b.Envelope.ID, &b.Schedule.ID, (*timestamp)(&b.Schedule.BeginDate), &b.Amount, &b.IgnoreOverspend)
	return b, s.Scan(dest...)
}

func (q *Queries) ListBudgets(ctx context.Context, where string, args ...any) ([]core.Budget, error) {
	return list(ctx, q, scanBudget, "SELECT "+budgetColumns+" FROM budgets "+where+" ORDER BY schedule_begin, created_at, id", args...)
}

func (q *Queries) GetBudget(ctx context.Context, id uuid.UUID) (core.Budget, error) {
	return one(ctx, q, scanBudget, "SELECT "+budgetColumns+" FROM budgets WHERE id = ?", id)
}

func (q *Queries) InsertBudget(ctx context.Context, b core.Budget) error {
	args := append(entityArgs(b.Entity),
		b.Envelope.ID, b.Schedule.ID, timestamp(b.Schedule.BeginDate), b.Amount, b.IgnoreOverspend)
	return q.exec(ctx, "INSERT INTO budgets ("+budgetColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", args...)
}

func (q *Queries) UpdateBudget(ctx context.Context, b core.Budget) error {
	return q.exec(ctx, `UPDATE budgets SET modified_at = ?, deleted_at = ?, hidden_at = ?,
		envelope_id = ?, schedule_id = ?, schedule_begin = ?, amount = ?, ignore_overspend = ? WHERE id = ?`,
		timestamp(b.ModifiedDateTime), timestamp(b.DeletedDateTime), timestamp(b.HiddenDateTime),
		b.Envelope.ID, b.Schedule.ID, timestamp(b.Schedule.BeginDate), b.Amount, b.IgnoreOverspend, b.ID)
}

// Transactions

const transactionColumns = entityColumns +
	", amount, account_id, payee_id, envelope_id, service_date, posted, reconciled_at, notes, split_id"

func scanTransaction(s scanner) (core.Transaction, error) {
	var t core.Transaction
	dest := append(entityDest(&t.Entity),
		&t.Amount, &t.Account.ID, &t.Payee.ID, &t.Envelope.ID, (*timestamp)(&t.ServiceDate),
		&t.Posted, (*timestamp)(&t.ReconciledDateTime), &t.Notes, (*optionalID)(&t.SplitID))
	return t, s.Scan(dest...)
}

func (q *Queries) ListTransactions(ctx context.Context, where string, args ...any) ([]core.Transaction, error) {
	return list(ctx, q, scanTransaction, "SELECT "+transactionColumns+" FROM transactions "+where+" ORDER BY service_date, created_at, id", args...)
}

func (q *Queries) GetTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	return one(ctx, q, scanTransaction, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
}

func (q *Queries) InsertTransaction(ctx context.Context, t core.Transaction) error {
	args := append(entityArgs(t.Entity),
		t.Amount, t.Account.ID, t.Payee.ID, t.Envelope.ID, timestamp(t.ServiceDate),
		t.Posted, timestamp(t.ReconciledDateTime), t.Notes, optionalID(t.SplitID))
	return q.exec(ctx, "INSERT INTO transactions ("+transactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", args...)
}

func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	return q.exec(ctx, `UPDATE transactions SET modified_at = ?, deleted_at = ?, hidden_at = ?,
		amount = ?, account_id = ?, payee_id = ?, envelope_id = ?, service_date = ?,
		posted = ?, reconciled_at = ?, notes = ?, split_id = ? WHERE id = ?`,
		timestamp(t.ModifiedDateTime), timestamp(t.DeletedDateTime), timestamp(t.HiddenDateTime),
		t.Amount, t.Account.ID, t.Payee.ID, t.Envelope.ID, timestamp(t.ServiceDate),
		t.Posted, timestamp(t.ReconciledDateTime), t.Notes, optionalID(t.SplitID), t.ID)
}

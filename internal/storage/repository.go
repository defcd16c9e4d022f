package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"envelopes/internal/core"
	"envelopes/internal/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the durable ledger store. References are kept as IDs
// and resolved on every read.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// refs loads the reference tables in parallel.
func (r *SQLiteRepository) refs(ctx context.Context) (ledger.Refs, error) {
	var (
		accounts  []core.Account
		payees    []core.Payee
		groups    []core.EnvelopeGroup
		envelopes []core.Envelope
		schedules []core.BudgetSchedule
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		accounts, err = r.queries.ListAccounts(gctx)
		return err
	})
	g.Go(func() (err error) {
		payees, err = r.queries.ListPayees(gctx)
		return err
	})
	g.Go(func() (err error) {
		groups, err = r.queries.ListEnvelopeGroups(gctx)
		return err
	})
	g.Go(func() (err error) {
		envelopes, err = r.queries.ListEnvelopes(gctx)
		return err
	})
	g.Go(func() (err error) {
		schedules, err = r.queries.ListSchedules(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return ledger.Refs{}, fmt.Errorf("load references: %w", err)
	}

	refs := ledger.NewRefs()
	for _, a := range accounts {
		refs.Accounts[a.ID] = a
	}
	for _, p := range payees {
		refs.Payees[p.ID] = p
	}
	for _, eg := range groups {
		refs.Groups[eg.ID] = eg
	}
	for _, e := range envelopes {
		refs.Envelopes[e.ID] = e
	}
	for _, s := range schedules {
		refs.Schedules[s.ID] = s
	}
	return refs, nil
}

func wrap(op string, id uuid.UUID, err error) error {
	if err == nil {
		return nil
	}
	if id == uuid.Nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s %s: %w", op, id, err)
}

// Accounts

func (r *SQLiteRepository) Accounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx)
	return rows, wrap("list accounts", uuid.Nil, err)
}

func (r *SQLiteRepository) Account(ctx context.Context, id uuid.UUID) (core.Account, error) {
	a, err := r.queries.GetAccount(ctx, id)
	return a, wrap("get account", id, err)
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	if err := r.queries.InsertAccount(ctx, a); err != nil {
		return wrap("create account", a.ID, err)
	}
	slog.InfoContext(ctx, "Account saved to SQLite", "id", a.ID, "description", a.Description, "on_budget", a.OnBudget)
	return nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	return wrap("update account", a.ID, r.queries.UpdateAccount(ctx, a))
}

// Payees

func (r *SQLiteRepository) Payees(ctx context.Context) ([]core.Payee, error) {
	refs, err := r.refs(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.queries.ListPayees(ctx)
	if err != nil {
		return nil, wrap("list payees", uuid.Nil, err)
	}
	for i := range rows {
		rows[i] = refs.Payee(rows[i])
	}
	return rows, nil
}

func (r *SQLiteRepository) Payee(ctx context.Context, id uuid.UUID) (core.Payee, error) {
	p, err := r.queries.GetPayee(ctx, id)
	if err != nil {
		return p, wrap("get payee", id, err)
	}
	refs, err := r.refs(ctx)
	if err != nil {
		return p, err
	}
	return refs.Payee(p), nil
}

func (r *SQLiteRepository) CreatePayee(ctx context.Context, p core.Payee) error {
	return wrap("create payee", p.ID, r.queries.InsertPayee(ctx, p))
}

func (r *SQLiteRepository) UpdatePayee(ctx context.Context, p core.Payee) error {
	return wrap("update payee", p.ID, r.queries.UpdatePayee(ctx, p))
}

// Envelope groups

func (r *SQLiteRepository) EnvelopeGroups(ctx context.Context) ([]core.EnvelopeGroup, error) {
	rows, err := r.queries.ListEnvelopeGroups(ctx)
	return rows, wrap("list envelope groups", uuid.Nil, err)
}

func (r *SQLiteRepository) EnvelopeGroup(ctx context.Context, id uuid.UUID) (core.EnvelopeGroup, error) {
	if g, ok := core.WellKnownGroup(id); ok {
		return g, nil
	}
	g, err := r.queries.GetEnvelopeGroup(ctx, id)
	return g, wrap("get envelope group", id, err)
}

func (r *SQLiteRepository) CreateEnvelopeGroup(ctx context.Context, g core.EnvelopeGroup) error {
	return wrap("create envelope group", g.ID, r.queries.InsertEnvelopeGroup(ctx, g))
}

func (r *SQLiteRepository) UpdateEnvelopeGroup(ctx context.Context, g core.EnvelopeGroup) error {
	return wrap("update envelope group", g.ID, r.queries.UpdateEnvelopeGroup(ctx, g))
}

// Envelopes

func (r *SQLiteRepository) Envelopes(ctx context.Context) ([]core.Envelope, error) {
	refs, err := r.refs(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.queries.ListEnvelopes(ctx)
	if err != nil {
		return nil, wrap("list envelopes", uuid.Nil, err)
	}
	for i := range rows {
		rows[i] = refs.Envelope(rows[i])
	}
	return rows, nil
}

func (r *SQLiteRepository) Envelope(ctx context.Context, id uuid.UUID) (core.Envelope, error) {
	if e, ok := core.WellKnownEnvelope(id); ok {
		return e, nil
	}
	e, err := r.queries.GetEnvelope(ctx, id)
	if err != nil {
		return e, wrap("get envelope", id, err)
	}
	refs, err := r.refs(ctx)
	if err != nil {
		return e, err
	}
	return refs.Envelope(e), nil
}

func (r *SQLiteRepository) CreateEnvelope(ctx context.Context, e core.Envelope) error {
	return wrap("create envelope", e.ID, r.queries.InsertEnvelope(ctx, e))
}

func (r *SQLiteRepository) UpdateEnvelope(ctx context.Context, e core.Envelope) error {
	return wrap("update envelope", e.ID, r.queries.UpdateEnvelope(ctx, e))
}

// Schedules

func (r *SQLiteRepository) Schedules(ctx context.Context) ([]core.BudgetSchedule, error) {
	rows, err := r.queries.ListSchedules(ctx)
	return rows, wrap("list schedules", uuid.Nil, err)
}

func (r *SQLiteRepository) Schedule(ctx context.Context, id uuid.UUID) (core.BudgetSchedule, error) {
	s, err := r.queries.GetSchedule(ctx, id)
	return s, wrap("get schedule", id, err)
}

func (r *SQLiteRepository) CreateSchedule(ctx context.Context, s core.BudgetSchedule) error {
	return wrap("create schedule", s.ID, r.queries.InsertSchedule(ctx, s))
}

func (r *SQLiteRepository) UpdateSchedule(ctx context.Context, s core.BudgetSchedule) error {
	return wrap("update schedule", s.ID, r.queries.UpdateSchedule(ctx, s))
}

// Budgets

func (r *SQLiteRepository) listBudgets(ctx context.Context, op string, where string, args ...any) ([]core.Budget, error) {
	refs, err := r.refs(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.queries.ListBudgets(ctx, where, args...)
	if err != nil {
		return nil, wrap(op, uuid.Nil, err)
	}
	for i := range rows {
		rows[i] = refs.Budget(rows[i])
	}
	return rows, nil
}

func (r *SQLiteRepository) Budgets(ctx context.Context) ([]core.Budget, error) {
	return r.listBudgets(ctx, "list budgets", "")
}

func (r *SQLiteRepository) BudgetsForSchedule(ctx context.Context, scheduleID uuid.UUID) ([]core.Budget, error) {
	return r.listBudgets(ctx, "list budgets for schedule", "WHERE schedule_id = ?", scheduleID)
}

func (r *SQLiteRepository) BudgetsForEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]core.Budget, error) {
	return r.listBudgets(ctx, "list budgets for envelope", "WHERE envelope_id = ?", envelopeID)
}

func (r *SQLiteRepository) Budget(ctx context.Context, id uuid.UUID) (core.Budget, error) {
	b, err := r.queries.GetBudget(ctx, id)
	if err != nil {
		return b, wrap("get budget", id, err)
	}
	refs, err := r.refs(ctx)
	if err != nil {
		return b, err
	}
	return refs.Budget(b), nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) error {
	return wrap("create budget", b.ID, r.queries.InsertBudget(ctx, b))
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) error {
	return wrap("update budget", b.ID, r.queries.UpdateBudget(ctx, b))
}

// Transactions

func (r *SQLiteRepository) listTransactions(ctx context.Context, op string, where string, args ...any) ([]core.Transaction, error) {
	refs, err := r.refs(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.queries.ListTransactions(ctx, where, args...)
	if err != nil {
		return nil, wrap(op, uuid.Nil, err)
	}
	for i := range rows {
		rows[i] = refs.Transaction(rows[i])
	}
	return rows, nil
}

func (r *SQLiteRepository) Transactions(ctx context.Context) ([]core.Transaction, error) {
	return r.listTransactions(ctx, "list transactions", "")
}

func (r *SQLiteRepository) TransactionsForAccount(ctx context.Context, accountID uuid.UUID) ([]core.Transaction, error) {
	return r.listTransactions(ctx, "list transactions for account", "WHERE account_id = ?", accountID)
}

func (r *SQLiteRepository) TransactionsForPayee(ctx context.Context, payeeID uuid.UUID) ([]core.Transaction, error) {
	return r.listTransactions(ctx, "list transactions for payee", "WHERE payee_id = ?", payeeID)
}

func (r *SQLiteRepository) TransactionsForEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]core.Transaction, error) {
	return r.listTransactions(ctx, "list transactions for envelope", "WHERE envelope_id = ?", envelopeID)
}

func (r *SQLiteRepository) TransactionsForSplit(ctx context.Context, splitID uuid.UUID) ([]core.Transaction, error) {
	if splitID == uuid.Nil {
		return nil, nil
	}
	return r.listTransactions(ctx, "list transactions for split", "WHERE split_id = ?", optionalID(splitID))
}

func (r *SQLiteRepository) Transaction(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	t, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		return t, wrap("get transaction", id, err)
	}
	refs, err := r.refs(ctx)
	if err != nil {
		return t, err
	}
	return refs.Transaction(t), nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	if err := r.queries.InsertTransaction(ctx, t); err != nil {
		return wrap("create transaction", t.ID, err)
	}
	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"amount", t.Amount.String(),
		"account_id", t.Account.ID,
		"envelope_id", t.Envelope.ID)
	return nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	return wrap("update transaction", t.ID, r.queries.UpdateTransaction(ctx, t))
}

var _ ledger.Store = (*SQLiteRepository)(nil)

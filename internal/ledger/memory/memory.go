// Package memory is an in-process ledger store. It is safe for concurrent use
// and loses everything on restart.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"envelopes/internal/core"
	"envelopes/internal/ledger"
)

type table[T any] struct {
	rows  map[uuid.UUID]T
	order []uuid.UUID
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: map[uuid.UUID]T{}}
}

func (t *table[T]) create(kind string, id uuid.UUID, v T) error {
	if id == uuid.Nil {
		return core.NewValidationError(kind + " id is required")
	}
	if _, ok := t.rows[id]; ok {
		return fmt.Errorf("create %s %s: %w", kind, id, core.ErrConflict)
	}
	t.rows[id] = v
	t.order = append(t.order, id)
	return nil
}

func (t *table[T]) update(kind string, id uuid.UUID, v T) error {
	if _, ok := t.rows[id]; !ok {
		return fmt.Errorf("update %s %s: %w", kind, id, core.ErrNotFound)
	}
	t.rows[id] = v
	return nil
}

func (t *table[T]) get(kind string, id uuid.UUID) (T, error) {
	v, ok := t.rows[id]
	if !ok {
		return v, fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return v, nil
}

func (t *table[T]) all() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

type Store struct {
	mu           sync.RWMutex
	accounts     *table[core.Account]
	payees       *table[core.Payee]
	groups       *table[core.EnvelopeGroup]
	envelopes    *table[core.Envelope]
	schedules    *table[core.BudgetSchedule]
	budgets      *table[core.Budget]
	transactions *table[core.Transaction]
}

func New() *Store {
	return &Store{
		accounts:     newTable[core.Account](),
		payees:       newTable[core.Payee](),
		groups:       newTable[core.EnvelopeGroup](),
		envelopes:    newTable[core.Envelope](),
		schedules:    newTable[core.BudgetSchedule](),
		budgets:      newTable[core.Budget](),
		transactions: newTable[core.Transaction](),
	}
}

// NewFromFile returns a store seeded with envelope groups and envelopes read
// from path. Each line is "Group: Envelope"; blank lines and lines starting
// with # are skipped. A missing file yields an empty store.
func NewFromFile(path string) *Store {
	s := New()
	now := time.Now().UTC()
	groups := map[string]core.EnvelopeGroup{}
	for _, line := range readLines(path) {
		groupName, envelopeName, ok := strings.Cut(line, ":")
		groupName, envelopeName = strings.TrimSpace(groupName), strings.TrimSpace(envelopeName)
		if !ok || groupName == "" || envelopeName == "" {
			continue
		}
		g, seen := groups[groupName]
		if !seen {
			g = core.EnvelopeGroup{Description: groupName}
			g.Touch(now)
			groups[groupName] = g
			_ = s.groups.create("envelope group", g.ID, g)
		}
		e := core.Envelope{Description: envelopeName, Group: g}
		e.Touch(now)
		_ = s.envelopes.create("envelope", e.ID, e)
	}
	return s
}

func (s *Store) Close() error { return nil }

// refs must be called with s.mu held.
func (s *Store) refs() ledger.Refs {
	r := ledger.NewRefs()
	for id, v := range s.accounts.rows {
		r.Accounts[id] = v
	}
	for id, v := range s.payees.rows {
		r.Payees[id] = v
	}
	for id, v := range s.groups.rows {
		r.Groups[id] = v
	}
	for id, v := range s.envelopes.rows {
		r.Envelopes[id] = v
	}
	for id, v := range s.schedules.rows {
		r.Schedules[id] = v
	}
	return r
}

// Accounts

func (s *Store) Accounts(_ context.Context) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts.all(), nil
}

func (s *Store) Account(_ context.Context, id uuid.UUID) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts.get("account", id)
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts.create("account", a.ID, stripAccount(a))
}

func (s *Store) UpdateAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts.update("account", a.ID, stripAccount(a))
}

func stripAccount(a core.Account) core.Account {
	a.Balance, a.PostedBalance, a.Payment = decimal.Zero, decimal.Zero, decimal.Zero
	return a
}

// Payees

func (s *Store) Payees(_ context.Context) ([]core.Payee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.refs()
	rows := s.payees.all()
	for i := range rows {
		rows[i] = r.Payee(rows[i])
	}
	return rows, nil
}

func (s *Store) Payee(_ context.Context, id uuid.UUID) (core.Payee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := s.payees.get("payee", id)
	if err != nil {
		return p, err
	}
	return s.refs().Payee(p), nil
}

func (s *Store) CreatePayee(_ context.Context, p core.Payee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.IsAccount = false
	return s.payees.create("payee", p.ID, p)
}

func (s *Store) UpdatePayee(_ context.Context, p core.Payee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.IsAccount = false
	return s.payees.update("payee", p.ID, p)
}

// Envelope groups

func (s *Store) EnvelopeGroups(_ context.Context) ([]core.EnvelopeGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groups.all(), nil
}

func (s *Store) EnvelopeGroup(_ context.Context, id uuid.UUID) (core.EnvelopeGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if g, ok := core.WellKnownGroup(id); ok {
		return g, nil
	}
	return s.groups.get("envelope group", id)
}

func (s *Store) CreateEnvelopeGroup(_ context.Context, g core.EnvelopeGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups.create("envelope group", g.ID, g)
}

func (s *Store) UpdateEnvelopeGroup(_ context.Context, g core.EnvelopeGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups.update("envelope group", g.ID, g)
}

// Envelopes

func (s *Store) Envelopes(_ context.Context) ([]core.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.refs()
	rows := s.envelopes.all()
	for i := range rows {
		rows[i] = r.Envelope(rows[i])
	}
	return rows, nil
}

func (s *Store) Envelope(_ context.Context, id uuid.UUID) (core.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := core.WellKnownEnvelope(id); ok {
		return e, nil
	}
	e, err := s.envelopes.get("envelope", id)
	if err != nil {
		return e, err
	}
	return s.refs().Envelope(e), nil
}

func (s *Store) CreateEnvelope(_ context.Context, e core.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.envelopes.create("envelope", e.ID, e)
}

func (s *Store) UpdateEnvelope(_ context.Context, e core.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.envelopes.update("envelope", e.ID, e)
}

// Schedules

func (s *Store) Schedules(_ context.Context) ([]core.BudgetSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.schedules.all()
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].BeginDate.Before(rows[j].BeginDate) })
	return rows, nil
}

func (s *Store) Schedule(_ context.Context, id uuid.UUID) (core.BudgetSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schedules.get("schedule", id)
}

func (s *Store) CreateSchedule(_ context.Context, sc core.BudgetSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedules.create("schedule", sc.ID, stripSchedule(sc))
}

func (s *Store) UpdateSchedule(_ context.Context, sc core.BudgetSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedules.update("schedule", sc.ID, stripSchedule(sc))
}

func stripSchedule(sc core.BudgetSchedule) core.BudgetSchedule {
	return core.BudgetSchedule{Entity: sc.Entity, BeginDate: sc.BeginDate, EndDate: sc.EndDate}
}

// Budgets

func (s *Store) Budgets(_ context.Context) ([]core.Budget, error) {
	return s.selectBudgets(func(core.Budget) bool { return true }), nil
}

func (s *Store) Budget(_ context.Context, id uuid.UUID) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, err := s.budgets.get("budget", id)
	if err != nil {
		return b, err
	}
	return s.refs().Budget(b), nil
}

func (s *Store) BudgetsForSchedule(_ context.Context, scheduleID uuid.UUID) ([]core.Budget, error) {
	return s.selectBudgets(func(b core.Budget) bool { return b.Schedule.ID == scheduleID }), nil
}

func (s *Store) BudgetsForEnvelope(_ context.Context, envelopeID uuid.UUID) ([]core.Budget, error) {
	return s.selectBudgets(func(b core.Budget) bool { return b.Envelope.ID == envelopeID }), nil
}

func (s *Store) selectBudgets(keep func(core.Budget) bool) []core.Budget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.refs()
	var out []core.Budget
	for _, b := range s.budgets.all() {
		if keep(b) {
			out = append(out, r.Budget(b))
		}
	}
	return out
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUniqueBudget(b); err != nil {
		return err
	}
	return s.budgets.create("budget", b.ID, stripBudget(b))
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUniqueBudget(b); err != nil {
		return err
	}
	return s.budgets.update("budget", b.ID, stripBudget(b))
}

func (s *Store) checkUniqueBudget(b core.Budget) error {
	if b.IsDeleted() {
		return nil
	}
	for _, other := range s.budgets.rows {
		if other.ID != b.ID && !other.IsDeleted() &&
			other.Envelope.ID == b.Envelope.ID && other.Schedule.ID == b.Schedule.ID {
			return fmt.Errorf("budget for envelope %s in schedule %s: %w", b.Envelope.ID, b.Schedule.ID, core.ErrConflict)
		}
	}
	return nil
}

func stripBudget(b core.Budget) core.Budget {
	return core.Budget{
		Entity:          b.Entity,
		Envelope:        core.Envelope{Entity: core.Entity{ID: b.Envelope.ID}},
		Schedule:        core.BudgetSchedule{Entity: core.Entity{ID: b.Schedule.ID}, BeginDate: b.Schedule.BeginDate},
		Amount:          b.Amount,
		IgnoreOverspend: b.IgnoreOverspend,
	}
}

// Transactions

func (s *Store) Transactions(_ context.Context) ([]core.Transaction, error) {
	return s.selectTransactions(func(core.Transaction) bool { return true }), nil
}

func (s *Store) Transaction(_ context.Context, id uuid.UUID) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.transactions.get("transaction", id)
	if err != nil {
		return t, err
	}
	return s.refs().Transaction(t), nil
}

func (s *Store) TransactionsForAccount(_ context.Context, accountID uuid.UUID) ([]core.Transaction, error) {
	return s.selectTransactions(func(t core.Transaction) bool { return t.Account.ID == accountID }), nil
}

func (s *Store) TransactionsForPayee(_ context.Context, payeeID uuid.UUID) ([]core.Transaction, error) {
	return s.selectTransactions(func(t core.Transaction) bool { return t.Payee.ID == payeeID }), nil
}

func (s *Store) TransactionsForEnvelope(_ context.Context, envelopeID uuid.UUID) ([]core.Transaction, error) {
	return s.selectTransactions(func(t core.Transaction) bool { return t.Envelope.ID == envelopeID }), nil
}

func (s *Store) TransactionsForSplit(_ context.Context, splitID uuid.UUID) ([]core.Transaction, error) {
	if splitID == uuid.Nil {
		return nil, nil
	}
	return s.selectTransactions(func(t core.Transaction) bool { return t.SplitID == splitID }), nil
}

// selectTransactions returns matching rows ordered by service date, then creation.
func (s *Store) selectTransactions(keep func(core.Transaction) bool) []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.refs()
	var out []core.Transaction
	for _, t := range s.transactions.all() {
		if keep(t) {
			out = append(out, r.Transaction(t))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ServiceDate.Equal(out[j].ServiceDate) {
			return out[i].ServiceDate.Before(out[j].ServiceDate)
		}
		return out[i].CreatedDateTime.Before(out[j].CreatedDateTime)
	})
	return out
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactions.create("transaction", t.ID, t)
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactions.update("transaction", t.ID, t)
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

var _ ledger.Store = (*Store)(nil)

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"envelopes/internal/amqp"
	"envelopes/internal/core"
	"envelopes/internal/engine"
)

// GetAccounts returns the accounts visible under intent with their balances
// and the debt payment due in the month containing date.
func (s *LedgerService) GetAccounts(ctx context.Context, date time.Time, intent core.FilterIntent) ([]core.Account, error) {
	accounts, err := s.store.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	txs, err := s.store.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	report, err := s.PopulateMonth(ctx, date)
	if err != nil {
		return nil, err
	}

	debts := make(map[uuid.UUID]core.Budget, len(report.Budgets))
	for _, b := range report.Budgets {
		if b.Envelope.IsDebt() {
			debts[b.Envelope.ID] = b
		}
	}

	out := make([]core.Account, 0, len(accounts))
	for _, a := range core.Filter(accounts, intent) {
		out = append(out, engine.PopulateAccount(a, txs, debts[a.ID]))
	}
	return out, nil
}

// CreateAccount stores a new account with its payee, its debt envelope and a
// posted starting-balance transaction dated date. The steps run in that order
// and stop at the first failure.
func (s *LedgerService) CreateAccount(ctx context.Context, account core.Account, startingBalance decimal.Decimal, date time.Time) (core.Account, error) {
	if !account.IsNew() {
		return account, fmt.Errorf("create account: %w", core.NewValidationError("account already exists"))
	}
	if err := account.Validate(); err != nil {
		return account, fmt.Errorf("create account: %w", err)
	}
	now := s.now()

	account.Touch(now)
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return account, fmt.Errorf("create account: %w", err)
	}

	payee := core.PayeeFor(account)
	payee.Touch(now)
	if err := s.store.CreatePayee(ctx, payee); err != nil {
		return account, fmt.Errorf("create account payee: %w", err)
	}

	debt := core.DebtEnvelopeFor(account)
	debt.Touch(now)
	if err := s.store.CreateEnvelope(ctx, debt); err != nil {
		return account, fmt.Errorf("create debt envelope: %w", err)
	}

	opening := core.Transaction{
		Amount:      startingBalance,
		Account:     account,
		Payee:       core.StartingBalancePayee(),
		Envelope:    openingEnvelope(account, startingBalance),
		ServiceDate: date.UTC(),
		Posted:      true,
	}
	opening.Touch(now)
	if err := s.store.CreateTransaction(ctx, opening); err != nil {
		return account, fmt.Errorf("create starting balance: %w", err)
	}

	slog.InfoContext(ctx, "Created account",
		"id", account.ID,
		"on_budget", account.OnBudget,
		"starting_balance", startingBalance.String())
	s.changed(ctx, amqp.EventAccount, account.ID, opening.ServiceDate)

	account.Balance, account.PostedBalance = startingBalance, startingBalance
	return account, nil
}

// openingEnvelope picks where a starting balance lands: off-budget money is
// ignored, debt goes to the account's own debt envelope and the rest is income.
func openingEnvelope(account core.Account, balance decimal.Decimal) core.Envelope {
	switch {
	case !account.OnBudget:
		return core.IgnoredEnvelope()
	case balance.IsNegative():
		return core.DebtEnvelopeFor(account)
	default:
		return core.IncomeEnvelope()
	}
}

// UpdateAccount renames or re-flags an account and keeps its payee and debt
// envelope descriptions in step.
func (s *LedgerService) UpdateAccount(ctx context.Context, account core.Account) (core.Account, error) {
	stored, err := s.activeAccount(ctx, account.ID)
	if err != nil {
		return account, err
	}
	if err := account.Validate(); err != nil {
		return account, fmt.Errorf("update account: %w", err)
	}
	account.Entity = stored.Entity
	account.Touch(s.now())
	if err := s.store.UpdateAccount(ctx, account); err != nil {
		return account, fmt.Errorf("update account: %w", err)
	}

	if stored.Description != account.Description {
		if err := s.renameOwned(ctx, account); err != nil {
			return account, err
		}
	}
	s.changed(ctx, amqp.EventAccount, account.ID, s.now())
	return account, nil
}

func (s *LedgerService) renameOwned(ctx context.Context, account core.Account) error {
	p, err := s.store.Payee(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("get account payee: %w", err)
	}
	p.Description = account.Description
	p.Touch(s.now())
	if err := s.store.UpdatePayee(ctx, p); err != nil {
		return fmt.Errorf("rename account payee: %w", err)
	}

	e, err := s.store.Envelope(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("get debt envelope: %w", err)
	}
	e.Description = account.Description
	e.Touch(s.now())
	if err := s.store.UpdateEnvelope(ctx, e); err != nil {
		return fmt.Errorf("rename debt envelope: %w", err)
	}
	return nil
}

// DeleteAccount soft-deletes an account with its payee and debt envelope. An
// account that still has active transactions cannot be deleted.
func (s *LedgerService) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	account, err := s.activeAccount(ctx, id)
	if err != nil {
		return err
	}
	txs, err := s.accountTransactions(ctx, id)
	if err != nil {
		return err
	}
	for _, t := range txs {
		if t.IsActive() {
			return fmt.Errorf("delete account %s: account has active transactions: %w", id, core.ErrConflict)
		}
	}

	now := s.now()
	account.DeletedDateTime = now
	account.Touch(now)
	if err := s.store.UpdateAccount(ctx, account); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if p, err := s.store.Payee(ctx, id); err == nil {
		p.DeletedDateTime = now
		p.Touch(now)
		if err := s.store.UpdatePayee(ctx, p); err != nil {
			return fmt.Errorf("delete account payee: %w", err)
		}
	} else if !isNotFound(err) {
		return fmt.Errorf("get account payee: %w", err)
	}

	if e, err := s.store.Envelope(ctx, id); err == nil {
		e.DeletedDateTime = now
		e.Touch(now)
		if err := s.store.UpdateEnvelope(ctx, e); err != nil {
			return fmt.Errorf("delete debt envelope: %w", err)
		}
	} else if !isNotFound(err) {
		return fmt.Errorf("get debt envelope: %w", err)
	}

	s.changed(ctx, amqp.EventAccount, id, now)
	return nil
}

// ReconcileAccount checks the posted balance of an account through date
// against the statement balance and, when they agree, marks every posted
// transaction up to date as reconciled.
func (s *LedgerService) ReconcileAccount(ctx context.Context, id uuid.UUID, date time.Time, statement decimal.Decimal) (core.Account, error) {
	account, err := s.activeAccount(ctx, id)
	if err != nil {
		return account, err
	}
	txs, err := s.accountTransactions(ctx, id)
	if err != nil {
		return account, err
	}

	through := date.UTC()
	posted := engine.PostedBalanceAt(account, txs, through)
	if !posted.Equal(statement) {
		return account, fmt.Errorf("reconcile account %s: posted balance %s does not match %s: %w",
			id, core.FormatAmount(posted), core.FormatAmount(statement), core.ErrConflict)
	}

	now := s.now()
	reconciled := 0
	for _, t := range txs {
		if !t.IsActive() || !t.Posted || t.IsReconciled() || t.ServiceDate.After(through) {
			continue
		}
		t.ReconciledDateTime = now
		t.Touch(now)
		if err := s.store.UpdateTransaction(ctx, t); err != nil {
			return account, fmt.Errorf("reconcile transaction %s: %w", t.ID, err)
		}
		reconciled++
	}

	slog.InfoContext(ctx, "Reconciled account",
		"id", id,
		"through", through.Format(time.DateOnly),
		"transactions", reconciled)
	s.changed(ctx, amqp.EventAccount, id, through)
	return engine.PopulateAccount(account, txs, core.Budget{}), nil
}

func (s *LedgerService) activeAccount(ctx context.Context, id uuid.UUID) (core.Account, error) {
	a, err := s.store.Account(ctx, id)
	if err != nil {
		return a, fmt.Errorf("get account: %w", err)
	}
	if a.IsDeleted() {
		return a, fmt.Errorf("get account %s: %w", id, core.ErrNotFound)
	}
	return a, nil
}

// accountTransactions returns the transactions owned by the account and the
// transfers that name it as payee.
func (s *LedgerService) accountTransactions(ctx context.Context, id uuid.UUID) ([]core.Transaction, error) {
	owned, err := s.store.TransactionsForAccount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list account transactions: %w", err)
	}
	incoming, err := s.store.TransactionsForPayee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list account transfers: %w", err)
	}
	return append(owned, incoming...), nil
}

// Package ledger defines the data-access ports of the budget engine.
//
// Stores persist references between entities by ID only; nested values
// returned from reads are resolved through Refs, so a renamed account shows its
// new description everywhere. Nothing is ever physically deleted: updates carry
// the soft-delete and hidden timestamps.
package ledger

import (
	"context"

	"github.com/google/uuid"

	"envelopes/internal/core"
)

type (
	AccountStore interface {
		Accounts(ctx context.Context) ([]core.Account, error)
		Account(ctx context.Context, id uuid.UUID) (core.Account, error)
		CreateAccount(ctx context.Context, a core.Account) error
		UpdateAccount(ctx context.Context, a core.Account) error
	}

	PayeeStore interface {
		Payees(ctx context.Context) ([]core.Payee, error)
		Payee(ctx context.Context, id uuid.UUID) (core.Payee, error)
		CreatePayee(ctx context.Context, p core.Payee) error
		UpdatePayee(ctx context.Context, p core.Payee) error
	}

	EnvelopeGroupStore interface {
		EnvelopeGroups(ctx context.Context) ([]core.EnvelopeGroup, error)
		EnvelopeGroup(ctx context.Context, id uuid.UUID) (core.EnvelopeGroup, error)
		CreateEnvelopeGroup(ctx context.Context, g core.EnvelopeGroup) error
		UpdateEnvelopeGroup(ctx context.Context, g core.EnvelopeGroup) error
	}

	EnvelopeStore interface {
		Envelopes(ctx context.Context) ([]core.Envelope, error)
		Envelope(ctx context.Context, id uuid.UUID) (core.Envelope, error)
		CreateEnvelope(ctx context.Context, e core.Envelope) error
		UpdateEnvelope(ctx context.Context, e core.Envelope) error
	}

	ScheduleStore interface {
		Schedules(ctx context.Context) ([]core.BudgetSchedule, error)
		Schedule(ctx context.Context, id uuid.UUID) (core.BudgetSchedule, error)
		CreateSchedule(ctx context.Context, s core.BudgetSchedule) error
		UpdateSchedule(ctx context.Context, s core.BudgetSchedule) error
	}

	// BudgetStore keeps at most one live budget per (envelope, schedule) pair;
	// CreateBudget fails with core.ErrConflict on a duplicate.
	BudgetStore interface {
		Budgets(ctx context.Context) ([]core.Budget, error)
		Budget(ctx context.Context, id uuid.UUID) (core.Budget, error)
		BudgetsForSchedule(ctx context.Context, scheduleID uuid.UUID) ([]core.Budget, error)
		BudgetsForEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]core.Budget, error)
		CreateBudget(ctx context.Context, b core.Budget) error
		UpdateBudget(ctx context.Context, b core.Budget) error
	}

	TransactionStore interface {
		Transactions(ctx context.Context) ([]core.Transaction, error)
		Transaction(ctx context.Context, id uuid.UUID) (core.Transaction, error)
		TransactionsForAccount(ctx context.Context, accountID uuid.UUID) ([]core.Transaction, error)
		TransactionsForPayee(ctx context.Context, payeeID uuid.UUID) ([]core.Transaction, error)
		TransactionsForEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]core.Transaction, error)
		TransactionsForSplit(ctx context.Context, splitID uuid.UUID) ([]core.Transaction, error)
		CreateTransaction(ctx context.Context, t core.Transaction) error
		UpdateTransaction(ctx context.Context, t core.Transaction) error
	}

	// Store is the full ledger read/write surface.
	Store interface {
		AccountStore
		PayeeStore
		EnvelopeGroupStore
		EnvelopeStore
		ScheduleStore
		BudgetStore
		TransactionStore
		Close() error
	}
)

package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"envelopes/internal/amqp"
	"envelopes/internal/core"
	"envelopes/internal/engine"
)

// TransactionQuery narrows a transaction listing. Zero IDs match everything.
type TransactionQuery struct {
	AccountID  uuid.UUID
	EnvelopeID uuid.UUID
	Intent     core.FilterIntent
	Text       string
}

// GetTransactions lists matching transactions with split groups combined into
// one row each.
func (s *LedgerService) GetTransactions(ctx context.Context, q TransactionQuery) ([]core.Transaction, error) {
	var (
		txs []core.Transaction
		err error
	)
	switch {
	case q.AccountID != uuid.Nil:
		txs, err = s.accountTransactions(ctx, q.AccountID)
	case q.EnvelopeID != uuid.Nil:
		txs, err = s.store.TransactionsForEnvelope(ctx, q.EnvelopeID)
	default:
		txs, err = s.store.Transactions(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	txs = core.Filter(txs, q.Intent)
	if q.Text != "" {
		txs = core.Search(txs, q.Text)
	}
	return engine.Combine(txs), nil
}

// SaveTransaction classifies, validates and stores one transaction.
func (s *LedgerService) SaveTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	classifier, err := s.classifier(ctx)
	if err != nil {
		return t, err
	}
	t, err = s.saveTransaction(ctx, classifier, t)
	if err != nil {
		return t, err
	}
	s.changed(ctx, amqp.EventTransaction, t.ID, t.ServiceDate)
	return t, nil
}

// SaveSplitTransaction stores the members of one split in order under a shared
// SplitID. Members saved before a failing one stay saved.
func (s *LedgerService) SaveSplitTransaction(ctx context.Context, members []core.Transaction) ([]core.Transaction, error) {
	if len(members) < 2 {
		return nil, fmt.Errorf("save split: %w", core.NewValidationError("a split needs at least two transactions"))
	}

	splitID := uuid.Nil
	for _, m := range members {
		if m.IsSplit() {
			splitID = m.SplitID
			break
		}
	}
	if splitID == uuid.Nil {
		splitID = uuid.New()
	}

	classifier, err := s.classifier(ctx)
	if err != nil {
		return nil, err
	}
	saved := make([]core.Transaction, 0, len(members))
	for i, m := range members {
		m.SplitID = splitID
		tx, err := s.saveTransaction(ctx, classifier, m)
		if err != nil {
			return saved, fmt.Errorf("save split member %d: %w", i+1, err)
		}
		saved = append(saved, tx)
	}

	slog.InfoContext(ctx, "Saved split transaction", "split_id", splitID, "members", len(saved))
	s.changed(ctx, amqp.EventTransaction, splitID, saved[0].ServiceDate)
	return saved, nil
}

// DeleteTransaction soft-deletes a transaction. The last remaining sibling of
// a split is turned back into a plain transaction.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	t, err := s.store.Transaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	if t.IsDeleted() {
		return fmt.Errorf("get transaction %s: %w", id, core.ErrNotFound)
	}

	var siblings []core.Transaction
	if t.IsSplit() {
		siblings, err = s.store.TransactionsForSplit(ctx, t.SplitID)
		if err != nil {
			return fmt.Errorf("list split members: %w", err)
		}
	}

	for _, u := range engine.PlanSplitDeletion(t, siblings, s.now()) {
		if err := s.store.UpdateTransaction(ctx, u); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
	}
	s.changed(ctx, amqp.EventTransaction, t.ID, t.ServiceDate)
	return nil
}

func (s *LedgerService) classifier(ctx context.Context) (*engine.Classifier, error) {
	accounts, err := s.store.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return engine.NewClassifier(accounts), nil
}

func (s *LedgerService) saveTransaction(ctx context.Context, classifier *engine.Classifier, t core.Transaction) (core.Transaction, error) {
	if err := s.resolveTransaction(ctx, &t); err != nil {
		return t, err
	}
	t.ServiceDate = t.ServiceDate.UTC()

	t, err := classifier.Classify(t)
	if err != nil {
		return t, fmt.Errorf("classify transaction: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("save transaction: %w", err)
	}

	isNew := t.IsNew()
	t.Touch(s.now())
	if err := upsert(ctx, isNew, t, s.store.CreateTransaction, s.store.UpdateTransaction); err != nil {
		return t, fmt.Errorf("save transaction: %w", err)
	}
	return t, nil
}

// resolveTransaction replaces the references of t with their stored rows so
// classification sees the real budget flags.
func (s *LedgerService) resolveTransaction(ctx context.Context, t *core.Transaction) error {
	v := &core.ValidationError{}

	if t.Account.ID != uuid.Nil {
		a, err := s.store.Account(ctx, t.Account.ID)
		switch {
		case err == nil:
			t.Account = a
		case isNotFound(err):
			v.Add("account does not exist")
		default:
			return fmt.Errorf("get account: %w", err)
		}
	}

	switch {
	case t.Payee.ID == core.StartingBalancePayeeID:
		t.Payee = core.StartingBalancePayee()
	case t.Payee.ID != uuid.Nil:
		p, err := s.store.Payee(ctx, t.Payee.ID)
		switch {
		case err == nil:
			t.Payee = p
		case isNotFound(err):
			v.Add("payee does not exist")
		default:
			return fmt.Errorf("get payee: %w", err)
		}
	}

	if t.Envelope.ID != uuid.Nil {
		e, err := s.store.Envelope(ctx, t.Envelope.ID)
		switch {
		case err == nil:
			t.Envelope = engine.PopulateEnvelope(e)
		case isNotFound(err):
			v.Add("envelope does not exist")
		default:
			return fmt.Errorf("get envelope: %w", err)
		}
	}

	if err := v.OrNil(); err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}
	return nil
}

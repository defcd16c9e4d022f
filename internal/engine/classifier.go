package engine

import (
	"github.com/google/uuid"

	"envelopes/internal/core"
)

// Classifier repairs the account, payee and envelope relationships of a
// transaction before it is saved. Classify is idempotent.
type Classifier struct {
	accounts map[uuid.UUID]core.Account
}

func NewClassifier(accounts []core.Account) *Classifier {
	c := &Classifier{accounts: make(map[uuid.UUID]core.Account, len(accounts))}
	for _, a := range accounts {
		c.accounts[a.ID] = a
	}
	return c
}

// Classify applies the transfer, envelope and debt rules in order:
//
//   - a transfer from an off-budget account to an on-budget one is stored from
//     the on-budget side, with the amount negated;
//   - transfers between accounts of the same budget type and off-budget
//     spending carry the Ignored envelope, while any other transaction left on
//     Ignored has its envelope cleared so it must be chosen again;
//   - the Generic Debt envelope is replaced by the debt envelope of the account.
func (c *Classifier) Classify(t core.Transaction) (core.Transaction, error) {
	if a, ok := c.accounts[t.Account.ID]; ok {
		t.Account = a
	}

	var destination core.Account
	if t.IsTransfer() {
		dest, ok := c.accounts[t.Payee.ID]
		if !ok {
			return t, core.NewValidationError("transfer account does not exist")
		}
		if !t.Account.OnBudget && dest.OnBudget {
			source := t.Account
			t.Account = dest
			t.Payee = core.PayeeFor(source)
			t.Amount = t.Amount.Neg()
			dest = source
		}
		destination = dest
	}

	if !envelopeNeeded(t, destination) {
		t.Envelope = core.IgnoredEnvelope()
		return t, nil
	}
	if t.Envelope.ID == core.IgnoredEnvelopeID {
		t.Envelope = core.Envelope{}
	}
	if t.Envelope.IsGenericDebt() {
		t.Envelope = core.DebtEnvelopeFor(t.Account)
	}
	return t, nil
}

// envelopeNeeded reports whether the transaction moves money in or out of the budget.
func envelopeNeeded(t core.Transaction, destination core.Account) bool {
	if t.IsTransfer() {
		return t.Account.OnBudget != destination.OnBudget
	}
	return t.Account.OnBudget
}

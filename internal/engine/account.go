package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"envelopes/internal/core"
)

// PopulateAccount derives the balances of an account from the ledger.
//
// Transfers are stored once from the on-budget side, so a transaction whose
// payee is the account counts against it with the opposite sign. Payment is
// the Remaining of the account's debt budget and stays zero for off-budget
// accounts.
func PopulateAccount(account core.Account, transactions []core.Transaction, debtBudget core.Budget) core.Account {
	account.Balance, account.PostedBalance = balances(account, transactions, time.Time{})
	account.Payment = decimal.Zero
	if account.OnBudget && debtBudget.Envelope.ID == account.ID {
		account.Payment = debtBudget.Remaining
	}
	return account
}

// PostedBalanceAt returns the posted balance of account for transactions
// serviced at or before through. A zero through means no limit.
func PostedBalanceAt(account core.Account, transactions []core.Transaction, through time.Time) decimal.Decimal {
	_, posted := balances(account, transactions, through)
	return posted
}

func balances(account core.Account, transactions []core.Transaction, through time.Time) (decimal.Decimal, decimal.Decimal) {
	balance, posted := decimal.Zero, decimal.Zero
	for _, t := range transactions {
		if !t.IsActive() {
			continue
		}
		if !through.IsZero() && t.ServiceDate.After(through) {
			continue
		}
		var amount decimal.Decimal
		switch account.ID {
		case t.Account.ID:
			amount = t.Amount
		case t.Payee.ID:
			amount = t.Amount.Neg()
		default:
			continue
		}
		balance = balance.Add(amount)
		if t.Posted {
			posted = posted.Add(amount)
		}
	}
	return balance, posted
}

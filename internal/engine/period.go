package engine

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"envelopes/internal/core"
)

// budgetAccounts returns the ids of accounts whose transactions affect the budget.
func budgetAccounts(accounts []core.Account) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(accounts))
	for _, a := range accounts {
		if a.OnBudget && a.IsActive() {
			out[a.ID] = struct{}{}
		}
	}
	return out
}

// budgetTransactions keeps the active transactions of on-budget, active accounts.
func budgetTransactions(accounts []core.Account, transactions []core.Transaction) []core.Transaction {
	onBudget := budgetAccounts(accounts)
	out := make([]core.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if !t.IsActive() {
			continue
		}
		if _, ok := onBudget[t.Account.ID]; ok {
			out = append(out, t)
		}
	}
	return out
}

// PopulateSchedule fills the aggregate fields of schedule from the whole ledger.
//
// Income counts Income transactions inside the month plus Buffer transactions
// inside the previous month, since buffered income funds the month after it
// arrives. Overspend accumulates every budgetable envelope whose budgeted plus
// spent total through the end of the month is negative, unless the envelope or
// its budget for this month ignores overspend. Deleted envelopes keep their
// historical activity in the totals.
func PopulateSchedule(
	schedule core.BudgetSchedule,
	accounts []core.Account,
	transactions []core.Transaction,
	envelopes []core.Envelope,
	budgets []core.Budget,
) core.BudgetSchedule {
	previous := schedule.Previous()

	income, pastIncome := decimal.Zero, decimal.Zero
	buffer, pastBuffer := decimal.Zero, decimal.Zero
	budgeted, pastBudgeted := decimal.Zero, decimal.Zero
	overspend := decimal.Zero

	envelopeTotals := map[uuid.UUID]decimal.Decimal{}
	ignoredThisMonth := map[uuid.UUID]bool{}
	populated := make(map[uuid.UUID]core.Envelope, len(envelopes))

	for _, e := range envelopes {
		populated[e.ID] = PopulateEnvelope(e)
	}
	envelopeOf := func(e core.Envelope) core.Envelope {
		if p, ok := populated[e.ID]; ok {
			return p
		}
		return PopulateEnvelope(e)
	}

	for _, t := range budgetTransactions(accounts, transactions) {
		switch t.Envelope.ID {
		case core.IncomeEnvelopeID:
			if schedule.Contains(t.ServiceDate) {
				income = income.Add(t.Amount)
			} else if schedule.Before(t.ServiceDate) {
				pastIncome = pastIncome.Add(t.Amount)
			}
			continue
		case core.BufferEnvelopeID:
			if previous.Contains(t.ServiceDate) {
				buffer = buffer.Add(t.Amount)
			} else if previous.Before(t.ServiceDate) {
				pastBuffer = pastBuffer.Add(t.Amount)
			}
			continue
		}
		if !t.ServiceDate.After(schedule.EndDate) {
			envelopeTotals[t.Envelope.ID] = envelopeTotals[t.Envelope.ID].Add(t.Amount)
		}
	}

	for _, b := range budgets {
		if b.IsDeleted() || !envelopeOf(b.Envelope).IsBudgetable() {
			continue
		}
		amount := b.AmountOrZero()
		switch {
		case b.Schedule.ID == schedule.ID:
			budgeted = budgeted.Add(amount)
			envelopeTotals[b.Envelope.ID] = envelopeTotals[b.Envelope.ID].Add(amount)
			if b.IgnoreOverspend {
				ignoredThisMonth[b.Envelope.ID] = true
			}
		case b.Schedule.EndDate.Before(schedule.BeginDate):
			pastBudgeted = pastBudgeted.Add(amount)
			envelopeTotals[b.Envelope.ID] = envelopeTotals[b.Envelope.ID].Add(amount)
		}
	}

	for _, e := range envelopes {
		e = envelopeOf(e)
		if !e.IsBudgetable() || e.IgnoreOverspend || ignoredThisMonth[e.ID] {
			continue
		}
		if total := envelopeTotals[e.ID]; total.IsNegative() {
			overspend = overspend.Add(total.Abs())
		}
	}

	schedule.Past = pastIncome.Add(pastBuffer).Sub(pastBudgeted)
	schedule.Income = income.Add(buffer)
	schedule.Budgeted = budgeted
	schedule.Overspend = overspend
	schedule.ToBudget = schedule.Income.Sub(schedule.Budgeted)
	schedule.Balance = schedule.Past.Add(schedule.ToBudget).Sub(schedule.Overspend)
	return schedule
}

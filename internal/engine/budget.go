package engine

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"envelopes/internal/core"
)

// PopulateBudget computes the carried-forward figures of one envelope in one month.
//
// envelopeTransactions and envelopeBudgets may hold rows of other envelopes;
// only those of budget's envelope are counted. Remaining is always
// Amount + PastAmount + Activity + PastActivity.
func PopulateBudget(budget core.Budget, envelopeTransactions []core.Transaction, envelopeBudgets []core.Budget) core.Budget {
	budget.Envelope = PopulateEnvelope(budget.Envelope)
	if budget.Envelope.IgnoreOverspend {
		budget.IgnoreOverspend = true
	}

	envelopeID := budget.Envelope.ID
	schedule := budget.Schedule

	pastAmount := decimal.Zero
	for _, b := range envelopeBudgets {
		if b.Envelope.ID != envelopeID || b.IsDeleted() {
			continue
		}
		if b.ID == budget.ID && budget.ID != uuid.Nil {
			continue
		}
		if b.Schedule.EndDate.Before(schedule.BeginDate) {
			pastAmount = pastAmount.Add(b.AmountOrZero())
		}
	}

	activity, pastActivity := decimal.Zero, decimal.Zero
	for _, t := range envelopeTransactions {
		if t.Envelope.ID != envelopeID || !t.IsActive() || !t.Account.OnBudget {
			continue
		}
		switch {
		case schedule.Contains(t.ServiceDate):
			activity = activity.Add(t.Amount)
		case schedule.Before(t.ServiceDate):
			pastActivity = pastActivity.Add(t.Amount)
		}
	}

	budget.PastAmount = pastAmount
	budget.Activity = activity
	budget.PastActivity = pastActivity
	budget.Remaining = budget.AmountOrZero().Add(pastAmount).Add(activity).Add(pastActivity)
	return budget
}

// BudgetsForSchedule returns one populated budget per live budgetable envelope.
// Envelopes without a saved budget in the month get an unsaved one with no amount.
func BudgetsForSchedule(
	schedule core.BudgetSchedule,
	transactions []core.Transaction,
	envelopes []core.Envelope,
	budgets []core.Budget,
) []core.Budget {
	byEnvelope := make(map[uuid.UUID][]core.Budget)
	current := make(map[uuid.UUID]core.Budget)
	for _, b := range budgets {
		if b.IsDeleted() {
			continue
		}
		byEnvelope[b.Envelope.ID] = append(byEnvelope[b.Envelope.ID], b)
		if b.Schedule.ID == schedule.ID {
			current[b.Envelope.ID] = b
		}
	}

	txByEnvelope := make(map[uuid.UUID][]core.Transaction)
	for _, t := range transactions {
		txByEnvelope[t.Envelope.ID] = append(txByEnvelope[t.Envelope.ID], t)
	}

	out := make([]core.Budget, 0, len(envelopes))
	for _, e := range envelopes {
		e = PopulateEnvelope(e)
		if e.IsDeleted() || !e.IsBudgetable() {
			continue
		}
		b, ok := current[e.ID]
		if !ok {
			b = core.Budget{Envelope: e}
		}
		b.Envelope = e
		b.Schedule = schedule
		out = append(out, PopulateBudget(b, txByEnvelope[e.ID], byEnvelope[e.ID]))
	}
	return out
}

// GenericDebtBudget sums the debt budgets of a month into one line item.
func GenericDebtBudget(schedule core.BudgetSchedule, budgets []core.Budget) core.Budget {
	return aggregate(core.GenericDebtEnvelope(), schedule, budgets, func(b core.Budget) bool {
		return b.Envelope.IsDebt() && !b.Envelope.IsGenericDebt()
	})
}

// GenericHiddenBudget sums the budgets of hidden envelopes into one line item.
func GenericHiddenBudget(schedule core.BudgetSchedule, budgets []core.Budget) core.Budget {
	return aggregate(core.GenericHiddenEnvelope(), schedule, budgets, func(b core.Budget) bool {
		return b.Envelope.Matches(core.FilterHidden)
	})
}

func aggregate(envelope core.Envelope, schedule core.BudgetSchedule, budgets []core.Budget, include func(core.Budget) bool) core.Budget {
	out := core.Budget{
		Entity:          core.Entity{ID: envelope.ID, CreatedDateTime: schedule.BeginDate},
		Envelope:        envelope,
		Schedule:        schedule,
		IgnoreOverspend: envelope.IgnoreOverspend,
	}
	amount := decimal.Zero
	for _, b := range budgets {
		if b.IsDeleted() || b.Schedule.ID != schedule.ID || !include(b) {
			continue
		}
		amount = amount.Add(b.AmountOrZero())
		out.PastAmount = out.PastAmount.Add(b.PastAmount)
		out.Activity = out.Activity.Add(b.Activity)
		out.PastActivity = out.PastActivity.Add(b.PastActivity)
	}
	out.Amount = decimal.NewNullDecimal(amount)
	out.Remaining = amount.Add(out.PastAmount).Add(out.Activity).Add(out.PastActivity)
	return out
}

package ledger

import (
	"github.com/google/uuid"

	"envelopes/internal/core"
)

// Refs indexes stored rows by ID so that references can be filled in.
type Refs struct {
	Accounts  map[uuid.UUID]core.Account
	Payees    map[uuid.UUID]core.Payee
	Groups    map[uuid.UUID]core.EnvelopeGroup
	Envelopes map[uuid.UUID]core.Envelope
	Schedules map[uuid.UUID]core.BudgetSchedule
}

func NewRefs() Refs {
	return Refs{
		Accounts:  map[uuid.UUID]core.Account{},
		Payees:    map[uuid.UUID]core.Payee{},
		Groups:    map[uuid.UUID]core.EnvelopeGroup{},
		Envelopes: map[uuid.UUID]core.Envelope{},
		Schedules: map[uuid.UUID]core.BudgetSchedule{},
	}
}

func (r Refs) Account(a core.Account) core.Account {
	if stored, ok := r.Accounts[a.ID]; ok {
		return stored
	}
	return a
}

// Payee fills the payee and derives IsAccount from the account index.
func (r Refs) Payee(p core.Payee) core.Payee {
	if p.ID == core.StartingBalancePayeeID {
		return core.StartingBalancePayee()
	}
	if stored, ok := r.Payees[p.ID]; ok {
		p = stored
	} else if a, ok := r.Accounts[p.ID]; ok {
		p = core.PayeeFor(a)
	}
	_, p.IsAccount = r.Accounts[p.ID]
	return p
}

func (r Refs) Group(g core.EnvelopeGroup) core.EnvelopeGroup {
	if known, ok := core.WellKnownGroup(g.ID); ok {
		return known
	}
	if stored, ok := r.Groups[g.ID]; ok {
		return stored
	}
	return g
}

func (r Refs) Envelope(e core.Envelope) core.Envelope {
	if known, ok := core.WellKnownEnvelope(e.ID); ok {
		return known
	}
	if stored, ok := r.Envelopes[e.ID]; ok {
		e = stored
	}
	e.Group = r.Group(e.Group)
	return e
}

// Schedule fills a schedule; unknown ones are re-derived from their BeginDate.
func (r Refs) Schedule(s core.BudgetSchedule) core.BudgetSchedule {
	if stored, ok := r.Schedules[s.ID]; ok {
		return stored
	}
	if !s.BeginDate.IsZero() && s.EndDate.IsZero() {
		derived := core.NewSchedule(s.BeginDate)
		s.BeginDate, s.EndDate = derived.BeginDate, derived.EndDate
	}
	return s
}

func (r Refs) Budget(b core.Budget) core.Budget {
	b.Envelope = r.Envelope(b.Envelope)
	b.Schedule = r.Schedule(b.Schedule)
	return b
}

func (r Refs) Transaction(t core.Transaction) core.Transaction {
	t.Account = r.Account(t.Account)
	t.Payee = r.Payee(t.Payee)
	t.Envelope = r.Envelope(t.Envelope)
	return t
}

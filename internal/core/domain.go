package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxDescriptionLength = 200

type (
	// Entity carries the identity and lifecycle timestamps shared by every ledger row.
	// A zero time means the marker is unset.
	Entity struct {
		ID               uuid.UUID `json:"id"`
		CreatedDateTime  time.Time `json:"createdDateTime"`
		ModifiedDateTime time.Time `json:"modifiedDateTime"`
		DeletedDateTime  time.Time `json:"deletedDateTime"`
		HiddenDateTime   time.Time `json:"hiddenDateTime"`
	}

	Account struct {
		Entity
		Description string `json:"description"`
		OnBudget    bool   `json:"onBudget"`
		Notes       string `json:"notes"`

		// Derived from transactions, never authoritative.
		Balance       decimal.Decimal `json:"balance"`
		PostedBalance decimal.Decimal `json:"postedBalance"`
		Payment       decimal.Decimal `json:"payment"`
	}

	Payee struct {
		Entity
		Description string `json:"description"`
		Notes       string `json:"notes"`

		// IsAccount is true when an account exists with the same ID.
		IsAccount bool `json:"isAccount"`
	}

	EnvelopeGroup struct {
		Entity
		Description string `json:"description"`
		Notes       string `json:"notes"`
	}

	Envelope struct {
		Entity
		Description     string        `json:"description"`
		Notes           string        `json:"notes"`
		Group           EnvelopeGroup `json:"group"`
		IgnoreOverspend bool          `json:"ignoreOverspend"`
	}

	// BudgetSchedule is one calendar month. Every aggregate field is recomputed
	// from transactions and budgets by the engine.
	BudgetSchedule struct {
		Entity
		BeginDate time.Time `json:"beginDate"`
		EndDate   time.Time `json:"endDate"`

		Past      decimal.Decimal `json:"past"`
		Income    decimal.Decimal `json:"income"`
		Budgeted  decimal.Decimal `json:"budgeted"`
		Overspend decimal.Decimal `json:"overspend"`
		ToBudget  decimal.Decimal `json:"toBudget"`
		Balance   decimal.Decimal `json:"balance"`
	}

	// Budget is the allocation of one envelope in one schedule.
	Budget struct {
		Entity
		Envelope        Envelope            `json:"envelope"`
		Schedule        BudgetSchedule      `json:"schedule"`
		Amount          decimal.NullDecimal `json:"amount"`
		IgnoreOverspend bool                `json:"ignoreOverspend"`

		PastAmount   decimal.Decimal `json:"pastAmount"`
		Activity     decimal.Decimal `json:"activity"`
		PastActivity decimal.Decimal `json:"pastActivity"`
		Remaining    decimal.Decimal `json:"remaining"`
	}

	Transaction struct {
		Entity
		Amount             decimal.Decimal `json:"amount"`
		Account            Account         `json:"account"`
		Payee              Payee           `json:"payee"`
		Envelope           Envelope        `json:"envelope"`
		ServiceDate        time.Time       `json:"serviceDate"`
		Posted             bool            `json:"posted"`
		ReconciledDateTime time.Time       `json:"reconciledDateTime"`
		Notes              string          `json:"notes"`

		// SplitID groups sibling transactions; uuid.Nil means not split.
		SplitID uuid.UUID `json:"splitId"`
	}
)

func (e Entity) IsNew() bool     { return e.CreatedDateTime.IsZero() }
func (e Entity) IsDeleted() bool { return !e.DeletedDateTime.IsZero() }
func (e Entity) IsHidden() bool  { return !e.HiddenDateTime.IsZero() }

// IsActive reports whether the entity has been created and not soft-deleted.
func (e Entity) IsActive() bool { return !e.IsNew() && !e.IsDeleted() }

// Touch stamps the creation time on first save and the modification time always.
// A nil ID is replaced with a fresh random one.
func (e *Entity) Touch(now time.Time) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedDateTime.IsZero() {
		e.CreatedDateTime = now
	}
	e.ModifiedDateTime = now
}

func (a Account) Validate() error {
	v := &ValidationError{}
	validateDescription(v, a.Description)
	return v.OrNil()
}

func (p Payee) IsStartingBalance() bool { return p.ID == StartingBalancePayeeID }

// Group is the display bucket of the payee.
func (p Payee) Group() string {
	switch {
	case p.IsStartingBalance():
		return PayeeGroupSystem
	case p.IsAccount:
		return PayeeGroupAccounts
	default:
		return PayeeGroupPayees
	}
}

func (p Payee) Validate() error {
	v := &ValidationError{}
	validateDescription(v, p.Description)
	if p.IsStartingBalance() {
		v.Add("the starting balance payee cannot be modified")
	}
	return v.OrNil()
}

func (g EnvelopeGroup) IsIncome() bool        { return g.ID == IncomeGroupID }
func (g EnvelopeGroup) IsDebt() bool          { return g.ID == DebtGroupID }
func (g EnvelopeGroup) IsSystem() bool        { return g.ID == SystemGroupID }
func (g EnvelopeGroup) IsGenericHidden() bool { return g.ID == GenericHiddenGroupID }

// IsWellKnown reports whether the group is one of the built-in singletons.
func (g EnvelopeGroup) IsWellKnown() bool {
	return g.IsIncome() || g.IsDebt() || g.IsSystem() || g.IsGenericHidden()
}

func (g EnvelopeGroup) Validate() error {
	v := &ValidationError{}
	validateDescription(v, g.Description)
	if g.IsWellKnown() {
		v.Add("built-in envelope groups cannot be modified")
	}
	return v.OrNil()
}

func (e Envelope) IsIncome() bool        { return e.ID == IncomeEnvelopeID }
func (e Envelope) IsBuffer() bool        { return e.ID == BufferEnvelopeID }
func (e Envelope) IsGenericDebt() bool   { return e.ID == GenericDebtEnvelopeID }
func (e Envelope) IsGenericHidden() bool { return e.ID == GenericHiddenEnvelopeID }

// IsSystem reports whether the envelope is the ignored envelope or lives in the system group.
func (e Envelope) IsSystem() bool {
	return e.ID == IgnoredEnvelopeID || e.Group.IsSystem()
}

// IsDebt reports whether the envelope tracks a liability, including the generic aggregate.
func (e Envelope) IsDebt() bool { return e.Group.IsDebt() || e.IsGenericDebt() }

// IsGeneric reports whether the envelope is a synthetic display aggregate.
func (e Envelope) IsGeneric() bool { return e.IsGenericDebt() || e.IsGenericHidden() }

// IsBudgetable reports whether the envelope takes part in allocation and overspend math.
func (e Envelope) IsBudgetable() bool {
	return !e.IsIncome() && !e.IsBuffer() && !e.IsSystem() && !e.IsGeneric() && !e.Group.IsIncome()
}

func (e Envelope) Validate() error {
	v := &ValidationError{}
	validateDescription(v, e.Description)
	if e.Group.ID == uuid.Nil {
		v.Add("envelope group is required")
	}
	if e.IsIncome() || e.IsBuffer() || e.IsSystem() || e.IsGeneric() {
		v.Add("built-in envelopes cannot be modified")
	}
	if e.Group.IsIncome() || e.Group.IsSystem() || e.Group.IsGenericHidden() {
		v.Add("envelopes cannot be added to a built-in group")
	}
	return v.OrNil()
}

// AmountOrZero returns the persisted amount, treating an unset amount as zero.
func (b Budget) AmountOrZero() decimal.Decimal {
	if !b.Amount.Valid {
		return decimal.Zero
	}
	return b.Amount.Decimal
}

func (b Budget) Validate() error {
	v := &ValidationError{}
	if b.Envelope.ID == uuid.Nil {
		v.Add("envelope is required")
	} else if b.Envelope.IsDeleted() {
		v.Add("envelope is deleted")
	}
	if !b.Envelope.IsBudgetable() {
		v.Add("the envelope cannot be budgeted")
	}
	if b.Schedule.ID == uuid.Nil || b.Schedule.BeginDate.IsZero() {
		v.Add("schedule is required")
	}
	if !b.Amount.Valid {
		v.Add("amount is required")
	}
	return v.OrNil()
}

// IsTransfer reports whether money moves between two accounts.
func (t Transaction) IsTransfer() bool   { return t.Payee.IsAccount }
func (t Transaction) IsSplit() bool      { return t.SplitID != uuid.Nil }
func (t Transaction) IsReconciled() bool { return !t.ReconciledDateTime.IsZero() }

func (t Transaction) Validate() error {
	v := &ValidationError{}
	if t.Account.ID == uuid.Nil {
		v.Add("account is required")
	} else if t.Account.IsDeleted() {
		v.Add("account is deleted")
	}
	if t.Payee.ID == uuid.Nil {
		v.Add("payee is required")
	} else if t.Payee.IsDeleted() {
		v.Add("payee is deleted")
	}
	if t.Payee.ID == t.Account.ID && t.Account.ID != uuid.Nil {
		v.Add("an account cannot transfer to itself")
	}
	if t.Envelope.ID == uuid.Nil {
		v.Add("envelope is required")
	} else if t.Envelope.IsDeleted() {
		v.Add("envelope is deleted")
	}
	if t.Envelope.IsGeneric() {
		v.Add("a generic envelope cannot be assigned to a transaction")
	}
	if t.ServiceDate.IsZero() {
		v.Add("service date is required")
	}
	if len(t.Notes) > 1000 {
		v.Add("notes too long (max 1000 characters)")
	}
	return v.OrNil()
}

func validateDescription(v *ValidationError, description string) {
	if len(strings.TrimSpace(description)) == 0 {
		v.Add(ErrEmptyDescription.Error())
	}
	if len(description) > maxDescriptionLength {
		v.Add("description too long (max 200 characters)")
	}
}

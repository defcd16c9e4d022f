package core

import (
	"time"

	"github.com/google/uuid"
)

// Identities of the built-in entities. They are stable across installs so that
// independent writers agree on them.
var (
	IncomeGroupID        = uuid.MustParse("0a3f3a59-8f0c-4d1b-9c0e-6d0e1b2c3a01")
	DebtGroupID          = uuid.MustParse("0a3f3a59-8f0c-4d1b-9c0e-6d0e1b2c3a02")
	SystemGroupID        = uuid.MustParse("0a3f3a59-8f0c-4d1b-9c0e-6d0e1b2c3a03")
	GenericHiddenGroupID = uuid.MustParse("0a3f3a59-8f0c-4d1b-9c0e-6d0e1b2c3a04")

	IncomeEnvelopeID        = uuid.MustParse("5c8d7e21-44b6-4f0a-a1d2-7e9f0a1b2c01")
	BufferEnvelopeID        = uuid.MustParse("5c8d7e21-44b6-4f0a-a1d2-7e9f0a1b2c02")
	IgnoredEnvelopeID       = uuid.MustParse("5c8d7e21-44b6-4f0a-a1d2-7e9f0a1b2c03")
	GenericDebtEnvelopeID   = uuid.MustParse("5c8d7e21-44b6-4f0a-a1d2-7e9f0a1b2c04")
	GenericHiddenEnvelopeID = uuid.MustParse("5c8d7e21-44b6-4f0a-a1d2-7e9f0a1b2c05")

	StartingBalancePayeeID = uuid.MustParse("9e1b2c3d-7a6f-4e5d-8c9b-0a1f2e3d4c01")

	// Placeholders shown by a combined split row when members disagree.
	SplitAccountID  = uuid.MustParse("b7c6d5e4-1f2a-4b3c-9d8e-7f6a5b4c3d01")
	SplitPayeeID    = uuid.MustParse("b7c6d5e4-1f2a-4b3c-9d8e-7f6a5b4c3d02")
	SplitEnvelopeID = uuid.MustParse("b7c6d5e4-1f2a-4b3c-9d8e-7f6a5b4c3d03")
)

const (
	PayeeGroupAccounts = "Accounts"
	PayeeGroupPayees   = "Payees"
	PayeeGroupSystem   = "System"
)

// builtinTime is the creation stamp of built-in rows so they count as active.
var builtinTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

func builtin(id uuid.UUID) Entity {
	return Entity{ID: id, CreatedDateTime: builtinTime, ModifiedDateTime: builtinTime}
}

// The constructors below return fresh copies, so callers can never mutate the
// shared definition.

func IncomeGroup() EnvelopeGroup {
	return EnvelopeGroup{Entity: builtin(IncomeGroupID), Description: "Income"}
}

func DebtGroup() EnvelopeGroup {
	return EnvelopeGroup{Entity: builtin(DebtGroupID), Description: "Debt"}
}

func SystemGroup() EnvelopeGroup {
	return EnvelopeGroup{Entity: builtin(SystemGroupID), Description: "System"}
}

func GenericHiddenGroup() EnvelopeGroup {
	return EnvelopeGroup{Entity: builtin(GenericHiddenGroupID), Description: "Hidden"}
}

func IncomeEnvelope() Envelope {
	return Envelope{Entity: builtin(IncomeEnvelopeID), Description: "Income", Group: IncomeGroup()}
}

// BufferEnvelope holds income that funds the following month.
func BufferEnvelope() Envelope {
	return Envelope{Entity: builtin(BufferEnvelopeID), Description: "Buffer", Group: IncomeGroup()}
}

// IgnoredEnvelope marks transactions that do not touch the budget.
func IgnoredEnvelope() Envelope {
	return Envelope{Entity: builtin(IgnoredEnvelopeID), Description: "Ignored", Group: SystemGroup(), IgnoreOverspend: true}
}

func GenericDebtEnvelope() Envelope {
	return Envelope{Entity: builtin(GenericDebtEnvelopeID), Description: "Debt", Group: DebtGroup(), IgnoreOverspend: true}
}

func GenericHiddenEnvelope() Envelope {
	return Envelope{Entity: builtin(GenericHiddenEnvelopeID), Description: "Hidden", Group: GenericHiddenGroup()}
}

func StartingBalancePayee() Payee {
	return Payee{Entity: builtin(StartingBalancePayeeID), Description: "Starting Balance"}
}

func SplitAccount() Account {
	return Account{Entity: builtin(SplitAccountID), Description: "Split"}
}

func SplitPayee() Payee {
	return Payee{Entity: builtin(SplitPayeeID), Description: "Split"}
}

func SplitEnvelope() Envelope {
	return Envelope{Entity: builtin(SplitEnvelopeID), Description: "Split"}
}

// DebtEnvelopeFor returns the debt envelope owned by an account. It shares the account's ID.
func DebtEnvelopeFor(a Account) Envelope {
	return Envelope{
		Entity:          Entity{ID: a.ID},
		Description:     a.Description,
		Group:           DebtGroup(),
		IgnoreOverspend: true,
	}
}

// PayeeFor returns the payee that represents an account as a transfer target.
func PayeeFor(a Account) Payee {
	return Payee{Entity: Entity{ID: a.ID}, Description: a.Description, IsAccount: true}
}

// WellKnownEnvelope returns the built-in envelope with the given ID.
func WellKnownEnvelope(id uuid.UUID) (Envelope, bool) {
	switch id {
	case IncomeEnvelopeID:
		return IncomeEnvelope(), true
	case BufferEnvelopeID:
		return BufferEnvelope(), true
	case IgnoredEnvelopeID:
		return IgnoredEnvelope(), true
	case GenericDebtEnvelopeID:
		return GenericDebtEnvelope(), true
	case GenericHiddenEnvelopeID:
		return GenericHiddenEnvelope(), true
	}
	return Envelope{}, false
}

// WellKnownGroup returns the built-in envelope group with the given ID.
func WellKnownGroup(id uuid.UUID) (EnvelopeGroup, bool) {
	switch id {
	case IncomeGroupID:
		return IncomeGroup(), true
	case DebtGroupID:
		return DebtGroup(), true
	case SystemGroupID:
		return SystemGroup(), true
	case GenericHiddenGroupID:
		return GenericHiddenGroup(), true
	}
	return EnvelopeGroup{}, false
}

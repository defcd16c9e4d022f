package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var created = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestEntityLifecycle(t *testing.T) {
	var e Entity
	if !e.IsNew() || e.IsActive() {
		t.Fatalf("zero entity should be new and inactive")
	}

	e.Touch(created)
	if e.ID == uuid.Nil {
		t.Fatalf("Touch should assign an ID")
	}
	if !e.IsActive() || e.IsNew() {
		t.Fatalf("touched entity should be active")
	}

	later := created.Add(time.Hour)
	e.Touch(later)
	if !e.CreatedDateTime.Equal(created) || !e.ModifiedDateTime.Equal(later) {
		t.Fatalf("unexpected stamps: %+v", e)
	}

	e.DeletedDateTime = later
	if e.IsActive() || !e.IsDeleted() {
		t.Fatalf("deleted entity should not be active")
	}
}

func TestAccountValidate(t *testing.T) {
	if err := (Account{Description: "Checking"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	err := (Account{Description: "  "}).Validate()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	err = (Account{Description: strings.Repeat("a", 201)}).Validate()
	if err == nil {
		t.Fatalf("expected error for long description")
	}
}

func TestPayeeValidateStartingBalance(t *testing.T) {
	p := StartingBalancePayee()
	if err := p.Validate(); err == nil {
		t.Fatalf("starting balance payee must be immutable")
	}
	if p.Group() != PayeeGroupSystem {
		t.Fatalf("expected system group, got %s", p.Group())
	}
	if g := (Payee{IsAccount: true}).Group(); g != PayeeGroupAccounts {
		t.Fatalf("expected accounts group, got %s", g)
	}
}

func TestEnvelopeClassification(t *testing.T) {
	user := Envelope{Entity: Entity{ID: uuid.New()}, Description: "Groceries", Group: EnvelopeGroup{Entity: Entity{ID: uuid.New()}}}
	debt := DebtEnvelopeFor(Account{Entity: Entity{ID: uuid.New()}, Description: "Visa"})

	cases := []struct {
		name       string
		env        Envelope
		budgetable bool
		system     bool
		debt       bool
	}{
		{"user", user, true, false, false},
		{"debt", debt, true, false, true},
		{"income", IncomeEnvelope(), false, false, false},
		{"buffer", BufferEnvelope(), false, false, false},
		{"ignored", IgnoredEnvelope(), false, true, false},
		{"generic debt", GenericDebtEnvelope(), false, false, true},
		{"generic hidden", GenericHiddenEnvelope(), false, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.env.IsBudgetable(); got != tc.budgetable {
				t.Errorf("IsBudgetable() = %v, want %v", got, tc.budgetable)
			}
			if got := tc.env.IsSystem(); got != tc.system {
				t.Errorf("IsSystem() = %v, want %v", got, tc.system)
			}
			if got := tc.env.IsDebt(); got != tc.debt {
				t.Errorf("IsDebt() = %v, want %v", got, tc.debt)
			}
		})
	}
}

func TestEnvelopeValidateProtectsBuiltins(t *testing.T) {
	for _, e := range []Envelope{IncomeEnvelope(), BufferEnvelope(), IgnoredEnvelope(), GenericDebtEnvelope()} {
		if err := e.Validate(); err == nil {
			t.Fatalf("expected error for built-in %s", e.Description)
		}
	}
	ok := Envelope{Description: "Rent", Group: EnvelopeGroup{Entity: Entity{ID: uuid.New()}}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestBudgetAmountOrZero(t *testing.T) {
	if !(Budget{}).AmountOrZero().IsZero() {
		t.Fatalf("unset amount should read as zero")
	}
	b := Budget{Amount: decimal.NewNullDecimal(decimal.NewFromInt(42))}
	if !b.AmountOrZero().Equal(decimal.NewFromInt(42)) {
		t.Fatalf("unexpected amount %s", b.AmountOrZero())
	}
}

func TestTransactionValidate(t *testing.T) {
	account := Account{Entity: Entity{ID: uuid.New()}, Description: "Checking", OnBudget: true}
	good := Transaction{
		Amount:      decimal.NewFromInt(-10),
		Account:     account,
		Payee:       Payee{Entity: Entity{ID: uuid.New()}, Description: "Shop"},
		Envelope:    Envelope{Entity: Entity{ID: uuid.New()}, Description: "Food", Group: EnvelopeGroup{Entity: Entity{ID: uuid.New()}}},
		ServiceDate: created,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	self := good
	self.Payee = PayeeFor(account)
	if err := self.Validate(); err == nil {
		t.Fatalf("expected error for self transfer")
	}

	generic := good
	generic.Envelope = GenericDebtEnvelope()
	if err := generic.Validate(); err == nil {
		t.Fatalf("expected error for generic envelope")
	}

	var empty Transaction
	err := empty.Validate()
	var v *ValidationError
	if !errors.As(err, &v) || len(v.Messages) < 4 {
		t.Fatalf("expected every missing field reported, got %v", err)
	}
}

package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"envelopes/internal/core"
)

func TestClassifyTransfers(t *testing.T) {
	checking := account("Checking", true)
	savings := account("Savings", true)
	brokerage := account("Brokerage", false)
	house := account("House", false)
	food := envelope("Food")

	c := NewClassifier([]core.Account{checking, savings, brokerage, house})

	cases := []struct {
		name         string
		from         core.Account
		to           core.Account
		envelope     core.Envelope
		wantAccount  core.Account
		wantPayee    core.Account
		wantAmount   string
		wantEnvelope func(core.Envelope) bool
	}{
		{
			name: "on to on is ignored", from: checking, to: savings, envelope: food,
			wantAccount: checking, wantPayee: savings, wantAmount: "-25",
			wantEnvelope: func(e core.Envelope) bool { return e.ID == core.IgnoredEnvelopeID },
		},
		{
			name: "off to off is ignored", from: brokerage, to: house, envelope: food,
			wantAccount: brokerage, wantPayee: house, wantAmount: "-25",
			wantEnvelope: func(e core.Envelope) bool { return e.ID == core.IgnoredEnvelopeID },
		},
		{
			name: "off to on swaps sides", from: brokerage, to: checking, envelope: food,
			wantAccount: checking, wantPayee: brokerage, wantAmount: "25",
			wantEnvelope: func(e core.Envelope) bool { return e.ID == food.ID },
		},
		{
			name: "on to off keeps envelope", from: checking, to: brokerage, envelope: food,
			wantAccount: checking, wantPayee: brokerage, wantAmount: "-25",
			wantEnvelope: func(e core.Envelope) bool { return e.ID == food.ID },
		},
		{
			name: "on to off drops ignored", from: checking, to: brokerage, envelope: core.IgnoredEnvelope(),
			wantAccount: checking, wantPayee: brokerage, wantAmount: "-25",
			wantEnvelope: func(e core.Envelope) bool { return e.ID == uuid.Nil },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := txn(tc.from, tc.envelope, "-25", day(2024, time.March, 1))
			in.Payee = core.PayeeFor(tc.to)

			got, err := c.Classify(in)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got.Account.ID != tc.wantAccount.ID || got.Payee.ID != tc.wantPayee.ID {
				t.Fatalf("account/payee = %s/%s, want %s/%s", got.Account.Description, got.Payee.Description, tc.wantAccount.Description, tc.wantPayee.Description)
			}
			if !got.Amount.Equal(dec(tc.wantAmount)) {
				t.Fatalf("Amount = %s, want %s", got.Amount, tc.wantAmount)
			}
			if !tc.wantEnvelope(got.Envelope) {
				t.Fatalf("unexpected envelope %q", got.Envelope.Description)
			}

			again, err := c.Classify(got)
			if err != nil || again.Account.ID != got.Account.ID || !again.Amount.Equal(got.Amount) || again.Envelope.ID != got.Envelope.ID {
				t.Fatalf("Classify is not idempotent: %+v", again)
			}
		})
	}
}

func TestClassifyNonTransfers(t *testing.T) {
	checking := account("Checking", true)
	brokerage := account("Brokerage", false)
	c := NewClassifier([]core.Account{checking, brokerage})

	off, err := c.Classify(txn(brokerage, envelope("Food"), "-5", day(2024, time.March, 1)))
	if err != nil || off.Envelope.ID != core.IgnoredEnvelopeID {
		t.Fatalf("off-budget spending must be ignored, got %q (err=%v)", off.Envelope.Description, err)
	}

	on, err := c.Classify(txn(checking, core.IgnoredEnvelope(), "-5", day(2024, time.March, 1)))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if on.Envelope.ID == core.IgnoredEnvelopeID {
		t.Fatalf("on-budget spending must not keep the ignored envelope")
	}
	if err := on.Validate(); err == nil {
		t.Fatalf("cleared envelope should fail validation")
	}
}

func TestClassifyGenericDebt(t *testing.T) {
	card := account("Card", true)
	c := NewClassifier([]core.Account{card})

	got, err := c.Classify(txn(card, core.GenericDebtEnvelope(), "-40", day(2024, time.March, 1)))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Envelope.ID != card.ID || !got.Envelope.Group.IsDebt() || got.Envelope.IsGeneric() {
		t.Fatalf("expected the card's debt envelope, got %+v", got.Envelope)
	}
}

func TestClassifyUnknownTransferAccount(t *testing.T) {
	checking := account("Checking", true)
	c := NewClassifier([]core.Account{checking})

	in := txn(checking, envelope("Food"), "-5", day(2024, time.March, 1))
	in.Payee = core.PayeeFor(account("Ghost", true))

	if _, err := c.Classify(in); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

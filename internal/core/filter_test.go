package core

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func active(id uuid.UUID) Entity {
	return Entity{ID: id, CreatedDateTime: created, ModifiedDateTime: created}
}

func TestEnvelopeMatches(t *testing.T) {
	group := EnvelopeGroup{Entity: active(uuid.New()), Description: "Bills"}
	user := Envelope{Entity: active(uuid.New()), Description: "Rent", Group: group}

	hidden := user
	hidden.HiddenDateTime = created

	deleted := user
	deleted.DeletedDateTime = created

	debt := DebtEnvelopeFor(Account{Entity: active(uuid.New()), Description: "Visa"})
	debt.Entity = active(debt.ID)

	cases := []struct {
		name string
		env  Envelope
		want map[FilterIntent]bool
	}{
		{"user", user, map[FilterIntent]bool{FilterStandard: true, FilterSelection: true, FilterReport: true, FilterHidden: false, FilterAll: true}},
		{"hidden", hidden, map[FilterIntent]bool{FilterStandard: false, FilterSelection: false, FilterHidden: true, FilterAll: true}},
		{"deleted", deleted, map[FilterIntent]bool{FilterStandard: false, FilterHidden: false, FilterAll: true}},
		{"debt", debt, map[FilterIntent]bool{FilterStandard: true, FilterSelection: false, FilterReport: false}},
		{"income", IncomeEnvelope(), map[FilterIntent]bool{FilterStandard: false, FilterSelection: false, FilterReport: false, FilterAll: true}},
		{"ignored", IgnoredEnvelope(), map[FilterIntent]bool{FilterStandard: false, FilterSelection: false, FilterHidden: false}},
		{"generic debt", GenericDebtEnvelope(), map[FilterIntent]bool{FilterStandard: false, FilterSelection: true, FilterReport: true, FilterHidden: false}},
		{"generic hidden", GenericHiddenEnvelope(), map[FilterIntent]bool{FilterStandard: false, FilterReport: true, FilterHidden: false}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for intent, want := range tc.want {
				if got := tc.env.Matches(intent); got != want {
					t.Errorf("Matches(%s) = %v, want %v", intent, got, want)
				}
			}
		})
	}
}

func TestGroupAndPayeeMatches(t *testing.T) {
	if IncomeGroup().Matches(FilterStandard) {
		t.Errorf("income group must not be a standard line item")
	}
	if !DebtGroup().Matches(FilterStandard) {
		t.Errorf("debt group is a standard line item")
	}
	if GenericHiddenGroup().Matches(FilterHidden) {
		t.Errorf("generic hidden group must not list itself as hidden")
	}
	if StartingBalancePayee().Matches(FilterStandard) {
		t.Errorf("starting balance payee is a system entity")
	}

	p := Payee{Entity: active(uuid.New()), Description: "Grocer"}
	if !p.Matches(FilterSelection) {
		t.Errorf("active payee should be selectable")
	}
	p.HiddenDateTime = time.Now()
	if p.Matches(FilterSelection) || !p.Matches(FilterHidden) {
		t.Errorf("hidden payee should only match the hidden filter")
	}
}

func TestFilterAndSearch(t *testing.T) {
	group := EnvelopeGroup{Entity: active(uuid.New()), Description: "Household"}
	envs := []Envelope{
		{Entity: active(uuid.New()), Description: "Groceries", Group: group},
		{Entity: active(uuid.New()), Description: "Rent", Group: group},
		IncomeEnvelope(),
	}

	standard := Filter(envs, FilterStandard)
	if len(standard) != 2 {
		t.Fatalf("expected 2 standard envelopes, got %d", len(standard))
	}

	if got := Search(standard, "GROC"); len(got) != 1 || got[0].Description != "Groceries" {
		t.Fatalf("unexpected search result: %+v", got)
	}
	if got := Search(standard, "house"); len(got) != 2 {
		t.Fatalf("group description should match, got %d", len(got))
	}
	if got := Search(standard, ""); len(got) != 2 {
		t.Fatalf("empty query should match everything")
	}
}

func TestParseFilterIntent(t *testing.T) {
	cases := []struct {
		in   string
		want FilterIntent
		ok   bool
	}{
		{"", FilterStandard, true},
		{"Report", FilterReport, true},
		{" hidden ", FilterHidden, true},
		{"all", FilterAll, true},
		{"bogus", FilterStandard, false},
	}
	for _, tc := range cases {
		got, err := ParseFilterIntent(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"envelopes/internal/core"
)

var stamp = time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func live() core.Entity {
	return core.Entity{ID: uuid.New(), CreatedDateTime: stamp, ModifiedDateTime: stamp}
}

func account(name string, onBudget bool) core.Account {
	return core.Account{Entity: live(), Description: name, OnBudget: onBudget}
}

func envelope(name string) core.Envelope {
	return core.Envelope{
		Entity:      live(),
		Description: name,
		Group:       core.EnvelopeGroup{Entity: live(), Description: "Everyday"},
	}
}

func payee(name string) core.Payee {
	return core.Payee{Entity: live(), Description: name}
}

func txn(a core.Account, e core.Envelope, amount string, when time.Time) core.Transaction {
	return core.Transaction{
		Entity:      live(),
		Amount:      dec(amount),
		Account:     a,
		Payee:       payee("Shop"),
		Envelope:    e,
		ServiceDate: when,
	}
}

func budget(e core.Envelope, month time.Time, amount string) core.Budget {
	return core.Budget{
		Entity:   live(),
		Envelope: e,
		Schedule: core.NewSchedule(month),
		Amount:   decimal.NewNullDecimal(dec(amount)),
	}
}

package sheets

import (
	"context"

	"github.com/shopspring/decimal"

	"envelopes/internal/core"
)

// PlanLine is one planned allocation read from a spreadsheet.
type PlanLine struct {
	Group    string
	Envelope string
	Amount   decimal.Decimal
}

// Ports for outbound adapters.
type (
	// ReportWriter exports a populated month.
	ReportWriter interface {
		WriteReport(ctx context.Context, report core.PeriodReport) (ref string, err error)
	}

	// PlanReader reads planned envelope allocations for one month.
	PlanReader interface {
		ReadBudgetPlan(ctx context.Context, year int, month int) ([]PlanLine, error)
	}
)

// Package admin holds the operator commands of envelopes-admin. Commands are
// kong command structs that run against an Env.
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"envelopes/internal/core"
	"envelopes/internal/sheets"
	"envelopes/internal/worker"
)

// Ledger is the part of the ledger service the commands use.
type Ledger interface {
	worker.Exporter
	GetSchedule(ctx context.Context, date time.Time) (core.BudgetSchedule, error)
	GetBudgets(ctx context.Context, date time.Time, intent core.FilterIntent) ([]core.Budget, error)
	GetEnvelopes(ctx context.Context, intent core.FilterIntent, query string) ([]core.Envelope, error)
	TransferBudget(ctx context.Context, date time.Time, from, to uuid.UUID, amount decimal.Decimal) error
	ImportPlan(ctx context.Context, date time.Time, reader sheets.PlanReader) (int, []string, error)
}

// Spreadsheet reads plans from and writes reports to the budget spreadsheet.
type Spreadsheet interface {
	sheets.ReportWriter
	sheets.PlanReader
}

// Env is what every command runs against. Open and Sheets are called lazily
// so commands that need neither never touch the store or the network.
type Env struct {
	Out    io.Writer
	Now    func() time.Time
	DBPath string

	Open   func(ctx context.Context) (Ledger, func() error, error)
	Sheets func(ctx context.Context) (Spreadsheet, error)
}

// Globals are flags shared by every command.
type Globals struct {
	Verbose bool `help:"Log at debug level." short:"v"`
}

// Commands lists the envelopes-admin subcommands.
type Commands struct {
	Month         MonthCmd         `cmd:"" help:"Show the totals of a month."`
	Budgets       BudgetsCmd       `cmd:"" help:"List the budget lines of a month."`
	Transfer      TransferCmd      `cmd:"" help:"Move budgeted money between two envelopes."`
	ImportPlan    ImportPlanCmd    `cmd:"" help:"Save the planned allocations of a month from the plan sheet."`
	Export        ExportCmd        `cmd:"" help:"Export the most recent month reports to the spreadsheet."`
	SchemaVersion SchemaVersionCmd `cmd:"" help:"Show the applied SQLite schema version."`
}

func (env *Env) withLedger(fn func(ctx context.Context, ledger Ledger) error) error {
	ctx := context.Background()
	ledger, cleanup, err := env.Open(ctx)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() { _ = cleanup() }()
	return fn(ctx, ledger)
}

// month parses a YYYY-MM flag; empty means the current month.
func (env *Env) month(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return env.Now().UTC(), nil
	}
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month '%s': expected YYYY-MM", value)
	}
	return t, nil
}

// resolveEnvelope accepts an envelope id or a case-insensitive description.
func resolveEnvelope(ctx context.Context, ledger Ledger, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(strings.TrimSpace(ref)); err == nil {
		return id, nil
	}
	envelopes, err := ledger.GetEnvelopes(ctx, core.FilterSelection, "")
	if err != nil {
		return uuid.Nil, err
	}

	var found []core.Envelope
	for _, e := range envelopes {
		if strings.EqualFold(e.Description, strings.TrimSpace(ref)) {
			found = append(found, e)
		}
	}
	switch len(found) {
	case 0:
		return uuid.Nil, fmt.Errorf("no envelope named '%s'", ref)
	case 1:
		return found[0].ID, nil
	default:
		return uuid.Nil, errors.New("more than one envelope is named '" + ref + "'; use its id")
	}
}

package admin

import (
	"context"
	"fmt"
	"strings"

	"envelopes/internal/core"
	"envelopes/internal/storage"
	"envelopes/internal/worker"
)

type MonthCmd struct {
	Month string `help:"Month as YYYY-MM (default: current month)."`
}

func (cmd *MonthCmd) Run(env *Env) error {
	date, err := env.month(cmd.Month)
	if err != nil {
		return err
	}
	return env.withLedger(func(ctx context.Context, ledger Ledger) error {
		s, err := ledger.GetSchedule(ctx, date)
		if err != nil {
			return err
		}
		printInfof(env.Out, "%s", s.Name())
		t := &table{header: []string{"", "Amount"}, textColumns: 1}
		t.add("Carried forward", money(s.Past))
		t.add("Income", money(s.Income))
		t.add("Budgeted", money(s.Budgeted))
		t.add("Overspent", money(s.Overspend))
		t.add("To budget", money(s.ToBudget))
		t.add("Balance", money(s.Balance))
		t.write(env.Out)
		return nil
	})
}

type BudgetsCmd struct {
	Month  string `help:"Month as YYYY-MM (default: current month)."`
	Filter string `help:"One of standard, selection, report, hidden, all." default:"standard"`
	Query  string `help:"Only envelopes whose name or group contains this text." short:"q"`
}

func (cmd *BudgetsCmd) Run(env *Env) error {
	date, err := env.month(cmd.Month)
	if err != nil {
		return err
	}
	intent, err := core.ParseFilterIntent(cmd.Filter)
	if err != nil {
		return err
	}
	return env.withLedger(func(ctx context.Context, ledger Ledger) error {
		budgets, err := ledger.GetBudgets(ctx, date, intent)
		if err != nil {
			return err
		}
		if q := strings.TrimSpace(cmd.Query); q != "" {
			budgets = core.Search(budgets, q)
		}
		if len(budgets) == 0 {
			printInfof(env.Out, "No budget lines for %s", core.NewSchedule(date).Name())
			return nil
		}

		t := &table{header: []string{"Group", "Envelope", "Budgeted", "Activity", "Remaining"}, textColumns: 2}
		for _, b := range budgets {
			t.add(b.Envelope.Group.Description, b.Envelope.Description,
				money(b.AmountOrZero()), money(b.Activity), money(b.Remaining))
		}
		t.write(env.Out)
		return nil
	})
}

type TransferCmd struct {
	From   string `arg:"" help:"Source envelope id or name."`
	To     string `arg:"" help:"Destination envelope id or name."`
	Amount string `arg:"" help:"Amount to move, e.g. 25.50."`
	Month  string `help:"Month as YYYY-MM (default: current month)."`
}

func (cmd *TransferCmd) Run(env *Env) error {
	date, err := env.month(cmd.Month)
	if err != nil {
		return err
	}
	amount, err := core.ParseAmount(cmd.Amount)
	if err != nil {
		return err
	}
	return env.withLedger(func(ctx context.Context, ledger Ledger) error {
		from, err := resolveEnvelope(ctx, ledger, cmd.From)
		if err != nil {
			return err
		}
		to, err := resolveEnvelope(ctx, ledger, cmd.To)
		if err != nil {
			return err
		}
		if err := ledger.TransferBudget(ctx, date, from, to, amount); err != nil {
			return err
		}
		printSuccess(env.Out, fmt.Sprintf("Moved %s from %s to %s in %s",
			amount.StringFixed(2), cmd.From, cmd.To, core.NewSchedule(date).Name()))
		return nil
	})
}

type ImportPlanCmd struct {
	Month string `help:"Month as YYYY-MM (default: current month)."`
}

func (cmd *ImportPlanCmd) Run(env *Env) error {
	date, err := env.month(cmd.Month)
	if err != nil {
		return err
	}
	return env.withLedger(func(ctx context.Context, ledger Ledger) error {
		sheet, err := env.Sheets(ctx)
		if err != nil {
			return fmt.Errorf("open spreadsheet: %w", err)
		}
		saved, skipped, err := ledger.ImportPlan(ctx, date, sheet)
		if err != nil {
			return err
		}
		for _, name := range skipped {
			printInfof(env.Out, "Skipped %s: no such envelope", name)
		}
		printSuccess(env.Out, fmt.Sprintf("Imported %d planned budgets for %s", saved, core.NewSchedule(date).Name()))
		return nil
	})
}

type ExportCmd struct {
	Months int `help:"How many months, ending with the current one, to export." default:"2"`
}

func (cmd *ExportCmd) Run(env *Env) error {
	if cmd.Months < 1 {
		return fmt.Errorf("months must be at least 1, got %d", cmd.Months)
	}
	return env.withLedger(func(ctx context.Context, ledger Ledger) error {
		sheet, err := env.Sheets(ctx)
		if err != nil {
			return fmt.Errorf("open spreadsheet: %w", err)
		}
		if err := worker.NewReportWorker(ledger, sheet, cmd.Months).StartupExport(ctx); err != nil {
			return err
		}
		printSuccess(env.Out, fmt.Sprintf("Exported the last %d month reports", cmd.Months))
		return nil
	})
}

type SchemaVersionCmd struct{}

func (cmd *SchemaVersionCmd) Run(env *Env) error {
	if env.DBPath == "" {
		return fmt.Errorf("schema-version needs the sqlite backend")
	}
	version, dirty, err := storage.SchemaVersion(env.DBPath)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty: a migration failed part way", version)
	}
	printSuccess(env.Out, fmt.Sprintf("Schema version %d", version))
	return nil
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"envelopes/internal/amqp"
	"envelopes/internal/cache"
	"envelopes/internal/core"
	"envelopes/internal/engine"
	"envelopes/internal/ledger"
	"envelopes/internal/sheets"
)

// EventPublisher announces ledger changes to other processes.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
	Close() error
}

// LedgerService orchestrates ledger reads and writes over a store. Writes are
// saved first and announced afterwards; a failed announcement never fails the
// write.
type LedgerService struct {
	store     ledger.Store
	reports   cache.Cache[core.PeriodReport]
	publisher EventPublisher
	now       func() time.Time

	// generation counts writes; a month populated across a write is not cached.
	cacheMu    sync.Mutex
	generation uint64
}

// NewLedgerService wires a service. reports and publisher may be nil.
func NewLedgerService(store ledger.Store, reports cache.Cache[core.PeriodReport], publisher EventPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		reports:   reports,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// snapshot is a consistent-enough view of the ledger for one population pass.
type snapshot struct {
	accounts     []core.Account
	envelopes    []core.Envelope
	budgets      []core.Budget
	transactions []core.Transaction
}

func (s *LedgerService) snapshot(ctx context.Context) (snapshot, error) {
	var snap snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.accounts, err = s.store.Accounts(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.envelopes, err = s.store.Envelopes(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.budgets, err = s.store.Budgets(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.transactions, err = s.store.Transactions(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, fmt.Errorf("load ledger: %w", err)
	}
	return snap, nil
}

// PopulateMonth computes the month containing date with one budget line per
// budgetable envelope.
func (s *LedgerService) PopulateMonth(ctx context.Context, date time.Time) (core.PeriodReport, error) {
	schedule := core.NewSchedule(date.UTC())
	key := schedule.ID.String()
	if s.reports != nil {
		if report, ok := s.reports.Get(key); ok {
			return report, nil
		}
	}

	generation := s.currentGeneration()

	snap, err := s.snapshot(ctx)
	if err != nil {
		return core.PeriodReport{}, err
	}
	stored, err := s.store.Schedule(ctx, schedule.ID)
	switch {
	case err == nil:
		schedule.Entity = stored.Entity
	case !isNotFound(err):
		return core.PeriodReport{}, fmt.Errorf("get schedule: %w", err)
	}

	populated := engine.PopulateSchedule(schedule, snap.accounts, snap.transactions, snap.envelopes, snap.budgets)
	report := core.PeriodReport{
		Schedule: populated,
		Budgets:  engine.BudgetsForSchedule(populated, snap.transactions, snap.envelopes, snap.budgets),
	}

	s.cacheReport(key, report, generation)
	slog.DebugContext(ctx, "Populated month",
		"schedule", populated.Name(),
		"to_budget", populated.ToBudget.String(),
		"budgets", len(report.Budgets))
	return report, nil
}

// GetSchedule returns the populated month containing date.
func (s *LedgerService) GetSchedule(ctx context.Context, date time.Time) (core.BudgetSchedule, error) {
	report, err := s.PopulateMonth(ctx, date)
	if err != nil {
		return core.BudgetSchedule{}, err
	}
	return report.Schedule, nil
}

// GetBudgets returns the month's budget lines visible under intent. Selection
// and report views fold debt and hidden envelopes into their generic lines.
func (s *LedgerService) GetBudgets(ctx context.Context, date time.Time, intent core.FilterIntent) ([]core.Budget, error) {
	report, err := s.PopulateMonth(ctx, date)
	if err != nil {
		return nil, err
	}
	budgets := report.Budgets
	if intent == core.FilterSelection || intent == core.FilterReport {
		budgets = append(append([]core.Budget(nil), budgets...),
			engine.GenericDebtBudget(report.Schedule, report.Budgets),
			engine.GenericHiddenBudget(report.Schedule, report.Budgets))
	}
	return core.Filter(budgets, intent), nil
}

// saveSchedule persists the month containing date when it is not stored yet
// and returns it.
func (s *LedgerService) saveSchedule(ctx context.Context, date time.Time) (core.BudgetSchedule, error) {
	schedule := core.NewSchedule(date.UTC())
	stored, err := s.store.Schedule(ctx, schedule.ID)
	if err == nil {
		return stored, nil
	}
	if !isNotFound(err) {
		return core.BudgetSchedule{}, fmt.Errorf("get schedule: %w", err)
	}
	schedule.Touch(s.now())
	if err := s.store.CreateSchedule(ctx, schedule); err != nil {
		return core.BudgetSchedule{}, fmt.Errorf("save schedule: %w", err)
	}
	return schedule, nil
}

func (s *LedgerService) currentGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

// cacheReport stores report unless a write happened since generation was read.
func (s *LedgerService) cacheReport(key string, report core.PeriodReport, generation uint64) {
	if s.reports == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generation != generation {
		return
	}
	s.reports.Set(key, report)
}

// changed invalidates populated months and announces the change.
func (s *LedgerService) changed(ctx context.Context, kind string, id uuid.UUID, date time.Time) {
	s.cacheMu.Lock()
	s.generation++
	if s.reports != nil {
		s.reports.Clear()
	}
	s.cacheMu.Unlock()
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping ledger event", "kind", kind, "id", id)
		return
	}
	msg := amqp.NewLedgerEventMessage(kind, id, date)
	if err := s.publisher.PublishLedgerEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", kind, "id", id, "error", err)
	}
}

// Close closes both the store and the publisher
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}

// ExportMonth populates the month containing date and hands it to writer.
func (s *LedgerService) ExportMonth(ctx context.Context, date time.Time, writer sheets.ReportWriter) (string, error) {
	report, err := s.PopulateMonth(ctx, date)
	if err != nil {
		return "", err
	}
	ref, err := writer.WriteReport(ctx, report)
	if err != nil {
		return "", fmt.Errorf("write report %s: %w", report.Schedule.Name(), err)
	}
	return ref, nil
}

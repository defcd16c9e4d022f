package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"envelopes/internal/amqp"
	"envelopes/internal/core"
	"envelopes/internal/engine"
	"envelopes/internal/sheets"
)

func isNotFound(err error) bool { return errors.Is(err, core.ErrNotFound) }

// upsert creates rows that were new before being touched and updates the rest.
func upsert[T any](ctx context.Context, isNew bool, v T, create, update func(context.Context, T) error) error {
	if isNew {
		return create(ctx, v)
	}
	return update(ctx, v)
}

// SaveBudget sets the allocation of an envelope in the month containing
// b.Schedule.BeginDate. An existing budget for the same envelope and month is
// updated in place.
func (s *LedgerService) SaveBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.Schedule.BeginDate.IsZero() {
		return b, fmt.Errorf("save budget: %w", core.NewValidationError("schedule is required"))
	}
	schedule, err := s.saveSchedule(ctx, b.Schedule.BeginDate)
	if err != nil {
		return b, err
	}

	envelope, err := s.store.Envelope(ctx, b.Envelope.ID)
	if isNotFound(err) {
		return b, fmt.Errorf("save budget: %w", core.NewValidationError("envelope does not exist"))
	}
	if err != nil {
		return b, fmt.Errorf("get envelope: %w", err)
	}
	b.Envelope = engine.PopulateEnvelope(envelope)
	b.Schedule = schedule
	if err := b.Validate(); err != nil {
		return b, fmt.Errorf("save budget: %w", err)
	}

	existing, err := s.store.BudgetsForSchedule(ctx, schedule.ID)
	if err != nil {
		return b, fmt.Errorf("list budgets: %w", err)
	}
	for _, e := range existing {
		if e.Envelope.ID == b.Envelope.ID && !e.IsDeleted() {
			b.Entity = e.Entity
			break
		}
	}

	if err := s.persistBudget(ctx, &b); err != nil {
		return b, err
	}
	s.changed(ctx, amqp.EventBudget, b.ID, schedule.BeginDate)
	return b, nil
}

func (s *LedgerService) persistBudget(ctx context.Context, b *core.Budget) error {
	isNew := b.IsNew()
	b.Touch(s.now())
	if err := upsert(ctx, isNew, *b, s.store.CreateBudget, s.store.UpdateBudget); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

// TransferBudget moves amount from one envelope's allocation to another's in
// the month containing date. The source is saved before the destination and a
// failed destination write leaves the source debited.
func (s *LedgerService) TransferBudget(ctx context.Context, date time.Time, from, to uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("transfer budget: %w", core.NewValidationError(core.ErrInvalidAmount.Error()))
	}
	if from == to {
		return fmt.Errorf("transfer budget: %w", core.NewValidationError("source and destination envelopes must differ"))
	}

	schedule, err := s.saveSchedule(ctx, date)
	if err != nil {
		return err
	}
	stored, err := s.store.BudgetsForSchedule(ctx, schedule.ID)
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}

	source, err := s.transferLine(ctx, schedule, stored, from)
	if err != nil {
		return fmt.Errorf("transfer budget from %s: %w", from, err)
	}
	destination, err := s.transferLine(ctx, schedule, stored, to)
	if err != nil {
		return fmt.Errorf("transfer budget to %s: %w", to, err)
	}

	source.Amount = decimal.NewNullDecimal(source.AmountOrZero().Sub(amount))
	destination.Amount = decimal.NewNullDecimal(destination.AmountOrZero().Add(amount))

	if err := s.persistBudget(ctx, &source); err != nil {
		return err
	}
	if err := s.persistBudget(ctx, &destination); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transferred budget",
		"schedule", schedule.Name(),
		"from", from,
		"to", to,
		"amount", amount.String())
	s.changed(ctx, amqp.EventBudget, destination.ID, schedule.BeginDate)
	return nil
}

// transferLine returns the saved budget row of an envelope in schedule, or a
// new one when the envelope has none. Rows are returned as stored so flags
// inherited from the envelope on read are never written back.
func (s *LedgerService) transferLine(ctx context.Context, schedule core.BudgetSchedule, stored []core.Budget, envelopeID uuid.UUID) (core.Budget, error) {
	envelope, err := s.store.Envelope(ctx, envelopeID)
	if isNotFound(err) {
		return core.Budget{}, core.ErrEnvelopeNotInPeriod
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get envelope: %w", err)
	}
	envelope = engine.PopulateEnvelope(envelope)
	if envelope.IsDeleted() || !envelope.IsBudgetable() {
		return core.Budget{}, core.ErrEnvelopeNotInPeriod
	}

	for _, b := range stored {
		if b.Envelope.ID == envelopeID && !b.IsDeleted() {
			b.Schedule = schedule
			return b, nil
		}
	}
	return core.Budget{Envelope: envelope, Schedule: schedule}, nil
}

// ImportPlan saves the planned allocations of the month containing date as
// read from reader. Lines that name no live envelope are skipped and returned.
func (s *LedgerService) ImportPlan(ctx context.Context, date time.Time, reader sheets.PlanReader) (int, []string, error) {
	date = date.UTC()
	lines, err := reader.ReadBudgetPlan(ctx, date.Year(), int(date.Month()))
	if err != nil {
		return 0, nil, fmt.Errorf("read budget plan: %w", err)
	}
	envelopes, err := s.store.Envelopes(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("list envelopes: %w", err)
	}

	byName := make(map[string]core.Envelope, len(envelopes))
	for _, e := range engine.PopulateEnvelopes(envelopes) {
		if e.IsActive() && e.IsBudgetable() {
			byName[planKey(e.Group.Description, e.Description)] = e
		}
	}

	saved := 0
	var skipped []string
	for _, line := range lines {
		e, ok := byName[planKey(line.Group, line.Envelope)]
		if !ok {
			skipped = append(skipped, line.Group+": "+line.Envelope)
			continue
		}
		b := core.Budget{
			Envelope: e,
			Schedule: core.BudgetSchedule{BeginDate: date},
			Amount:   decimal.NewNullDecimal(line.Amount),
		}
		if _, err := s.SaveBudget(ctx, b); err != nil {
			return saved, skipped, fmt.Errorf("import %s: %w", line.Envelope, err)
		}
		saved++
	}

	slog.InfoContext(ctx, "Imported budget plan",
		"month", date.Format("2006-01"),
		"saved", saved,
		"skipped", len(skipped))
	return saved, skipped, nil
}

func planKey(group, envelope string) string {
	return strings.ToLower(strings.TrimSpace(group)) + "\x00" + strings.ToLower(strings.TrimSpace(envelope))
}

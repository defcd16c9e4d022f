package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"envelopes/internal/amqp"
	"envelopes/internal/core"
	"envelopes/internal/engine"
)

// GetEnvelopes lists envelopes visible under intent, optionally narrowed by a
// text query over the envelope and group descriptions.
func (s *LedgerService) GetEnvelopes(ctx context.Context, intent core.FilterIntent, query string) ([]core.Envelope, error) {
	envelopes, err := s.store.Envelopes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list envelopes: %w", err)
	}
	envelopes = engine.PopulateEnvelopes(envelopes)
	if intent == core.FilterSelection || intent == core.FilterReport {
		envelopes = append(envelopes, core.GenericDebtEnvelope(), core.GenericHiddenEnvelope())
	}
	envelopes = core.Filter(envelopes, intent)
	if query != "" {
		envelopes = core.Search(envelopes, query)
	}
	return envelopes, nil
}

// SaveEnvelope creates or updates a user envelope.
func (s *LedgerService) SaveEnvelope(ctx context.Context, e core.Envelope) (core.Envelope, error) {
	group, err := s.store.EnvelopeGroup(ctx, e.Group.ID)
	switch {
	case err == nil:
		e.Group = group
	case isNotFound(err):
		return e, fmt.Errorf("save envelope: %w", core.NewValidationError("envelope group does not exist"))
	default:
		return e, fmt.Errorf("get envelope group: %w", err)
	}
	if e.Group.IsDeleted() {
		return e, fmt.Errorf("save envelope: %w", core.NewValidationError("envelope group is deleted"))
	}
	if err := e.Validate(); err != nil {
		return e, fmt.Errorf("save envelope: %w", err)
	}
	if e.Group.IsDebt() {
		return e, fmt.Errorf("save envelope: %w", core.NewValidationError("debt envelopes are managed by their account"))
	}

	isNew := e.IsNew()
	e.Touch(s.now())
	if err := upsert(ctx, isNew, e, s.store.CreateEnvelope, s.store.UpdateEnvelope); err != nil {
		return e, fmt.Errorf("save envelope: %w", err)
	}
	s.changed(ctx, amqp.EventEnvelope, e.ID, s.now())
	return e, nil
}

// DeleteEnvelope soft-deletes a user envelope. Built-in and debt envelopes
// are protected.
func (s *LedgerService) DeleteEnvelope(ctx context.Context, id uuid.UUID) error {
	return s.markEnvelope(ctx, id, func(e *core.Envelope, now time.Time) { e.DeletedDateTime = now })
}

// SetEnvelopeHidden hides or unhides a user envelope.
func (s *LedgerService) SetEnvelopeHidden(ctx context.Context, id uuid.UUID, hidden bool) error {
	return s.markEnvelope(ctx, id, func(e *core.Envelope, now time.Time) {
		e.HiddenDateTime = time.Time{}
		if hidden {
			e.HiddenDateTime = now
		}
	})
}

func (s *LedgerService) markEnvelope(ctx context.Context, id uuid.UUID, mark func(*core.Envelope, time.Time)) error {
	e, err := s.store.Envelope(ctx, id)
	if err != nil {
		return fmt.Errorf("get envelope: %w", err)
	}
	if e.IsDeleted() {
		return fmt.Errorf("get envelope %s: %w", id, core.ErrNotFound)
	}
	if e.IsIncome() || e.IsBuffer() || e.IsSystem() || e.IsGeneric() || e.IsDebt() {
		return fmt.Errorf("change envelope: %w", core.NewValidationError("income, system and debt envelopes cannot be deleted or hidden"))
	}

	now := s.now()
	mark(&e, now)
	e.Touch(now)
	if err := s.store.UpdateEnvelope(ctx, e); err != nil {
		return fmt.Errorf("update envelope: %w", err)
	}
	s.changed(ctx, amqp.EventEnvelope, id, now)
	return nil
}

// GetEnvelopeGroups lists groups visible under intent.
func (s *LedgerService) GetEnvelopeGroups(ctx context.Context, intent core.FilterIntent) ([]core.EnvelopeGroup, error) {
	groups, err := s.store.EnvelopeGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list envelope groups: %w", err)
	}
	return core.Filter(groups, intent), nil
}

// SaveEnvelopeGroup creates or updates a user group.
func (s *LedgerService) SaveEnvelopeGroup(ctx context.Context, g core.EnvelopeGroup) (core.EnvelopeGroup, error) {
	if err := g.Validate(); err != nil {
		return g, fmt.Errorf("save envelope group: %w", err)
	}
	isNew := g.IsNew()
	g.Touch(s.now())
	if err := upsert(ctx, isNew, g, s.store.CreateEnvelopeGroup, s.store.UpdateEnvelopeGroup); err != nil {
		return g, fmt.Errorf("save envelope group: %w", err)
	}
	s.changed(ctx, amqp.EventEnvelope, g.ID, s.now())
	return g, nil
}

// DeleteEnvelopeGroup soft-deletes an empty user group.
func (s *LedgerService) DeleteEnvelopeGroup(ctx context.Context, id uuid.UUID) error {
	g, err := s.store.EnvelopeGroup(ctx, id)
	if err != nil {
		return fmt.Errorf("get envelope group: %w", err)
	}
	if g.IsDeleted() {
		return fmt.Errorf("get envelope group %s: %w", id, core.ErrNotFound)
	}
	if g.IsWellKnown() {
		return fmt.Errorf("delete envelope group: %w", core.NewValidationError("built-in envelope groups cannot be deleted"))
	}

	envelopes, err := s.store.Envelopes(ctx)
	if err != nil {
		return fmt.Errorf("list envelopes: %w", err)
	}
	for _, e := range envelopes {
		if e.Group.ID == id && !e.IsDeleted() {
			return fmt.Errorf("delete envelope group %s: group still has envelopes: %w", id, core.ErrConflict)
		}
	}

	now := s.now()
	g.DeletedDateTime = now
	g.Touch(now)
	if err := s.store.UpdateEnvelopeGroup(ctx, g); err != nil {
		return fmt.Errorf("delete envelope group: %w", err)
	}
	s.changed(ctx, amqp.EventEnvelope, id, now)
	return nil
}

// GetPayees lists payees visible under intent, optionally narrowed by text.
func (s *LedgerService) GetPayees(ctx context.Context, intent core.FilterIntent, query string) ([]core.Payee, error) {
	payees, err := s.store.Payees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payees: %w", err)
	}
	payees = core.Filter(payees, intent)
	if query != "" {
		payees = core.Search(payees, query)
	}
	return payees, nil
}

// SavePayee creates or updates a plain payee. Account payees follow their
// account and the starting balance payee is fixed.
func (s *LedgerService) SavePayee(ctx context.Context, p core.Payee) (core.Payee, error) {
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("save payee: %w", err)
	}
	if p.ID != uuid.Nil {
		if _, err := s.store.Account(ctx, p.ID); err == nil {
			return p, fmt.Errorf("save payee: %w", core.NewValidationError("account payees are managed by their account"))
		} else if !isNotFound(err) {
			return p, fmt.Errorf("get account: %w", err)
		}
	}

	isNew := p.IsNew()
	p.Touch(s.now())
	if err := upsert(ctx, isNew, p, s.store.CreatePayee, s.store.UpdatePayee); err != nil {
		return p, fmt.Errorf("save payee: %w", err)
	}
	s.changed(ctx, amqp.EventPayee, p.ID, s.now())
	return p, nil
}

// DeletePayee soft-deletes a plain payee that no active transaction uses.
func (s *LedgerService) DeletePayee(ctx context.Context, id uuid.UUID) error {
	p, err := s.store.Payee(ctx, id)
	if err != nil {
		return fmt.Errorf("get payee: %w", err)
	}
	if p.IsDeleted() {
		return fmt.Errorf("get payee %s: %w", id, core.ErrNotFound)
	}
	if p.IsAccount || p.IsStartingBalance() {
		return fmt.Errorf("delete payee: %w", core.NewValidationError("account and system payees cannot be deleted"))
	}

	txs, err := s.store.TransactionsForPayee(ctx, id)
	if err != nil {
		return fmt.Errorf("list payee transactions: %w", err)
	}
	for _, t := range txs {
		if t.IsActive() {
			return fmt.Errorf("delete payee %s: payee has active transactions: %w", id, core.ErrConflict)
		}
	}

	now := s.now()
	p.DeletedDateTime = now
	p.Touch(now)
	if err := s.store.UpdatePayee(ctx, p); err != nil {
		return fmt.Errorf("delete payee: %w", err)
	}
	s.changed(ctx, amqp.EventPayee, id, now)
	return nil
}

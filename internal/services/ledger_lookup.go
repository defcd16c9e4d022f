package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"envelopes/internal/core"
	"envelopes/internal/engine"
)

// live rejects soft-deleted rows as not found.
func live[T any](v T, entity core.Entity, what string, err error) (T, error) {
	if err != nil {
		return v, fmt.Errorf("get %s: %w", what, err)
	}
	if entity.IsDeleted() {
		return v, fmt.Errorf("get %s %s: %w", what, entity.ID, core.ErrNotFound)
	}
	return v, nil
}

// GetEnvelope returns one live envelope with its group resolved.
func (s *LedgerService) GetEnvelope(ctx context.Context, id uuid.UUID) (core.Envelope, error) {
	e, err := s.store.Envelope(ctx, id)
	e, err = live(e, e.Entity, "envelope", err)
	if err != nil {
		return e, err
	}
	return engine.PopulateEnvelope(e), nil
}

// GetEnvelopeGroup returns one live envelope group.
func (s *LedgerService) GetEnvelopeGroup(ctx context.Context, id uuid.UUID) (core.EnvelopeGroup, error) {
	g, err := s.store.EnvelopeGroup(ctx, id)
	return live(g, g.Entity, "envelope group", err)
}

// GetPayee returns one live payee.
func (s *LedgerService) GetPayee(ctx context.Context, id uuid.UUID) (core.Payee, error) {
	p, err := s.store.Payee(ctx, id)
	return live(p, p.Entity, "payee", err)
}

// GetTransaction returns one live transaction.
func (s *LedgerService) GetTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	t, err := s.store.Transaction(ctx, id)
	return live(t, t.Entity, "transaction", err)
}

// Package engine holds the pure computations of the ledger: envelope display
// resolution, month and budget population, account balances and the
// transaction classifier and combiner.
//
// Every function takes value snapshots and returns new values. Nothing here
// performs I/O or keeps state between calls.
package engine

import "envelopes/internal/core"

// PopulateGroup swaps a built-in group reference for its canonical value.
func PopulateGroup(g core.EnvelopeGroup) core.EnvelopeGroup {
	if known, ok := core.WellKnownGroup(g.ID); ok {
		return known
	}
	return g
}

// PopulateEnvelope resolves an envelope to its display form. Built-in envelopes
// are replaced by their canonical value and debt envelopes get the canonical
// Debt group.
func PopulateEnvelope(e core.Envelope) core.Envelope {
	switch {
	case e.IsIncome():
		return core.IncomeEnvelope()
	case e.IsBuffer():
		return core.BufferEnvelope()
	case e.ID == core.IgnoredEnvelopeID:
		return core.IgnoredEnvelope()
	case e.IsGenericDebt():
		return core.GenericDebtEnvelope()
	case e.IsGenericHidden():
		return core.GenericHiddenEnvelope()
	case e.Group.IsDebt():
		e.Group = core.DebtGroup()
		return e
	}
	e.Group = PopulateGroup(e.Group)
	return e
}

// PopulateEnvelopes applies PopulateEnvelope to every item.
func PopulateEnvelopes(envelopes []core.Envelope) []core.Envelope {
	out := make([]core.Envelope, len(envelopes))
	for i, e := range envelopes {
		out[i] = PopulateEnvelope(e)
	}
	return out
}

package engine

import (
	"time"

	"github.com/google/uuid"

	"envelopes/internal/core"
)

// Combine folds every split group into one display transaction. Unsplit
// transactions pass through unchanged; a group takes the position of its first
// member in the input.
//
// The combined row uses the SplitID as its ID, the earliest created member as
// its base and the sum of the member amounts. Account, payee and envelope become
// the Split placeholder when members disagree. It is posted only when every
// member is.
func Combine(transactions []core.Transaction) []core.Transaction {
	groups := make(map[uuid.UUID][]core.Transaction)
	for _, t := range transactions {
		if t.IsSplit() {
			groups[t.SplitID] = append(groups[t.SplitID], t)
		}
	}

	out := make([]core.Transaction, 0, len(transactions))
	emitted := make(map[uuid.UUID]bool)
	for _, t := range transactions {
		if !t.IsSplit() {
			out = append(out, t)
			continue
		}
		if emitted[t.SplitID] {
			continue
		}
		emitted[t.SplitID] = true
		out = append(out, combineGroup(groups[t.SplitID]))
	}
	return out
}

func combineGroup(members []core.Transaction) core.Transaction {
	base := members[0]
	for _, m := range members[1:] {
		if m.CreatedDateTime.Before(base.CreatedDateTime) {
			base = m
		}
	}

	combined := base
	combined.ID = base.SplitID
	combined.Amount = members[0].Amount
	combined.Posted = members[0].Posted
	for _, m := range members[1:] {
		combined.Amount = combined.Amount.Add(m.Amount)
		combined.Posted = combined.Posted && m.Posted
		if m.Account.ID != base.Account.ID {
			combined.Account = core.SplitAccount()
		}
		if m.Payee.ID != base.Payee.ID {
			combined.Payee = core.SplitPayee()
		}
		if m.Envelope.ID != base.Envelope.ID {
			combined.Envelope = core.SplitEnvelope()
		}
	}
	return combined
}

// PlanSplitDeletion returns the writes needed to delete target: target itself
// marked deleted and, when exactly one active sibling would remain, that
// sibling with its SplitID cleared. siblings may include target.
func PlanSplitDeletion(target core.Transaction, siblings []core.Transaction, now time.Time) []core.Transaction {
	target.DeletedDateTime = now
	target.ModifiedDateTime = now
	updates := []core.Transaction{target}
	if !target.IsSplit() {
		return updates
	}

	var remaining []core.Transaction
	for _, s := range siblings {
		if s.ID == target.ID || !s.IsActive() || s.SplitID != target.SplitID {
			continue
		}
		remaining = append(remaining, s)
	}
	if len(remaining) == 1 {
		last := remaining[0]
		last.SplitID = uuid.Nil
		last.ModifiedDateTime = now
		updates = append(updates, last)
	}
	return updates
}

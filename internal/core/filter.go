package core

import "strings"

// FilterIntent describes why a list of entities is being shown.
type FilterIntent int

const (
	// FilterStandard lists the editable line items.
	FilterStandard FilterIntent = iota
	// FilterSelection lists what a user may pick from, generic aggregates included.
	FilterSelection
	// FilterReport lists what a report summarizes, generic aggregates included.
	FilterReport
	// FilterHidden lists hidden rows that are not deleted.
	FilterHidden
	// FilterAll lists everything.
	FilterAll
)

var filterIntentNames = map[FilterIntent]string{
	FilterStandard:  "standard",
	FilterSelection: "selection",
	FilterReport:    "report",
	FilterHidden:    "hidden",
	FilterAll:       "all",
}

func (f FilterIntent) String() string {
	if name, ok := filterIntentNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseFilterIntent maps a name back to its intent. Empty means standard.
func ParseFilterIntent(s string) (FilterIntent, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FilterStandard, nil
	}
	for intent, name := range filterIntentNames {
		if name == s {
			return intent, nil
		}
	}
	return FilterStandard, NewValidationError("unknown filter '" + s + "'")
}

type (
	Matcher interface {
		Matches(intent FilterIntent) bool
	}

	Searchable interface {
		MatchesText(query string) bool
	}
)

// Filter keeps the items matching intent, preserving order.
func Filter[T Matcher](items []T, intent FilterIntent) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item.Matches(intent) {
			out = append(out, item)
		}
	}
	return out
}

// Search keeps the items whose text matches query, preserving order.
func Search[T Searchable](items []T, query string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item.MatchesText(query) {
			out = append(out, item)
		}
	}
	return out
}

// containsFold reports whether any of fields contains query, ignoring case.
// An empty query matches everything.
func containsFold(query string, fields ...string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

func (a Account) Matches(intent FilterIntent) bool {
	switch intent {
	case FilterStandard, FilterSelection, FilterReport:
		return a.IsActive() && !a.IsHidden()
	case FilterHidden:
		return a.IsHidden() && !a.IsDeleted()
	case FilterAll:
		return true
	}
	return false
}

func (a Account) MatchesText(query string) bool {
	return containsFold(query, a.Description)
}

func (p Payee) Matches(intent FilterIntent) bool {
	switch intent {
	case FilterStandard, FilterSelection, FilterReport:
		return p.IsActive() && !p.IsHidden() && !p.IsStartingBalance()
	case FilterHidden:
		return p.IsHidden() && !p.IsDeleted() && !p.IsStartingBalance()
	case FilterAll:
		return true
	}
	return false
}

func (p Payee) MatchesText(query string) bool {
	return containsFold(query, p.Description)
}

func (g EnvelopeGroup) Matches(intent FilterIntent) bool {
	switch intent {
	case FilterStandard:
		return g.IsActive() && !g.IsHidden() && !g.IsIncome() && !g.IsSystem() && !g.IsGenericHidden()
	case FilterSelection, FilterReport:
		return g.IsActive() && !g.IsHidden() && !g.IsIncome() && !g.IsSystem()
	case FilterHidden:
		return g.IsHidden() && !g.IsDeleted() && !g.IsWellKnown()
	case FilterAll:
		return true
	}
	return false
}

func (g EnvelopeGroup) MatchesText(query string) bool {
	return containsFold(query, g.Description)
}

// Matches applies the visibility rules to an envelope. Selection and report
// views replace individual debt and hidden envelopes with the generic aggregates.
func (e Envelope) Matches(intent FilterIntent) bool {
	switch intent {
	case FilterStandard:
		return e.IsActive() && !e.IsHidden() && e.IsBudgetable()
	case FilterSelection, FilterReport:
		if e.IsGeneric() {
			return true
		}
		return e.IsActive() && !e.IsHidden() && e.IsBudgetable() && !e.Group.IsDebt()
	case FilterHidden:
		return e.IsHidden() && !e.IsDeleted() && e.IsBudgetable()
	case FilterAll:
		return true
	}
	return false
}

func (e Envelope) MatchesText(query string) bool {
	return containsFold(query, e.Description, e.Group.Description)
}

func (b Budget) Matches(intent FilterIntent) bool {
	if intent == FilterAll {
		return true
	}
	return !b.IsDeleted() && b.Envelope.Matches(intent)
}

func (b Budget) MatchesText(query string) bool {
	return b.Envelope.MatchesText(query)
}

func (t Transaction) Matches(intent FilterIntent) bool {
	switch intent {
	case FilterStandard, FilterSelection, FilterReport:
		return t.IsActive()
	case FilterHidden:
		return t.IsHidden() && !t.IsDeleted()
	case FilterAll:
		return true
	}
	return false
}

func (t Transaction) MatchesText(query string) bool {
	return containsFold(query, t.Payee.Description, t.Account.Description, t.Envelope.Description, t.Notes)
}

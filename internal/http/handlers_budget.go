package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"envelopes/internal/amqp"
	"envelopes/internal/core"
	applog "envelopes/internal/log"
)

type budgetRequest struct {
	Month           string  `json:"month"`
	EnvelopeID      string  `json:"envelopeId"`
	Amount          *string `json:"amount"`
	IgnoreOverspend bool    `json:"ignoreOverspend"`
}

type transferRequest struct {
	Month  string `json:"month"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	schedule, err := s.ledger.GetSchedule(r.Context(), month)
	writeResult(w, r, http.StatusOK, schedule, err)
}

// handleGetReport returns the month with every budget line, unfiltered.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.ledger.PopulateMonth(r.Context(), month)
	writeResult(w, r, http.StatusOK, report, err)
}

func (s *Server) handleGetBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	intent, err := ParseIntent(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	budgets, err := s.ledger.GetBudgets(r.Context(), month, intent)
	if err == nil {
		if q := ParseQueryText(r); q != "" {
			budgets = core.Search(budgets, q)
		}
	}
	writeResult(w, r, http.StatusOK, budgets, err)
}

// handleSaveBudget sets an envelope allocation. A null amount is rejected by
// validation, so an allocation is cleared by sending "0".
func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p := &fieldParser{}
	b := core.Budget{
		Envelope:        core.Envelope{Entity: core.Entity{ID: p.requiredID("envelopeId", req.EnvelopeID)}},
		Schedule:        core.BudgetSchedule{BeginDate: p.month("month", req.Month, s.now())},
		IgnoreOverspend: req.IgnoreOverspend,
	}
	if req.Amount != nil {
		b.Amount = decimal.NewNullDecimal(p.amount("amount", *req.Amount))
	}
	if err := p.err(); err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := s.ledger.SaveBudget(r.Context(), b)
	if err == nil {
		s.events.LogLedgerWrite(r.Context(), applog.OpUpdate, amqp.EventBudget, saved.ID, saved.Schedule.BeginDate)
	}
	writeResult(w, r, http.StatusOK, saved, err)
}

func (s *Server) handleTransferBudget(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p := &fieldParser{}
	month := p.month("month", req.Month, s.now())
	from := p.requiredID("from", req.From)
	to := p.requiredID("to", req.To)
	amount := p.amount("amount", req.Amount)
	if err := p.err(); err != nil {
		writeError(w, r, err)
		return
	}

	err := s.ledger.TransferBudget(r.Context(), month, from, to, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.events.LogLedgerWrite(r.Context(), applog.OpTransfer, amqp.EventBudget, to, month)

	// the transfer is committed; a failed reload only shortens the response
	transferred := make([]core.Budget, 0, 2)
	budgets, err := s.ledger.GetBudgets(r.Context(), month, core.FilterAll)
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Failed to reload transferred budgets",
			applog.FieldError, err,
			applog.FieldPath, r.URL.Path)
	}
	for _, b := range budgets {
		if b.Envelope.ID == from || b.Envelope.ID == to {
			transferred = append(transferred, b)
		}
	}
	Result(http.StatusOK, transferred).Write(w)
}

package http

import (
	"net/http"
	"strconv"
	"time"

	"envelopes/internal/amqp"
	"envelopes/internal/core"
	applog "envelopes/internal/log"
	"envelopes/internal/services"
)

type transactionRequest struct {
	AccountID   string `json:"accountId"`
	PayeeID     string `json:"payeeId"`
	EnvelopeID  string `json:"envelopeId"`
	Amount      string `json:"amount"`
	ServiceDate string `json:"serviceDate"`
	Posted      bool   `json:"posted"`
	Notes       string `json:"notes"`
}

type splitRequest struct {
	Members []transactionRequest `json:"members"`
}

// apply copies the request onto t; field names in messages get prefix.
func (req transactionRequest) apply(p *fieldParser, prefix string, t core.Transaction, now func() time.Time) core.Transaction {
	t.Account = core.Account{Entity: core.Entity{ID: p.requiredID(prefix+"accountId", req.AccountID)}}
	t.Payee = core.Payee{Entity: core.Entity{ID: p.requiredID(prefix+"payeeId", req.PayeeID)}}
	t.Envelope = core.Envelope{Entity: core.Entity{ID: p.id(prefix+"envelopeId", req.EnvelopeID)}}
	t.Amount = p.amount(prefix+"amount", req.Amount)
	t.ServiceDate = p.date(prefix+"serviceDate", req.ServiceDate, now())
	t.Posted = req.Posted
	t.Notes = sanitizeInput(req.Notes)
	return t
}

func (s *Server) handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	intent, err := ParseIntent(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	p := &fieldParser{}
	query := services.TransactionQuery{
		AccountID:  p.id("account", q.Get("account")),
		EnvelopeID: p.id("envelope", q.Get("envelope")),
		Intent:     intent,
		Text:       ParseQueryText(r),
	}
	if err := p.err(); err != nil {
		writeError(w, r, err)
		return
	}

	txs, err := s.ledger.GetTransactions(r.Context(), query)
	writeResult(w, r, http.StatusOK, txs, err)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	s.saveTransaction(w, r, core.Transaction{}, http.StatusCreated)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	stored, err := s.ledger.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if stored.IsReconciled() {
		writeError(w, r, core.NewValidationError("reconciled transactions cannot be changed"))
		return
	}
	s.saveTransaction(w, r, stored, http.StatusOK)
}

func (s *Server) saveTransaction(w http.ResponseWriter, r *http.Request, t core.Transaction, status int) {
	var req transactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := &fieldParser{}
	t = req.apply(p, "", t, s.now)
	if err := p.err(); err != nil {
		writeError(w, r, err)
		return
	}

	op := applog.OpUpdate
	if t.IsNew() {
		op = applog.OpCreate
	}
	saved, err := s.ledger.SaveTransaction(r.Context(), t)
	if err == nil {
		s.events.LogLedgerWrite(r.Context(), op, amqp.EventTransaction, saved.ID, saved.ServiceDate)
	}
	writeResult(w, r, status, saved, err)
}

// handleCreateSplit stores a new split; every member shares one split id.
func (s *Server) handleCreateSplit(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p := &fieldParser{}
	members := make([]core.Transaction, 0, len(req.Members))
	for i, m := range req.Members {
		prefix := "members[" + strconv.Itoa(i) + "]."
		members = append(members, m.apply(p, prefix, core.Transaction{}, s.now))
	}
	if err := p.err(); err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := s.ledger.SaveSplitTransaction(r.Context(), members)
	if err == nil {
		s.events.LogLedgerWrite(r.Context(), applog.OpCreate, amqp.EventTransaction, saved[0].SplitID, saved[0].ServiceDate)
	}
	writeResult(w, r, http.StatusCreated, saved, err)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, amqp.EventTransaction, s.ledger.DeleteTransaction)
}

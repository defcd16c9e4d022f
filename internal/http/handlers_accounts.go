package http

import (
	"net/http"

	"envelopes/internal/amqp"
	"envelopes/internal/core"
	applog "envelopes/internal/log"
)

type accountRequest struct {
	Description     string `json:"description"`
	Notes           string `json:"notes"`
	OnBudget        bool   `json:"onBudget"`
	StartingBalance string `json:"startingBalance"`
	Date            string `json:"date"`
}

type reconcileRequest struct {
	Date    string `json:"date"`
	Balance string `json:"balance"`
}

func (req accountRequest) account() core.Account {
	return core.Account{
		Description: sanitizeInput(req.Description),
		Notes:       sanitizeInput(req.Notes),
		OnBudget:    req.OnBudget,
	}
}

// handleGetAccounts lists accounts with balances and the debt payment due in
// the requested month.
func (s *Server) handleGetAccounts(w http.ResponseWriter, r *http.Request) {
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

	accounts, err := s.ledger.GetAccounts(r.Context(), month, intent)
	if err == nil {
		if q := ParseQueryText(r); q != "" {
			accounts = core.Search(accounts, q)
		}
	}
	writeResult(w, r, http.StatusOK, accounts, err)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p := &fieldParser{}
	balance := p.optionalAmount("startingBalance", req.StartingBalance)
	date := p.date("date", req.Date, s.now())
	if err := p.err(); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := s.ledger.CreateAccount(r.Context(), req.account(), balance, date)
	if err == nil {
		s.events.LogLedgerWrite(r.Context(), applog.OpCreate, amqp.EventAccount, account.ID, date)
	}
	writeResult(w, r, http.StatusCreated, account, err)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req accountRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.StartingBalance != "" || req.Date != "" {
		writeError(w, r, core.NewValidationError("the starting balance cannot be changed"))
		return
	}

	account := req.account()
	account.ID = id
	account, err = s.ledger.UpdateAccount(r.Context(), account)
	if err == nil {
		s.events.LogLedgerWrite(r.Context(), applog.OpUpdate, amqp.EventAccount, id, s.now())
	}
	writeResult(w, r, http.StatusOK, account, err)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, amqp.EventAccount, s.ledger.DeleteAccount)
}

func (s *Server) handleReconcileAccount(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reconcileRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p := &fieldParser{}
	date := p.date("date", req.Date, s.now())
	balance := p.amount("balance", req.Balance)
	if err := p.err(); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := s.ledger.ReconcileAccount(r.Context(), id, date, balance)
	if err == nil {
		s.events.LogLedgerWrite(r.Context(), applog.OpUpdate, amqp.EventAccount, id, date)
	}
	writeResult(w, r, http.StatusOK, account, err)
}

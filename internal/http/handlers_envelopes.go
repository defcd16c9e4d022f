package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"envelopes/internal/amqp"
	"envelopes/internal/core"
	applog "envelopes/internal/log"
)

type envelopeRequest struct {
	Description     string `json:"description"`
	Notes           string `json:"notes"`
	GroupID         string `json:"groupId"`
	IgnoreOverspend bool   `json:"ignoreOverspend"`
}

type hideRequest struct {
	Hidden bool `json:"hidden"`
}

// describedRequest is the body of envelope groups and payees.
type describedRequest struct {
	Description string `json:"description"`
	Notes       string `json:"notes"`
}

func (s *Server) handleGetEnvelopes(w http.ResponseWriter, r *http.Request) {
	intent, err := ParseIntent(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	envelopes, err := s.ledger.GetEnvelopes(r.Context(), intent, ParseQueryText(r))
	writeResult(w, r, http.StatusOK, envelopes, err)
}

func (s *Server) handleCreateEnvelope(w http.ResponseWriter, r *http.Request) {
	s.saveEnvelope(w, r, core.Envelope{}, http.StatusCreated)
}

func (s *Server) handleUpdateEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	stored, err := s.ledger.GetEnvelope(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.saveEnvelope(w, r, stored, http.StatusOK)
}

func (s *Server) saveEnvelope(w http.ResponseWriter, r *http.Request, e core.Envelope, status int) {
	var req envelopeRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := &fieldParser{}
	e.Group = core.EnvelopeGroup{Entity: core.Entity{ID: p.requiredID("groupId", req.GroupID)}}
	if err := p.err(); err != nil {
		writeError(w, r, err)
		return
	}
	e.Description = sanitizeInput(req.Description)
	e.Notes = sanitizeInput(req.Notes)
	e.IgnoreOverspend = req.IgnoreOverspend

	op := applog.OpUpdate
	if e.IsNew() {
		op = applog.OpCreate
	}
	saved, err := s.ledger.SaveEnvelope(r.Context(), e)
	if err == nil {
		s.events.LogLedgerWrite(r.Context(), op, amqp.EventEnvelope, saved.ID, s.now())
	}
	writeResult(w, r, status, saved, err)
}

func (s *Server) handleDeleteEnvelope(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, amqp.EventEnvelope, s.ledger.DeleteEnvelope)
}

func (s *Server) handleHideEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req hideRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.SetEnvelopeHidden(r.Context(), id, req.Hidden); err != nil {
		writeError(w, r, err)
		return
	}
	s.events.LogLedgerWrite(r.Context(), applog.OpUpdate, amqp.EventEnvelope, id, s.now())

	envelope, err := s.ledger.GetEnvelope(r.Context(), id)
	writeResult(w, r, http.StatusOK, envelope, err)
}

func (s *Server) handleGetEnvelopeGroups(w http.ResponseWriter, r *http.Request) {
	intent, err := ParseIntent(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	groups, err := s.ledger.GetEnvelopeGroups(r.Context(), intent)
	writeResult(w, r, http.StatusOK, groups, err)
}

func (s *Server) handleCreateEnvelopeGroup(w http.ResponseWriter, r *http.Request) {
	s.saveEnvelopeGroup(w, r, core.EnvelopeGroup{}, http.StatusCreated)
}

func (s *Server) handleUpdateEnvelopeGroup(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	stored, err := s.ledger.GetEnvelopeGroup(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if stored.IsWellKnown() {
		writeError(w, r, core.NewValidationError("built-in envelope groups cannot be changed"))
		return
	}
	s.saveEnvelopeGroup(w, r, stored, http.StatusOK)
}

func (s *Server) saveEnvelopeGroup(w http.ResponseWriter, r *http.Request, g core.EnvelopeGroup, status int) {
	var req describedRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g.Description = sanitizeInput(req.Description)
	g.Notes = sanitizeInput(req.Notes)

	saved, err := s.ledger.SaveEnvelopeGroup(r.Context(), g)
	if err == nil {
		s.events.LogLedgerWrite(r.Context(), applog.OpUpdate, "envelope_group", saved.ID, s.now())
	}
	writeResult(w, r, status, saved, err)
}

func (s *Server) handleDeleteEnvelopeGroup(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, "envelope_group", s.ledger.DeleteEnvelopeGroup)
}

func (s *Server) handleGetPayees(w http.ResponseWriter, r *http.Request) {
	intent, err := ParseIntent(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	payees, err := s.ledger.GetPayees(r.Context(), intent, ParseQueryText(r))
	writeResult(w, r, http.StatusOK, payees, err)
}

func (s *Server) handleCreatePayee(w http.ResponseWriter, r *http.Request) {
	s.savePayee(w, r, core.Payee{}, http.StatusCreated)
}

func (s *Server) handleUpdatePayee(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	stored, err := s.ledger.GetPayee(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.savePayee(w, r, stored, http.StatusOK)
}

func (s *Server) savePayee(w http.ResponseWriter, r *http.Request, p core.Payee, status int) {
	var req describedRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p.Description = sanitizeInput(req.Description)
	p.Notes = sanitizeInput(req.Notes)

	saved, err := s.ledger.SavePayee(r.Context(), p)
	if err == nil {
		s.events.LogLedgerWrite(r.Context(), applog.OpUpdate, amqp.EventPayee, saved.ID, s.now())
	}
	writeResult(w, r, status, saved, err)
}

func (s *Server) handleDeletePayee(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, amqp.EventPayee, s.ledger.DeletePayee)
}

// deleteByID runs a soft delete addressed by the {id} wildcard.
func (s *Server) deleteByID(w http.ResponseWriter, r *http.Request, kind string, remove func(ctx context.Context, id uuid.UUID) error) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := remove(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.events.LogLedgerWrite(r.Context(), applog.OpDelete, kind, id, s.now())
	Result(http.StatusOK, id).Write(w)
}

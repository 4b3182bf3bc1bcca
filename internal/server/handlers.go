package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/claude/coachplan/internal/apperr"
	"github.com/claude/coachplan/internal/models"
	"github.com/claude/coachplan/internal/plan"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	var prop models.Proposal
	if !decodeJSON(w, r, &prop) {
		return
	}

	result, err := s.svc.Plans.Ingest(r.Context(), prop)
	if err != nil {
		s.writeError(w, "ingest error", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req plan.CreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.svc.Plans.Create(r.Context(), mustPrincipal(r), req)
	if err != nil {
		s.writeError(w, "create plan error", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.svc.Plans.ListAll(r.Context(), mustPrincipal(r))
	if err != nil {
		s.writeError(w, "list plans error", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(plans))
}

func (s *Server) handleMyPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.svc.Plans.ListMine(r.Context(), mustPrincipal(r))
	if err != nil {
		s.writeError(w, "list plans error", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(plans))
}

func (s *Server) handleActivePlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Plans.ActiveFor(r.Context(), mustPrincipal(r).ID)
	if err != nil {
		s.writeError(w, "active plan error", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePendingPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.svc.Plans.ListPending(r.Context(), mustPrincipal(r))
	if err != nil {
		s.writeError(w, "pending plans error", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(plans))
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := s.svc.Plans.Get(r.Context(), mustPrincipal(r), id)
	if err != nil {
		s.writeError(w, "get plan error", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleEditPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var sets []plan.SetInput
	if !decodeJSON(w, r, &sets) {
		return
	}
	p, err := s.svc.Plans.Edit(r.Context(), mustPrincipal(r), id, sets)
	if err != nil {
		s.writeError(w, "edit plan error", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleApprovePlan(w http.ResponseWriter, r *http.Request) {
	s.planAction(w, r, "approve", s.svc.Plans.Approve)
}

func (s *Server) handleRejectPlan(w http.ResponseWriter, r *http.Request) {
	s.planAction(w, r, "reject", s.svc.Plans.Reject)
}

func (s *Server) handleArchivePlan(w http.ResponseWriter, r *http.Request) {
	s.planAction(w, r, "archive", s.svc.Plans.Archive)
}

type decision struct {
	Approved *bool `json:"approved"`
}

func (s *Server) handleDecidePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var d decision
	if !decodeJSON(w, r, &d) {
		return
	}
	if d.Approved == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "approved is required"})
		return
	}
	p, err := s.svc.Plans.Decide(r.Context(), mustPrincipal(r), id, *d.Approved)
	if err != nil {
		s.writeError(w, "decide plan error", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleRenotifyPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.Plans.Renotify(r.Context(), mustPrincipal(r), id); err != nil {
		s.writeError(w, "renotify error", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "dispatched"})
}

type planActionFunc func(ctx context.Context, p models.Principal, id uuid.UUID) (*models.TrainingPlan, error)

func (s *Server) planAction(w http.ResponseWriter, r *http.Request, op string, fn planActionFunc) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := fn(r.Context(), mustPrincipal(r), id)
	if err != nil {
		s.writeError(w, op+" plan error", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code. Only unexpected failures are
// logged at error level.
func (s *Server) writeError(w http.ResponseWriter, msg string, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(msg, "error", err)
	} else {
		s.log.Debug(msg, "error", err, "kind", apperr.KindOf(err).String())
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + key})
		return uuid.Nil, false
	}
	return id, true
}

// mustPrincipal returns the request principal. Routes using it are behind
// identity middleware, so the zero value is never observed in practice.
func mustPrincipal(r *http.Request) models.Principal {
	p, _ := principalFromContext(r)
	return p
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

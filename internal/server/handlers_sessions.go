package server

import (
	"net/http"

	"github.com/claude/coachplan/internal/anamnesis"
	"github.com/claude/coachplan/internal/session"
)

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req session.StartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.svc.Sessions.Start(r.Context(), mustPrincipal(r), req)
	if err != nil {
		s.writeError(w, "start session error", err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.Sessions.Current(r.Context(), mustPrincipal(r).ID)
	if err != nil {
		s.writeError(w, "current session error", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.svc.Sessions.History(r.Context(), mustPrincipal(r).ID)
	if err != nil {
		s.writeError(w, "session history error", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(sessions))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sess, err := s.svc.Sessions.Get(r.Context(), mustPrincipal(r), id)
	if err != nil {
		s.writeError(w, "get session error", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLogSet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req session.LogSetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	set, err := s.svc.Sessions.LogSet(r.Context(), mustPrincipal(r), id, req)
	if err != nil {
		s.writeError(w, "log set error", err)
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

func (s *Server) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sess, err := s.svc.Sessions.Finish(r.Context(), mustPrincipal(r), id)
	if err != nil {
		s.writeError(w, "finish session error", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSubmitAnamnesis(w http.ResponseWriter, r *http.Request) {
	var req anamnesis.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := s.svc.Anamnesis.Submit(r.Context(), mustPrincipal(r), req)
	if err != nil {
		s.writeError(w, "submit anamnesis error", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleMyAnamnesis(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	a, err := s.svc.Anamnesis.Active(r.Context(), p, p.ID)
	if err != nil {
		s.writeError(w, "anamnesis error", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleStudentAnamnesis(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, "studentID")
	if !ok {
		return
	}
	a, err := s.svc.Anamnesis.Active(r.Context(), mustPrincipal(r), studentID)
	if err != nil {
		s.writeError(w, "anamnesis error", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

package server

import (
	"net/http"

	"github.com/claude/coachplan/internal/catalog"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	if group := r.URL.Query().Get("muscle_group"); group != "" {
		exercises, err := s.svc.Catalog.ListByGroup(r.Context(), group)
		if err != nil {
			s.writeError(w, "list exercises error", err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(exercises))
		return
	}
	exercises, err := s.svc.Catalog.List(r.Context())
	if err != nil {
		s.writeError(w, "list exercises error", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(exercises))
}

func (s *Server) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var req catalog.CreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := s.svc.Catalog.Create(r.Context(), mustPrincipal(r), req)
	if err != nil {
		s.writeError(w, "create exercise error", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// handleCatalog serves the compact catalog the AI collaborator reads.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Catalog.Entries(r.Context(), "")
	if err != nil {
		s.writeError(w, "catalog error", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(entries))
}

func (s *Server) handleCatalogGroup(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Catalog.Entries(r.Context(), chi.URLParam(r, "group"))
	if err != nil {
		s.writeError(w, "catalog error", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(entries))
}

func (s *Server) handleTemporaryExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := s.svc.Catalog.ListTemporary(r.Context(), mustPrincipal(r))
	if err != nil {
		s.writeError(w, "temporary exercises error", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(exercises))
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := s.svc.Catalog.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, "get exercise error", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeactivateExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.Catalog.Deactivate(r.Context(), mustPrincipal(r), id); err != nil {
		s.writeError(w, "deactivate exercise error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConfirmExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.Catalog.Confirm(r.Context(), mustPrincipal(r), id); err != nil {
		s.writeError(w, "confirm exercise error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/coachplan/internal/anamnesis"
	"github.com/claude/coachplan/internal/catalog"
	"github.com/claude/coachplan/internal/models"
	"github.com/claude/coachplan/internal/plan"
	"github.com/claude/coachplan/internal/session"
	"github.com/go-chi/chi/v5"
)

// Services are the core units the HTTP surface adapts requests to.
type Services struct {
	Plans     *plan.Service
	Sessions  *session.Executor
	Catalog   *catalog.Service
	Anamnesis *anamnesis.Service
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	svc      Services
	log      *slog.Logger
	apiKey   string
	identity func(http.Handler) http.Handler
	router   chi.Router
}

// New creates a new Server with all routes configured. identity resolves
// the principal for user-facing routes; nil means header identity.
func New(svc Services, apiKey string, identity func(http.Handler) http.Handler, log *slog.Logger) *Server {
	if identity == nil {
		identity = Identity
	}
	s := &Server{
		svc:      svc,
		log:      log,
		apiKey:   apiKey,
		identity: identity,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// MountMCP exposes h under /mcp behind the API key.
func (s *Server) MountMCP(h http.Handler) {
	s.router.With(APIKeyAuth(s.apiKey)).Handle("/mcp", h)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Route("/api/v1", func(api chi.Router) {
		// AI collaborator callback (API key required)
		api.With(APIKeyAuth(s.apiKey)).Post("/plans/callback", s.handleCallback)

		api.Group(func(r chi.Router) {
			r.Use(s.identity)
			s.userRoutes(r)
		})
	})
}

func (s *Server) userRoutes(r chi.Router) {
	r.Route("/plans", func(r chi.Router) {
		r.Post("/", s.handleCreatePlan)
		r.With(RequireRole(models.RoleAdmin)).Get("/", s.handleListPlans)
		r.Get("/mine", s.handleMyPlans)
		r.Get("/active", s.handleActivePlan)
		r.With(RequireRole(models.RoleProfessional, models.RoleAdmin)).Get("/pending", s.handlePendingPlans)
		r.Get("/{id}", s.handleGetPlan)
		r.Put("/{id}/sets", s.handleEditPlan)
		r.Post("/{id}/approve", s.handleApprovePlan)
		r.Post("/{id}/reject", s.handleRejectPlan)
		r.Post("/{id}/decide", s.handleDecidePlan)
		r.Post("/{id}/archive", s.handleArchivePlan)
		r.Post("/{id}/renotify", s.handleRenotifyPlan)
	})

	r.Route("/exercises", func(r chi.Router) {
		r.Get("/", s.handleListExercises)
		r.Post("/", s.handleCreateExercise)
		r.Get("/catalog", s.handleCatalog)
		r.Get("/catalog/{group}", s.handleCatalogGroup)
		r.Get("/temporary", s.handleTemporaryExercises)
		r.Get("/{id}", s.handleGetExercise)
		r.Delete("/{id}", s.handleDeactivateExercise)
		r.Post("/{id}/confirm", s.handleConfirmExercise)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleStartSession)
		r.Get("/current", s.handleCurrentSession)
		r.Get("/history", s.handleSessionHistory)
		r.Get("/{id}", s.handleGetSession)
		r.Post("/{id}/sets", s.handleLogSet)
		r.Post("/{id}/finish", s.handleFinishSession)
	})

	r.Route("/anamnesis", func(r chi.Router) {
		r.Post("/", s.handleSubmitAnamnesis)
		r.Get("/me", s.handleMyAnamnesis)
		r.Get("/{studentID}", s.handleStudentAnamnesis)
	})
}

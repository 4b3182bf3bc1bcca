// Package plan implements the training plan lifecycle: request, AI
// proposal ingestion, professional review and archival.
package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/claude/coachplan/internal/apperr"
	"github.com/claude/coachplan/internal/matcher"
	"github.com/claude/coachplan/internal/models"
	"github.com/google/uuid"
)

// Store is the persistence the plan lifecycle needs.
type Store interface {
	InsertPlan(ctx context.Context, p *models.TrainingPlan) error
	GetPlan(ctx context.Context, id uuid.UUID) (*models.TrainingPlan, error)
	GetActivePlan(ctx context.Context, studentID uuid.UUID) (*models.TrainingPlan, error)
	ListPlans(ctx context.Context, statuses ...models.PlanStatus) ([]models.TrainingPlan, error)
	ListStudentPlans(ctx context.Context, studentID uuid.UUID) ([]models.TrainingPlan, error)
	ReplacePlannedSets(ctx context.Context, planID uuid.UUID, rev models.PlanRevision) error
	TransitionPlan(ctx context.Context, planID uuid.UUID, from, to models.PlanStatus, at time.Time) error
	ActivatePlan(ctx context.Context, planID uuid.UUID, expectedActive *uuid.UUID, at time.Time) error
	GetExercise(ctx context.Context, id uuid.UUID) (*models.CatalogExercise, error)
	GetActiveAnamnesis(ctx context.Context, studentID uuid.UUID) (*models.Anamnesis, error)
}

// Matcher resolves free-text exercise names.
type Matcher interface {
	Match(ctx context.Context, name string) (matcher.Result, error)
}

// Dispatcher sends a generation request to the AI collaborator. Dispatch
// must not block on the collaborator and reports nothing back; it must
// not be bound to ctx's cancellation.
type Dispatcher interface {
	Dispatch(ctx context.Context, n models.Notification)
}

// Service runs plan lifecycle operations.
type Service struct {
	store    Store
	matcher  Matcher
	dispatch Dispatcher
	log      *slog.Logger
	now      func() time.Time
}

// NewService creates a plan Service.
func NewService(store Store, m Matcher, d Dispatcher, log *slog.Logger) *Service {
	return &Service{store: store, matcher: m, dispatch: d, log: log, now: time.Now}
}

// CreateRequest carries the student's prescription parameters.
type CreateRequest struct {
	Level       string `json:"level"`
	Focus       string `json:"focus"`
	DaysPerWeek int    `json:"days_per_week"`
	Limitations string `json:"limitations"`
}

func (r CreateRequest) validate() error {
	if strings.TrimSpace(r.Level) == "" {
		return apperr.Invalid("level is required")
	}
	if strings.TrimSpace(r.Focus) == "" {
		return apperr.Invalid("focus is required")
	}
	if r.DaysPerWeek < 1 || r.DaysPerWeek > 7 {
		return apperr.Invalid("days_per_week must be between 1 and 7, got %d", r.DaysPerWeek)
	}
	return nil
}

// Create records a plan request in DRAFT and asks the AI collaborator
// for a proposal. The plan is kept whatever happens to the notification.
func (s *Service) Create(ctx context.Context, p models.Principal, req CreateRequest) (*models.TrainingPlan, error) {
	if p.Role != models.RoleStudent {
		return nil, apperr.Forbidden("only students may request a plan")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	_, err := s.store.GetActivePlan(ctx, p.ID)
	switch {
	case err == nil:
		return nil, apperr.Conflict("student already has an active plan")
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, fmt.Errorf("checking active plan: %w", err)
	}

	now := s.now().UTC()
	plan := &models.TrainingPlan{
		ID:          uuid.New(),
		StudentID:   p.ID,
		Level:       strings.TrimSpace(req.Level),
		Focus:       strings.TrimSpace(req.Focus),
		DaysPerWeek: req.DaysPerWeek,
		Limitations: strings.TrimSpace(req.Limitations),
		Status:      models.PlanDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InsertPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("inserting plan: %w", err)
	}
	s.log.Info("plan requested", "plan", plan.ID, "student", p.ID, "level", plan.Level, "focus", plan.Focus)

	s.dispatch.Dispatch(ctx, s.notification(ctx, plan))
	return plan, nil
}

// notification builds the AI request, enriched with the student's active
// anamnesis when there is one.
func (s *Service) notification(ctx context.Context, plan *models.TrainingPlan) models.Notification {
	n := models.Notification{
		PlanID:      plan.ID,
		StudentID:   plan.StudentID,
		Level:       plan.Level,
		Focus:       plan.Focus,
		DaysPerWeek: plan.DaysPerWeek,
		Limitations: plan.Limitations,
	}
	a, err := s.store.GetActiveAnamnesis(ctx, plan.StudentID)
	switch {
	case err == nil:
		n.Age = a.Age
		n.WeightKg = a.WeightKg
		n.Injuries = a.Injuries
		n.MedicalConditions = a.MedicalConditions
		if n.Limitations == "" {
			n.Limitations = a.Injuries
		}
	case !errors.Is(err, apperr.ErrNotFound):
		s.log.Warn("reading anamnesis for notification", "plan", plan.ID, "error", err)
	}
	return n
}

// Redispatch re-sends the AI request for a plan still in DRAFT. The
// plan's UpdatedAt moves to now, so it is not stale again until another
// stale_after has passed.
func (s *Service) Redispatch(ctx context.Context, planID uuid.UUID) error {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	if plan.Status != models.PlanDraft {
		return apperr.Conflict("plan %s is %s, only DRAFT plans can be re-sent", planID, plan.Status)
	}
	if err := s.store.TransitionPlan(ctx, planID, models.PlanDraft, models.PlanDraft, s.now().UTC()); err != nil {
		return fmt.Errorf("touching plan %s: %w", planID, err)
	}
	s.dispatch.Dispatch(ctx, s.notification(ctx, plan))
	s.log.Info("plan generation re-dispatched", "plan", planID)
	return nil
}

// Renotify is the manual retry path for a lost AI notification.
func (s *Service) Renotify(ctx context.Context, p models.Principal, planID uuid.UUID) error {
	if !p.IsStaff() {
		return apperr.Forbidden("only staff may re-send a plan request")
	}
	return s.Redispatch(ctx, planID)
}

// Approve activates a plan under review. The student's current active
// plan, if any, is archived in the same atomic step.
func (s *Service) Approve(ctx context.Context, p models.Principal, planID uuid.UUID) (*models.TrainingPlan, error) {
	if !p.IsStaff() {
		return nil, apperr.Forbidden("only staff may approve plans")
	}
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(plan.Status, models.PlanActive) {
		return nil, illegal(plan.Status, models.PlanActive, "approve")
	}

	var expected *uuid.UUID
	current, err := s.store.GetActivePlan(ctx, plan.StudentID)
	switch {
	case err == nil:
		expected = &current.ID
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, fmt.Errorf("reading active plan: %w", err)
	}

	if err := s.store.ActivatePlan(ctx, planID, expected, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("activating plan %s: %w", planID, err)
	}
	if expected != nil {
		s.log.Info("plan archived", "plan", *expected, "superseded_by", planID)
	}
	s.log.Info("plan approved", "plan", planID, "student", plan.StudentID, "by", p.ID)
	return s.store.GetPlan(ctx, planID)
}

// Reject returns a plan under review to DRAFT, keeping its sets.
func (s *Service) Reject(ctx context.Context, p models.Principal, planID uuid.UUID) (*models.TrainingPlan, error) {
	if !p.IsStaff() {
		return nil, apperr.Forbidden("only staff may reject plans")
	}
	plan, err := s.transition(ctx, planID, models.PlanDraft, "reject")
	if err != nil {
		return nil, err
	}
	s.log.Info("plan rejected", "plan", planID, "by", p.ID)
	return plan, nil
}

// Archive force-closes an active plan.
func (s *Service) Archive(ctx context.Context, p models.Principal, planID uuid.UUID) (*models.TrainingPlan, error) {
	if p.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("only admins may archive plans")
	}
	plan, err := s.transition(ctx, planID, models.PlanArchived, "archive")
	if err != nil {
		return nil, err
	}
	s.log.Info("plan archived", "plan", planID, "by", p.ID)
	return plan, nil
}

// Decide approves or rejects a plan under review.
func (s *Service) Decide(ctx context.Context, p models.Principal, planID uuid.UUID, approved bool) (*models.TrainingPlan, error) {
	if approved {
		return s.Approve(ctx, p, planID)
	}
	return s.Reject(ctx, p, planID)
}

func (s *Service) transition(ctx context.Context, planID uuid.UUID, to models.PlanStatus, op string) (*models.TrainingPlan, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(plan.Status, to) {
		return nil, illegal(plan.Status, to, op)
	}
	if err := s.store.TransitionPlan(ctx, planID, plan.Status, to, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("%s plan %s: %w", op, planID, err)
	}
	return s.store.GetPlan(ctx, planID)
}

// Get returns a plan. Students may only read their own plans.
func (s *Service) Get(ctx context.Context, p models.Principal, planID uuid.UUID) (*models.TrainingPlan, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !p.IsStaff() && plan.StudentID != p.ID {
		return nil, apperr.Forbidden("plan %s belongs to another student", planID)
	}
	return plan, nil
}

// ActiveFor returns the student's currently executable plan.
func (s *Service) ActiveFor(ctx context.Context, studentID uuid.UUID) (*models.TrainingPlan, error) {
	return s.store.GetActivePlan(ctx, studentID)
}

// ListMine returns every plan of the calling student, newest first.
func (s *Service) ListMine(ctx context.Context, p models.Principal) ([]models.TrainingPlan, error) {
	return s.store.ListStudentPlans(ctx, p.ID)
}

// ListPending returns plans awaiting the AI or a professional, each with
// the student's active anamnesis.
func (s *Service) ListPending(ctx context.Context, p models.Principal) ([]models.PendingPlan, error) {
	if !p.IsStaff() {
		return nil, apperr.Forbidden("only staff may list pending plans")
	}
	plans, err := s.store.ListPlans(ctx, models.PlanDraft, models.PlanPendingReview)
	if err != nil {
		return nil, fmt.Errorf("listing pending plans: %w", err)
	}

	out := make([]models.PendingPlan, 0, len(plans))
	for _, plan := range plans {
		pp := models.PendingPlan{Plan: plan}
		a, err := s.store.GetActiveAnamnesis(ctx, plan.StudentID)
		switch {
		case err == nil:
			pp.Anamnesis = a
		case !errors.Is(err, apperr.ErrNotFound):
			return nil, fmt.Errorf("reading anamnesis for student %s: %w", plan.StudentID, err)
		}
		out = append(out, pp)
	}
	return out, nil
}

// ListAll returns every plan. Admin only.
func (s *Service) ListAll(ctx context.Context, p models.Principal) ([]models.TrainingPlan, error) {
	if p.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("only admins may list all plans")
	}
	return s.store.ListPlans(ctx)
}

// StaleDrafts returns DRAFT plans not updated since cutoff.
func (s *Service) StaleDrafts(ctx context.Context, cutoff time.Time) ([]models.TrainingPlan, error) {
	drafts, err := s.store.ListPlans(ctx, models.PlanDraft)
	if err != nil {
		return nil, fmt.Errorf("listing drafts: %w", err)
	}
	var stale []models.TrainingPlan
	for _, d := range drafts {
		if d.UpdatedAt.Before(cutoff) {
			stale = append(stale, d)
		}
	}
	return stale, nil
}

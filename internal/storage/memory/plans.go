package memory

import (
	"context"
	"sort"
	"time"

	"github.com/claude/coachplan/internal/apperr"
	"github.com/claude/coachplan/internal/models"
	"github.com/google/uuid"
)

func (s *Store) InsertPlan(_ context.Context, p *models.TrainingPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Status == models.PlanActive && s.activePlanLocked(p.StudentID) != nil {
		return apperr.Conflict("student already has an active plan")
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	stored := *p
	stored.Sets = nil
	s.plans[p.ID] = stored
	for i := range p.Sets {
		p.Sets[i].PlanID = p.ID
		s.sets[p.Sets[i].ID] = p.Sets[i]
	}
	return nil
}

func (s *Store) GetPlan(_ context.Context, id uuid.UUID) (*models.TrainingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[id]
	if !ok {
		return nil, apperr.NotFound("plan %s not found", id)
	}
	return s.withSetsLocked(p), nil
}

func (s *Store) GetActivePlan(_ context.Context, studentID uuid.UUID) (*models.TrainingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.activePlanLocked(studentID)
	if p == nil {
		return nil, apperr.NotFound("student %s has no active plan", studentID)
	}
	return s.withSetsLocked(*p), nil
}

// ListPlans returns plans in any of statuses, newest first. No statuses
// means all plans.
func (s *Store) ListPlans(_ context.Context, statuses ...models.PlanStatus) ([]models.TrainingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.TrainingPlan
	for _, p := range s.plans {
		if len(statuses) > 0 && !containsStatus(statuses, p.Status) {
			continue
		}
		out = append(out, *s.withSetsLocked(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListStudentPlans(_ context.Context, studentID uuid.UUID) ([]models.TrainingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.TrainingPlan
	for _, p := range s.plans {
		if p.StudentID == studentID {
			out = append(out, *s.withSetsLocked(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetPlannedSet(_ context.Context, id uuid.UUID) (*models.PlannedSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.sets[id]
	if !ok {
		return nil, apperr.NotFound("planned set %s not found", id)
	}
	return &ps, nil
}

func (s *Store) ReplacePlannedSets(_ context.Context, planID uuid.UUID, rev models.PlanRevision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[planID]
	if !ok {
		return apperr.NotFound("plan %s not found", planID)
	}
	if !rev.Allows(p.Status) {
		return apperr.Conflict("plan %s is %s", planID, p.Status)
	}

	for id, ps := range s.sets {
		if ps.PlanID == planID {
			delete(s.sets, id)
		}
	}
	for _, ps := range rev.Sets {
		ps.PlanID = planID
		s.sets[ps.ID] = ps
	}

	if rev.Content != nil {
		p.Name = rev.Content.Name
		p.Description = rev.Content.Description
		p.AIContent = rev.Content.AIContent
	}
	p.Status = rev.To
	p.UpdatedAt = rev.UpdatedAt
	s.plans[planID] = p
	return nil
}

func (s *Store) TransitionPlan(_ context.Context, planID uuid.UUID, from, to models.PlanStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[planID]
	if !ok {
		return apperr.NotFound("plan %s not found", planID)
	}
	if p.Status != from {
		return apperr.Conflict("plan %s is %s, expected %s", planID, p.Status, from)
	}
	p.Status = to
	p.UpdatedAt = at
	s.plans[planID] = p
	return nil
}

// ActivatePlan archives the student's active plan and activates planID
// in one step. expectedActive is the active plan the caller observed;
// if another approval got there first the call fails with Conflict.
func (s *Store) ActivatePlan(_ context.Context, planID uuid.UUID, expectedActive *uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[planID]
	if !ok {
		return apperr.NotFound("plan %s not found", planID)
	}
	if p.Status != models.PlanPendingReview {
		return apperr.Conflict("plan %s is %s, expected %s", planID, p.Status, models.PlanPendingReview)
	}

	current := s.activePlanLocked(p.StudentID)
	if !sameActive(current, expectedActive) {
		return apperr.Conflict("active plan for student %s changed concurrently", p.StudentID)
	}

	if current != nil {
		old := *current
		old.Status = models.PlanArchived
		old.UpdatedAt = at
		s.plans[old.ID] = old
	}
	p.Status = models.PlanActive
	p.UpdatedAt = at
	s.plans[planID] = p
	return nil
}

func (s *Store) activePlanLocked(studentID uuid.UUID) *models.TrainingPlan {
	for _, p := range s.plans {
		if p.StudentID == studentID && p.Status == models.PlanActive {
			return &p
		}
	}
	return nil
}

func (s *Store) withSetsLocked(p models.TrainingPlan) *models.TrainingPlan {
	p.Sets = nil
	for _, ps := range s.sets {
		if ps.PlanID == p.ID {
			p.Sets = append(p.Sets, ps)
		}
	}
	models.SortPlannedSets(p.Sets)
	return &p
}

func sameActive(current *models.TrainingPlan, expected *uuid.UUID) bool {
	if current == nil || expected == nil {
		return current == nil && expected == nil
	}
	return current.ID == *expected
}

func containsStatus(statuses []models.PlanStatus, s models.PlanStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

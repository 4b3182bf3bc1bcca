package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/claude/coachplan/internal/apperr"
	"github.com/claude/coachplan/internal/models"
	"github.com/google/uuid"
)

// IngestResult summarizes one processed AI proposal.
type IngestResult struct {
	PlanID           uuid.UUID `json:"plan_id"`
	SetsReceived     int       `json:"sets_received"`
	SetsInserted     int       `json:"sets_inserted"`
	ExercisesMatched int       `json:"exercises_matched"`
	ExercisesCreated int       `json:"exercises_created"`
	Unmatched        []string  `json:"unmatched,omitempty"`
}

// Ingest applies an AI proposal to its plan. The plan's sets are replaced
// as a whole, so replaying the same proposal leaves the same result.
func (s *Service) Ingest(ctx context.Context, prop models.Proposal) (*IngestResult, error) {
	if prop.PlanID == uuid.Nil {
		return nil, apperr.Invalid("proposal has no planId")
	}
	plan, err := s.store.GetPlan(ctx, prop.PlanID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(plan.Status, models.PlanPendingReview) {
		return nil, illegal(plan.Status, models.PlanPendingReview, "ingest")
	}
	if prop.SetCount() == 0 {
		return nil, apperr.Invalid("proposal for plan %s has no exercises", prop.PlanID)
	}

	result := &IngestResult{PlanID: plan.ID, SetsReceived: prop.SetCount()}
	sets := make([]models.PlannedSet, 0, result.SetsReceived)
	for _, day := range prop.Days {
		letter, err := models.ParseDayLetter(day.DayLetter)
		if err != nil {
			return nil, apperr.Invalid("%v", err)
		}
		for _, ex := range day.Exercises {
			id, name, err := s.resolve(ctx, ex, result)
			if err != nil {
				return nil, err
			}
			ps, err := newPlannedSet(plan.ID, id, name, letter, SetInput{
				ExerciseOrder:    ex.Order,
				Sets:             ex.Sets,
				Reps:             ex.Reps,
				RestSeconds:      ex.RestSeconds,
				LoadPrescription: ex.LoadPrescription,
				Technique:        ex.Technique,
				Notes:            ex.Notes,
			})
			if err != nil {
				return nil, err
			}
			sets = append(sets, ps)
		}
	}

	raw, err := json.Marshal(prop)
	if err != nil {
		return nil, fmt.Errorf("encoding proposal: %w", err)
	}
	rev := models.PlanRevision{
		From: []models.PlanStatus{models.PlanDraft, models.PlanPendingReview},
		To:   models.PlanPendingReview,
		Sets: sets,
		Content: &models.PlanContent{
			Name:        prop.PlanName,
			Description: prop.Description,
			AIContent:   raw,
		},
		UpdatedAt: s.now().UTC(),
	}
	if err := s.store.ReplacePlannedSets(ctx, plan.ID, rev); err != nil {
		return nil, fmt.Errorf("storing proposal for plan %s: %w", plan.ID, err)
	}
	result.SetsInserted = len(sets)

	s.log.Info("proposal ingested",
		"plan", plan.ID,
		"sets", result.SetsInserted,
		"matched", result.ExercisesMatched,
		"created", result.ExercisesCreated,
	)
	return result, nil
}

// resolve maps a proposal entry to a catalog identity. A direct reference
// must exist; a free-text name goes through the matcher.
func (s *Service) resolve(ctx context.Context, ex models.ProposalExercise, result *IngestResult) (uuid.UUID, string, error) {
	if ex.ExerciseRef != nil {
		e, err := s.store.GetExercise(ctx, *ex.ExerciseRef)
		if errors.Is(err, apperr.ErrNotFound) {
			return uuid.Nil, "", apperr.DataIntegrity("proposal references unknown exercise %s", *ex.ExerciseRef)
		}
		if err != nil {
			return uuid.Nil, "", fmt.Errorf("reading exercise %s: %w", *ex.ExerciseRef, err)
		}
		result.ExercisesMatched++
		return e.ID, e.Name, nil
	}

	if strings.TrimSpace(ex.ExerciseName) == "" {
		return uuid.Nil, "", apperr.Invalid("proposal entry %d has neither exerciseRef nor exerciseName", ex.Order)
	}
	m, err := s.matcher.Match(ctx, ex.ExerciseName)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("matching %q: %w", ex.ExerciseName, err)
	}
	if m.Created {
		result.ExercisesCreated++
		result.Unmatched = append(result.Unmatched, ex.ExerciseName)
	} else {
		result.ExercisesMatched++
	}
	return m.ExerciseID, m.ExerciseName, nil
}

// SetInput is one planned set supplied by a professional's edit.
type SetInput struct {
	ExerciseID       uuid.UUID `json:"exercise_id"`
	DayLetter        string    `json:"day_letter"`
	ExerciseOrder    int       `json:"exercise_order"`
	Sets             int       `json:"sets"`
	Reps             string    `json:"reps"`
	RestSeconds      *int      `json:"rest_seconds,omitempty"`
	LoadPrescription string    `json:"load_prescription,omitempty"`
	Technique        string    `json:"technique,omitempty"`
	Notes            string    `json:"notes,omitempty"`
}

func newPlannedSet(planID, exerciseID uuid.UUID, exerciseName, day string, in SetInput) (models.PlannedSet, error) {
	if in.Sets < 1 {
		return models.PlannedSet{}, apperr.Invalid("%s on day %s: sets must be at least 1", exerciseName, day)
	}
	if in.RestSeconds != nil && *in.RestSeconds < 0 {
		return models.PlannedSet{}, apperr.Invalid("%s on day %s: negative rest", exerciseName, day)
	}
	return models.PlannedSet{
		ID:               uuid.New(),
		PlanID:           planID,
		ExerciseID:       exerciseID,
		ExerciseName:     exerciseName,
		DayLetter:        day,
		ExerciseOrder:    in.ExerciseOrder,
		Sets:             in.Sets,
		Reps:             strings.TrimSpace(in.Reps),
		RestSeconds:      in.RestSeconds,
		LoadPrescription: in.LoadPrescription,
		Technique:        in.Technique,
		Notes:            in.Notes,
	}, nil
}

// Edit replaces a plan's sets with the professional's list. The status is
// left as found.
func (s *Service) Edit(ctx context.Context, p models.Principal, planID uuid.UUID, inputs []SetInput) (*models.TrainingPlan, error) {
	if !p.IsStaff() {
		return nil, apperr.Forbidden("only staff may edit plans")
	}
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !Editable(plan.Status) {
		return nil, apperr.Conflict("plan %s is %s and can no longer be edited", planID, plan.Status)
	}

	sets := make([]models.PlannedSet, 0, len(inputs))
	for _, in := range inputs {
		day, err := models.ParseDayLetter(in.DayLetter)
		if err != nil {
			return nil, apperr.Invalid("%v", err)
		}
		e, err := s.store.GetExercise(ctx, in.ExerciseID)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.DataIntegrity("edit references unknown exercise %s", in.ExerciseID)
		}
		if err != nil {
			return nil, fmt.Errorf("reading exercise %s: %w", in.ExerciseID, err)
		}
		ps, err := newPlannedSet(plan.ID, e.ID, e.Name, day, in)
		if err != nil {
			return nil, err
		}
		sets = append(sets, ps)
	}

	rev := models.PlanRevision{
		From:      []models.PlanStatus{plan.Status},
		To:        plan.Status,
		Sets:      sets,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.store.ReplacePlannedSets(ctx, plan.ID, rev); err != nil {
		return nil, fmt.Errorf("replacing sets of plan %s: %w", plan.ID, err)
	}
	s.log.Info("plan edited", "plan", plan.ID, "sets", len(sets), "by", p.ID)
	return s.store.GetPlan(ctx, plan.ID)
}

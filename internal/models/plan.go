package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PlanStatus is the lifecycle state of a TrainingPlan.
type PlanStatus string

const (
	PlanDraft         PlanStatus = "DRAFT"
	PlanPendingReview PlanStatus = "PENDING_REVIEW"
	PlanActive        PlanStatus = "ACTIVE"
	PlanArchived      PlanStatus = "ARCHIVED"
)

// TrainingPlan is a multi-day program assigned to one student.
type TrainingPlan struct {
	ID          uuid.UUID       `json:"id"`
	StudentID   uuid.UUID       `json:"student_id"`
	Level       string          `json:"level"`
	Focus       string          `json:"focus"`
	DaysPerWeek int             `json:"days_per_week"`
	Limitations string          `json:"limitations,omitempty"`
	Status      PlanStatus      `json:"status"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	AIContent   json.RawMessage `json:"ai_content,omitempty"`
	Sets        []PlannedSet    `json:"sets"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PlannedSet is one prescribed exercise entry within a plan day.
// ExerciseName is a snapshot taken when the set was written.
type PlannedSet struct {
	ID               uuid.UUID `json:"id"`
	PlanID           uuid.UUID `json:"plan_id"`
	ExerciseID       uuid.UUID `json:"exercise_id"`
	ExerciseName     string    `json:"exercise_name"`
	DayLetter        string    `json:"day_letter"`
	ExerciseOrder    int       `json:"exercise_order"`
	Sets             int       `json:"sets"`
	Reps             string    `json:"reps"`
	RestSeconds      *int      `json:"rest_seconds,omitempty"`
	LoadPrescription string    `json:"load_prescription,omitempty"`
	Technique        string    `json:"technique,omitempty"`
	Notes            string    `json:"notes,omitempty"`
}

// SortPlannedSets orders sets by day letter, then execution order.
func SortPlannedSets(sets []PlannedSet) {
	sort.SliceStable(sets, func(i, j int) bool {
		if sets[i].DayLetter != sets[j].DayLetter {
			return sets[i].DayLetter < sets[j].DayLetter
		}
		return sets[i].ExerciseOrder < sets[j].ExerciseOrder
	})
}

// HasDay reports whether any planned set belongs to dayLetter.
func (p *TrainingPlan) HasDay(dayLetter string) bool {
	for _, s := range p.Sets {
		if s.DayLetter == dayLetter {
			return true
		}
	}
	return false
}

// PendingPlan pairs a plan awaiting review with the student's active
// anamnesis, if any.
type PendingPlan struct {
	Plan      TrainingPlan `json:"plan"`
	Anamnesis *Anamnesis   `json:"anamnesis,omitempty"`
}

// PlanContent is the proposal metadata kept alongside a plan.
type PlanContent struct {
	Name        string
	Description string
	AIContent   json.RawMessage
}

// PlanRevision replaces a plan's planned sets as one atomic unit. The
// write only applies while the plan's status is one of From.
type PlanRevision struct {
	From      []PlanStatus
	To        PlanStatus
	Sets      []PlannedSet
	Content   *PlanContent // nil keeps the current content
	UpdatedAt time.Time
}

// Allows reports whether s is an accepted source status.
func (r PlanRevision) Allows(s PlanStatus) bool {
	for _, f := range r.From {
		if f == s {
			return true
		}
	}
	return false
}

// ParseDayLetter normalizes a training-day designator to a single
// upper-case letter.
func ParseDayLetter(s string) (string, error) {
	d := strings.ToUpper(strings.TrimSpace(s))
	if len(d) != 1 || d[0] < 'A' || d[0] > 'Z' {
		return "", fmt.Errorf("invalid day letter %q", s)
	}
	return d, nil
}

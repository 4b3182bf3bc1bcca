package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the state of a TrainingSession. FINISHED is terminal.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "IN_PROGRESS"
	SessionFinished   SessionStatus = "FINISHED"
)

// TrainingSession is one live execution of a single plan day.
type TrainingSession struct {
	ID              uuid.UUID     `json:"id"`
	StudentID       uuid.UUID     `json:"student_id"`
	PlanID          uuid.UUID     `json:"plan_id"`
	DayLetter       string        `json:"day_letter"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      *time.Time    `json:"finished_at,omitempty"`
	Status          SessionStatus `json:"status"`
	ExecutedSets    []ExecutedSet `json:"executed_sets"`
	TotalVolumeLoad float64       `json:"total_volume_load"`
}

// ExecutedSet is an append-only record of one performed set. Weight and
// reps are nullable so that missing values surface at finish time.
type ExecutedSet struct {
	ID            uuid.UUID `json:"id"`
	SessionID     uuid.UUID `json:"session_id"`
	PlannedSetID  uuid.UUID `json:"planned_set_id"`
	ExerciseName  string    `json:"exercise_name"`
	RepsCompleted *int      `json:"reps_completed"`
	WeightUsed    *float64  `json:"weight_used"`
	RPE           *int      `json:"rpe,omitempty"`
	Failure       bool      `json:"failure"`
	CompletedAt   time.Time `json:"completed_at"`
}

package models

import "github.com/google/uuid"

// Proposal is the structured plan delivered by the AI collaborator.
type Proposal struct {
	PlanID      uuid.UUID     `json:"planId"`
	PlanName    string        `json:"planName"`
	Description string        `json:"description"`
	Days        []ProposalDay `json:"days"`
}

// ProposalDay is one training day of a proposal.
type ProposalDay struct {
	DayLetter    string             `json:"dayLetter"`
	Name         string             `json:"name,omitempty"`
	MuscleGroups string             `json:"muscleGroups,omitempty"`
	Exercises    []ProposalExercise `json:"exercises"`
}

// ProposalExercise references the catalog directly through ExerciseRef,
// or by free text through ExerciseName.
type ProposalExercise struct {
	ExerciseRef      *uuid.UUID `json:"exerciseRef,omitempty"`
	ExerciseName     string     `json:"exerciseName,omitempty"`
	Order            int        `json:"order"`
	Sets             int        `json:"sets"`
	Reps             string     `json:"reps"`
	RestSeconds      *int       `json:"restSeconds,omitempty"`
	LoadPrescription string     `json:"loadPrescription,omitempty"`
	Technique        string     `json:"technique,omitempty"`
	Notes            string     `json:"notes,omitempty"`
}

// SetCount returns the number of exercise entries across all days.
func (p *Proposal) SetCount() int {
	n := 0
	for _, d := range p.Days {
		n += len(d.Exercises)
	}
	return n
}

// Notification is the outbound payload that asks the AI collaborator to
// generate a plan.
type Notification struct {
	PlanID            uuid.UUID `json:"planId"`
	StudentID         uuid.UUID `json:"studentId"`
	Level             string    `json:"level"`
	Focus             string    `json:"focus"`
	DaysPerWeek       int       `json:"daysPerWeek"`
	Limitations       string    `json:"limitations"`
	Age               *int      `json:"age,omitempty"`
	WeightKg          *float64  `json:"weightKg,omitempty"`
	Injuries          string    `json:"injuries"`
	MedicalConditions string    `json:"medicalConditions"`
}

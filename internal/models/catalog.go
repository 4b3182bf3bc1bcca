package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MuscleGroup is the primary classification of a catalog exercise.
type MuscleGroup string

const (
	MuscleChest     MuscleGroup = "CHEST"
	MuscleBack      MuscleGroup = "BACK"
	MuscleLegs      MuscleGroup = "LEGS"
	MuscleShoulders MuscleGroup = "SHOULDERS"
	MuscleBiceps    MuscleGroup = "BICEPS"
	MuscleTriceps   MuscleGroup = "TRICEPS"
	MuscleCore      MuscleGroup = "CORE"
	MuscleCardio    MuscleGroup = "CARDIO"
)

// MuscleGroups lists every group in catalog display order.
var MuscleGroups = []MuscleGroup{
	MuscleChest, MuscleBack, MuscleLegs, MuscleShoulders,
	MuscleBiceps, MuscleTriceps, MuscleCore, MuscleCardio,
}

// ParseMuscleGroup accepts a group name in any case.
func ParseMuscleGroup(s string) (MuscleGroup, error) {
	g := MuscleGroup(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range MuscleGroups {
		if g == known {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown muscle group %q", s)
}

// Mechanics values.
const (
	MechanicsCompound = "COMPOUND"
	MechanicsIsolated = "ISOLATED"
)

// CatalogExercise is a canonical exercise definition. Entries are never
// deleted; Active is cleared instead.
type CatalogExercise struct {
	ID               uuid.UUID   `json:"id"`
	Name             string      `json:"name"`
	Description      string      `json:"description,omitempty"`
	VideoURL         string      `json:"video_url,omitempty"`
	MuscleGroup      MuscleGroup `json:"muscle_group"`
	TargetMuscle     string      `json:"target_muscle"`
	SecondaryMuscles string      `json:"secondary_muscles,omitempty"`
	Mechanics        string      `json:"mechanics"`
	Equipment        string      `json:"equipment"`
	DifficultyLevel  string      `json:"difficulty_level,omitempty"`
	Active           bool        `json:"active"`
	IsTemporary      bool        `json:"is_temporary"`
	CreatedBy        *uuid.UUID  `json:"created_by,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// CatalogEntry is the compact catalog view handed to the AI collaborator.
type CatalogEntry struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	MuscleGroup  MuscleGroup `json:"muscleGroup"`
	Mechanics    string      `json:"mechanics"`
	Equipment    string      `json:"equipment"`
	TargetMuscle string      `json:"targetMuscle,omitempty"`
}

// Entry returns the compact view of e.
func (e CatalogExercise) Entry() CatalogEntry {
	return CatalogEntry{
		ID:           e.ID,
		Name:         e.Name,
		MuscleGroup:  e.MuscleGroup,
		Mechanics:    e.Mechanics,
		Equipment:    e.Equipment,
		TargetMuscle: e.TargetMuscle,
	}
}

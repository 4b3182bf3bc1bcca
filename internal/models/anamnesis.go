package models

import (
	"time"

	"github.com/google/uuid"
)

// Anamnesis is a student's health questionnaire. Only one per student is
// active at a time.
type Anamnesis struct {
	ID                uuid.UUID `json:"id"`
	StudentID         uuid.UUID `json:"student_id"`
	Age               *int      `json:"age,omitempty"`
	WeightKg          *float64  `json:"weight_kg,omitempty"`
	HeightM           *float64  `json:"height_m,omitempty"`
	Gender            string    `json:"gender,omitempty"`
	Goal              string    `json:"goal"`
	ActivityLevel     string    `json:"activity_level"`
	DaysAvailable     *int      `json:"days_available,omitempty"`
	Injuries          string    `json:"injuries,omitempty"`
	MedicalConditions string    `json:"medical_conditions,omitempty"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}

// Package anamnesis stores the student health questionnaire used to
// tailor plan requests.
package anamnesis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/claude/coachplan/internal/apperr"
	"github.com/claude/coachplan/internal/models"
	"github.com/google/uuid"
)

type Store interface {
	SaveAnamnesis(ctx context.Context, a *models.Anamnesis) error
	GetActiveAnamnesis(ctx context.Context, studentID uuid.UUID) (*models.Anamnesis, error)
}

type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func NewService(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// SubmitRequest is the questionnaire as filled in by the student.
type SubmitRequest struct {
	Age               *int     `json:"age"`
	WeightKg          *float64 `json:"weight_kg"`
	HeightM           *float64 `json:"height_m"`
	Gender            string   `json:"gender"`
	Goal              string   `json:"goal"`
	ActivityLevel     string   `json:"activity_level"`
	DaysAvailable     *int     `json:"days_available"`
	Injuries          string   `json:"injuries"`
	MedicalConditions string   `json:"medical_conditions"`
}

func (r SubmitRequest) validate() error {
	if strings.TrimSpace(r.Goal) == "" {
		return apperr.Invalid("goal is required")
	}
	if r.Age != nil && (*r.Age < 10 || *r.Age > 120) {
		return apperr.Invalid("age %d out of range", *r.Age)
	}
	if r.WeightKg != nil && *r.WeightKg <= 0 {
		return apperr.Invalid("weight_kg must be positive")
	}
	if r.HeightM != nil && (*r.HeightM <= 0 || *r.HeightM > 3) {
		return apperr.Invalid("height_m must be in metres")
	}
	if r.DaysAvailable != nil && (*r.DaysAvailable < 1 || *r.DaysAvailable > 7) {
		return apperr.Invalid("days_available must be between 1 and 7")
	}
	return nil
}

// Submit stores a new questionnaire for the calling student, replacing
// the active one.
func (s *Service) Submit(ctx context.Context, p models.Principal, req SubmitRequest) (*models.Anamnesis, error) {
	if p.Role != models.RoleStudent {
		return nil, apperr.Forbidden("only students may submit an anamnesis")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	a := &models.Anamnesis{
		ID:                uuid.New(),
		StudentID:         p.ID,
		Age:               req.Age,
		WeightKg:          req.WeightKg,
		HeightM:           req.HeightM,
		Gender:            req.Gender,
		Goal:              strings.TrimSpace(req.Goal),
		ActivityLevel:     req.ActivityLevel,
		DaysAvailable:     req.DaysAvailable,
		Injuries:          strings.TrimSpace(req.Injuries),
		MedicalConditions: strings.TrimSpace(req.MedicalConditions),
		Active:            true,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.store.SaveAnamnesis(ctx, a); err != nil {
		return nil, fmt.Errorf("saving anamnesis: %w", err)
	}
	s.log.Info("anamnesis saved", "student", p.ID, "id", a.ID)
	return a, nil
}

// Active returns a student's current questionnaire. Students may only
// read their own.
func (s *Service) Active(ctx context.Context, p models.Principal, studentID uuid.UUID) (*models.Anamnesis, error) {
	if !p.IsStaff() && p.ID != studentID {
		return nil, apperr.Forbidden("anamnesis belongs to another student")
	}
	return s.store.GetActiveAnamnesis(ctx, studentID)
}

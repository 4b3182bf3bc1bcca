// Package catalog curates the canonical exercise definitions that plans
// reference.
package catalog

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

// Store is the catalog persistence the service needs.
type Store interface {
	InsertExercise(ctx context.Context, e *models.CatalogExercise) error
	GetExercise(ctx context.Context, id uuid.UUID) (*models.CatalogExercise, error)
	ListActiveExercises(ctx context.Context) ([]models.CatalogExercise, error)
	ListExercisesByGroup(ctx context.Context, group models.MuscleGroup) ([]models.CatalogExercise, error)
	ListTemporaryExercises(ctx context.Context) ([]models.CatalogExercise, error)
	SetExerciseActive(ctx context.Context, id uuid.UUID, active bool) error
	ConfirmExercise(ctx context.Context, id uuid.UUID) error
}

// Service exposes catalog curation and lookup.
type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// NewService creates a catalog Service.
func NewService(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// CreateRequest describes a new curated exercise.
type CreateRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	VideoURL         string `json:"video_url"`
	MuscleGroup      string `json:"muscle_group"`
	TargetMuscle     string `json:"target_muscle"`
	SecondaryMuscles string `json:"secondary_muscles"`
	Mechanics        string `json:"mechanics"`
	Equipment        string `json:"equipment"`
	DifficultyLevel  string `json:"difficulty_level"`
}

func (r CreateRequest) validate() (models.MuscleGroup, string, error) {
	if strings.TrimSpace(r.Name) == "" {
		return "", "", apperr.Invalid("name is required")
	}
	group, err := models.ParseMuscleGroup(r.MuscleGroup)
	if err != nil {
		return "", "", apperr.Invalid("%v", err)
	}
	mechanics := strings.ToUpper(strings.TrimSpace(r.Mechanics))
	switch mechanics {
	case "":
		mechanics = models.MechanicsCompound
	case models.MechanicsCompound, models.MechanicsIsolated:
	default:
		return "", "", apperr.Invalid("unknown mechanics %q", r.Mechanics)
	}
	return group, mechanics, nil
}

// Create adds a curated exercise. Only staff may curate the catalog.
func (s *Service) Create(ctx context.Context, p models.Principal, req CreateRequest) (*models.CatalogExercise, error) {
	if !p.IsStaff() {
		return nil, apperr.Forbidden("only staff may add catalog exercises")
	}
	group, mechanics, err := req.validate()
	if err != nil {
		return nil, err
	}

	createdBy := p.ID
	e := &models.CatalogExercise{
		ID:               uuid.New(),
		Name:             strings.TrimSpace(req.Name),
		Description:      req.Description,
		VideoURL:         req.VideoURL,
		MuscleGroup:      group,
		TargetMuscle:     req.TargetMuscle,
		SecondaryMuscles: req.SecondaryMuscles,
		Mechanics:        mechanics,
		Equipment:        req.Equipment,
		DifficultyLevel:  req.DifficultyLevel,
		Active:           true,
		CreatedBy:        &createdBy,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.store.InsertExercise(ctx, e); err != nil {
		return nil, fmt.Errorf("creating exercise %q: %w", e.Name, err)
	}
	s.log.Info("catalog exercise created", "id", e.ID, "name", e.Name, "muscle_group", e.MuscleGroup)
	return e, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.CatalogExercise, error) {
	return s.store.GetExercise(ctx, id)
}

// List returns every active exercise ordered by muscle group, then name.
func (s *Service) List(ctx context.Context) ([]models.CatalogExercise, error) {
	return s.store.ListActiveExercises(ctx)
}

// ListByGroup returns the active exercises of one muscle group. An
// unknown group yields an empty list rather than an error.
func (s *Service) ListByGroup(ctx context.Context, group string) ([]models.CatalogExercise, error) {
	g, err := models.ParseMuscleGroup(group)
	if err != nil {
		return []models.CatalogExercise{}, nil
	}
	return s.store.ListExercisesByGroup(ctx, g)
}

// Entries returns the compact catalog view, optionally filtered by group.
func (s *Service) Entries(ctx context.Context, group string) ([]models.CatalogEntry, error) {
	var (
		exercises []models.CatalogExercise
		err       error
	)
	if group == "" {
		exercises, err = s.List(ctx)
	} else {
		exercises, err = s.ListByGroup(ctx, group)
	}
	if err != nil {
		return nil, err
	}
	entries := make([]models.CatalogEntry, 0, len(exercises))
	for _, e := range exercises {
		entries = append(entries, e.Entry())
	}
	return entries, nil
}

// Deactivate hides an exercise from matching and listing. Existing plans
// keep referencing it.
func (s *Service) Deactivate(ctx context.Context, p models.Principal, id uuid.UUID) error {
	if !p.IsStaff() {
		return apperr.Forbidden("only staff may deactivate catalog exercises")
	}
	if err := s.store.SetExerciseActive(ctx, id, false); err != nil {
		return fmt.Errorf("deactivating exercise %s: %w", id, err)
	}
	s.log.Info("catalog exercise deactivated", "id", id, "by", p.ID)
	return nil
}

// ListTemporary returns the entries minted by the matcher that still
// await review.
func (s *Service) ListTemporary(ctx context.Context, p models.Principal) ([]models.CatalogExercise, error) {
	if !p.IsStaff() {
		return nil, apperr.Forbidden("only staff may review temporary exercises")
	}
	return s.store.ListTemporaryExercises(ctx)
}

// Confirm promotes a temporary entry to a curated one.
func (s *Service) Confirm(ctx context.Context, p models.Principal, id uuid.UUID) error {
	if !p.IsStaff() {
		return apperr.Forbidden("only staff may confirm catalog exercises")
	}
	if err := s.store.ConfirmExercise(ctx, id); err != nil {
		return fmt.Errorf("confirming exercise %s: %w", id, err)
	}
	s.log.Info("temporary exercise confirmed", "id", id, "by", p.ID)
	return nil
}

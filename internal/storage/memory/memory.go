// Package memory is an in-process store with the same contracts as the
// PostgreSQL store. Every operation runs under a single mutex, which
// gives the uniqueness and compare-and-swap checks the atomicity the
// database gets from transactions and partial unique indexes.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/claude/coachplan/internal/apperr"
	"github.com/claude/coachplan/internal/models"
	"github.com/google/uuid"
)

// Store holds all entities in maps keyed by ID.
type Store struct {
	mu sync.Mutex

	exercises map[uuid.UUID]models.CatalogExercise
	plans     map[uuid.UUID]models.TrainingPlan
	sets      map[uuid.UUID]models.PlannedSet
	sessions  map[uuid.UUID]models.TrainingSession
	executed  map[uuid.UUID][]models.ExecutedSet
	anamneses map[uuid.UUID]models.Anamnesis
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		exercises: make(map[uuid.UUID]models.CatalogExercise),
		plans:     make(map[uuid.UUID]models.TrainingPlan),
		sets:      make(map[uuid.UUID]models.PlannedSet),
		sessions:  make(map[uuid.UUID]models.TrainingSession),
		executed:  make(map[uuid.UUID][]models.ExecutedSet),
		anamneses: make(map[uuid.UUID]models.Anamnesis),
	}
}

// --- Catalog ---

func (s *Store) InsertExercise(_ context.Context, e *models.CatalogExercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.exercises {
		if strings.EqualFold(existing.Name, e.Name) {
			return apperr.Conflict("exercise %q already exists", e.Name)
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.exercises[e.ID] = *e
	return nil
}

func (s *Store) GetExercise(_ context.Context, id uuid.UUID) (*models.CatalogExercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.exercises[id]
	if !ok {
		return nil, apperr.NotFound("exercise %s not found", id)
	}
	return &e, nil
}

func (s *Store) GetExerciseByName(_ context.Context, name string) (*models.CatalogExercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.exercises {
		if strings.EqualFold(e.Name, name) {
			return &e, nil
		}
	}
	return nil, apperr.NotFound("exercise %q not found", name)
}

func (s *Store) ListActiveExercises(_ context.Context) ([]models.CatalogExercise, error) {
	return s.filterExercises(func(e models.CatalogExercise) bool { return e.Active }), nil
}

func (s *Store) ListExercisesByGroup(_ context.Context, group models.MuscleGroup) ([]models.CatalogExercise, error) {
	return s.filterExercises(func(e models.CatalogExercise) bool {
		return e.Active && e.MuscleGroup == group
	}), nil
}

func (s *Store) ListTemporaryExercises(_ context.Context) ([]models.CatalogExercise, error) {
	return s.filterExercises(func(e models.CatalogExercise) bool { return e.IsTemporary }), nil
}

func (s *Store) SetExerciseActive(_ context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.exercises[id]
	if !ok {
		return apperr.NotFound("exercise %s not found", id)
	}
	e.Active = active
	s.exercises[id] = e
	return nil
}

func (s *Store) ConfirmExercise(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.exercises[id]
	if !ok {
		return apperr.NotFound("exercise %s not found", id)
	}
	e.IsTemporary = false
	s.exercises[id] = e
	return nil
}

func (s *Store) filterExercises(keep func(models.CatalogExercise) bool) []models.CatalogExercise {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.CatalogExercise
	for _, e := range s.exercises {
		if keep(e) {
			out = append(out, e)
		}
	}
	// Insertion order is lost in the map; sort the way the SQL store does.
	sort.Slice(out, func(i, j int) bool {
		if out[i].MuscleGroup != out[j].MuscleGroup {
			return out[i].MuscleGroup < out[j].MuscleGroup
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Package matcher reconciles free-text exercise names emitted by the AI
// collaborator with canonical catalog entries.
//
// Strategies are tried in order and the first hit wins:
//
//  1. exact: case-insensitive, whitespace-collapsed equality
//  2. partial: one normalized name contains the other
//  3. normalized: diacritics and punctuation stripped, containment or
//     character-overlap similarity above SimilarityThreshold
//  4. created: a temporary, active catalog entry is minted
//
// Match never reports "no match" to the caller. It only fails when the
// catalog itself cannot be read or written.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/claude/coachplan/internal/apperr"
	"github.com/claude/coachplan/internal/models"
	"github.com/google/uuid"
)

// SimilarityThreshold is the minimum overlap score accepted by the
// normalized strategy.
const SimilarityThreshold = 0.7

// TemporaryNote is stored on every entry minted by the fallback strategy.
const TemporaryNote = "Created automatically from an AI proposal. Review required."

// Strategy names the rule that resolved a name.
type Strategy string

const (
	StrategyExact      Strategy = "exact"
	StrategyPartial    Strategy = "partial"
	StrategyNormalized Strategy = "normalized"
	StrategyCreated    Strategy = "created"
)

// Catalog is the slice of catalog storage the matcher needs.
type Catalog interface {
	ListActiveExercises(ctx context.Context) ([]models.CatalogExercise, error)
	GetExerciseByName(ctx context.Context, name string) (*models.CatalogExercise, error)
	InsertExercise(ctx context.Context, e *models.CatalogExercise) error
	SetExerciseActive(ctx context.Context, id uuid.UUID, active bool) error
}

// Result identifies the catalog entry a name resolved to.
type Result struct {
	ExerciseID   uuid.UUID
	ExerciseName string
	Strategy     Strategy
	Created      bool
}

// Matcher resolves exercise names against a Catalog.
type Matcher struct {
	catalog Catalog
	log     *slog.Logger
	now     func() time.Time
}

// New creates a Matcher.
func New(catalog Catalog, log *slog.Logger) *Matcher {
	return &Matcher{catalog: catalog, log: log, now: time.Now}
}

// Match resolves name to a catalog entry, creating a temporary one when
// no strategy matches.
func (m *Matcher) Match(ctx context.Context, name string) (Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{}, apperr.Invalid("exercise name is empty")
	}

	active, err := m.catalog.ListActiveExercises(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("listing catalog: %w", err)
	}

	if e, s, ok := find(active, name); ok {
		switch s {
		case StrategyExact:
			m.log.Info("exercise matched", "input", name, "exercise", e.Name, "strategy", s)
		default:
			m.log.Warn("exercise matched approximately", "input", name, "exercise", e.Name, "strategy", s)
		}
		return Result{ExerciseID: e.ID, ExerciseName: e.Name, Strategy: s}, nil
	}

	return m.createTemporary(ctx, name)
}

// find applies the matching strategies in priority order.
func find(active []models.CatalogExercise, name string) (models.CatalogExercise, Strategy, bool) {
	normalized := normalizeName(name)
	for _, e := range active {
		if normalizeName(e.Name) == normalized {
			return e, StrategyExact, true
		}
	}

	for _, e := range active {
		candidate := normalizeName(e.Name)
		if strings.Contains(candidate, normalized) || strings.Contains(normalized, candidate) {
			return e, StrategyPartial, true
		}
	}

	folded := foldName(name)
	if folded == "" {
		return models.CatalogExercise{}, "", false
	}
	for _, e := range active {
		candidate := foldName(e.Name)
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, folded) || strings.Contains(folded, candidate) ||
			similarity(candidate, folded) > SimilarityThreshold {
			return e, StrategyNormalized, true
		}
	}

	return models.CatalogExercise{}, "", false
}

func (m *Matcher) createTemporary(ctx context.Context, name string) (Result, error) {
	e := &models.CatalogExercise{
		ID:           uuid.New(),
		Name:         name,
		Description:  TemporaryNote,
		MuscleGroup:  guessMuscleGroup(name),
		TargetMuscle: "unspecified",
		Mechanics:    models.MechanicsCompound,
		Equipment:    "varied",
		Active:       true,
		IsTemporary:  true,
		CreatedAt:    m.now().UTC(),
	}

	err := m.catalog.InsertExercise(ctx, e)
	if errors.Is(err, apperr.ErrConflict) {
		// Another caller minted (or a curator deactivated) the same name.
		existing, getErr := m.catalog.GetExerciseByName(ctx, name)
		if getErr != nil {
			return Result{}, fmt.Errorf("reading existing exercise %q: %w", name, getErr)
		}
		if !existing.Active {
			if err := m.catalog.SetExerciseActive(ctx, existing.ID, true); err != nil {
				return Result{}, fmt.Errorf("reactivating exercise %q: %w", existing.Name, err)
			}
			m.log.Warn("deactivated exercise reactivated by fallback", "input", name, "id", existing.ID)
			return Result{ExerciseID: existing.ID, ExerciseName: existing.Name, Strategy: StrategyCreated}, nil
		}
		m.log.Warn("temporary exercise already exists", "input", name, "id", existing.ID)
		return Result{ExerciseID: existing.ID, ExerciseName: existing.Name, Strategy: StrategyCreated}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("creating temporary exercise %q: %w", name, err)
	}

	m.log.Warn("temporary exercise created", "input", name, "id", e.ID, "muscle_group", e.MuscleGroup)
	return Result{ExerciseID: e.ID, ExerciseName: e.Name, Strategy: StrategyCreated, Created: true}, nil
}

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/coachplan/internal/apperr"
	"github.com/claude/coachplan/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const exerciseColumns = `id, name, description, video_url, muscle_group, target_muscle,
	secondary_muscles, mechanics, equipment, difficulty_level, active, is_temporary,
	created_by, created_at`

func scanExercise(row pgx.Row) (*models.CatalogExercise, error) {
	var e models.CatalogExercise
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.VideoURL, &e.MuscleGroup, &e.TargetMuscle,
		&e.SecondaryMuscles, &e.Mechanics, &e.Equipment, &e.DifficultyLevel, &e.Active, &e.IsTemporary,
		&e.CreatedBy, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// InsertExercise adds a catalog entry. Names are unique case-insensitively;
// a clash is reported as Conflict.
func (db *DB) InsertExercise(ctx context.Context, e *models.CatalogExercise) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO exercises (`+exerciseColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		e.ID, e.Name, e.Description, e.VideoURL, e.MuscleGroup, e.TargetMuscle,
		e.SecondaryMuscles, e.Mechanics, e.Equipment, e.DifficultyLevel, e.Active, e.IsTemporary,
		e.CreatedBy, e.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.Conflict("exercise %q already exists", e.Name)
	}
	if err != nil {
		return fmt.Errorf("inserting exercise: %w", err)
	}
	return nil
}

func (db *DB) GetExercise(ctx context.Context, id uuid.UUID) (*models.CatalogExercise, error) {
	e, err := scanExercise(db.Pool.QueryRow(ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "exercise %s", id)
	}
	return e, nil
}

func (db *DB) GetExerciseByName(ctx context.Context, name string) (*models.CatalogExercise, error) {
	e, err := scanExercise(db.Pool.QueryRow(ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE LOWER(name) = LOWER($1)`, name))
	if err != nil {
		return nil, classify(err, "exercise %q", name)
	}
	return e, nil
}

func (db *DB) ListActiveExercises(ctx context.Context) ([]models.CatalogExercise, error) {
	return db.queryExercises(ctx, `WHERE active`)
}

func (db *DB) ListExercisesByGroup(ctx context.Context, group models.MuscleGroup) ([]models.CatalogExercise, error) {
	return db.queryExercises(ctx, `WHERE active AND muscle_group = $1`, group)
}

func (db *DB) ListTemporaryExercises(ctx context.Context) ([]models.CatalogExercise, error) {
	return db.queryExercises(ctx, `WHERE is_temporary`)
}

func (db *DB) queryExercises(ctx context.Context, where string, args ...any) ([]models.CatalogExercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+exerciseColumns+` FROM exercises `+where+` ORDER BY muscle_group, name`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	var result []models.CatalogExercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

func (db *DB) SetExerciseActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE exercises SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("updating exercise %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("exercise %s not found", id)
	}
	return nil
}

func (db *DB) ConfirmExercise(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE exercises SET is_temporary = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("confirming exercise %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("exercise %s not found", id)
	}
	return nil
}

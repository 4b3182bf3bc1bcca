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

const sessionColumns = `id, student_id, plan_id, day_letter, started_at, finished_at, status, total_volume_load`

func scanSession(row pgx.Row) (*models.TrainingSession, error) {
	var s models.TrainingSession
	err := row.Scan(&s.ID, &s.StudentID, &s.PlanID, &s.DayLetter, &s.StartedAt, &s.FinishedAt,
		&s.Status, &s.TotalVolumeLoad)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// InsertSession opens a session. The partial unique index on open
// sessions rejects a second one for the same student.
func (db *DB) InsertSession(ctx context.Context, s *models.TrainingSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO training_sessions (`+sessionColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, s.StudentID, s.PlanID, s.DayLetter, s.StartedAt, s.FinishedAt, s.Status, s.TotalVolumeLoad)
	if isUniqueViolation(err) {
		return apperr.Conflict("student already has a session in progress")
	}
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (db *DB) GetSession(ctx context.Context, id uuid.UUID) (*models.TrainingSession, error) {
	s, err := scanSession(db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM training_sessions WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "session %s", id)
	}
	if s.ExecutedSets, err = executedSets(ctx, db.Pool, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}

func (db *DB) GetInProgressSession(ctx context.Context, studentID uuid.UUID) (*models.TrainingSession, error) {
	s, err := scanSession(db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM training_sessions WHERE student_id = $1 AND status = 'IN_PROGRESS'`,
		studentID))
	if err != nil {
		return nil, classify(err, "session in progress for student %s", studentID)
	}
	if s.ExecutedSets, err = executedSets(ctx, db.Pool, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}

// lockOpenSession locks the session row in mode and fails unless the
// session is in progress.
func lockOpenSession(ctx context.Context, tx pgx.Tx, id uuid.UUID, mode string) error {
	var status models.SessionStatus
	err := tx.QueryRow(ctx,
		`SELECT status FROM training_sessions WHERE id = $1 FOR `+mode, id).Scan(&status)
	if err != nil {
		return classify(err, "session %s", id)
	}
	if status != models.SessionInProgress {
		return apperr.Conflict("session %s is %s", id, status)
	}
	return nil
}

// AppendExecutedSet records a set if the session is still open. The session
// row is share-locked so a concurrent finish waits for the insert.
func (db *DB) AppendExecutedSet(ctx context.Context, es *models.ExecutedSet) error {
	if es.ID == uuid.Nil {
		es.ID = uuid.New()
	}
	return db.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockOpenSession(ctx, tx, es.SessionID, "SHARE"); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO executed_sets (id, session_id, planned_set_id, exercise_name, reps_completed,
			 weight_used, rpe, failure, completed_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			es.ID, es.SessionID, es.PlannedSetID, es.ExerciseName, es.RepsCompleted,
			es.WeightUsed, es.RPE, es.Failure, es.CompletedAt)
		if err != nil {
			return fmt.Errorf("inserting executed set: %w", err)
		}
		return nil
	})
}

// FinishSession locks the session row, sums its executed sets with volume
// and closes it in one transaction.
func (db *DB) FinishSession(ctx context.Context, id uuid.UUID, at time.Time, volume func([]models.ExecutedSet) (float64, error)) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockOpenSession(ctx, tx, id, "UPDATE"); err != nil {
			return err
		}
		sets, err := executedSets(ctx, tx, id)
		if err != nil {
			return err
		}
		total, err := volume(sets)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE training_sessions
			 SET status = 'FINISHED', total_volume_load = $2, finished_at = $3
			 WHERE id = $1`,
			id, total, at); err != nil {
			return fmt.Errorf("finishing session %s: %w", id, err)
		}
		return nil
	})
}

// ListSessions returns the student's sessions in status, most recently
// finished (then started) first.
func (db *DB) ListSessions(ctx context.Context, studentID uuid.UUID, status models.SessionStatus) ([]models.TrainingSession, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM training_sessions
		 WHERE student_id = $1 AND status = $2
		 ORDER BY COALESCE(finished_at, started_at) DESC`,
		studentID, status)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	var result []models.TrainingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, *s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}

	for i := range result {
		if result[i].ExecutedSets, err = executedSets(ctx, db.Pool, result[i].ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func executedSets(ctx context.Context, q querier, sessionID uuid.UUID) ([]models.ExecutedSet, error) {
	rows, err := q.Query(ctx,
		`SELECT id, session_id, planned_set_id, exercise_name, reps_completed, weight_used, rpe,
		 failure, completed_at
		 FROM executed_sets WHERE session_id = $1
		 ORDER BY completed_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying executed sets: %w", err)
	}
	defer rows.Close()

	var result []models.ExecutedSet
	for rows.Next() {
		var es models.ExecutedSet
		if err := rows.Scan(&es.ID, &es.SessionID, &es.PlannedSetID, &es.ExerciseName, &es.RepsCompleted,
			&es.WeightUsed, &es.RPE, &es.Failure, &es.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning executed set: %w", err)
		}
		result = append(result, es)
	}
	return result, rows.Err()
}

// SaveAnamnesis stores a and deactivates the student's previous one.
func (db *DB) SaveAnamnesis(ctx context.Context, a *models.Anamnesis) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Active = true
	return db.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE anamneses SET active = FALSE WHERE student_id = $1 AND active`, a.StudentID); err != nil {
			return fmt.Errorf("deactivating anamnesis: %w", err)
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO anamneses (id, student_id, age, weight_kg, height_m, gender, goal, activity_level,
			 days_available, injuries, medical_conditions, active, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			a.ID, a.StudentID, a.Age, a.WeightKg, a.HeightM, a.Gender, a.Goal, a.ActivityLevel,
			a.DaysAvailable, a.Injuries, a.MedicalConditions, a.Active, a.CreatedAt)
		if err != nil {
			return classify(err, "anamnesis for student %s", a.StudentID)
		}
		return nil
	})
}

func (db *DB) GetActiveAnamnesis(ctx context.Context, studentID uuid.UUID) (*models.Anamnesis, error) {
	var a models.Anamnesis
	err := db.Pool.QueryRow(ctx,
		`SELECT id, student_id, age, weight_kg, height_m, gender, goal, activity_level,
		 days_available, injuries, medical_conditions, active, created_at
		 FROM anamneses WHERE student_id = $1 AND active`, studentID).
		Scan(&a.ID, &a.StudentID, &a.Age, &a.WeightKg, &a.HeightM, &a.Gender, &a.Goal, &a.ActivityLevel,
			&a.DaysAvailable, &a.Injuries, &a.MedicalConditions, &a.Active, &a.CreatedAt)
	if err != nil {
		return nil, classify(err, "anamnesis for student %s", studentID)
	}
	return &a, nil
}

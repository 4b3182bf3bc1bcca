package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/coachplan/internal/apperr"
	"github.com/claude/coachplan/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const planColumns = `id, student_id, level, focus, days_per_week, limitations, status,
	name, description, ai_content, created_at, updated_at`

const plannedSetColumns = `id, plan_id, exercise_id, exercise_name, day_letter, exercise_order,
	sets, reps, rest_seconds, load_prescription, technique, notes`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanPlan(row pgx.Row) (*models.TrainingPlan, error) {
	var p models.TrainingPlan
	var raw []byte
	err := row.Scan(&p.ID, &p.StudentID, &p.Level, &p.Focus, &p.DaysPerWeek, &p.Limitations, &p.Status,
		&p.Name, &p.Description, &raw, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.AIContent = raw
	return &p, nil
}

func (db *DB) InsertPlan(ctx context.Context, p *models.TrainingPlan) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return db.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO training_plans (`+planColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			p.ID, p.StudentID, p.Level, p.Focus, p.DaysPerWeek, p.Limitations, p.Status,
			p.Name, p.Description, nullJSON(p.AIContent), p.CreatedAt, p.UpdatedAt)
		if isUniqueViolation(err) {
			return apperr.Conflict("student already has an active plan")
		}
		if err != nil {
			return fmt.Errorf("inserting plan: %w", err)
		}
		for i := range p.Sets {
			p.Sets[i].PlanID = p.ID
		}
		return insertPlannedSets(ctx, tx, p.Sets)
	})
}

func (db *DB) GetPlan(ctx context.Context, id uuid.UUID) (*models.TrainingPlan, error) {
	p, err := scanPlan(db.Pool.QueryRow(ctx,
		`SELECT `+planColumns+` FROM training_plans WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "plan %s", id)
	}
	if p.Sets, err = plannedSets(ctx, db.Pool, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

func (db *DB) GetActivePlan(ctx context.Context, studentID uuid.UUID) (*models.TrainingPlan, error) {
	p, err := scanPlan(db.Pool.QueryRow(ctx,
		`SELECT `+planColumns+` FROM training_plans WHERE student_id = $1 AND status = 'ACTIVE'`, studentID))
	if err != nil {
		return nil, classify(err, "active plan for student %s", studentID)
	}
	if p.Sets, err = plannedSets(ctx, db.Pool, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPlans returns plans in any of statuses, newest first. No statuses
// means all plans.
func (db *DB) ListPlans(ctx context.Context, statuses ...models.PlanStatus) ([]models.TrainingPlan, error) {
	if len(statuses) == 0 {
		return db.queryPlans(ctx, ``)
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return db.queryPlans(ctx, `WHERE status = ANY($1)`, names)
}

func (db *DB) ListStudentPlans(ctx context.Context, studentID uuid.UUID) ([]models.TrainingPlan, error) {
	return db.queryPlans(ctx, `WHERE student_id = $1`, studentID)
}

func (db *DB) queryPlans(ctx context.Context, where string, args ...any) ([]models.TrainingPlan, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+planColumns+` FROM training_plans `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}
	var result []models.TrainingPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		result = append(result, *p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plans: %w", err)
	}

	for i := range result {
		if result[i].Sets, err = plannedSets(ctx, db.Pool, result[i].ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (db *DB) GetPlannedSet(ctx context.Context, id uuid.UUID) (*models.PlannedSet, error) {
	var s models.PlannedSet
	err := db.Pool.QueryRow(ctx,
		`SELECT `+plannedSetColumns+` FROM planned_sets WHERE id = $1`, id).
		Scan(&s.ID, &s.PlanID, &s.ExerciseID, &s.ExerciseName, &s.DayLetter, &s.ExerciseOrder,
			&s.Sets, &s.Reps, &s.RestSeconds, &s.LoadPrescription, &s.Technique, &s.Notes)
	if err != nil {
		return nil, classify(err, "planned set %s", id)
	}
	return &s, nil
}

func plannedSets(ctx context.Context, q querier, planID uuid.UUID) ([]models.PlannedSet, error) {
	rows, err := q.Query(ctx,
		`SELECT `+plannedSetColumns+` FROM planned_sets
		 WHERE plan_id = $1
		 ORDER BY day_letter, exercise_order`, planID)
	if err != nil {
		return nil, fmt.Errorf("querying planned sets: %w", err)
	}
	defer rows.Close()

	var result []models.PlannedSet
	for rows.Next() {
		var s models.PlannedSet
		if err := rows.Scan(&s.ID, &s.PlanID, &s.ExerciseID, &s.ExerciseName, &s.DayLetter, &s.ExerciseOrder,
			&s.Sets, &s.Reps, &s.RestSeconds, &s.LoadPrescription, &s.Technique, &s.Notes); err != nil {
			return nil, fmt.Errorf("scanning planned set: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func insertPlannedSets(ctx context.Context, tx pgx.Tx, sets []models.PlannedSet) error {
	if len(sets) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, s := range sets {
		batch.Queue(
			`INSERT INTO planned_sets (`+plannedSetColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			s.ID, s.PlanID, s.ExerciseID, s.ExerciseName, s.DayLetter, s.ExerciseOrder,
			s.Sets, s.Reps, s.RestSeconds, s.LoadPrescription, s.Technique, s.Notes)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting planned sets: %w", err)
	}
	return nil
}

// ReplacePlannedSets swaps a plan's sets in one transaction. The plan row
// is locked and its status checked against rev.From first.
func (db *DB) ReplacePlannedSets(ctx context.Context, planID uuid.UUID, rev models.PlanRevision) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		var status models.PlanStatus
		err := tx.QueryRow(ctx,
			`SELECT status FROM training_plans WHERE id = $1 FOR UPDATE`, planID).Scan(&status)
		if err != nil {
			return classify(err, "plan %s", planID)
		}
		if !rev.Allows(status) {
			return apperr.Conflict("plan %s is %s", planID, status)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM planned_sets WHERE plan_id = $1`, planID); err != nil {
			return fmt.Errorf("deleting planned sets: %w", err)
		}
		sets := make([]models.PlannedSet, len(rev.Sets))
		for i, s := range rev.Sets {
			s.PlanID = planID
			sets[i] = s
		}
		if err := insertPlannedSets(ctx, tx, sets); err != nil {
			return err
		}

		if rev.Content != nil {
			_, err = tx.Exec(ctx,
				`UPDATE training_plans
				 SET status = $2, name = $3, description = $4, ai_content = $5, updated_at = $6
				 WHERE id = $1`,
				planID, rev.To, rev.Content.Name, rev.Content.Description, nullJSON(rev.Content.AIContent), rev.UpdatedAt)
		} else {
			_, err = tx.Exec(ctx,
				`UPDATE training_plans SET status = $2, updated_at = $3 WHERE id = $1`,
				planID, rev.To, rev.UpdatedAt)
		}
		if err != nil {
			return fmt.Errorf("updating plan %s: %w", planID, err)
		}
		return nil
	})
}

// TransitionPlan moves a plan from one status to another if it is still
// in from.
func (db *DB) TransitionPlan(ctx context.Context, planID uuid.UUID, from, to models.PlanStatus, at time.Time) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE training_plans SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		planID, from, to, at)
	if isUniqueViolation(err) {
		return apperr.Conflict("student already has an active plan")
	}
	if err != nil {
		return fmt.Errorf("updating plan %s: %w", planID, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := db.GetPlan(ctx, planID); err != nil {
			return err
		}
		return apperr.Conflict("plan %s is no longer %s", planID, from)
	}
	return nil
}

// ActivatePlan archives the student's active plan and activates planID in
// one transaction. expectedActive is the active plan the caller observed;
// a different one means another approval won.
func (db *DB) ActivatePlan(ctx context.Context, planID uuid.UUID, expectedActive *uuid.UUID, at time.Time) error {
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		var studentID uuid.UUID
		var status models.PlanStatus
		err := tx.QueryRow(ctx,
			`SELECT student_id, status FROM training_plans WHERE id = $1 FOR UPDATE`, planID).
			Scan(&studentID, &status)
		if err != nil {
			return classify(err, "plan %s", planID)
		}
		if status != models.PlanPendingReview {
			return apperr.Conflict("plan %s is %s, expected %s", planID, status, models.PlanPendingReview)
		}

		var current *uuid.UUID
		var id uuid.UUID
		err = tx.QueryRow(ctx,
			`SELECT id FROM training_plans WHERE student_id = $1 AND status = 'ACTIVE' FOR UPDATE`, studentID).
			Scan(&id)
		switch {
		case err == nil:
			current = &id
		case !errors.Is(err, pgx.ErrNoRows):
			return fmt.Errorf("locking active plan: %w", err)
		}
		if !sameID(current, expectedActive) {
			return apperr.Conflict("active plan for student %s changed concurrently", studentID)
		}

		if current != nil {
			if _, err := tx.Exec(ctx,
				`UPDATE training_plans SET status = 'ARCHIVED', updated_at = $2 WHERE id = $1`,
				*current, at); err != nil {
				return fmt.Errorf("archiving plan %s: %w", *current, err)
			}
		}
		if _, err := tx.Exec(ctx,
			`UPDATE training_plans SET status = 'ACTIVE', updated_at = $2 WHERE id = $1 AND status = 'PENDING_REVIEW'`,
			planID, at); err != nil {
			return fmt.Errorf("activating plan %s: %w", planID, err)
		}
		return nil
	})
	if isUniqueViolation(err) {
		return apperr.Conflict("concurrent approval won over plan %s", planID)
	}
	return err
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

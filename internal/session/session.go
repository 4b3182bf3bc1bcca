// Package session tracks a student's live execution of one day of an
// active plan.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/coachplan/internal/apperr"
	"github.com/claude/coachplan/internal/models"
	"github.com/google/uuid"
)

// Store is the persistence the executor needs.
type Store interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*models.TrainingPlan, error)
	GetPlannedSet(ctx context.Context, id uuid.UUID) (*models.PlannedSet, error)
	InsertSession(ctx context.Context, s *models.TrainingSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.TrainingSession, error)
	GetInProgressSession(ctx context.Context, studentID uuid.UUID) (*models.TrainingSession, error)
	AppendExecutedSet(ctx context.Context, es *models.ExecutedSet) error
	// FinishSession closes an open session. volume receives the session's
	// executed sets inside the same atomic unit that writes the status, so
	// no set can land between the sum and the close.
	FinishSession(ctx context.Context, id uuid.UUID, at time.Time, volume func([]models.ExecutedSet) (float64, error)) error
	ListSessions(ctx context.Context, studentID uuid.UUID, status models.SessionStatus) ([]models.TrainingSession, error)
}

// Executor runs session operations.
type Executor struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// NewExecutor creates an Executor.
func NewExecutor(store Store, log *slog.Logger) *Executor {
	return &Executor{store: store, log: log, now: time.Now}
}

// StartRequest selects the plan day to execute.
type StartRequest struct {
	PlanID    uuid.UUID `json:"plan_id"`
	DayLetter string    `json:"day_letter"`
}

// LogSetRequest records one performed set.
type LogSetRequest struct {
	PlannedSetID  uuid.UUID `json:"planned_set_id"`
	RepsCompleted *int      `json:"reps_completed"`
	WeightUsed    *float64  `json:"weight_used"`
	RPE           *int      `json:"rpe,omitempty"`
	Failure       bool      `json:"failure"`
}

// Start opens a session on one day of the student's active plan.
func (x *Executor) Start(ctx context.Context, p models.Principal, req StartRequest) (*models.TrainingSession, error) {
	if p.Role != models.RoleStudent {
		return nil, apperr.Forbidden("only students may start sessions")
	}
	day, err := models.ParseDayLetter(req.DayLetter)
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}

	_, err = x.store.GetInProgressSession(ctx, p.ID)
	switch {
	case err == nil:
		return nil, apperr.Conflict("student already has a session in progress")
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, fmt.Errorf("checking current session: %w", err)
	}

	plan, err := x.store.GetPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if plan.StudentID != p.ID {
		return nil, apperr.Forbidden("plan %s belongs to another student", plan.ID)
	}
	if plan.Status != models.PlanActive {
		return nil, apperr.Conflict("plan %s is %s, sessions need an ACTIVE plan", plan.ID, plan.Status)
	}
	if !plan.HasDay(day) {
		return nil, apperr.Invalid("plan %s has no day %s", plan.ID, day)
	}

	sess := &models.TrainingSession{
		ID:        uuid.New(),
		StudentID: p.ID,
		PlanID:    plan.ID,
		DayLetter: day,
		StartedAt: x.now().UTC(),
		Status:    models.SessionInProgress,
	}
	if err := x.store.InsertSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}
	x.log.Info("session started", "session", sess.ID, "student", p.ID, "plan", plan.ID, "day", day)
	return sess, nil
}

// owned loads a session and checks that p may act on it.
func (x *Executor) owned(ctx context.Context, p models.Principal, id uuid.UUID) (*models.TrainingSession, error) {
	sess, err := x.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.StudentID != p.ID && !p.IsStaff() {
		return nil, apperr.Forbidden("session %s belongs to another student", id)
	}
	return sess, nil
}

// LogSet appends an executed set. Volume is not touched until Finish.
func (x *Executor) LogSet(ctx context.Context, p models.Principal, sessionID uuid.UUID, req LogSetRequest) (*models.ExecutedSet, error) {
	sess, err := x.owned(ctx, p, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.SessionInProgress {
		return nil, apperr.Conflict("session %s is %s", sessionID, sess.Status)
	}
	if req.RepsCompleted != nil && *req.RepsCompleted < 0 {
		return nil, apperr.Invalid("reps_completed must not be negative")
	}
	if req.WeightUsed != nil && *req.WeightUsed < 0 {
		return nil, apperr.Invalid("weight_used must not be negative")
	}
	if req.RPE != nil && (*req.RPE < 1 || *req.RPE > 10) {
		return nil, apperr.Invalid("rpe must be between 1 and 10")
	}

	ps, err := x.store.GetPlannedSet(ctx, req.PlannedSetID)
	if err != nil {
		return nil, err
	}
	if ps.PlanID != sess.PlanID {
		return nil, apperr.Invalid("planned set %s is not part of plan %s", ps.ID, sess.PlanID)
	}

	es := &models.ExecutedSet{
		ID:            uuid.New(),
		SessionID:     sess.ID,
		PlannedSetID:  ps.ID,
		ExerciseName:  ps.ExerciseName,
		RepsCompleted: req.RepsCompleted,
		WeightUsed:    req.WeightUsed,
		RPE:           req.RPE,
		Failure:       req.Failure,
		CompletedAt:   x.now().UTC(),
	}
	if err := x.store.AppendExecutedSet(ctx, es); err != nil {
		return nil, fmt.Errorf("logging set: %w", err)
	}
	x.log.Debug("set logged", "session", sess.ID, "exercise", ps.ExerciseName)
	return es, nil
}

// Finish computes the volume load and closes the session. A set missing
// its weight or reps fails the call and the session stays open.
func (x *Executor) Finish(ctx context.Context, p models.Principal, sessionID uuid.UUID) (*models.TrainingSession, error) {
	sess, err := x.owned(ctx, p, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.SessionInProgress {
		return nil, apperr.Conflict("session %s is %s", sessionID, sess.Status)
	}

	if err := x.store.FinishSession(ctx, sess.ID, x.now().UTC(), TotalVolume); err != nil {
		return nil, fmt.Errorf("finishing session: %w", err)
	}
	done, err := x.store.GetSession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	x.log.Info("session finished", "session", done.ID, "sets", len(done.ExecutedSets), "volume", done.TotalVolumeLoad)
	return done, nil
}

// Current returns the student's open session.
func (x *Executor) Current(ctx context.Context, studentID uuid.UUID) (*models.TrainingSession, error) {
	return x.store.GetInProgressSession(ctx, studentID)
}

// History returns the student's finished sessions, newest first.
func (x *Executor) History(ctx context.Context, studentID uuid.UUID) ([]models.TrainingSession, error) {
	return x.store.ListSessions(ctx, studentID, models.SessionFinished)
}

func (x *Executor) Get(ctx context.Context, p models.Principal, sessionID uuid.UUID) (*models.TrainingSession, error) {
	return x.owned(ctx, p, sessionID)
}

// TotalVolume sums weight × reps over sets.
func TotalVolume(sets []models.ExecutedSet) (float64, error) {
	var total float64
	for _, s := range sets {
		if s.WeightUsed == nil || s.RepsCompleted == nil {
			return 0, apperr.DataIntegrity("executed set %s (%s) is missing weight or reps", s.ID, s.ExerciseName)
		}
		total += *s.WeightUsed * float64(*s.RepsCompleted)
	}
	return total, nil
}

package plan

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/claude/coachplan/internal/apperr"
	"github.com/claude/coachplan/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIngestResolvesExercises verifies reference lookups, matcher hits and
// fallback creation, plus the stored proposal metadata.
func TestIngestResolvesExercises(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.student, f.request())
	require.NoError(t, err)

	res, err := f.svc.Ingest(ctx, f.proposal(p.ID))
	require.NoError(t, err)
	assert.Equal(t, p.ID, res.PlanID)
	assert.Equal(t, 3, res.SetsReceived)
	assert.Equal(t, 3, res.SetsInserted)
	assert.Equal(t, 2, res.ExercisesMatched)
	assert.Equal(t, 1, res.ExercisesCreated)
	assert.Equal(t, []string{"Exercício Alienígena XYZ"}, res.Unmatched)

	got, err := f.store.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPendingReview, got.Status)
	assert.Equal(t, "Hipertrofia AB", got.Name)
	assert.Equal(t, "Two-day split", got.Description)

	var stored models.Proposal
	require.NoError(t, json.Unmarshal(got.AIContent, &stored))
	assert.Equal(t, p.ID, stored.PlanID)

	require.Len(t, got.Sets, 3)
	assert.Equal(t, "A", got.Sets[0].DayLetter)
	assert.Equal(t, f.bench, got.Sets[0].ExerciseID)
	assert.Equal(t, "Supino Reto com Barra", got.Sets[0].ExerciseName)
	require.NotNil(t, got.Sets[0].RestSeconds)
	assert.Equal(t, 90, *got.Sets[0].RestSeconds)
	assert.Equal(t, f.row, got.Sets[1].ExerciseID)
	assert.Equal(t, "B", got.Sets[2].DayLetter)

	created, err := f.store.GetExercise(ctx, got.Sets[2].ExerciseID)
	require.NoError(t, err)
	assert.True(t, created.IsTemporary)
	assert.True(t, created.Active)
}

// TestIngestReplayIsIdempotent verifies that a duplicate callback
// replaces the sets instead of accumulating them.
func TestIngestReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.student, f.request())
	require.NoError(t, err)

	_, err = f.svc.Ingest(ctx, f.proposal(p.ID))
	require.NoError(t, err)
	first, err := f.store.GetPlan(ctx, p.ID)
	require.NoError(t, err)

	res, err := f.svc.Ingest(ctx, f.proposal(p.ID))
	require.NoError(t, err)
	assert.Zero(t, res.ExercisesCreated)
	second, err := f.store.GetPlan(ctx, p.ID)
	require.NoError(t, err)

	require.Len(t, second.Sets, len(first.Sets))
	for i := range first.Sets {
		a, b := first.Sets[i], second.Sets[i]
		a.ID, b.ID = uuid.Nil, uuid.Nil
		assert.Equal(t, a, b)
	}

	temps, err := f.store.ListTemporaryExercises(ctx)
	require.NoError(t, err)
	assert.Len(t, temps, 1)
}

// TestIngestUnknownReference verifies that a dangling exerciseRef fails
// the callback and leaves the plan untouched.
func TestIngestUnknownReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.student, f.request())
	require.NoError(t, err)

	prop := f.proposal(p.ID)
	missing := uuid.New()
	prop.Days[0].Exercises[1].ExerciseRef = &missing

	_, err = f.svc.Ingest(ctx, prop)
	require.ErrorIs(t, err, apperr.ErrDataIntegrity)

	got, err := f.store.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanDraft, got.Status)
	assert.Empty(t, got.Sets)
}

// TestIngestRejectsBadInput verifies caller-error cases.
func TestIngestRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.student, f.request())
	require.NoError(t, err)

	_, err = f.svc.Ingest(ctx, models.Proposal{})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = f.svc.Ingest(ctx, models.Proposal{PlanID: uuid.New()})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Ingest(ctx, models.Proposal{PlanID: p.ID})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	prop := f.proposal(p.ID)
	prop.Days[0].Exercises[0].ExerciseName = ""
	_, err = f.svc.Ingest(ctx, prop)
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	prop = f.proposal(p.ID)
	prop.Days[1].DayLetter = "day two"
	_, err = f.svc.Ingest(ctx, prop)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

// TestIngestIntoActivePlan verifies that proposals cannot reopen an
// approved plan.
func TestIngestIntoActivePlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pending(t)
	_, err := f.svc.Approve(ctx, f.pro, p.ID)
	require.NoError(t, err)

	_, err = f.svc.Ingest(ctx, f.proposal(p.ID))
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Contains(t, err.Error(), "illegal plan transition ACTIVE -> PENDING_REVIEW (ingest)")
}

// TestEditReplacesSets verifies the professional's full replace.
func TestEditReplacesSets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pending(t)

	got, err := f.svc.Edit(ctx, f.pro, p.ID, []SetInput{
		{ExerciseID: f.row, DayLetter: "a", ExerciseOrder: 2, Sets: 4, Reps: "10"},
		{ExerciseID: f.bench, DayLetter: "A", ExerciseOrder: 1, Sets: 5, Reps: "5"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.PlanPendingReview, got.Status)
	require.Len(t, got.Sets, 2)
	assert.Equal(t, f.bench, got.Sets[0].ExerciseID)
	assert.Equal(t, "Supino Reto com Barra", got.Sets[0].ExerciseName)
	assert.Equal(t, 5, got.Sets[0].Sets)
	assert.Equal(t, f.row, got.Sets[1].ExerciseID)
	assert.Equal(t, "Hipertrofia AB", got.Name)
}

// TestEditGuards verifies role, state and reference checks.
func TestEditGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pending(t)
	valid := []SetInput{{ExerciseID: f.bench, DayLetter: "A", ExerciseOrder: 1, Sets: 3, Reps: "10"}}

	_, err := f.svc.Edit(ctx, f.student, p.ID, valid)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Edit(ctx, f.pro, p.ID, []SetInput{{ExerciseID: uuid.New(), DayLetter: "A", Sets: 3}})
	assert.ErrorIs(t, err, apperr.ErrDataIntegrity)

	_, err = f.svc.Edit(ctx, f.pro, p.ID, []SetInput{{ExerciseID: f.bench, DayLetter: "A", Sets: 0}})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	unchanged, err := f.store.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, unchanged.Sets, 3)

	_, err = f.svc.Approve(ctx, f.pro, p.ID)
	require.NoError(t, err)
	_, err = f.svc.Edit(ctx, f.pro, p.ID, valid)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/claude/coachplan/internal/matcher"
	"github.com/claude/coachplan/internal/models"
	"github.com/claude/coachplan/internal/plan"
	"github.com/claude/coachplan/internal/storage/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDrafts struct {
	mu         sync.Mutex
	plans      []models.TrainingPlan
	cutoff     time.Time
	redispatch []uuid.UUID
	failFor    uuid.UUID
}

func (f *fakeDrafts) StaleDrafts(_ context.Context, cutoff time.Time) ([]models.TrainingPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoff = cutoff
	var out []models.TrainingPlan
	for _, p := range f.plans {
		if p.UpdatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeDrafts) Redispatch(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == f.failFor {
		return errors.New("plan moved on")
	}
	f.redispatch = append(f.redispatch, id)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func drafts() *fakeDrafts {
	return &fakeDrafts{plans: []models.TrainingPlan{
		{ID: uuid.New(), Status: models.PlanDraft, UpdatedAt: now.Add(-3 * time.Hour)},
		{ID: uuid.New(), Status: models.PlanDraft, UpdatedAt: now.Add(-10 * time.Minute)},
	}}
}

// TestSweepReportsOnly verifies that without renotify nothing is re-sent.
func TestSweepReportsOnly(t *testing.T) {
	d := drafts()
	s := New(d, time.Hour, false, discardLogger())
	s.now = func() time.Time { return now }

	res, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stale)
	assert.Zero(t, res.Redispatched)
	assert.Empty(t, d.redispatch)
	assert.Equal(t, now.Add(-time.Hour), d.cutoff)
}

// TestSweepRenotify verifies re-dispatch and that one failure does not
// stop the others.
func TestSweepRenotify(t *testing.T) {
	d := drafts()
	d.plans = append(d.plans, models.TrainingPlan{ID: uuid.New(), Status: models.PlanDraft, UpdatedAt: now.Add(-5 * time.Hour)})
	d.failFor = d.plans[2].ID
	s := New(d, time.Hour, true, discardLogger())
	s.now = func() time.Time { return now }

	res, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stale)
	assert.Equal(t, 1, res.Redispatched)
	assert.Equal(t, []uuid.UUID{d.plans[0].ID}, d.redispatch)
}

// TestStartRejectsBadSchedule verifies cron spec validation.
func TestStartRejectsBadSchedule(t *testing.T) {
	s := New(drafts(), time.Hour, false, discardLogger())
	assert.Error(t, s.Start(context.Background(), "every now and then"))
	s.Stop()
}

// TestStartStop verifies a valid schedule starts and stops cleanly.
func TestStartStop(t *testing.T) {
	s := New(drafts(), time.Hour, false, discardLogger())
	require.NoError(t, s.Start(context.Background(), "@every 1h"))
	s.Stop()
}

type countingDispatcher struct {
	mu   sync.Mutex
	sent int
}

func (d *countingDispatcher) Dispatch(context.Context, models.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent++
}

// TestRenotifySendsOncePerStaleWindow verifies that a re-sent draft is
// not picked up again by the next sweep.
func TestRenotifySendsOncePerStaleWindow(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	created := time.Now().UTC().Add(-3 * time.Hour)
	draft := &models.TrainingPlan{
		ID:          uuid.New(),
		StudentID:   uuid.New(),
		Level:       "BEGINNER",
		Focus:       "STRENGTH",
		DaysPerWeek: 3,
		Status:      models.PlanDraft,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	require.NoError(t, store.InsertPlan(ctx, draft))

	sent := &countingDispatcher{}
	plans := plan.NewService(store, matcher.New(store, discardLogger()), sent, discardLogger())
	s := New(plans, time.Hour, true, discardLogger())

	res, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Redispatched)

	res, err = s.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Stale)
	assert.Zero(t, res.Redispatched)
	assert.Equal(t, 1, sent.sent)
}

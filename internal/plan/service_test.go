package plan

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/claude/coachplan/internal/apperr"
	"github.com/claude/coachplan/internal/matcher"
	"github.com/claude/coachplan/internal/models"
	"github.com/claude/coachplan/internal/storage/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recorder) Dispatch(_ context.Context, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type fixture struct {
	svc     *Service
	store   *memory.Store
	sent    *recorder
	student models.Principal
	pro     models.Principal
	admin   models.Principal
	bench   uuid.UUID
	row     uuid.UUID
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	bench := &models.CatalogExercise{Name: "Supino Reto com Barra", MuscleGroup: models.MuscleChest, Mechanics: models.MechanicsCompound, Active: true}
	row := &models.CatalogExercise{Name: "Remada Curvada", MuscleGroup: models.MuscleBack, Mechanics: models.MechanicsCompound, Active: true}
	require.NoError(t, store.InsertExercise(ctx, bench))
	require.NoError(t, store.InsertExercise(ctx, row))

	sent := &recorder{}
	log := discardLogger()
	return &fixture{
		svc:     NewService(store, matcher.New(store, log), sent, log),
		store:   store,
		sent:    sent,
		student: models.Principal{ID: uuid.New(), Role: models.RoleStudent},
		pro:     models.Principal{ID: uuid.New(), Role: models.RoleProfessional},
		admin:   models.Principal{ID: uuid.New(), Role: models.RoleAdmin},
		bench:   bench.ID,
		row:     row.ID,
	}
}

func (f *fixture) proposal(planID uuid.UUID) models.Proposal {
	rest := 90
	ref := f.row
	return models.Proposal{
		PlanID:      planID,
		PlanName:    "Hipertrofia AB",
		Description: "Two-day split",
		Days: []models.ProposalDay{
			{DayLetter: "A", Exercises: []models.ProposalExercise{
				{ExerciseName: "supino reto com barra", Order: 1, Sets: 4, Reps: "8-10", RestSeconds: &rest},
				{ExerciseRef: &ref, Order: 2, Sets: 3, Reps: "12"},
			}},
			{DayLetter: "b", Exercises: []models.ProposalExercise{
				{ExerciseName: "Exercício Alienígena XYZ", Order: 1, Sets: 3, Reps: "15"},
			}},
		},
	}
}

func (f *fixture) request() CreateRequest {
	return CreateRequest{Level: "INTERMEDIATE", Focus: "HYPERTROPHY", DaysPerWeek: 3}
}

// pending creates a plan for the fixture student and ingests a proposal.
func (f *fixture) pending(t *testing.T) *models.TrainingPlan {
	t.Helper()
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.student, f.request())
	require.NoError(t, err)
	_, err = f.svc.Ingest(ctx, f.proposal(p.ID))
	require.NoError(t, err)
	got, err := f.store.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, models.PlanPendingReview, got.Status)
	return got
}

func countActive(t *testing.T, store *memory.Store, studentID uuid.UUID) int {
	t.Helper()
	plans, err := store.ListStudentPlans(context.Background(), studentID)
	require.NoError(t, err)
	n := 0
	for _, p := range plans {
		if p.Status == models.PlanActive {
			n++
		}
	}
	return n
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.PlanStatus
		want     bool
	}{
		{models.PlanDraft, models.PlanPendingReview, true},
		{models.PlanPendingReview, models.PlanPendingReview, true},
		{models.PlanPendingReview, models.PlanActive, true},
		{models.PlanPendingReview, models.PlanDraft, true},
		{models.PlanActive, models.PlanArchived, true},
		{models.PlanDraft, models.PlanActive, false},
		{models.PlanDraft, models.PlanArchived, false},
		{models.PlanActive, models.PlanActive, false},
		{models.PlanArchived, models.PlanActive, false},
		{models.PlanArchived, models.PlanDraft, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

// TestCreateDispatchesNotification verifies that a request lands in DRAFT
// and sends one notification enriched with the active anamnesis.
func TestCreateDispatchesNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	age := 31
	require.NoError(t, f.store.SaveAnamnesis(ctx, &models.Anamnesis{
		StudentID: f.student.ID, Age: &age, Goal: "hypertrophy", Injuries: "left knee",
	}))

	p, err := f.svc.Create(ctx, f.student, f.request())
	require.NoError(t, err)
	assert.Equal(t, models.PlanDraft, p.Status)
	assert.Equal(t, f.student.ID, p.StudentID)
	assert.Empty(t, p.Sets)

	require.Equal(t, 1, f.sent.count())
	n := f.sent.sent[0]
	assert.Equal(t, p.ID, n.PlanID)
	assert.Equal(t, 3, n.DaysPerWeek)
	require.NotNil(t, n.Age)
	assert.Equal(t, 31, *n.Age)
	assert.Equal(t, "left knee", n.Injuries)
	assert.Equal(t, "left knee", n.Limitations)
}

// TestCreateGuards verifies role and input checks.
func TestCreateGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.pro, f.request())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	bad := f.request()
	bad.DaysPerWeek = 0
	_, err = f.svc.Create(ctx, f.student, bad)
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	bad = f.request()
	bad.Focus = " "
	_, err = f.svc.Create(ctx, f.student, bad)
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	assert.Zero(t, f.sent.count())
}

// TestCreateRejectedWhileActive verifies the single-active-plan guard at
// request time.
func TestCreateRejectedWhileActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pending(t)
	_, err := f.svc.Approve(ctx, f.pro, p.ID)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.student, f.request())
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Contains(t, err.Error(), "student already has an active plan")
}

// TestApproveArchivesPreviousActive verifies that approving P2 while P1 is
// active archives P1 and leaves P2 as the only active plan.
func TestApproveArchivesPreviousActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.pending(t)
	p2 := f.pending(t)

	_, err := f.svc.Approve(ctx, f.pro, p1.ID)
	require.NoError(t, err)

	got, err := f.svc.Approve(ctx, f.pro, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanActive, got.Status)

	old, err := f.store.GetPlan(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanArchived, old.Status)

	active, err := f.svc.ActiveFor(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, p2.ID, active.ID)
	assert.Equal(t, 1, countActive(t, f.store, f.student.ID))
}

// racingStore holds every GetActivePlan caller until all of them have
// read, so concurrent approvals observe the same active plan.
type racingStore struct {
	*memory.Store
	ready sync.WaitGroup
}

func (r *racingStore) GetActivePlan(ctx context.Context, studentID uuid.UUID) (*models.TrainingPlan, error) {
	p, err := r.Store.GetActivePlan(ctx, studentID)
	r.ready.Done()
	r.ready.Wait()
	return p, err
}

// TestConcurrentApprove verifies that of two concurrent approvals for the
// same student exactly one wins and the other gets Conflict.
func TestConcurrentApprove(t *testing.T) {
	f := newFixture(t)
	p1 := f.pending(t)
	p2 := f.pending(t)

	rs := &racingStore{Store: f.store}
	rs.ready.Add(2)
	log := discardLogger()
	svc := NewService(rs, matcher.New(f.store, log), f.sent, log)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, id := range []uuid.UUID{p1.ID, p2.ID} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Approve(context.Background(), f.pro, id)
		}()
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperr.KindOf(err) == apperr.KindConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, 1, countActive(t, f.store, f.student.ID))
}

// TestApproveIllegalTransition verifies that approving outside review is
// reported as a named illegal transition.
func TestApproveIllegalTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft, err := f.svc.Create(ctx, f.student, f.request())
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.pro, draft.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Contains(t, err.Error(), "DRAFT -> ACTIVE")

	p := f.pending(t)
	_, err = f.svc.Approve(ctx, f.pro, p.ID)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.pro, p.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Contains(t, err.Error(), "illegal plan transition ACTIVE -> ACTIVE (approve)")

	_, err = f.svc.Approve(ctx, f.student, p.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Approve(ctx, f.pro, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// TestRejectKeepsSets verifies the revision loop back to DRAFT.
func TestRejectKeepsSets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pending(t)

	got, err := f.svc.Decide(ctx, f.pro, p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.PlanDraft, got.Status)
	assert.Len(t, got.Sets, 3)

	_, err = f.svc.Reject(ctx, f.pro, p.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.Ingest(ctx, f.proposal(p.ID))
	require.NoError(t, err)
	got, err = f.svc.Decide(ctx, f.pro, p.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.PlanActive, got.Status)
}

// TestArchiveAdminOnly verifies the administrative force-close.
func TestArchiveAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pending(t)

	_, err := f.svc.Archive(ctx, f.admin, p.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.Approve(ctx, f.admin, p.ID)
	require.NoError(t, err)

	_, err = f.svc.Archive(ctx, f.pro, p.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	got, err := f.svc.Archive(ctx, f.admin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanArchived, got.Status)

	_, err = f.svc.ActiveFor(ctx, f.student.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// TestGetOwnership verifies that students only read their own plans.
func TestGetOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.student, f.request())
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, f.student, p.ID)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, f.pro, p.ID)
	assert.NoError(t, err)

	other := models.Principal{ID: uuid.New(), Role: models.RoleStudent}
	_, err = f.svc.Get(ctx, other, p.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	mine, err := f.svc.ListMine(ctx, f.student)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

// TestListPending verifies that drafts and plans under review are listed
// with the student's anamnesis.
func TestListPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SaveAnamnesis(ctx, &models.Anamnesis{StudentID: f.student.ID, Goal: "strength"}))

	_, err := f.svc.Create(ctx, f.student, f.request())
	require.NoError(t, err)
	approved := f.pending(t)
	_, err = f.svc.Approve(ctx, f.pro, approved.ID)
	require.NoError(t, err)

	pending, err := f.svc.ListPending(ctx, f.pro)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.PlanDraft, pending[0].Plan.Status)
	require.NotNil(t, pending[0].Anamnesis)
	assert.Equal(t, "strength", pending[0].Anamnesis.Goal)

	_, err = f.svc.ListPending(ctx, f.student)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	all, err := f.svc.ListAll(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	_, err = f.svc.ListAll(ctx, f.pro)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

// TestRenotify verifies the manual retry path for DRAFT plans only.
func TestRenotify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.student, f.request())
	require.NoError(t, err)
	require.Equal(t, 1, f.sent.count())

	require.NoError(t, f.svc.Renotify(ctx, f.pro, p.ID))
	assert.Equal(t, 2, f.sent.count())

	assert.ErrorIs(t, f.svc.Renotify(ctx, f.student, p.ID), apperr.ErrForbidden)

	_, err = f.svc.Ingest(ctx, f.proposal(p.ID))
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Renotify(ctx, f.pro, p.ID), apperr.ErrConflict)
}

// TestStaleDrafts verifies the cutoff on UpdatedAt.
func TestStaleDrafts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	f.svc.now = func() time.Time { return base }
	old, err := f.svc.Create(ctx, f.student, f.request())
	require.NoError(t, err)

	f.svc.now = func() time.Time { return base.Add(48 * time.Hour) }
	_, err = f.svc.Create(ctx, f.student, f.request())
	require.NoError(t, err)

	stale, err := f.svc.StaleDrafts(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
}

// TestRedispatchResetsStaleness verifies a re-sent draft leaves the stale
// list until the cutoff passes it again.
func TestRedispatchResetsStaleness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	f.svc.now = func() time.Time { return base }
	p, err := f.svc.Create(ctx, f.student, f.request())
	require.NoError(t, err)

	f.svc.now = func() time.Time { return base.Add(2 * time.Hour) }
	require.NoError(t, f.svc.Redispatch(ctx, p.ID))
	assert.Equal(t, 2, f.sent.count())

	stale, err := f.svc.StaleDrafts(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stale)

	stale, err = f.svc.StaleDrafts(ctx, base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, models.PlanDraft, stale[0].Status)
}

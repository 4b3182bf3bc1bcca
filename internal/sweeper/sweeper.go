// Package sweeper reports plans stuck in DRAFT because the AI generator
// never answered, and optionally re-sends their requests. Drafts are
// never archived automatically.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/claude/coachplan/internal/models"
	"github.com/google/uuid"
	"github.com/robfig/cron"
)

// Drafts is the slice of the plan service the sweeper drives.
type Drafts interface {
	StaleDrafts(ctx context.Context, cutoff time.Time) ([]models.TrainingPlan, error)
	Redispatch(ctx context.Context, planID uuid.UUID) error
}

// Sweeper periodically scans for stale drafts.
type Sweeper struct {
	drafts     Drafts
	staleAfter time.Duration
	renotify   bool
	log        *slog.Logger
	now        func() time.Time

	running atomic.Bool
	cron    *cron.Cron
}

// New creates a Sweeper. Drafts untouched for staleAfter are reported;
// with renotify set their AI requests are sent again.
func New(drafts Drafts, staleAfter time.Duration, renotify bool, log *slog.Logger) *Sweeper {
	return &Sweeper{
		drafts:     drafts,
		staleAfter: staleAfter,
		renotify:   renotify,
		log:        log,
		now:        time.Now,
	}
}

// Result counts what one sweep found and did.
type Result struct {
	Stale        int
	Redispatched int
}

// Sweep runs one scan. Overlapping calls are skipped.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	var res Result
	if !s.running.CompareAndSwap(false, true) {
		s.log.Debug("sweep already running, skipping")
		return res, nil
	}
	defer s.running.Store(false)

	cutoff := s.now().Add(-s.staleAfter)
	stale, err := s.drafts.StaleDrafts(ctx, cutoff)
	if err != nil {
		return res, fmt.Errorf("listing stale drafts: %w", err)
	}
	res.Stale = len(stale)

	for _, p := range stale {
		s.log.Warn("plan waiting for AI proposal",
			"plan", p.ID,
			"student", p.StudentID,
			"idle", s.now().Sub(p.UpdatedAt).Round(time.Minute),
		)
		if !s.renotify {
			continue
		}
		if err := s.drafts.Redispatch(ctx, p.ID); err != nil {
			s.log.Error("re-dispatching stale draft", "plan", p.ID, "error", err)
			continue
		}
		res.Redispatched++
	}
	return res, nil
}

// Start schedules sweeps with a cron spec such as "@every 15m". ctx
// bounds every scheduled sweep.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	c := cron.New()
	err := c.AddFunc(schedule, func() {
		res, err := s.Sweep(ctx)
		if err != nil {
			s.log.Error("stale draft sweep failed", "error", err)
			return
		}
		if res.Stale > 0 {
			s.log.Info("stale draft sweep complete", "stale", res.Stale, "redispatched", res.Redispatched)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling sweeper %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c
	s.log.Info("stale draft sweeper started", "schedule", schedule, "stale_after", s.staleAfter, "renotify", s.renotify)
	return nil
}

// Stop halts scheduling. A sweep already running is not interrupted.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

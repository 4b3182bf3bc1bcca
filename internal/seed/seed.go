// Package seed loads curated exercises from a YAML file into a running
// coachplan server.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Stats tracks seeding progress.
type Stats struct {
	Total    int
	Created  int
	Existing int
	Skipped  int
	Errored  int
}

// Seeder pushes a seed file through a Client, recording progress in a StateDB.
type Seeder struct {
	client *Client
	state  *StateDB
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a Seeder. In dry-run mode nothing is sent and the state is
// left untouched.
func New(client *Client, state *StateDB, dryRun bool, log *slog.Logger) *Seeder {
	return &Seeder{client: client, state: state, dryRun: dryRun, log: log}
}

// Run seeds every entry of f. Per-entry failures are counted and logged;
// only a failure to read the server's current catalog aborts the run.
func (s *Seeder) Run(ctx context.Context, f *File) (*Stats, error) {
	var existing map[string]bool
	if !s.dryRun {
		var err error
		existing, err = s.client.FetchExisting(ctx)
		if err != nil {
			return &s.stats, fmt.Errorf("fetching catalog: %w", err)
		}
		s.log.Info("fetched catalog", "exercises", len(existing))
	}

	for _, e := range f.Exercises {
		if err := ctx.Err(); err != nil {
			return &s.stats, err
		}
		s.stats.Total++
		hash := e.Hash()

		seeded, err := s.state.IsSeeded(e.Name, hash)
		if err != nil {
			s.log.Warn("state check failed", "exercise", e.Name, "error", err)
			s.stats.Errored++
			continue
		}
		if seeded {
			s.stats.Skipped++
			continue
		}

		if s.dryRun {
			s.log.Info("dry run: would create", "exercise", e.Name, "muscle_group", e.MuscleGroup)
			s.stats.Created++
			continue
		}

		// The server has no exercise update, so an edited entry whose name
		// is already present is recorded, not resent.
		if existing[strings.ToLower(e.Name)] {
			s.stats.Existing++
			s.mark(e.Name, hash)
			continue
		}

		err = s.client.CreateExercise(ctx, e)
		switch {
		case errors.Is(err, ErrExists):
			s.stats.Existing++
		case err != nil:
			s.log.Warn("create failed", "exercise", e.Name, "error", err)
			s.stats.Errored++
			continue
		default:
			s.stats.Created++
			s.log.Debug("created", "exercise", e.Name)
		}
		s.mark(e.Name, hash)
	}

	return &s.stats, nil
}

func (s *Seeder) mark(name, hash string) {
	if err := s.state.MarkSeeded(name, hash); err != nil {
		s.log.Warn("state update failed", "exercise", name, "error", err)
	}
}

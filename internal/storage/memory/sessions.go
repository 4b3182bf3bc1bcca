package memory

import (
	"context"
	"sort"
	"time"

	"github.com/claude/coachplan/internal/apperr"
	"github.com/claude/coachplan/internal/models"
	"github.com/google/uuid"
)

func (s *Store) InsertSession(_ context.Context, sess *models.TrainingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.Status == models.SessionInProgress && s.inProgressLocked(sess.StudentID) != nil {
		return apperr.Conflict("student already has a session in progress")
	}
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	stored := *sess
	stored.ExecutedSets = nil
	s.sessions[sess.ID] = stored
	return nil
}

func (s *Store) GetSession(_ context.Context, id uuid.UUID) (*models.TrainingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, apperr.NotFound("session %s not found", id)
	}
	return s.withExecutedLocked(sess), nil
}

func (s *Store) GetInProgressSession(_ context.Context, studentID uuid.UUID) (*models.TrainingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.inProgressLocked(studentID)
	if sess == nil {
		return nil, apperr.NotFound("student %s has no session in progress", studentID)
	}
	return s.withExecutedLocked(*sess), nil
}

func (s *Store) AppendExecutedSet(_ context.Context, es *models.ExecutedSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[es.SessionID]
	if !ok {
		return apperr.NotFound("session %s not found", es.SessionID)
	}
	if sess.Status != models.SessionInProgress {
		return apperr.Conflict("session %s is %s", es.SessionID, sess.Status)
	}
	if _, ok := s.sets[es.PlannedSetID]; !ok {
		return apperr.NotFound("planned set %s not found", es.PlannedSetID)
	}
	if es.ID == uuid.Nil {
		es.ID = uuid.New()
	}
	s.executed[es.SessionID] = append(s.executed[es.SessionID], *es)
	return nil
}

func (s *Store) FinishSession(_ context.Context, id uuid.UUID, at time.Time, volume func([]models.ExecutedSet) (float64, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return apperr.NotFound("session %s not found", id)
	}
	if sess.Status != models.SessionInProgress {
		return apperr.Conflict("session %s is %s", id, sess.Status)
	}
	total, err := volume(s.executed[id])
	if err != nil {
		return err
	}
	sess.Status = models.SessionFinished
	sess.TotalVolumeLoad = total
	sess.FinishedAt = &at
	s.sessions[id] = sess
	return nil
}

// ListSessions returns the student's sessions in status, most recently
// finished (then started) first.
func (s *Store) ListSessions(_ context.Context, studentID uuid.UUID, status models.SessionStatus) ([]models.TrainingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.TrainingSession
	for _, sess := range s.sessions {
		if sess.StudentID == studentID && sess.Status == status {
			out = append(out, *s.withExecutedLocked(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return sortTime(out[i]).After(sortTime(out[j]))
	})
	return out, nil
}

func (s *Store) inProgressLocked(studentID uuid.UUID) *models.TrainingSession {
	for _, sess := range s.sessions {
		if sess.StudentID == studentID && sess.Status == models.SessionInProgress {
			return &sess
		}
	}
	return nil
}

func (s *Store) withExecutedLocked(sess models.TrainingSession) *models.TrainingSession {
	sess.ExecutedSets = append([]models.ExecutedSet(nil), s.executed[sess.ID]...)
	return &sess
}

func sortTime(sess models.TrainingSession) time.Time {
	if sess.FinishedAt != nil {
		return *sess.FinishedAt
	}
	return sess.StartedAt
}

// --- Anamnesis ---

// SaveAnamnesis stores a and deactivates the student's previous one.
func (s *Store) SaveAnamnesis(_ context.Context, a *models.Anamnesis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.anamneses {
		if existing.StudentID == a.StudentID && existing.Active {
			existing.Active = false
			s.anamneses[id] = existing
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Active = true
	s.anamneses[a.ID] = *a
	return nil
}

func (s *Store) GetActiveAnamnesis(_ context.Context, studentID uuid.UUID) (*models.Anamnesis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.anamneses {
		if a.StudentID == studentID && a.Active {
			return &a, nil
		}
	}
	return nil, apperr.NotFound("student %s has no anamnesis", studentID)
}

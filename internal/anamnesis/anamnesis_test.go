package anamnesis

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/claude/coachplan/internal/apperr"
	"github.com/claude/coachplan/internal/models"
	"github.com/claude/coachplan/internal/storage/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSubmitReplacesActive verifies that a new questionnaire supersedes
// the previous one.
func TestSubmitReplacesActive(t *testing.T) {
	svc := NewService(memory.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()
	student := models.Principal{ID: uuid.New(), Role: models.RoleStudent}

	first, err := svc.Submit(ctx, student, SubmitRequest{Goal: "lose weight"})
	require.NoError(t, err)
	age := 40
	second, err := svc.Submit(ctx, student, SubmitRequest{Goal: "strength", Age: &age, Injuries: " shoulder "})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := svc.Active(ctx, student, student.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, "shoulder", got.Injuries)

	pro := models.Principal{ID: uuid.New(), Role: models.RoleProfessional}
	_, err = svc.Active(ctx, pro, student.ID)
	assert.NoError(t, err)

	other := models.Principal{ID: uuid.New(), Role: models.RoleStudent}
	_, err = svc.Active(ctx, other, student.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Active(ctx, other, other.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// TestSubmitValidates verifies role and range checks.
func TestSubmitValidates(t *testing.T) {
	svc := NewService(memory.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()
	student := models.Principal{ID: uuid.New(), Role: models.RoleStudent}

	_, err := svc.Submit(ctx, models.Principal{ID: uuid.New(), Role: models.RoleAdmin}, SubmitRequest{Goal: "x"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Submit(ctx, student, SubmitRequest{})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	height := 180.0
	_, err = svc.Submit(ctx, student, SubmitRequest{Goal: "x", HeightM: &height})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

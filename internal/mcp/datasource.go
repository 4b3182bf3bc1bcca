package mcp

import (
	"context"

	"github.com/claude/coachplan/internal/catalog"
	"github.com/claude/coachplan/internal/models"
	"github.com/claude/coachplan/internal/plan"
	"github.com/google/uuid"
)

// DataSource abstracts the data layer for MCP tools. Both Local (in-process
// services) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListCatalog(ctx context.Context, muscleGroup string) ([]models.CatalogEntry, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*models.TrainingPlan, error)
	ListPendingPlans(ctx context.Context) ([]models.PendingPlan, error)
}

// reviewer is the principal MCP callers act as. The endpoint sits behind
// the API key shared with the AI collaborator.
var reviewer = models.Principal{Role: models.RoleProfessional}

// Local serves MCP tools from the in-process services.
type Local struct {
	Catalog *catalog.Service
	Plans   *plan.Service
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = (*Local)(nil)

func (l *Local) ListCatalog(ctx context.Context, muscleGroup string) ([]models.CatalogEntry, error) {
	return l.Catalog.Entries(ctx, muscleGroup)
}

func (l *Local) GetPlan(ctx context.Context, id uuid.UUID) (*models.TrainingPlan, error) {
	return l.Plans.Get(ctx, reviewer, id)
}

func (l *Local) ListPendingPlans(ctx context.Context) ([]models.PendingPlan, error) {
	return l.Plans.ListPending(ctx, reviewer)
}

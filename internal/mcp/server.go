package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/claude/coachplan/internal/models"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("coachplan", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("coachplan exercise catalog and training plans. Use list_exercises to pick catalog entries and cite them by id as exerciseRef in proposals."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolGetPlan, Handler: h.getPlan},
		server.ServerTool{Tool: toolListPendingPlans, Handler: h.listPendingPlans},
	)

	s.AddResources(
		server.ServerResource{Resource: resCatalog, Handler: h.catalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Tool definitions ---

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List active catalog exercises (id, name, muscle group, mechanics, equipment). Unknown groups return an empty list."),
	mcp.WithString("muscle_group", mcp.Description("Optional muscle group filter (CHEST, BACK, LEGS, SHOULDERS, BICEPS, TRICEPS, CORE, CARDIO)")),
)

var toolGetPlan = mcp.NewTool("get_plan",
	mcp.WithDescription("Get a training plan with its planned sets."),
	mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan UUID")),
)

var toolListPendingPlans = mcp.NewTool("list_pending_plans",
	mcp.WithDescription("List plans awaiting a proposal or a review, each with the student's anamnesis when available."),
)

// --- Resource definitions ---

var resCatalog = mcp.NewResource(
	"coachplan://catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("All active catalog exercises in compact form"),
	mcp.WithMIMEType("application/json"),
)

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	group := strings.TrimSpace(req.GetString("muscle_group", ""))
	entries, err := h.ds.ListCatalog(ctx, group)
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if entries == nil {
		entries = []models.CatalogEntry{}
	}

	result, err := mcp.NewToolResultJSON(entries)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("plan_id")
	if err != nil {
		return mcp.NewToolResultError("plan_id parameter is required"), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError("plan_id must be a UUID"), nil
	}

	p, err := h.ds.GetPlan(ctx, id)
	if err != nil {
		h.log.Error("mcp get_plan", "plan", id, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(p)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listPendingPlans(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pending, err := h.ds.ListPendingPlans(ctx)
	if err != nil {
		h.log.Error("mcp list_pending_plans", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if pending == nil {
		pending = []models.PendingPlan{}
	}

	result, err := mcp.NewToolResultJSON(pending)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) catalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entries, err := h.ds.ListCatalog(ctx, "")
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

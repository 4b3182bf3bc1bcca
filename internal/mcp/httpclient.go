package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/coachplan/internal/models"
	"github.com/google/uuid"
)

// HTTPClient implements DataSource by calling the coachplan REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	principal  models.Principal
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. Requests
// carry p as the gateway identity headers.
func NewHTTPClient(baseURL string, p models.Principal) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		principal:  p,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	req.Header.Set("X-Principal-ID", c.principal.ID.String())
	req.Header.Set("X-Principal-Role", string(c.principal.Role))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) ListCatalog(ctx context.Context, muscleGroup string) ([]models.CatalogEntry, error) {
	path := "/api/v1/exercises/catalog"
	if muscleGroup != "" {
		path += "/" + url.PathEscape(muscleGroup)
	}
	var entries []models.CatalogEntry
	if err := c.get(ctx, path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *HTTPClient) GetPlan(ctx context.Context, id uuid.UUID) (*models.TrainingPlan, error) {
	var p models.TrainingPlan
	if err := c.get(ctx, "/api/v1/plans/"+id.String(), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) ListPendingPlans(ctx context.Context) ([]models.PendingPlan, error) {
	var pending []models.PendingPlan
	if err := c.get(ctx, "/api/v1/plans/pending", &pending); err != nil {
		return nil, err
	}
	return pending, nil
}

package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/coachplan/internal/models"
)

// ErrExists is returned when the server already holds an exercise with the
// same name.
var ErrExists = errors.New("exercise already exists")

// existingExercise is the subset of the server's exercise record the seeder reads.
type existingExercise struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Client sends catalog entries to the coachplan server over HTTP.
type Client struct {
	serverURL  string
	principal  models.Principal
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a client acting as p. Seeding needs a staff principal.
func NewClient(serverURL string, p models.Principal) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		principal: p,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Principal-ID", c.principal.ID.String())
	req.Header.Set("X-Principal-Role", string(c.principal.Role))
	return req, nil
}

// FetchExisting returns the lowercased names of every exercise on the server.
func (c *Client) FetchExisting(ctx context.Context) (map[string]bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/exercises", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching exercises: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching exercises: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("exercise list failed (status %d): %s", resp.StatusCode, body)
	}

	var list []existingExercise
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decoding exercises: %w", err)
	}

	names := make(map[string]bool, len(list))
	for _, e := range list {
		names[strings.ToLower(e.Name)] = true
	}
	return names, nil
}

// CreateExercise POSTs one entry. Server errors and transport failures are
// retried up to 3 times with exponential backoff; a 409 returns ErrExists and
// other 4xx responses fail at once.
func (c *Client) CreateExercise(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling exercise: %w", err)
	}

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff * time.Duration(1<<uint(attempt-1))):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/exercises", data)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
			return nil
		case resp.StatusCode == http.StatusConflict:
			return ErrExists
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return fmt.Errorf("create %q rejected (status %d): %s", e.Name, resp.StatusCode, body)
		}
		lastErr = fmt.Errorf("create %q failed (status %d): %s", e.Name, resp.StatusCode, body)
	}

	return fmt.Errorf("after 3 attempts: %w", lastErr)
}

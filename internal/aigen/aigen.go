// Package aigen talks to the external AI plan generator. Requests go out
// as webhooks; proposals come back later through the plan callback.
package aigen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/claude/coachplan/internal/apperr"
	"github.com/claude/coachplan/internal/models"
	"golang.org/x/time/rate"
)

// Notifier delivers a generation request.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// WebhookNotifier POSTs notifications as JSON to a fixed URL.
type WebhookNotifier struct {
	url        string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewWebhookNotifier creates a notifier. perMinute caps outbound requests;
// zero or less disables the cap.
func NewWebhookNotifier(url, apiKey string, perMinute int) *WebhookNotifier {
	limit := rate.Inf
	burst := 1
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
		burst = perMinute
	}
	return &WebhookNotifier{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (w *WebhookNotifier) Notify(ctx context.Context, n models.Notification) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return apperr.Upstream(err, "waiting for webhook rate limit")
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.apiKey != "" {
		req.Header.Set("X-API-Key", w.apiKey)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return apperr.Upstream(err, "posting webhook for plan %s", n.PlanID)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return apperr.Upstream(fmt.Errorf("status %d: %s", resp.StatusCode, body), "webhook rejected plan %s", n.PlanID)
	}
	return nil
}

// LogNotifier only logs notifications. It stands in when no webhook is
// configured.
type LogNotifier struct {
	Log *slog.Logger
}

func (l LogNotifier) Notify(_ context.Context, n models.Notification) error {
	l.Log.Info("ai webhook not configured, notification dropped", "plan", n.PlanID, "student", n.StudentID)
	return nil
}

// Dispatcher runs each notification in its own goroutine, detached from
// the request that triggered it. Failures are logged and dropped; the
// manual re-notify path is the only retry.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	log      *slog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. timeout bounds each delivery.
func NewDispatcher(notifier Notifier, timeout time.Duration, log *slog.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, timeout: timeout, log: log}
}

// Dispatch returns immediately. ctx contributes values only; its
// cancellation does not stop the delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, n models.Notification) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		start := time.Now()
		if err := d.notifier.Notify(ctx, n); err != nil {
			d.log.Error("ai notification failed", "plan", n.PlanID, "kind", apperr.KindOf(err), "error", err)
			return
		}
		d.log.Info("ai notification sent", "plan", n.PlanID, "duration", time.Since(start).Round(time.Millisecond))
	}()
}

// Wait blocks until every in-flight delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

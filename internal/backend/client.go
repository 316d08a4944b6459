// Package backend implements the typed HTTP client for the orchestration
// backend's REST surface. The backend itself is a black box: this client
// only speaks the fixed endpoint contract and never interprets run state
// beyond decoding what the backend returns.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meridian-labs/lookout/internal/event"
	"github.com/meridian-labs/lookout/internal/logger"
)

// DefaultTimeout is the default per-request HTTP timeout.
const DefaultTimeout = 10 * time.Second

// RunSnapshot is the full pull-side view of one run: the entire event log
// plus the backend-computed status. Each snapshot replaces the previous
// one wholesale; there is no incremental merge at this level.
type RunSnapshot struct {
	Events []event.Event `json:"events"`
	Status string        `json:"status"`
}

// Client is the REST client for the backend's API surface.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client (for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a backend client rooted at the given base origin,
// e.g. "http://localhost:3001".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        logger.WithField("component", "backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StreamURL returns the WebSocket endpoint derived from the base origin.
func (c *Client) StreamURL() string {
	url := c.baseURL + "/api/ws"
	if strings.HasPrefix(url, "https://") {
		return "wss://" + strings.TrimPrefix(url, "https://")
	}
	return "ws://" + strings.TrimPrefix(url, "http://")
}

// Agents fetches the agent directory.
func (c *Client) Agents(ctx context.Context) ([]event.Agent, error) {
	var resp struct {
		Agents []event.Agent `json:"agents"`
	}
	if err := c.get(ctx, "/api/agents", &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// TriggerRun asks the backend to start a run of the given agent. The
// response carries no body contract beyond success or failure.
func (c *Client) TriggerRun(ctx context.Context, agentID string) error {
	if agentID == "" {
		return fmt.Errorf("agent ID cannot be empty")
	}
	return c.post(ctx, "/api/agents/"+agentID+"/run", nil, nil)
}

// Runs fetches the backend-computed run summaries.
func (c *Client) Runs(ctx context.Context) ([]event.RunSummary, error) {
	var resp struct {
		Runs []event.RunSummary `json:"runs"`
	}
	if err := c.get(ctx, "/api/runs", &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// RunSnapshot fetches the full event log and status for one run.
func (c *Client) RunSnapshot(ctx context.Context, runID string) (RunSnapshot, error) {
	if runID == "" {
		return RunSnapshot{}, fmt.Errorf("run ID cannot be empty")
	}
	var snap RunSnapshot
	if err := c.get(ctx, "/api/runs/"+runID, &snap); err != nil {
		return RunSnapshot{}, err
	}
	return snap, nil
}

// CancelRun requests cancellation of a run. The displayed state only
// changes once a run_cancelled event or poll snapshot confirms it.
func (c *Client) CancelRun(ctx context.Context, runID string) error {
	if runID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	return c.post(ctx, "/api/runs/"+runID+"/cancel", nil, nil)
}

// SubmitInput submits operator-supplied input to a run waiting on it.
func (c *Client) SubmitInput(ctx context.Context, runID, input string) error {
	if runID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	body := map[string]string{"input": input}
	return c.post(ctx, "/api/runs/"+runID+"/input", body, nil)
}

// Ping probes the backend's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "/api/health", nil)
}

// get issues a GET request and decodes the JSON response into out (if
// out is non-nil).
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

// post issues a POST request with an optional JSON body and decodes the
// JSON response into out (if out is non-nil).
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	c.log.WithFields(map[string]interface{}{
		"method": req.Method,
		"path":   req.URL.Path,
	}).Debug("Sending backend request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Include a bounded slice of the body so command rejections are
		// surfaced to the operator, not swallowed.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(detail))
		if msg != "" {
			return fmt.Errorf("%s %s returned status %d: %s", req.Method, req.URL.Path, resp.StatusCode, msg)
		}
		return fmt.Errorf("%s %s returned status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}

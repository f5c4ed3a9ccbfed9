// Package n8n is a thin client for the n8n REST API. List calls tolerate
// the three envelope shapes different n8n versions return and normalize
// all of them to a bare slice.
package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// APIError carries the HTTP status of a non-2xx n8n response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("n8n api error: %d %s", e.Status, http.StatusText(e.Status))
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Configured reports whether an API key is present. Without one every call
// would be rejected upstream, so the tool layer serves fixtures instead.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

func (c *Client) request(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-N8N-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// decodeList normalizes the three envelope shapes n8n serves for list
// endpoints: a bare array, {"<key>": [...]}, or {"data": [...]}. Anything
// else is logged and treated as an empty list rather than an error.
func decodeList[T any](raw []byte, key string, logger *slog.Logger) []T {
	var bare []T
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil {
		for _, k := range []string{key, "data"} {
			inner, ok := envelope[k]
			if !ok {
				continue
			}
			var items []T
			if err := json.Unmarshal(inner, &items); err == nil {
				return items
			}
		}
	}

	logger.Warn("unexpected n8n response shape", "key", key, "body_len", len(raw))
	return []T{}
}

// ListWorkflows fetches workflows, optionally filtered by active state.
func (c *Client) ListWorkflows(ctx context.Context, active *bool) ([]Workflow, error) {
	endpoint := "/api/v1/workflows"
	if active != nil {
		endpoint += "?active=" + strconv.FormatBool(*active)
	}
	raw, err := c.request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Workflow](raw, "workflows", c.logger), nil
}

func (c *Client) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	raw, err := c.request(ctx, http.MethodGet, "/api/v1/workflows/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var wf Workflow
	if err := json.Unmarshal(raw, &wf); err != nil {
		return nil, fmt.Errorf("unmarshal workflow: %w", err)
	}
	return &wf, nil
}

// ExecuteWorkflow starts a run of the workflow with optional input data and
// returns the raw execution record.
func (c *Client) ExecuteWorkflow(ctx context.Context, id string, data map[string]any) (json.RawMessage, error) {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := c.request(ctx, http.MethodPost, "/api/v1/workflows/"+url.PathEscape(id)+"/execute", data)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

func (c *Client) ActivateWorkflow(ctx context.Context, id string) (json.RawMessage, error) {
	raw, err := c.request(ctx, http.MethodPost, "/api/v1/workflows/"+url.PathEscape(id)+"/activate", nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

func (c *Client) DeactivateWorkflow(ctx context.Context, id string) (json.RawMessage, error) {
	raw, err := c.request(ctx, http.MethodPost, "/api/v1/workflows/"+url.PathEscape(id)+"/deactivate", nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// ListExecutions fetches recent executions, optionally scoped to one workflow.
func (c *Client) ListExecutions(ctx context.Context, workflowID string, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 10
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if workflowID != "" {
		q.Set("workflowId", workflowID)
	}
	raw, err := c.request(ctx, http.MethodGet, "/api/v1/executions?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Execution](raw, "executions", c.logger), nil
}

func (c *Client) StopExecution(ctx context.Context, executionID string) (json.RawMessage, error) {
	raw, err := c.request(ctx, http.MethodPost, "/api/v1/executions/"+url.PathEscape(executionID)+"/stop", nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// TestConnection probes the workflows endpoint with a minimal query.
func (c *Client) TestConnection(ctx context.Context) bool {
	_, err := c.request(ctx, http.MethodGet, "/api/v1/workflows?limit=1", nil)
	if err != nil {
		c.logger.Warn("n8n connection test failed", "error", err)
		return false
	}
	return true
}

// SystemHealth aggregates connectivity and recent activity into one snapshot.
func (c *Client) SystemHealth(ctx context.Context) Health {
	now := time.Now().UTC().Format(time.RFC3339)

	workflows, err := c.ListWorkflows(ctx, nil)
	if err != nil {
		return Health{
			Status:    "unhealthy",
			Connected: false,
			Error:     err.Error(),
			LastCheck: now,
		}
	}
	executions, err := c.ListExecutions(ctx, "", 1)
	if err != nil {
		return Health{
			Status:    "unhealthy",
			Connected: false,
			Error:     err.Error(),
			LastCheck: now,
		}
	}

	return Health{
		Status:           "healthy",
		Connected:        true,
		WorkflowCount:    len(workflows),
		RecentExecutions: len(executions),
		LastCheck:        now,
	}
}

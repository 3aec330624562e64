package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/octopoid/octopoid/internal/protocol"
)

// ErrNotFound is returned by Get/Claim when the remote store responds 404.
// Callers treat this as "absent", not as an error condition (spec §4.7,
// §7 "remote-store not found on get/claim").
var ErrNotFound = errors.New("remote: not found")

// Client is a thin typed wrapper over the external task-store HTTP API.
// One Client is constructed at startup from config and passed explicitly
// to every component that needs it — no package-level singleton (spec
// §9 "global SDK instance -> explicit dependency").
type Client struct {
	baseURL string
	scope   string
	apiKey  string
	http    *http.Client
}

// New creates a Client. baseURL is the task-store's root (e.g.
// "https://octopoid.example.com"); scope is attached to every request for
// tenant isolation; apiKey is sent as a bearer token when non-empty.
func New(baseURL, scope, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		scope:   scope,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// doRequest performs one HTTP call, attaches scope/auth, and decodes a
// JSON response into out (if non-nil). Mirrors the teacher's
// client.go:call helper, re-expressed over HTTP instead of a Unix-socket
// JSON-RPC envelope.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("remote: read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote: %s %s: status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}

func (c *Client) scopedQuery(extra url.Values) url.Values {
	q := url.Values{}
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("scope", c.scope)
	return q
}

// CreateTask creates a new task (POST /api/v1/tasks).
func (c *Client) CreateTask(ctx context.Context, t *Task) (*Task, error) {
	var out Task
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/tasks", c.scopedQuery(nil), t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTask fetches a task by id (GET /api/v1/tasks/:id). Returns
// ErrNotFound if absent.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	var out Task
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/tasks/"+id, c.scopedQuery(nil), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTasks lists tasks matching filters (GET /api/v1/tasks).
func (c *Client) ListTasks(ctx context.Context, f ListFilters) ([]Task, error) {
	q := url.Values{}
	if f.Queue != "" {
		q.Set("queue", f.Queue)
	}
	if f.Role != "" {
		q.Set("role", f.Role)
	}
	if f.ProjectID != "" {
		q.Set("project_id", f.ProjectID)
	}
	if f.Flow != "" {
		q.Set("flow", f.Flow)
	}
	var out []Task
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/tasks", c.scopedQuery(q), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimTask atomically claims the next eligible task for the given
// blueprint (POST /api/v1/tasks/claim). Returns ErrNotFound when no
// claimable work exists.
func (c *Client) ClaimTask(ctx context.Context, req ClaimRequest) (*Task, error) {
	var out Task
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/tasks/claim", c.scopedQuery(nil), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitTask moves a task from claimed to provisional (POST
// /api/v1/tasks/:id/submit).
func (c *Client) SubmitTask(ctx context.Context, id string, req SubmitRequest) error {
	return c.doRequest(ctx, http.MethodPost, "/api/v1/tasks/"+id+"/submit", c.scopedQuery(nil), req, nil)
}

// AcceptTask moves a task to done (POST /api/v1/tasks/:id/accept).
func (c *Client) AcceptTask(ctx context.Context, id, acceptedBy string) error {
	body := map[string]string{"accepted_by": acceptedBy}
	return c.doRequest(ctx, http.MethodPost, "/api/v1/tasks/"+id+"/accept", c.scopedQuery(nil), body, nil)
}

// RejectTask returns a task to incoming with feedback (POST
// /api/v1/tasks/:id/reject).
func (c *Client) RejectTask(ctx context.Context, id, reason, rejectedBy string) error {
	body := map[string]string{"reason": reason, "rejected_by": rejectedBy}
	return c.doRequest(ctx, http.MethodPost, "/api/v1/tasks/"+id+"/reject", c.scopedQuery(nil), body, nil)
}

// UpdateTask applies a sparse field update (PATCH /api/v1/tasks/:id).
func (c *Client) UpdateTask(ctx context.Context, id string, fields map[string]any) error {
	return c.doRequest(ctx, http.MethodPatch, "/api/v1/tasks/"+id, c.scopedQuery(nil), UpdateRequest{Fields: fields}, nil)
}

// RequeueTask forces a task back to incoming (POST /api/v1/tasks/:id/requeue).
func (c *Client) RequeueTask(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodPost, "/api/v1/tasks/"+id+"/requeue", c.scopedQuery(nil), nil, nil)
}

// GetProject fetches a project by id.
func (c *Client) GetProject(ctx context.Context, id string) (*Project, error) {
	var out Project
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/projects/"+id, c.scopedQuery(nil), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProjectTasks lists the children of a project.
func (c *Client) ListProjectTasks(ctx context.Context, projectID string) ([]Task, error) {
	var out []Task
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/projects/"+projectID+"/tasks", c.scopedQuery(nil), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMessages lists append-only thread messages for a task (GET
// /api/v1/tasks/:id/messages).
func (c *Client) ListMessages(ctx context.Context, taskID string) ([]Message, error) {
	var out []Message
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/tasks/"+taskID+"/messages", c.scopedQuery(nil), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PostMessage appends a message to a task's thread (POST
// /api/v1/tasks/:id/messages). Append-only: no update/delete exists.
func (c *Client) PostMessage(ctx context.Context, taskID string, msg Message) error {
	return c.doRequest(ctx, http.MethodPost, "/api/v1/tasks/"+taskID+"/messages", c.scopedQuery(nil), msg, nil)
}

// RegisterFlow publishes a flow definition to the server, expanding its
// accepted queue set (PUT /api/v1/flows/:name).
func (c *Client) RegisterFlow(ctx context.Context, name string, flowYAML []byte) error {
	body := map[string]string{"yaml": string(flowYAML)}
	return c.doRequest(ctx, http.MethodPut, "/api/v1/flows/"+name, c.scopedQuery(nil), body, nil)
}

// CreateAction records an out-of-band admin action (POST /api/v1/actions).
func (c *Client) CreateAction(ctx context.Context, actionType string) (*Action, error) {
	var out Action
	body := map[string]string{"type": actionType}
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/actions", c.scopedQuery(nil), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteAction marks an action complete or failed.
func (c *Client) CompleteAction(ctx context.Context, id string, failed bool, note string) error {
	verb := "complete"
	if failed {
		verb = "fail"
	}
	body := map[string]string{"note": note}
	return c.doRequest(ctx, http.MethodPost, "/api/v1/actions/"+id+"/"+verb, c.scopedQuery(nil), body, nil)
}

// Register registers this orchestrator instance with the remote store
// (POST /api/v1/orchestrators/register).
func (c *Client) Register(ctx context.Context, orchestratorID string) error {
	body := map[string]string{"orchestrator_id": orchestratorID}
	return c.doRequest(ctx, http.MethodPost, "/api/v1/orchestrators/register", c.scopedQuery(nil), body, nil)
}

// Poll performs a cheap queue-count poll (GET /scheduler/poll).
func (c *Client) Poll(ctx context.Context, orchestratorID string) (*PollResult, error) {
	q := url.Values{"orchestrator_id": []string{orchestratorID}}
	var out PollResult
	if err := c.doRequest(ctx, http.MethodGet, "/scheduler/poll", c.scopedQuery(q), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListActionMessages lists pending dispatcher envelopes addressed to the
// given actor with the given type (GET /api/v1/messages). Distinct from
// ListMessages, which reads a single task's append-only feedback thread.
func (c *Client) ListActionMessages(ctx context.Context, toActor string, msgType protocol.MessageType) ([]protocol.Message, error) {
	q := url.Values{"to": []string{toActor}, "type": []string{string(msgType)}}
	var out []protocol.Message
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/messages", c.scopedQuery(q), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PostActionMessage posts a dispatcher envelope to the global message
// inbox (POST /api/v1/messages).
func (c *Client) PostActionMessage(ctx context.Context, msg *protocol.Message) error {
	return c.doRequest(ctx, http.MethodPost, "/api/v1/messages", c.scopedQuery(nil), msg, nil)
}

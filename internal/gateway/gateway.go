// Package gateway wraps all HTTP communication with the remote task
// backend. It is the only component in the client that performs network
// I/O: it translates wire payloads to and from task entities and manages
// the rotating CSRF session token across requests.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eisen/internal/task"
	"eisen/internal/utils"
)

// TokenStore holds the rotating CSRF session token between requests. The
// application state store implements it. The protocol is attach-if-present,
// rotate-on-receipt: any response carrying a csrf_token overwrites the held
// one, no merging.
type TokenStore interface {
	CSRFToken() string
	SetCSRFToken(token string)
}

// Config holds backend connection settings.
type Config struct {
	BaseURL  string        // empty means the client runs display-only
	APIToken string        // optional bearer token, sent as a query parameter
	Timeout  time.Duration // per-request timeout, default 30s
}

// Client talks to the remote task backend.
type Client struct {
	cfg    Config
	client *http.Client
	tokens TokenStore
	log    *utils.Logger
}

// New creates a gateway client. tokens must not be nil; an unconfigured
// BaseURL is allowed and makes every call fail with ErrNotConfigured.
func New(cfg Config, tokens TokenStore) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		tokens: tokens,
		log:    utils.GetLogger(),
	}
}

// Configured reports whether a backend base URL is set. Every mutating
// operation checks this before attempting network I/O.
func (c *Client) Configured() bool {
	return c.cfg.BaseURL != ""
}

// envelope covers the fields any backend response may carry. Each endpoint
// reads only the slots it cares about.
type envelope struct {
	Success   *bool           `json:"success"`
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	Details   json.RawMessage `json:"details"`
	CSRFToken string          `json:"csrf_token"`
	Task      json.RawMessage `json:"task"`
	Tasks     json.RawMessage `json:"tasks"`
	Stats     json.RawMessage `json:"stats"`
	Result    json.RawMessage `json:"result"`
}

// resolveURL builds the request URL: path appended to the base, with the
// bearer token and any held CSRF token as query parameters. Tokens ride in
// the URL rather than headers so deployments fronted by strict CORS proxies
// never see a preflight.
func (c *Client) resolveURL(path string) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL + path)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if c.cfg.APIToken != "" {
		q.Set("token", c.cfg.APIToken)
	}
	if token := c.tokens.CSRFToken(); token != "" {
		q.Set("csrf_token", token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// request performs one backend call. Mutating requests wrap their body in a
// single form-encoded payload field with the CSRF token injected; responses
// are parsed as JSON regardless of declared content type. It returns the raw
// response body plus the parsed envelope when the body was a JSON object.
func (c *Client) request(ctx context.Context, method, path string, body map[string]any) ([]byte, *envelope, error) {
	if !c.Configured() {
		return nil, nil, ErrNotConfigured
	}

	reqURL, err := c.resolveURL(path)
	if err != nil {
		return nil, nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		if token := c.tokens.CSRFToken(); token != "" {
			body["csrf_token"] = token
		}
		jsonBody, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return nil, nil, marshalErr
		}
		form := url.Values{}
		form.Set("payload", string(jsonBody))
		bodyReader = bytes.NewBufferString(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	if body != nil {
		// text/plain keeps strict proxies from demanding a preflight;
		// the backend parses the payload field regardless.
		req.Header.Set("Content-Type", "text/plain;charset=UTF-8")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug("%s %s transport failure: %v", method, path, err)
		return nil, nil, &NetworkError{Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &NetworkError{Path: path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Debug("%s %s failed with status %d: %s", method, path, resp.StatusCode, raw)
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, nil, utils.ErrAuthenticationFailed()
		}
		return nil, nil, &RequestError{Status: resp.StatusCode, Body: string(raw)}
	}

	env := parseEnvelope(raw)
	if env != nil {
		// Rotate the session token whenever the backend supplies a new one.
		if env.CSRFToken != "" {
			c.tokens.SetCSRFToken(env.CSRFToken)
		}
		if env.Success != nil && !*env.Success {
			code := env.Code
			if code == "" {
				code = "API_ERROR"
			}
			return raw, env, &APIError{Code: code, Message: env.Message, Details: env.Details}
		}
	}

	return raw, env, nil
}

// parseEnvelope attempts to read the body as a JSON object. Backends that
// serve JSON with a text content type still parse here; bodies that are not
// JSON objects (bare arrays, plain text) yield nil.
func parseEnvelope(raw []byte) *envelope {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil
	}
	return &env
}

// LoadTasks fetches the complete task collection.
func (c *Client) LoadTasks(ctx context.Context) ([]task.Task, error) {
	raw, env, err := c.request(ctx, http.MethodGet, "/tasks", nil)
	if err != nil {
		return nil, err
	}
	if env != nil && len(env.Tasks) > 0 {
		return task.DecodeWireList(env.Tasks)
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		return task.DecodeWireList(trimmed)
	}
	return []task.Task{}, nil
}

// CreateParams are the fields a task creation sends to the backend.
type CreateParams struct {
	Title           string
	Status          task.Status
	ParentTaskID    string
	ParentTaskTitle string
}

// CreateTask creates a task and returns the server-assigned entity, or nil
// when the response omits a task payload (the caller reloads to reconcile).
func (c *Client) CreateTask(ctx context.Context, params CreateParams) (*task.Task, error) {
	status := params.Status
	if status == "" {
		status = task.StatusUncategorized
	}
	body := map[string]any{
		"title":             params.Title,
		"status":            string(status),
		"parent_task_id":    nullable(params.ParentTaskID),
		"parent_task_title": nullable(params.ParentTaskTitle),
	}
	raw, env, err := c.request(ctx, http.MethodPost, "/tasks", body)
	if err != nil {
		return nil, err
	}
	return decodeTaskSlot(raw, env)
}

// UpdateStatus moves a task to a new matrix bucket.
func (c *Client) UpdateStatus(ctx context.Context, id string, status task.Status) (*task.Task, error) {
	body := map[string]any{"id": id, "status": string(status)}
	raw, env, err := c.request(ctx, http.MethodPost, "/tasks/update", body)
	if err != nil {
		return nil, err
	}
	return decodeTaskSlot(raw, env)
}

// CompleteTask marks a task completed.
func (c *Client) CompleteTask(ctx context.Context, id string) (*task.Task, error) {
	path := "/tasks/" + url.PathEscape(id) + "/complete"
	raw, env, err := c.request(ctx, http.MethodPost, path, map[string]any{})
	if err != nil {
		return nil, err
	}
	return decodeTaskSlot(raw, env)
}

// DeleteTask removes a task. Deletion rides on POST rather than DELETE so
// the payload envelope (and the CSRF token inside it) is always available.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	path := "/tasks/" + url.PathEscape(id) + "/delete"
	_, _, err := c.request(ctx, http.MethodPost, path, map[string]any{})
	return err
}

// FetchWeeklyStats returns the weekly aggregate, or nil when the backend
// has none yet.
func (c *Client) FetchWeeklyStats(ctx context.Context) (*task.WeeklyStats, error) {
	raw, env, err := c.request(ctx, http.MethodGet, "/stats/weekly", nil)
	if err != nil {
		return nil, err
	}
	if env != nil && len(env.Stats) > 0 {
		return task.DecodeWeeklyStats(env.Stats)
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		return task.DecodeWeeklyStats(trimmed)
	}
	return nil, nil
}

// RequestBreakdown asks the backend to decompose a task into subtasks. The
// response is opaque; breakdown is asynchronous server work, so callers
// reload tasks afterward to observe the result.
func (c *Client) RequestBreakdown(ctx context.Context, id string) (json.RawMessage, error) {
	path := "/tasks/" + url.PathEscape(id) + "/breakdown"
	raw, _, err := c.request(ctx, http.MethodPost, path, map[string]any{})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// Ping probes backend liveness. Deployments without a dedicated health path
// answer 404 there; that case falls back to probing the task list endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, _, err := c.request(ctx, http.MethodGet, "/health", nil)
	if err == nil {
		return nil
	}
	if StatusOf(err) == http.StatusNotFound {
		_, _, err = c.request(ctx, http.MethodGet, "/tasks", nil)
	}
	return err
}

// decodeTaskSlot reads a task from the envelope's task slot, falling back
// to the whole body when the slot is absent and the body itself is a task
// object. A response carrying neither is not an error: some backends answer
// mutations with a bare result.
func decodeTaskSlot(raw []byte, env *envelope) (*task.Task, error) {
	if env != nil && len(env.Task) > 0 && string(env.Task) != "null" {
		decoded, err := task.DecodeWire(env.Task)
		if err != nil {
			return nil, err
		}
		return &decoded, nil
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, nil
	}
	decoded, err := task.DecodeWire(trimmed)
	if err != nil || decoded.ID == "" {
		return nil, nil
	}
	return &decoded, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

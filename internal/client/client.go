// Package client talks to the project REST API. Project binds it to the
// timeline.ProjectService port.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"freelance/tracker/internal/timeline"
)

const defaultTimeout = 10 * time.Second

// Error is a non-2xx answer decoded from the error envelope.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("project api: status %d", e.Status)
	}
	return fmt.Sprintf("project api: %s: %s", e.Code, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type authResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, "/api/auth/login", email, password)
}

func (c *Client) Register(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, "/api/auth/register", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) error {
	var resp authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return err
	}
	c.SetToken(resp.Token)
	return nil
}

type Project struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Budget      float64    `json:"budget"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	TimeTracked int64      `json:"timeTracked"`
}

type ProjectDetail struct {
	Project    Project              `json:"project"`
	Milestones []timeline.Milestone `json:"milestones"`
}

// Snapshot converts the detail into the state a timeline is mounted with.
func (d ProjectDetail) Snapshot() timeline.Snapshot {
	return timeline.Snapshot{
		ProjectID:   d.Project.ID,
		Progress:    d.Project.Progress,
		TimeTracked: d.Project.TimeTracked,
		Deadline:    d.Project.Deadline,
		Milestones:  d.Milestones,
	}
}

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var resp struct {
		Projects []Project `json:"projects"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

type NewProject struct {
	Title       string
	Description string
	Deadline    *time.Time
	Budget      float64
}

func (c *Client) CreateProject(ctx context.Context, in NewProject) (*Project, error) {
	body := map[string]interface{}{
		"title":       in.Title,
		"description": in.Description,
		"budget":      in.Budget,
	}
	if in.Deadline != nil {
		body["deadline"] = in.Deadline.UTC().Format(time.RFC3339)
	}
	var resp struct {
		Project Project `json:"project"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/projects", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Project, nil
}

func (c *Client) GetProject(ctx context.Context, projectID string) (*ProjectDetail, error) {
	var detail ProjectDetail
	if err := c.do(ctx, http.MethodGet, projectPath(projectID), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) UpdateProgress(ctx context.Context, projectID string, progress int) error {
	body := map[string]int{"progress": progress}
	return c.do(ctx, http.MethodPut, projectPath(projectID)+"/progress", body, nil)
}

func (c *Client) UpdateTimeTracked(ctx context.Context, projectID string, totalSeconds int64) error {
	body := map[string]int64{"totalSeconds": totalSeconds}
	return c.do(ctx, http.MethodPut, projectPath(projectID)+"/time-tracked", body, nil)
}

func (c *Client) CreateMilestone(ctx context.Context, projectID string, in timeline.MilestoneInput) (timeline.Milestone, error) {
	var resp struct {
		Milestone timeline.Milestone `json:"milestone"`
	}
	body := map[string]interface{}{
		"title":       in.Title,
		"description": in.Description,
		"dueDate":     in.DueDate.UTC().Format(time.RFC3339),
		"amount":      in.Amount,
	}
	if err := c.do(ctx, http.MethodPost, projectPath(projectID)+"/milestones", body, &resp); err != nil {
		return timeline.Milestone{}, err
	}
	return resp.Milestone, nil
}

func (c *Client) UpdateMilestoneStatus(ctx context.Context, projectID, milestoneID string, status timeline.Status) (timeline.Milestone, error) {
	var resp struct {
		Milestone timeline.Milestone `json:"milestone"`
	}
	body := map[string]string{"status": string(status)}
	path := projectPath(projectID) + "/milestones/" + milestoneID + "/status"
	if err := c.do(ctx, http.MethodPut, path, body, &resp); err != nil {
		return timeline.Milestone{}, err
	}
	return resp.Milestone, nil
}

var _ timeline.ProjectService = (*Client)(nil)

func projectPath(projectID string) string {
	return "/api/projects/" + projectID
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}

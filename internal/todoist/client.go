// Package todoist is a thin HTTP client for the Todoist REST API v2.
// It handles Bearer token authentication, JSON marshaling, and sorts
// failures into three kinds: auth rejection, API error, and transport
// failure (including timeouts).
package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kweiss/voicetask/internal/logging"
	"github.com/kweiss/voicetask/internal/model"
)

const (
	defaultBaseURL = "https://api.todoist.com/rest/v2"
	requestTimeout = 10 * time.Second
	userAgent      = "voicetask/1.0"
)

// API is the surface of the Todoist service that the rest of voicetask
// consumes. Client is the production implementation; tests substitute
// fakes.
type API interface {
	ValidateToken(ctx context.Context) (TokenValidation, error)
	GetProjects(ctx context.Context) ([]model.Project, error)
	GetTasks(ctx context.Context, filters TaskFilters) ([]model.Task, error)
	GetTask(ctx context.Context, taskID string) (*model.Task, error)
	CreateProject(ctx context.Context, req CreateProjectRequest) (*model.Project, error)
	CreateTask(ctx context.Context, req CreateTaskRequest) (*model.Task, error)
	CompleteTask(ctx context.Context, taskID string) error
	ReopenTask(ctx context.Context, taskID string) error
	Export(ctx context.Context, req ExportRequest) (*ExportResult, error)
}

// Client talks to the Todoist REST API v2.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        zerolog.Logger

	// pacing is the delay between successive subtask creations during
	// export, to stay under Todoist rate limits.
	pacing time.Duration
}

var _ API = (*Client)(nil)

// NewClient creates a Todoist client with the given API token. An empty
// baseURL selects the public API endpoint.
func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		log:    logging.Component("todoist"),
		pacing: 100 * time.Millisecond,
	}
}

// ValidateToken checks the API token by listing projects. A rejected
// token yields Valid=false rather than an error; transport failures are
// still returned as errors.
func (c *Client) ValidateToken(ctx context.Context) (TokenValidation, error) {
	var projects []model.Project
	err := c.get(ctx, "/projects", &projects)
	if err == nil {
		return TokenValidation{Valid: true}, nil
	}
	if IsAuthError(err) {
		return TokenValidation{Valid: false, Error: err.Error()}, nil
	}
	return TokenValidation{}, err
}

// GetProjects retrieves all projects.
func (c *Client) GetProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	if err := c.get(ctx, "/projects", &projects); err != nil {
		return nil, err
	}
	c.log.Debug().Int("count", len(projects)).Msg("retrieved projects")
	return projects, nil
}

// GetTasks retrieves active tasks matching the given filters.
func (c *Client) GetTasks(ctx context.Context, filters TaskFilters) ([]model.Task, error) {
	params := url.Values{}
	if filters.ProjectID != "" {
		params.Set("project_id", filters.ProjectID)
	}
	if filters.SectionID != "" {
		params.Set("section_id", filters.SectionID)
	}
	if filters.Label != "" {
		params.Set("label", filters.Label)
	}
	if filters.Filter != "" {
		params.Set("filter", filters.Filter)
	}
	if filters.Lang != "" {
		params.Set("lang", filters.Lang)
	}
	if len(filters.IDs) > 0 {
		params.Set("ids", strings.Join(filters.IDs, ","))
	}

	path := "/tasks"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var tasks []model.Task
	if err := c.get(ctx, path, &tasks); err != nil {
		return nil, err
	}
	c.log.Debug().Int("count", len(tasks)).Msg("retrieved tasks")
	return tasks, nil
}

// GetTask retrieves a single task by ID.
func (c *Client) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	var task model.Task
	if err := c.get(ctx, "/tasks/"+taskID, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateProject creates a new project.
func (c *Client) CreateProject(ctx context.Context, req CreateProjectRequest) (*model.Project, error) {
	var project model.Project
	if err := c.post(ctx, "/projects", req, &project); err != nil {
		return nil, fmt.Errorf("creating project %q: %w", req.Name, err)
	}
	c.log.Info().
		Str("project_id", project.ID).
		Str("name", project.Name).
		Msg("created project")
	return &project, nil
}

// CreateTask creates a new task.
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*model.Task, error) {
	var task model.Task
	if err := c.post(ctx, "/tasks", req, &task); err != nil {
		return nil, fmt.Errorf("creating task %q: %w", req.Content, err)
	}
	c.log.Debug().
		Str("task_id", task.ID).
		Str("content", task.Content).
		Msg("created task")
	return &task, nil
}

// CompleteTask marks a task as completed.
func (c *Client) CompleteTask(ctx context.Context, taskID string) error {
	return c.post(ctx, "/tasks/"+taskID+"/close", nil, nil)
}

// ReopenTask reopens a completed task.
func (c *Client) ReopenTask(ctx context.Context, taskID string) error {
	return c.post(ctx, "/tasks/"+taskID+"/reopen", nil, nil)
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// do builds the request, handles auth headers, and sorts the response
// into the client's error kinds.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body any,
	result any,
) error {
	fullURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{
			URL:     fullURL,
			Timeout: isTimeoutErr(err),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{URL: fullURL, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden:
		return &AuthError{
			StatusCode: resp.StatusCode,
			Message:    "invalid Todoist API token",
		}

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		var apiErr errorResponse
		message := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			message = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
	}

	return nil
}

// isTimeoutErr reports whether a transport error was caused by a deadline.
func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Timeout()
	}
	return os.IsTimeout(err)
}

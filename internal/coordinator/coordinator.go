// Package coordinator owns the polled snapshot of remote Todoist data.
// It refreshes projects and tasks on a fixed interval, indexes them for
// lookup, and republishes the project list into the helper-state store.
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kweiss/voicetask/internal/helperstate"
	"github.com/kweiss/voicetask/internal/logging"
	"github.com/kweiss/voicetask/internal/model"
	"github.com/kweiss/voicetask/internal/parse"
	"github.com/kweiss/voicetask/internal/todoist"
)

// refreshTimeout is the maximum time allowed for a single refresh cycle.
const refreshTimeout = 30 * time.Second

// Coordinator manages the cached snapshot of projects and tasks and the
// background polling loop that keeps it fresh.
type Coordinator struct {
	api      todoist.API
	state    helperstate.Store
	interval time.Duration
	log      zerolog.Logger

	mu             sync.RWMutex
	projects       []model.Project
	projectsByID   map[string]model.Project
	projectsByName map[string]model.Project
	tasks          []model.Task
	lastRefresh    time.Time
	lastErr        error

	runMu     sync.Mutex
	running   bool
	triggerCh chan struct{}
	stopCh    chan struct{}
}

// New creates a coordinator. state may be nil when no helper-state
// mirroring is wanted (tests, one-shot commands).
func New(api todoist.API, state helperstate.Store, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = time.Duration(model.DefaultUpdateIntervalSec) * time.Second
	}
	return &Coordinator{
		api:       api,
		state:     state,
		interval:  interval,
		log:       logging.Component("coordinator"),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Refresh validates the token and replaces the cached snapshot
// wholesale. An invalid token is fatal to the cycle and surfaced as an
// AuthError so the caller can prompt for re-authentication; transient
// failures are retried on the next scheduled cycle only.
func (c *Coordinator) Refresh(ctx context.Context) error {
	validation, err := c.api.ValidateToken(ctx)
	if err != nil {
		return c.recordErr(fmt.Errorf("validating token: %w", err))
	}
	if !validation.Valid {
		return c.recordErr(&todoist.AuthError{
			StatusCode: 401,
			Message:    validation.Error,
		})
	}

	projects, err := c.api.GetProjects(ctx)
	if err != nil {
		return c.recordErr(fmt.Errorf("fetching projects: %w", err))
	}

	tasks, err := c.api.GetTasks(ctx, todoist.TaskFilters{})
	if err != nil {
		return c.recordErr(fmt.Errorf("fetching tasks: %w", err))
	}

	byID := make(map[string]model.Project, len(projects))
	byName := make(map[string]model.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
		byName[strings.ToLower(p.Name)] = p
	}

	c.mu.Lock()
	c.projects = projects
	c.projectsByID = byID
	c.projectsByName = byName
	c.tasks = tasks
	c.lastRefresh = time.Now()
	c.lastErr = nil
	c.mu.Unlock()

	c.publishProjectOptions(ctx, projects)

	c.log.Debug().
		Int("projects", len(projects)).
		Int("tasks", len(tasks)).
		Msg("snapshot refreshed")
	return nil
}

// publishProjectOptions mirrors the project names into the helper-state
// select cell. Inbox is always offered.
func (c *Coordinator) publishProjectOptions(ctx context.Context, projects []model.Project) {
	if c.state == nil {
		return
	}

	names := make([]string, 0, len(projects)+1)
	hasInbox := false
	for _, p := range projects {
		names = append(names, p.Name)
		if p.Name == model.DefaultProjectName {
			hasInbox = true
		}
	}
	if !hasInbox {
		names = append(names, model.DefaultProjectName)
	}

	if err := c.state.SetOptions(ctx, helperstate.CellAvailableProjects, names); err != nil {
		c.log.Warn().Err(err).Msg("failed to publish project options")
	}
}

func (c *Coordinator) recordErr(err error) error {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	return err
}

// Start launches the polling loop. It returns immediately; the loop
// performs an initial refresh and then fires on the configured interval
// or on TriggerRefresh until Stop is called.
func (c *Coordinator) Start() {
	c.runMu.Lock()
	if c.running {
		c.runMu.Unlock()
		return
	}
	c.running = true
	c.runMu.Unlock()

	go c.poll()
}

// Stop halts the polling loop.
func (c *Coordinator) Stop() {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if !c.running {
		return
	}
	close(c.stopCh)
	c.running = false
}

// TriggerRefresh requests an immediate poll without blocking.
func (c *Coordinator) TriggerRefresh() {
	select {
	case c.triggerCh <- struct{}{}:
	default:
	}
}

// poll runs the refresh loop until stopped.
func (c *Coordinator) poll() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.refreshOnce()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.refreshOnce()
		case <-c.triggerCh:
			c.refreshOnce()
		}
	}
}

func (c *Coordinator) refreshOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := c.Refresh(ctx); err != nil {
		if todoist.IsAuthError(err) {
			c.log.Error().Err(err).Msg("authentication failed; re-configure the API token")
			return
		}
		c.log.Warn().Err(err).Msg("refresh failed; will retry next cycle")
	}
}

// Projects returns the cached project snapshot.
func (c *Coordinator) Projects() []model.Project {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Project(nil), c.projects...)
}

// Tasks returns the cached task snapshot.
func (c *Coordinator) Tasks() []model.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Task(nil), c.tasks...)
}

// ProjectByID looks up a cached project by its identifier.
func (c *Coordinator) ProjectByID(id string) (model.Project, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.projectsByID[id]
	return p, ok
}

// ProjectByName looks up a cached project by case-insensitive name.
func (c *Coordinator) ProjectByName(name string) (model.Project, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.projectsByName[strings.ToLower(name)]
	return p, ok
}

// FindMatchingProjects scores the cached projects against a query.
func (c *Coordinator) FindMatchingProjects(query string) []model.ProjectMatch {
	return parse.MatchProjects(c.Projects(), query)
}

// LastRefresh reports when the snapshot was last replaced, along with
// the error of the most recent failed cycle, if any.
func (c *Coordinator) LastRefresh() (time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh, c.lastErr
}

// CreateProject creates a remote project and refreshes the snapshot so
// the new project is immediately matchable.
func (c *Coordinator) CreateProject(
	ctx context.Context,
	req todoist.CreateProjectRequest,
) (*model.Project, error) {
	project, err := c.api.CreateProject(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := c.Refresh(ctx); err != nil {
		c.log.Warn().Err(err).Msg("refresh after project creation failed")
	}
	return project, nil
}

// CreateTask creates a single remote task.
func (c *Coordinator) CreateTask(
	ctx context.Context,
	req todoist.CreateTaskRequest,
) (*model.Task, error) {
	return c.api.CreateTask(ctx, req)
}

// Export creates a main task plus one subtask per action.
func (c *Coordinator) Export(
	ctx context.Context,
	req todoist.ExportRequest,
) (*todoist.ExportResult, error) {
	return c.api.Export(ctx, req)
}

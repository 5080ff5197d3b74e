// Package conversation implements the multi-turn dialogue that converts
// a free-form transcript into a batch of Todoist tasks. A Context is one
// bounded conversation; the Engine owns the set of active contexts and
// mirrors their state into the helper-state store.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kweiss/voicetask/internal/model"
	"github.com/kweiss/voicetask/internal/parse"
	"github.com/kweiss/voicetask/internal/todoist"
)

// State is a conversation's position in the dialogue flow.
type State string

const (
	StateIdle             State = "idle"
	StateProcessing       State = "processing"
	StateProjectSelection State = "project_selection"
	StateProjectCreation  State = "project_creation"
	StateDateInput        State = "date_input"
	StateConfirmation     State = "confirmation"
	StateCreatingTask     State = "creating_task"
	StateCompleted        State = "completed"
	StateError            State = "error"
)

// Terminal reports whether the state ends the conversation. A context
// in a terminal state is removed from the active set and accepts no
// further input.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// Remote is the slice of the coordinator that a conversation needs:
// the cached project snapshot plus project-creation and batch export.
type Remote interface {
	Projects() []model.Project
	FindMatchingProjects(query string) []model.ProjectMatch
	CreateProject(ctx context.Context, req todoist.CreateProjectRequest) (*model.Project, error)
	Export(ctx context.Context, req todoist.ExportRequest) (*todoist.ExportResult, error)
}

// projectHintWords are scanned in the initial utterance to seed the
// project matcher.
var projectHintWords = []string{
	"project", "list", "tasks", "shopping", "work", "home", "personal",
}

// dateHintWords are scanned in the original utterance to look for a due
// date before explicitly asking for one.
var dateHintWords = []string{
	"today", "tomorrow", "monday", "tuesday", "wednesday",
	"thursday", "friday", "saturday", "sunday", "this week", "next week",
}

// dateExamples are offered when explicit date input cannot be parsed.
var dateExamples = []string{"today", "tomorrow", "next week", "2024-01-15", "none"}

// contextKeyNewProject stashes the pending project name between the
// project_selection and project_creation turns.
const contextKeyNewProject = "new_project_name"

// timeFormat is used for timestamps in serialized conversation views.
const timeFormat = time.RFC3339

// MatchSummary is the per-match view included in turn results.
type MatchSummary struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// ConfirmSummary describes the pending batch shown to the user before
// the final confirmation.
type ConfirmSummary struct {
	Project     string   `json:"project"`
	DueDate     string   `json:"due_date"`
	Priority    string   `json:"priority"`
	Actions     []string `json:"actions"`
	ActionCount int      `json:"action_count"`
}

// TurnResult is the structured outcome of one conversation turn. A turn
// always produces a result; failures are reported in Error rather than
// as Go errors so the dialogue can continue or terminate cleanly.
type TurnResult struct {
	ConversationID    string                `json:"conversation_id,omitempty"`
	State             State                 `json:"state,omitempty"`
	Message           string                `json:"message,omitempty"`
	Error             string                `json:"error,omitempty"`
	Actions           []string              `json:"actions,omitempty"`
	AvailableProjects []string              `json:"available_projects,omitempty"`
	ProjectMatches    []MatchSummary        `json:"project_matches,omitempty"`
	ConfirmAction     string                `json:"confirm_action,omitempty"`
	ProjectName       string                `json:"project_name,omitempty"`
	Project           string                `json:"project,omitempty"`
	Examples          []string              `json:"examples,omitempty"`
	Summary           *ConfirmSummary       `json:"summary,omitempty"`
	Export            *todoist.ExportResult `json:"result,omitempty"`
}

// PublicContext is the externally visible view of a conversation,
// serialized into the helper-state store and status responses.
type PublicContext struct {
	ConversationID      string   `json:"conversation_id"`
	State               State    `json:"state"`
	CreatedAt           string   `json:"created_at"`
	ExpiresAt           string   `json:"expires_at"`
	OriginalText        string   `json:"original_text"`
	ParsedActionsCount  int      `json:"parsed_actions_count"`
	ProjectMatchesCount int      `json:"project_matches_count"`
	SelectedProject     string   `json:"selected_project,omitempty"`
	PendingDueDate      string   `json:"pending_due_date,omitempty"`
	TaskPriority        int      `json:"task_priority"`
	Labels              []string `json:"labels"`
	ErrorMessage        string   `json:"error_message,omitempty"`
}

// Context is a single stateful dialogue session. It is owned by the
// Engine; all mutation happens through ProcessInput.
type Context struct {
	id     string
	remote Remote
	now    func() time.Time

	createdAt time.Time
	expiresAt time.Time

	mu              sync.Mutex
	state           State
	originalText    string
	lastInput       string
	parsedActions   []string
	projectMatches  []model.ProjectMatch
	selectedProject *model.Project
	pendingDueDate  string
	taskPriority    int
	labels          []string
	extra           map[string]any
	errorMessage    string
}

// newContext creates a conversation in the idle state with the given
// lifetime.
func newContext(
	id string,
	remote Remote,
	timeout time.Duration,
	extra map[string]any,
	now func() time.Time,
) *Context {
	if now == nil {
		now = time.Now
	}
	created := now()

	merged := make(map[string]any, len(extra))
	for k, v := range extra {
		merged[k] = v
	}

	return &Context{
		id:           id,
		remote:       remote,
		now:          now,
		createdAt:    created,
		expiresAt:    created.Add(timeout),
		state:        StateIdle,
		taskPriority: model.DefaultPriority,
		labels:       append([]string(nil), model.DefaultLabels...),
		extra:        merged,
	}
}

// ID returns the conversation's opaque identifier.
func (c *Context) ID() string { return c.id }

// CreatedAt returns when the conversation started.
func (c *Context) CreatedAt() time.Time { return c.createdAt }

// ExpiresAt returns the conversation's expiry deadline.
func (c *Context) ExpiresAt() time.Time { return c.expiresAt }

// IsExpired reports whether the deadline has passed. It is a pure
// comparison; acting on expiry is the engine's job.
func (c *Context) IsExpired() bool {
	return c.now().After(c.expiresAt)
}

// State returns the current dialogue state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MergeExtra folds caller-provided context values into the session.
func (c *Context) MergeExtra(extra map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range extra {
		c.extra[k] = v
	}
}

// Public returns the externally visible view of the conversation.
func (c *Context) Public() PublicContext {
	c.mu.Lock()
	defer c.mu.Unlock()

	pub := PublicContext{
		ConversationID:      c.id,
		State:               c.state,
		CreatedAt:           c.createdAt.Format(timeFormat),
		ExpiresAt:           c.expiresAt.Format(timeFormat),
		OriginalText:        c.originalText,
		ParsedActionsCount:  len(c.parsedActions),
		ProjectMatchesCount: len(c.projectMatches),
		PendingDueDate:      c.pendingDueDate,
		TaskPriority:        c.taskPriority,
		Labels:              append([]string(nil), c.labels...),
		ErrorMessage:        c.errorMessage,
	}
	if c.selectedProject != nil {
		pub.SelectedProject = c.selectedProject.Name
	}
	return pub
}

// ProcessInput advances the conversation by one turn. The entry state
// selects the handler; any handler failure is folded into the result
// and, when unrecoverable, drives the context to the error state.
func (c *Context) ProcessInput(ctx context.Context, text string) TurnResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastInput = text

	switch c.state {
	case StateIdle:
		return c.processInitialInput(ctx, text)
	case StateProjectSelection:
		return c.processProjectSelection(ctx, text)
	case StateProjectCreation:
		return c.processProjectCreation(ctx, text)
	case StateDateInput:
		return c.processDateInput(text)
	case StateConfirmation:
		return c.processConfirmation(ctx, text)
	default:
		return c.fail(fmt.Sprintf("unknown conversation state: %s", c.state))
	}
}

// processInitialInput extracts actions, guesses the project, and routes
// to disambiguation, date extraction, or failure.
func (c *Context) processInitialInput(ctx context.Context, text string) TurnResult {
	c.originalText = text
	c.state = StateProcessing

	c.parsedActions = parse.ExtractActions(text)
	if len(c.parsedActions) == 0 {
		return c.fail("no actions found in text")
	}

	if hints := scanHints(text, projectHintWords); len(hints) > 0 {
		c.projectMatches = c.remote.FindMatchingProjects(hints[0])
	} else {
		c.projectMatches = nil
	}

	switch {
	case len(c.projectMatches) == 0:
		c.state = StateProjectSelection
		return TurnResult{
			Message: fmt.Sprintf(
				"Found %d actions. Which project should I use?",
				len(c.parsedActions),
			),
			Actions:           c.parsedActions,
			AvailableProjects: c.projectNames(),
		}

	case len(c.projectMatches) == 1:
		project := c.projectMatches[0].Project
		c.selectedProject = &project
		return c.processDateExtraction(text)

	default:
		c.state = StateProjectSelection
		return TurnResult{
			Message: fmt.Sprintf(
				"Found %d actions. Found multiple project matches:",
				len(c.parsedActions),
			),
			Actions:        c.parsedActions,
			ProjectMatches: c.matchSummaries(),
		}
	}
}

// processProjectSelection resolves the user's answer to a project, or
// diverts into the project-creation sub-flow on a "create ..." reply.
func (c *Context) processProjectSelection(ctx context.Context, text string) TurnResult {
	var selected *model.Project

	for _, project := range c.remote.Projects() {
		if strings.EqualFold(project.Name, text) {
			p := project
			selected = &p
			break
		}
	}

	if selected == nil {
		for _, match := range c.projectMatches {
			if strings.EqualFold(match.Name, text) {
				p := match.Project
				selected = &p
				break
			}
		}
	}

	if selected == nil && strings.HasPrefix(strings.ToLower(text), "create") {
		name := strings.TrimSpace(text[len("create"):])
		if name != "" {
			c.extra[contextKeyNewProject] = name
			c.state = StateProjectCreation
			return TurnResult{
				Message:       fmt.Sprintf("Create new project '%s'?", name),
				ConfirmAction: "create_project",
				ProjectName:   name,
			}
		}
	}

	if selected == nil {
		return TurnResult{
			Error: "Project not found. Please select from available projects " +
				"or say 'create [project name]'",
			AvailableProjects: c.projectNames(),
		}
	}

	c.selectedProject = selected
	return c.processDateExtraction(c.originalText)
}

// processProjectCreation handles the yes/no confirmation for creating a
// brand-new project.
func (c *Context) processProjectCreation(ctx context.Context, text string) TurnResult {
	switch {
	case isAffirmative(text):
		name, _ := c.extra[contextKeyNewProject].(string)
		if name == "" {
			return c.fail("project name not found")
		}

		project, err := c.remote.CreateProject(ctx, todoist.CreateProjectRequest{Name: name})
		if err != nil {
			return c.fail(fmt.Sprintf("failed to create project: %v", err))
		}

		c.selectedProject = project
		return c.processDateExtraction(c.originalText)

	case isNegative(text):
		c.state = StateProjectSelection
		return TurnResult{
			Message:           "Project creation cancelled. Which existing project should I use?",
			AvailableProjects: c.projectNames(),
		}

	default:
		name, _ := c.extra[contextKeyNewProject].(string)
		return TurnResult{
			Error:         "Please respond with 'yes' to create the project or 'no' to cancel",
			ConfirmAction: "create_project",
			ProjectName:   name,
		}
	}
}

// processDateExtraction scans the original utterance for a date phrase;
// if none resolves, the user is asked explicitly.
func (c *Context) processDateExtraction(text string) TurnResult {
	if hints := scanHints(text, dateHintWords); len(hints) > 0 {
		if due := parse.DueDate(hints[0], c.now()); due != "" {
			c.pendingDueDate = due
			return c.prepareConfirmation()
		}
	}

	c.state = StateDateInput
	return TurnResult{
		Message: "When should these tasks be due? (e.g., 'today', 'tomorrow', " +
			"'next week', or leave blank for no due date)",
		Actions: c.parsedActions,
		Project: c.selectedProject.Name,
	}
}

// processDateInput handles the explicit due-date answer.
func (c *Context) processDateInput(text string) TurnResult {
	if isDateSkip(text) {
		c.pendingDueDate = ""
		return c.prepareConfirmation()
	}

	due := parse.DueDate(text, c.now())
	if due == "" {
		return TurnResult{
			Error:    "Could not parse date. Please try again or say 'none' for no due date",
			Examples: dateExamples,
		}
	}

	c.pendingDueDate = due
	return c.prepareConfirmation()
}

// prepareConfirmation moves to the confirmation state and summarizes
// the pending batch.
func (c *Context) prepareConfirmation() TurnResult {
	c.state = StateConfirmation

	dueDate := "No due date"
	if c.pendingDueDate != "" {
		dueDate = c.pendingDueDate
	}

	return TurnResult{
		Message: "Ready to create tasks. Please confirm:",
		Summary: &ConfirmSummary{
			Project:     c.selectedProject.Name,
			DueDate:     dueDate,
			Priority:    model.PriorityName(c.taskPriority),
			Actions:     c.parsedActions,
			ActionCount: len(c.parsedActions),
		},
		ConfirmAction: "create_tasks",
	}
}

// processConfirmation executes the export on an affirmative answer.
func (c *Context) processConfirmation(ctx context.Context, text string) TurnResult {
	switch {
	case isAffirmative(text) || strings.EqualFold(strings.TrimSpace(text), "do it"):
		c.state = StateCreatingTask

		result, err := c.remote.Export(ctx, todoist.ExportRequest{
			Text:      c.originalText,
			ProjectID: c.selectedProject.ID,
			DueDate:   c.pendingDueDate,
			Priority:  c.taskPriority,
			Labels:    c.labels,
			Actions:   c.parsedActions,
		})
		if err != nil {
			return c.fail(fmt.Sprintf("failed to create tasks: %v", err))
		}

		c.state = StateCompleted
		return TurnResult{
			Message: fmt.Sprintf(
				"Successfully created %d tasks!",
				result.Summary.Successful,
			),
			Export: result,
		}

	case isNegative(text):
		c.state = StateIdle
		return TurnResult{Message: "Task creation cancelled"}

	default:
		return TurnResult{
			Error:         "Please respond with 'yes' to create tasks or 'no' to cancel",
			ConfirmAction: "create_tasks",
		}
	}
}

// fail drives the conversation to the error state with a message.
func (c *Context) fail(message string) TurnResult {
	c.state = StateError
	c.errorMessage = message
	return TurnResult{Error: message}
}

func (c *Context) projectNames() []string {
	projects := c.remote.Projects()
	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.Name)
	}
	return names
}

func (c *Context) matchSummaries() []MatchSummary {
	summaries := make([]MatchSummary, 0, len(c.projectMatches))
	for _, m := range c.projectMatches {
		summaries = append(summaries, MatchSummary{Name: m.Name, Score: m.MatchScore})
	}
	return summaries
}

// scanHints returns the keywords present in the lower-cased text, in
// keyword-table order.
func scanHints(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	var hints []string
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			hints = append(hints, keyword)
		}
	}
	return hints
}

func isAffirmative(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y", "create", "confirm":
		return true
	}
	return false
}

func isNegative(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "no", "n", "cancel", "abort":
		return true
	}
	return false
}

func isDateSkip(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "none", "no", "skip", "blank", "":
		return true
	}
	return false
}

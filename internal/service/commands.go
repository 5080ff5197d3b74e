package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/kweiss/voicetask/internal/events"
	"github.com/kweiss/voicetask/internal/model"
	"github.com/kweiss/voicetask/internal/parse"
	"github.com/kweiss/voicetask/internal/todoist"
)

// CreateTaskArgs are the arguments of the create_task command. Project
// may be a project id, a project name, or empty for the default.
type CreateTaskArgs struct {
	Text           string   `json:"text"`
	Project        string   `json:"project,omitempty"`
	DueDate        string   `json:"due_date,omitempty"`
	Priority       int      `json:"priority,omitempty"`
	Labels         []string `json:"labels,omitempty"`
	MainTaskTitle  string   `json:"main_task_title,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
}

// CreateTask turns free-form text into remote tasks: a main task plus
// one subtask per extracted action. Text that yields no extractable
// actions becomes a single task with the text as its content. The
// project argument is resolved id first, then case-insensitive name,
// then the configured default project, then the first known project.
// When a conversation id is supplied, a conversation-<id> label is
// appended so the tasks can be traced back to the dialogue that
// produced them.
func (s *Service) CreateTask(ctx context.Context, args CreateTaskArgs) (*todoist.ExportResult, error) {
	if strings.TrimSpace(args.Text) == "" {
		return nil, &ValidationError{Field: "text", Message: "must not be empty"}
	}

	projectID, err := s.resolveProject(args.Project)
	if err != nil {
		return nil, err
	}

	labels := args.Labels
	if len(labels) == 0 {
		labels = append([]string(nil), s.labels...)
	}
	if args.ConversationID != "" {
		labels = append(labels, "conversation-"+args.ConversationID)
	}

	dueDate := args.DueDate
	if dueDate != "" {
		if parsed := parse.DueDate(dueDate, s.now()); parsed != "" {
			dueDate = parsed
		}
	}
	priority := model.ClampPriority(args.Priority)

	if actions := parse.ExtractActions(args.Text); len(actions) > 0 {
		result, err := s.snap.Export(ctx, todoist.ExportRequest{
			Text:          args.Text,
			ProjectID:     projectID,
			MainTaskTitle: args.MainTaskTitle,
			DueDate:       dueDate,
			Priority:      priority,
			Labels:        labels,
			Actions:       actions,
		})
		if err != nil {
			return nil, fmt.Errorf("creating tasks: %w", err)
		}
		s.publish(events.TaskCreated, result)
		return result, nil
	}

	// Nothing extractable; the text itself is the task.
	task, err := s.snap.CreateTask(ctx, todoist.CreateTaskRequest{
		Content:   args.Text,
		ProjectID: projectID,
		DueDate:   dueDate,
		Priority:  priority,
		Labels:    labels,
	})
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	result := &todoist.ExportResult{
		MainTask: task,
		Summary:  todoist.ExportSummary{TotalActions: 1, Successful: 1},
	}
	s.publish(events.TaskCreated, result)
	return result, nil
}

// resolveProject maps the project argument to a project id. An empty
// id is returned when nothing resolves so the remote end applies its
// own inbox default.
func (s *Service) resolveProject(project string) (string, error) {
	if project != "" {
		if p, ok := s.snap.ProjectByID(project); ok {
			return p.ID, nil
		}
		if p, ok := s.snap.ProjectByName(project); ok {
			return p.ID, nil
		}
		return "", &ValidationError{
			Field:   "project",
			Message: fmt.Sprintf("no project with id or name %q", project),
		}
	}

	if p, ok := s.snap.ProjectByName(s.defaultProject); ok {
		return p.ID, nil
	}
	if projects := s.snap.Projects(); len(projects) > 0 {
		return projects[0].ID, nil
	}
	return "", nil
}

// FindProjectsResult is the scored match list for a query.
type FindProjectsResult struct {
	Query   string               `json:"query"`
	Matches []model.ProjectMatch `json:"matches"`
}

// FindProjects scores known projects against a query and returns at
// most maxResults matches. maxResults defaults to 5 and is capped at 20.
func (s *Service) FindProjects(query string, maxResults int) (FindProjectsResult, error) {
	if strings.TrimSpace(query) == "" {
		return FindProjectsResult{}, &ValidationError{Field: "query", Message: "must not be empty"}
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if maxResults > maxMaxResults {
		maxResults = maxMaxResults
	}

	matches := s.snap.FindMatchingProjects(query)
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}

	result := FindProjectsResult{Query: query, Matches: matches}
	s.publish(events.ProjectsFound, result)
	return result, nil
}

// CreateProject creates a remote project.
func (s *Service) CreateProject(
	ctx context.Context,
	req todoist.CreateProjectRequest,
) (*model.Project, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "must not be empty"}
	}

	project, err := s.snap.CreateProject(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.publish(events.ProjectCreated, project)
	return project, nil
}

// ParseResult is the outcome of the pure parse_voice_input command.
type ParseResult struct {
	Text             string   `json:"text"`
	Actions          []string `json:"actions"`
	SuggestedProject string   `json:"suggested_project"`
}

// ParseVoiceInput extracts actions from a transcript without touching
// any remote or conversation state.
func (s *Service) ParseVoiceInput(text string) (ParseResult, error) {
	if strings.TrimSpace(text) == "" {
		return ParseResult{}, &ValidationError{Field: "text", Message: "must not be empty"}
	}

	result := ParseResult{
		Text:             text,
		Actions:          parse.ExtractActions(text),
		SuggestedProject: parse.GenerateProjectName(text),
	}
	s.publish(events.VoiceInputParsed, result)
	return result, nil
}

// DateResult is the outcome of validate_date.
type DateResult struct {
	Input string `json:"input"`
	Valid bool   `json:"valid"`
	Date  string `json:"date,omitempty"`
}

// ValidateDate resolves a date phrase to an ISO date. An unparsable
// phrase is a valid=false result, not an error.
func (s *Service) ValidateDate(input string) (DateResult, error) {
	if strings.TrimSpace(input) == "" {
		return DateResult{}, &ValidationError{Field: "date", Message: "must not be empty"}
	}

	date := parse.DueDate(input, s.now())
	result := DateResult{Input: input, Valid: date != "", Date: date}
	s.publish(events.DateValidated, result)
	return result, nil
}

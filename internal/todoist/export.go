package todoist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kweiss/voicetask/internal/model"
	"github.com/kweiss/voicetask/internal/parse"
)

// ErrNoActions is returned when an export has nothing to create.
var ErrNoActions = errors.New("no actions found in text")

// ExportRequest describes a batch export: one main task plus one
// subtask per action. Actions come from AutoExtract over Text, from
// the explicit Actions list, or both.
type ExportRequest struct {
	Text          string
	ProjectID     string
	MainTaskTitle string
	Priority      int
	DueDate       string
	Labels        []string
	AutoExtract   bool
	Actions       []string
}

// ExportFailure records a subtask that could not be created.
type ExportFailure struct {
	Action string `json:"action"`
	Error  string `json:"error"`
}

// ExportSummary totals an export run.
type ExportSummary struct {
	TotalActions int `json:"total_actions"`
	Successful   int `json:"successful"`
	Failed       int `json:"failed"`
}

// ExportResult is the outcome of an export: the created main task, the
// created subtasks, and any per-subtask failures.
type ExportResult struct {
	MainTask *model.Task     `json:"main_task"`
	Subtasks []model.Task    `json:"subtasks"`
	Failures []ExportFailure `json:"failures,omitempty"`
	Summary  ExportSummary   `json:"summary"`
}

// Export creates a main task and one subtask per action in the given
// project. Subtask creations are paced to avoid rate limiting, and a
// failed subtask is recorded rather than aborting the batch. Failure
// to create the main task aborts the export.
func (c *Client) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	var actions []string
	if req.AutoExtract && req.Text != "" {
		actions = parse.ExtractActions(req.Text)
	}
	actions = append(actions, req.Actions...)

	if len(actions) == 0 {
		return nil, ErrNoActions
	}

	c.log.Info().Int("actions", len(actions)).Msg("exporting to todoist")

	title := req.MainTaskTitle
	if title == "" {
		title = "Voice Tasks - " + time.Now().Format("2006-01-02")
	}

	mainTask, err := c.CreateTask(ctx, CreateTaskRequest{
		Content:   title,
		ProjectID: req.ProjectID,
		Priority:  model.ClampPriority(req.Priority),
		DueDate:   req.DueDate,
		Labels:    req.Labels,
	})
	if err != nil {
		return nil, fmt.Errorf("creating main task: %w", err)
	}

	result := &ExportResult{MainTask: mainTask}

	for i, action := range actions {
		subtask, err := c.CreateTask(ctx, CreateTaskRequest{
			Content:   action,
			ProjectID: req.ProjectID,
			ParentID:  mainTask.ID,
			Priority:  model.ClampPriority(req.Priority),
		})
		if err != nil {
			c.log.Error().Err(err).Str("action", action).Msg("failed to create subtask")
			result.Failures = append(result.Failures, ExportFailure{
				Action: action,
				Error:  err.Error(),
			})
			continue
		}
		result.Subtasks = append(result.Subtasks, *subtask)

		if i < len(actions)-1 && c.pacing > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.pacing):
			}
		}
	}

	result.Summary = ExportSummary{
		TotalActions: len(actions),
		Successful:   len(result.Subtasks),
		Failed:       len(result.Failures),
	}

	c.log.Info().
		Int("successful", result.Summary.Successful).
		Int("total", result.Summary.TotalActions).
		Msg("export completed")
	return result, nil
}

// Package service exposes the command surface: validated operations
// that drive the coordinator and conversation engine, returning results
// to the caller and broadcasting them on the event bus.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kweiss/voicetask/internal/conversation"
	"github.com/kweiss/voicetask/internal/events"
	"github.com/kweiss/voicetask/internal/logging"
	"github.com/kweiss/voicetask/internal/model"
	"github.com/kweiss/voicetask/internal/todoist"
)

// Result-size bounds for find_projects.
const (
	defaultMaxResults = 5
	maxMaxResults     = 20
)

// ValidationError reports a rejected command argument.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Snapshot is the slice of the coordinator the service needs.
type Snapshot interface {
	conversation.Remote
	ProjectByID(id string) (model.Project, bool)
	ProjectByName(name string) (model.Project, bool)
	Tasks() []model.Task
	Refresh(ctx context.Context) error
	LastRefresh() (time.Time, error)
	CreateTask(ctx context.Context, req todoist.CreateTaskRequest) (*model.Task, error)
}

// Service wires the command surface to the coordinator, the
// conversation engine, and the event bus.
type Service struct {
	snap   Snapshot
	engine *conversation.Engine
	bus    *events.Bus
	log    zerolog.Logger

	defaultProject string
	labels         []string
	now            func() time.Time
}

// New creates a service. bus may be nil when no event broadcast is
// wanted.
func New(snap Snapshot, engine *conversation.Engine, bus *events.Bus, cfg model.ConversationConfig) *Service {
	defaultProject := cfg.DefaultProject
	if defaultProject == "" {
		defaultProject = model.DefaultProjectName
	}
	labels := cfg.Labels
	if len(labels) == 0 {
		labels = model.DefaultLabels
	}
	return &Service{
		snap:           snap,
		engine:         engine,
		bus:            bus,
		log:            logging.Component("service"),
		defaultProject: defaultProject,
		labels:         labels,
		now:            time.Now,
	}
}

func (s *Service) publish(name string, payload any) {
	if s.bus != nil {
		s.bus.Publish(name, payload)
	}
}

// StartConversation opens a new conversation from a transcript.
func (s *Service) StartConversation(
	ctx context.Context,
	text string,
	extra map[string]any,
	timeout time.Duration,
) (conversation.TurnResult, error) {
	if text == "" {
		return conversation.TurnResult{}, &ValidationError{Field: "text", Message: "must not be empty"}
	}

	result, err := s.engine.StartConversation(ctx, text, extra, timeout)
	if err != nil {
		return conversation.TurnResult{}, err
	}

	s.publish(events.ConversationStarted, result)
	return result, nil
}

// ContinueConversation feeds the next utterance to a conversation.
func (s *Service) ContinueConversation(
	ctx context.Context,
	id, text string,
	extra map[string]any,
) (conversation.TurnResult, error) {
	if id == "" {
		return conversation.TurnResult{}, &ValidationError{Field: "conversation_id", Message: "must not be empty"}
	}

	result, err := s.engine.ContinueConversation(ctx, id, text, extra)
	if err != nil {
		return conversation.TurnResult{}, err
	}

	s.publish(events.ConversationContinued, result)
	return result, nil
}

// ConversationStatus reports on a conversation without mutating it.
func (s *Service) ConversationStatus(id string) (conversation.StatusReport, error) {
	if id == "" {
		return conversation.StatusReport{}, &ValidationError{Field: "conversation_id", Message: "must not be empty"}
	}

	report := s.engine.Status(id)
	s.publish(events.ConversationStatus, report)
	return report, nil
}

// RefreshProjects forces an immediate snapshot refresh and reports the
// resulting counts.
func (s *Service) RefreshProjects(ctx context.Context) (RefreshResult, error) {
	if err := s.snap.Refresh(ctx); err != nil {
		return RefreshResult{}, err
	}

	refreshedAt, _ := s.snap.LastRefresh()
	result := RefreshResult{
		Projects:    len(s.snap.Projects()),
		Tasks:       len(s.snap.Tasks()),
		RefreshedAt: refreshedAt,
	}
	s.publish(events.ProjectsRefreshed, result)
	return result, nil
}

// RefreshResult reports the outcome of a snapshot refresh.
type RefreshResult struct {
	Projects    int       `json:"projects"`
	Tasks       int       `json:"tasks"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

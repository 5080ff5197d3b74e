package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kweiss/voicetask/internal/conversation"
	"github.com/kweiss/voicetask/internal/events"
	"github.com/kweiss/voicetask/internal/model"
	"github.com/kweiss/voicetask/internal/parse"
	"github.com/kweiss/voicetask/internal/todoist"
)

// fakeSnapshot is an in-memory Snapshot for service tests.
type fakeSnapshot struct {
	mu          sync.Mutex
	projects    []model.Project
	tasks       []model.Task
	createdReqs []todoist.CreateTaskRequest
	exportReqs  []todoist.ExportRequest
	refreshes   int
	lastRefresh time.Time
}

var _ Snapshot = (*fakeSnapshot)(nil)

func newFakeSnapshot() *fakeSnapshot {
	return &fakeSnapshot{
		projects: []model.Project{
			{ID: "1", Name: "Inbox", IsInbox: true},
			{ID: "2", Name: "Shopping List"},
		},
		tasks: []model.Task{{ID: "t1", Content: "buy milk", ProjectID: "2"}},
	}
}

func (f *fakeSnapshot) Projects() []model.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Project(nil), f.projects...)
}

func (f *fakeSnapshot) Tasks() []model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Task(nil), f.tasks...)
}

func (f *fakeSnapshot) ProjectByID(id string) (model.Project, bool) {
	for _, p := range f.Projects() {
		if p.ID == id {
			return p, true
		}
	}
	return model.Project{}, false
}

func (f *fakeSnapshot) ProjectByName(name string) (model.Project, bool) {
	for _, p := range f.Projects() {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return model.Project{}, false
}

func (f *fakeSnapshot) FindMatchingProjects(query string) []model.ProjectMatch {
	return parse.MatchProjects(f.Projects(), query)
}

func (f *fakeSnapshot) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	f.lastRefresh = time.Now()
	return nil
}

func (f *fakeSnapshot) LastRefresh() (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRefresh, nil
}

func (f *fakeSnapshot) CreateProject(
	ctx context.Context,
	req todoist.CreateProjectRequest,
) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	project := model.Project{ID: "99", Name: req.Name}
	f.projects = append(f.projects, project)
	return &project, nil
}

func (f *fakeSnapshot) CreateTask(
	ctx context.Context,
	req todoist.CreateTaskRequest,
) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdReqs = append(f.createdReqs, req)
	return &model.Task{
		ID:        "t99",
		Content:   req.Content,
		ProjectID: req.ProjectID,
		Priority:  req.Priority,
		Labels:    req.Labels,
	}, nil
}

func (f *fakeSnapshot) Export(
	ctx context.Context,
	req todoist.ExportRequest,
) (*todoist.ExportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exportReqs = append(f.exportReqs, req)
	return &todoist.ExportResult{
		MainTask: &model.Task{ID: "main", ProjectID: req.ProjectID},
		Summary:  todoist.ExportSummary{TotalActions: len(req.Actions), Successful: len(req.Actions)},
	}, nil
}

func newTestService(t *testing.T) (*Service, *fakeSnapshot, *events.Bus) {
	t.Helper()
	snap := newFakeSnapshot()
	engine := conversation.NewEngine(snap, nil, time.Minute)
	bus := events.NewBus()
	svc := New(snap, engine, bus, model.ConversationConfig{
		DefaultProject: "Inbox",
		Labels:         []string{"voice", "ha"},
	})
	return svc, snap, bus
}

func TestCreateTaskExportsExtractedActions(t *testing.T) {
	svc, snap, bus := newTestService(t)
	ch := bus.Subscribe(events.TaskCreated)

	result, err := svc.CreateTask(context.Background(), CreateTaskArgs{
		Text:    "buy milk and call mom",
		Project: "shopping list",
	})
	require.NoError(t, err)
	assert.Equal(t, "2", result.MainTask.ProjectID)
	assert.Equal(t, 2, result.Summary.TotalActions)

	require.Len(t, snap.exportReqs, 1)
	assert.Equal(t, []string{"buy milk", "call mom"}, snap.exportReqs[0].Actions)
	assert.Equal(t, []string{"voice", "ha"}, snap.exportReqs[0].Labels)
	assert.Equal(t, model.DefaultPriority, snap.exportReqs[0].Priority)

	require.Len(t, ch, 1)
	assert.Equal(t, events.TaskCreated, (<-ch).Name)
}

func TestCreateTaskDefaultsToInbox(t *testing.T) {
	svc, snap, _ := newTestService(t)

	_, err := svc.CreateTask(context.Background(), CreateTaskArgs{Text: "buy milk"})
	require.NoError(t, err)

	require.Len(t, snap.exportReqs, 1)
	assert.Equal(t, "1", snap.exportReqs[0].ProjectID)
}

func TestCreateTaskAppendsConversationLabel(t *testing.T) {
	svc, snap, _ := newTestService(t)

	_, err := svc.CreateTask(context.Background(), CreateTaskArgs{
		Text:           "buy milk",
		ConversationID: "abc",
	})
	require.NoError(t, err)

	require.Len(t, snap.exportReqs, 1)
	assert.Contains(t, snap.exportReqs[0].Labels, "conversation-abc")
}

func TestCreateTaskParsesDuePhrase(t *testing.T) {
	svc, snap, _ := newTestService(t)

	_, err := svc.CreateTask(context.Background(), CreateTaskArgs{
		Text:    "buy milk",
		DueDate: "tomorrow",
	})
	require.NoError(t, err)

	require.Len(t, snap.exportReqs, 1)
	assert.Equal(t,
		time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
		snap.exportReqs[0].DueDate,
	)
}

func TestCreateTaskUnextractableTextBecomesSingleTask(t *testing.T) {
	svc, snap, _ := newTestService(t)

	result, err := svc.CreateTask(context.Background(), CreateTaskArgs{
		Text: "dentist appointment",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.Successful)

	assert.Empty(t, snap.exportReqs)
	require.Len(t, snap.createdReqs, 1)
	assert.Equal(t, "dentist appointment", snap.createdReqs[0].Content)
}

func TestCreateTaskValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateTask(context.Background(), CreateTaskArgs{Text: "  "})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, err = svc.CreateTask(context.Background(), CreateTaskArgs{
		Text:    "buy milk",
		Project: "no such project",
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestFindProjects(t *testing.T) {
	svc, _, bus := newTestService(t)
	ch := bus.Subscribe(events.ProjectsFound)

	result, err := svc.FindProjects("shopping", 0)
	require.NoError(t, err)
	require.NotEmpty(t, result.Matches)
	assert.Equal(t, "Shopping List", result.Matches[0].Name)
	assert.Len(t, ch, 1)

	_, err = svc.FindProjects("  ", 5)
	assert.True(t, IsValidationError(err))
}

func TestCreateProjectCommand(t *testing.T) {
	svc, _, bus := newTestService(t)
	ch := bus.Subscribe(events.ProjectCreated)

	project, err := svc.CreateProject(context.Background(), todoist.CreateProjectRequest{
		Name: "Garden",
	})
	require.NoError(t, err)
	assert.Equal(t, "Garden", project.Name)
	assert.Len(t, ch, 1)

	_, err = svc.CreateProject(context.Background(), todoist.CreateProjectRequest{})
	assert.True(t, IsValidationError(err))
}

func TestParseVoiceInput(t *testing.T) {
	svc, _, bus := newTestService(t)
	ch := bus.Subscribe(events.VoiceInputParsed)

	result, err := svc.ParseVoiceInput("- buy milk\n- call mom")
	require.NoError(t, err)
	assert.Equal(t, []string{"buy milk", "call mom"}, result.Actions)
	assert.Len(t, ch, 1)
}

func TestValidateDate(t *testing.T) {
	svc, _, bus := newTestService(t)
	ch := bus.Subscribe(events.DateValidated)

	result, err := svc.ValidateDate("tomorrow")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, time.Now().AddDate(0, 0, 1).Format("2006-01-02"), result.Date)

	result, err = svc.ValidateDate("gibberish input")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Empty(t, result.Date)

	assert.Len(t, ch, 2)
}

func TestRefreshProjects(t *testing.T) {
	svc, snap, bus := newTestService(t)
	ch := bus.Subscribe(events.ProjectsRefreshed)

	result, err := svc.RefreshProjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Projects)
	assert.Equal(t, 1, result.Tasks)
	assert.Equal(t, 1, snap.refreshes)
	assert.Len(t, ch, 1)
}

func TestConversationCommands(t *testing.T) {
	svc, _, bus := newTestService(t)
	started := bus.Subscribe(events.ConversationStarted)
	continued := bus.Subscribe(events.ConversationContinued)

	result, err := svc.StartConversation(
		context.Background(), "buy milk for the shopping run today", nil, 0,
	)
	require.NoError(t, err)
	assert.Equal(t, conversation.StateConfirmation, result.State)
	assert.Len(t, started, 1)

	status, err := svc.ConversationStatus(result.ConversationID)
	require.NoError(t, err)
	assert.True(t, status.Exists)

	final, err := svc.ContinueConversation(
		context.Background(), result.ConversationID, "yes", nil,
	)
	require.NoError(t, err)
	assert.Equal(t, conversation.StateCompleted, final.State)
	assert.Len(t, continued, 1)

	_, err = svc.StartConversation(context.Background(), "", nil, 0)
	assert.True(t, IsValidationError(err))
}

package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kweiss/voicetask/internal/helperstate"
	"github.com/kweiss/voicetask/internal/model"
	"github.com/kweiss/voicetask/internal/todoist"
	"github.com/kweiss/voicetask/tests/testutil"
)

// fakeRemote is an in-memory Remote for engine tests.
type fakeRemote struct {
	mu       sync.Mutex
	projects []model.Project
	matches  []model.ProjectMatch
	queries  []string
	created  []todoist.CreateProjectRequest
	exports  []todoist.ExportRequest

	createErr error
	exportErr error
}

func (f *fakeRemote) Projects() []model.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Project(nil), f.projects...)
}

func (f *fakeRemote) FindMatchingProjects(query string) []model.ProjectMatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return append([]model.ProjectMatch(nil), f.matches...)
}

func (f *fakeRemote) CreateProject(
	ctx context.Context,
	req todoist.CreateProjectRequest,
) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	project := model.Project{ID: "new", Name: req.Name}
	f.projects = append(f.projects, project)
	return &project, nil
}

func (f *fakeRemote) Export(
	ctx context.Context,
	req todoist.ExportRequest,
) (*todoist.ExportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exportErr != nil {
		return nil, f.exportErr
	}
	f.exports = append(f.exports, req)
	return &todoist.ExportResult{
		MainTask: &model.Task{ID: "main"},
		Summary: todoist.ExportSummary{
			TotalActions: len(req.Actions),
			Successful:   len(req.Actions),
		},
	}, nil
}

func shoppingRemote() *fakeRemote {
	shopping := model.Project{ID: "2", Name: "Shopping List"}
	return &fakeRemote{
		projects: []model.Project{
			{ID: "1", Name: "Inbox", IsInbox: true},
			shopping,
			{ID: "3", Name: "Work"},
		},
		matches: []model.ProjectMatch{
			{Project: shopping, MatchScore: model.ScoreKeyword, MatchReason: model.MatchKeyword},
		},
	}
}

func TestHappyPathSingleTurnToConfirmation(t *testing.T) {
	remote := shoppingRemote()
	engine := NewEngine(remote, nil, time.Minute)
	ctx := context.Background()

	result, err := engine.StartConversation(
		ctx, "buy milk and call mom for my shopping list today", nil, 0,
	)
	require.NoError(t, err)

	// One project match plus a date hint jumps straight to confirmation.
	assert.Equal(t, StateConfirmation, result.State)
	assert.NotEmpty(t, result.ConversationID)
	require.NotNil(t, result.Summary)
	assert.Equal(t, "Shopping List", result.Summary.Project)
	assert.Equal(t, time.Now().Format("2006-01-02"), result.Summary.DueDate)
	assert.Equal(t, []string{"buy milk", "call mom for my shopping list today"}, result.Summary.Actions)

	final, err := engine.ContinueConversation(ctx, result.ConversationID, "yes", nil)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, final.State)
	require.NotNil(t, final.Export)

	require.Len(t, remote.exports, 1)
	assert.Equal(t, "2", remote.exports[0].ProjectID)
	assert.Len(t, remote.exports[0].Actions, 2)

	// Terminal conversations are purged.
	assert.False(t, engine.Status(result.ConversationID).Exists)
	assert.Zero(t, engine.ActiveCount())
}

func TestStartWithoutProjectHints(t *testing.T) {
	remote := &fakeRemote{}
	engine := NewEngine(remote, nil, time.Minute)

	result, err := engine.StartConversation(context.Background(), "buy milk and call mom", nil, 0)
	require.NoError(t, err)

	assert.Equal(t, StateProjectSelection, result.State)
	assert.Len(t, result.Actions, 2)
	assert.Empty(t, remote.queries)
}

func TestSingleMatchAutoSelects(t *testing.T) {
	remote := shoppingRemote()
	engine := NewEngine(remote, nil, time.Minute)

	result, err := engine.StartConversation(
		context.Background(), "buy milk, need to get bread for shopping list", nil, 0,
	)
	require.NoError(t, err)

	// One cached match and no date phrase: straight to the date question.
	assert.Equal(t, StateDateInput, result.State)
	assert.Equal(t, "Shopping List", result.Project)
	require.Len(t, remote.queries, 1)
}

func TestContinueAfterCompletionIsNotFound(t *testing.T) {
	remote := shoppingRemote()
	engine := NewEngine(remote, nil, time.Minute)
	ctx := context.Background()

	result, err := engine.StartConversation(
		ctx, "buy milk for the shopping run today", nil, 0,
	)
	require.NoError(t, err)

	final, err := engine.ContinueConversation(ctx, result.ConversationID, "yes", nil)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, final.State)

	_, err = engine.ContinueConversation(ctx, result.ConversationID, "yes", nil)
	require.ErrorIs(t, err, ErrConversationNotFound)
}

func TestProjectSelectionFlow(t *testing.T) {
	remote := shoppingRemote()
	remote.matches = nil
	engine := NewEngine(remote, nil, time.Minute)
	ctx := context.Background()

	result, err := engine.StartConversation(ctx, "- buy milk\n- fix the door", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, StateProjectSelection, result.State)
	assert.Equal(t, []string{"buy milk", "fix the door"}, result.Actions)
	assert.Contains(t, result.AvailableProjects, "Shopping List")

	// Selecting by name is case-insensitive.
	result, err = engine.ContinueConversation(ctx, result.ConversationID, "shopping list", nil)
	require.NoError(t, err)
	assert.Equal(t, StateDateInput, result.State)
	assert.Equal(t, "Shopping List", result.Project)

	result, err = engine.ContinueConversation(ctx, result.ConversationID, "tomorrow", nil)
	require.NoError(t, err)
	assert.Equal(t, StateConfirmation, result.State)
	require.NotNil(t, result.Summary)
	assert.Equal(t, time.Now().AddDate(0, 0, 1).Format("2006-01-02"), result.Summary.DueDate)

	result, err = engine.ContinueConversation(ctx, result.ConversationID, "yes", nil)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)

	require.Len(t, remote.exports, 1)
	assert.Equal(t, time.Now().AddDate(0, 0, 1).Format("2006-01-02"), remote.exports[0].DueDate)
}

func TestUnknownProjectAsksAgain(t *testing.T) {
	remote := shoppingRemote()
	remote.matches = nil
	engine := NewEngine(remote, nil, time.Minute)
	ctx := context.Background()

	result, err := engine.StartConversation(ctx, "- buy milk", nil, 0)
	require.NoError(t, err)
	require.Equal(t, StateProjectSelection, result.State)

	result, err = engine.ContinueConversation(ctx, result.ConversationID, "Basement", nil)
	require.NoError(t, err)
	assert.Equal(t, StateProjectSelection, result.State)
	assert.NotEmpty(t, result.Error)
	assert.NotEmpty(t, result.AvailableProjects)
}

func TestProjectCreationFlow(t *testing.T) {
	remote := shoppingRemote()
	remote.matches = nil
	engine := NewEngine(remote, nil, time.Minute)
	ctx := context.Background()

	result, err := engine.StartConversation(ctx, "- plant tomatoes", nil, 0)
	require.NoError(t, err)

	result, err = engine.ContinueConversation(ctx, result.ConversationID, "create Garden", nil)
	require.NoError(t, err)
	assert.Equal(t, StateProjectCreation, result.State)
	assert.Equal(t, "create_project", result.ConfirmAction)
	assert.Equal(t, "Garden", result.ProjectName)

	result, err = engine.ContinueConversation(ctx, result.ConversationID, "yes", nil)
	require.NoError(t, err)
	assert.Equal(t, StateDateInput, result.State)

	require.Len(t, remote.created, 1)
	assert.Equal(t, "Garden", remote.created[0].Name)
}

func TestProjectCreationDeclinedReturnsToSelection(t *testing.T) {
	remote := shoppingRemote()
	remote.matches = nil
	engine := NewEngine(remote, nil, time.Minute)
	ctx := context.Background()

	result, err := engine.StartConversation(ctx, "- plant tomatoes", nil, 0)
	require.NoError(t, err)

	result, err = engine.ContinueConversation(ctx, result.ConversationID, "create Garden", nil)
	require.NoError(t, err)

	result, err = engine.ContinueConversation(ctx, result.ConversationID, "no", nil)
	require.NoError(t, err)
	assert.Equal(t, StateProjectSelection, result.State)
	assert.Empty(t, remote.created)
}

func TestInvalidDateInputRepeatsQuestion(t *testing.T) {
	remote := shoppingRemote()
	engine := NewEngine(remote, nil, time.Minute)
	ctx := context.Background()

	result, err := engine.StartConversation(ctx, "- buy milk for the shopping run", nil, 0)
	require.NoError(t, err)
	require.Equal(t, StateDateInput, result.State)

	result, err = engine.ContinueConversation(ctx, result.ConversationID, "whenever feels right", nil)
	require.NoError(t, err)
	assert.Equal(t, StateDateInput, result.State)
	assert.NotEmpty(t, result.Error)
	assert.NotEmpty(t, result.Examples)

	// Skipping the date is allowed.
	result, err = engine.ContinueConversation(ctx, result.ConversationID, "none", nil)
	require.NoError(t, err)
	assert.Equal(t, StateConfirmation, result.State)
	assert.Equal(t, "No due date", result.Summary.DueDate)
}

func TestConfirmationDeclinedCancels(t *testing.T) {
	remote := shoppingRemote()
	engine := NewEngine(remote, nil, time.Minute)
	ctx := context.Background()

	result, err := engine.StartConversation(
		ctx, "buy milk for the shopping run today", nil, 0,
	)
	require.NoError(t, err)
	require.Equal(t, StateConfirmation, result.State)

	result, err = engine.ContinueConversation(ctx, result.ConversationID, "no", nil)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, result.State)
	assert.Empty(t, remote.exports)
}

func TestNoActionsTerminatesWithError(t *testing.T) {
	engine := NewEngine(shoppingRemote(), nil, time.Minute)

	result, err := engine.StartConversation(context.Background(), "hmm, nothing much", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, StateError, result.State)
	assert.Equal(t, "no actions found in text", result.Error)

	// Error is terminal; the session is gone.
	assert.False(t, engine.Status(result.ConversationID).Exists)
}

func TestExportFailureTerminatesWithError(t *testing.T) {
	remote := shoppingRemote()
	remote.exportErr = errors.New("boom")
	engine := NewEngine(remote, nil, time.Minute)
	ctx := context.Background()

	result, err := engine.StartConversation(
		ctx, "buy milk for the shopping run today", nil, 0,
	)
	require.NoError(t, err)

	result, err = engine.ContinueConversation(ctx, result.ConversationID, "yes", nil)
	require.NoError(t, err)
	assert.Equal(t, StateError, result.State)
	assert.Contains(t, result.Error, "failed to create tasks")
}

func TestContinueUnknownConversation(t *testing.T) {
	engine := NewEngine(shoppingRemote(), nil, time.Minute)

	_, err := engine.ContinueConversation(context.Background(), "nope", "yes", nil)
	require.ErrorIs(t, err, ErrConversationNotFound)
}

func TestExpiry(t *testing.T) {
	engine := NewEngine(shoppingRemote(), nil, time.Minute)

	current := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	engine.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}

	result, err := engine.StartConversation(context.Background(), "- buy milk", nil, 0)
	require.NoError(t, err)

	report := engine.Status(result.ConversationID)
	assert.True(t, report.Exists)
	assert.False(t, report.IsExpired)

	mu.Lock()
	current = current.Add(2 * time.Minute)
	mu.Unlock()

	// Status stays read-only even when expired.
	report = engine.Status(result.ConversationID)
	assert.True(t, report.Exists)
	assert.True(t, report.IsExpired)
	report = engine.Status(result.ConversationID)
	assert.True(t, report.Exists)

	_, err = engine.ContinueConversation(context.Background(), result.ConversationID, "yes", nil)
	require.ErrorIs(t, err, ErrConversationExpired)

	// The expired session was purged on discovery.
	assert.False(t, engine.Status(result.ConversationID).Exists)
}

func TestCleanupExpired(t *testing.T) {
	engine := NewEngine(shoppingRemote(), nil, time.Minute)

	current := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	engine.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}

	first, err := engine.StartConversation(context.Background(), "- buy milk", nil, 0)
	require.NoError(t, err)

	mu.Lock()
	current = current.Add(30 * time.Second)
	mu.Unlock()

	second, err := engine.StartConversation(context.Background(), "- call mom", nil, 0)
	require.NoError(t, err)

	mu.Lock()
	current = current.Add(45 * time.Second)
	mu.Unlock()

	// Only the first conversation is past its deadline.
	assert.Equal(t, 1, engine.CleanupExpired(context.Background()))
	assert.False(t, engine.Status(first.ConversationID).Exists)
	assert.True(t, engine.Status(second.ConversationID).Exists)
}

func TestHelperStateMirroring(t *testing.T) {
	store := testutil.NewTestStore(t)

	remote := shoppingRemote()
	remote.matches = nil
	engine := NewEngine(remote, store, time.Minute)
	ctx := context.Background()

	result, err := engine.StartConversation(ctx, "- buy milk\n- fix the door", nil, 0)
	require.NoError(t, err)

	state, err := store.GetText(ctx, helperstate.CellConversationState)
	require.NoError(t, err)
	assert.Equal(t, "project_selection", state)

	id, err := store.GetText(ctx, helperstate.CellConversationID)
	require.NoError(t, err)
	assert.Equal(t, result.ConversationID, id)

	actions, err := store.GetText(ctx, helperstate.CellParsedActions)
	require.NoError(t, err)
	assert.Equal(t, "buy milk\nfix the door", actions)

	active, err := store.GetBool(ctx, helperstate.CellConversationActive)
	require.NoError(t, err)
	assert.True(t, active)

	awaiting, err := store.GetBool(ctx, helperstate.CellAwaitingProjectSelection)
	require.NoError(t, err)
	assert.True(t, awaiting)

	// Drive the conversation to completion; purge resets the cells.
	_, err = engine.ContinueConversation(ctx, result.ConversationID, "Work", nil)
	require.NoError(t, err)
	_, err = engine.ContinueConversation(ctx, result.ConversationID, "none", nil)
	require.NoError(t, err)
	_, err = engine.ContinueConversation(ctx, result.ConversationID, "yes", nil)
	require.NoError(t, err)

	state, err = store.GetText(ctx, helperstate.CellConversationState)
	require.NoError(t, err)
	assert.Equal(t, "idle", state)

	id, err = store.GetText(ctx, helperstate.CellConversationID)
	require.NoError(t, err)
	assert.Empty(t, id)

	active, err = store.GetBool(ctx, helperstate.CellConversationActive)
	require.NoError(t, err)
	assert.False(t, active)
}

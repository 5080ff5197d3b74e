package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kweiss/voicetask/internal/helperstate"
	"github.com/kweiss/voicetask/internal/model"
)

// Projection is the flattened helper-state view of a conversation. It
// is computed in one place from the context so every mirrored cell is
// derived consistently.
type Projection struct {
	ConversationID   string
	State            State
	ContextJSON      string
	ParsedActions    string
	ProjectMatches   string
	SelectedProject  string
	PendingDueDate   string
	TaskPriority     string
	Active           bool
	AwaitingProject  bool
	AwaitingCreation bool
	AwaitingDate     bool
	AwaitingConfirm  bool
}

// Render computes the helper-state projection of a conversation.
func Render(c *Context) Projection {
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
		Labels:              c.labels,
		ErrorMessage:        c.errorMessage,
	}
	if c.selectedProject != nil {
		pub.SelectedProject = c.selectedProject.Name
	}

	contextJSON := "{}"
	if encoded, err := json.Marshal(pub); err == nil {
		contextJSON = string(encoded)
	}

	matchLines := make([]string, 0, len(c.projectMatches))
	for _, m := range c.projectMatches {
		matchLines = append(matchLines, fmt.Sprintf("%s (%d)", m.Name, m.MatchScore))
	}

	priority := c.taskPriority
	if priority == 0 {
		priority = model.DefaultPriority
	}

	return Projection{
		ConversationID:   c.id,
		State:            c.state,
		ContextJSON:      contextJSON,
		ParsedActions:    strings.Join(c.parsedActions, "\n"),
		ProjectMatches:   strings.Join(matchLines, "\n"),
		SelectedProject:  pub.SelectedProject,
		PendingDueDate:   c.pendingDueDate,
		TaskPriority:     strconv.Itoa(priority),
		Active:           !c.state.Terminal() && c.state != StateIdle,
		AwaitingProject:  c.state == StateProjectSelection,
		AwaitingCreation: c.state == StateProjectCreation,
		AwaitingDate:     c.state == StateDateInput,
		AwaitingConfirm:  c.state == StateConfirmation,
	}
}

// writeProjection persists a projection into the helper-state store.
// Cell writes are best effort; the first failure is returned but the
// conversation itself is never blocked on mirroring.
func writeProjection(ctx context.Context, store helperstate.Store, p Projection) error {
	texts := map[string]string{
		helperstate.CellConversationID:      p.ConversationID,
		helperstate.CellConversationState:   string(p.State),
		helperstate.CellConversationContext: p.ContextJSON,
		helperstate.CellParsedActions:       p.ParsedActions,
		helperstate.CellProjectMatches:      p.ProjectMatches,
		helperstate.CellSelectedProject:     p.SelectedProject,
		helperstate.CellPendingDueDate:      p.PendingDueDate,
		helperstate.CellTaskPriority:        p.TaskPriority,
	}
	for name, value := range texts {
		if err := store.SetText(ctx, name, value); err != nil {
			return err
		}
	}

	bools := map[string]bool{
		helperstate.CellConversationActive:        p.Active,
		helperstate.CellAwaitingProjectSelection:  p.AwaitingProject,
		helperstate.CellAwaitingProjectCreation:   p.AwaitingCreation,
		helperstate.CellAwaitingDateInput:         p.AwaitingDate,
		helperstate.CellAwaitingFinalConfirmation: p.AwaitingConfirm,
	}
	for name, on := range bools {
		if err := store.SetBool(ctx, name, on); err != nil {
			return err
		}
	}
	return nil
}

// Package helperstate persists the small boolean/text/select/number
// cells that mirror conversation state to the hosting automation
// platform. Each cell is independently readable and settable; reading
// a cell that was never written yields its declared default.
package helperstate

import "context"

// Text cell names.
const (
	CellConversationID      = "conversation_id"
	CellConversationState   = "conversation_state"
	CellInputBuffer         = "input_buffer"
	CellParsedActions       = "parsed_actions"
	CellProjectMatches      = "project_matches"
	CellSelectedProject     = "selected_project"
	CellPendingDueDate      = "pending_due_date"
	CellTaskPriority        = "task_priority"
	CellConversationContext = "conversation_context"
)

// Boolean cell names.
const (
	CellConversationActive        = "conversation_active"
	CellAwaitingProjectSelection  = "awaiting_project_selection"
	CellAwaitingProjectCreation   = "awaiting_project_creation"
	CellAwaitingDateInput         = "awaiting_date_input"
	CellAwaitingFinalConfirmation = "awaiting_final_confirmation"
)

// Select and number cell names.
const (
	CellAvailableProjects   = "available_projects"
	CellConversationTimeout = "conversation_timeout"
)

// textDefaults are the reset values of the text cells.
var textDefaults = map[string]string{
	CellConversationID:      "",
	CellConversationState:   "idle",
	CellInputBuffer:         "",
	CellParsedActions:       "",
	CellProjectMatches:      "",
	CellSelectedProject:     "",
	CellPendingDueDate:      "",
	CellTaskPriority:        "3",
	CellConversationContext: "{}",
}

// boolCells are all boolean cells; they default to off.
var boolCells = []string{
	CellConversationActive,
	CellAwaitingProjectSelection,
	CellAwaitingProjectCreation,
	CellAwaitingDateInput,
	CellAwaitingFinalConfirmation,
}

// Store is the persistence interface for helper-state cells.
type Store interface {
	SetText(ctx context.Context, name, value string) error
	GetText(ctx context.Context, name string) (string, error)

	SetBool(ctx context.Context, name string, on bool) error
	GetBool(ctx context.Context, name string) (bool, error)

	SetNumber(ctx context.Context, name string, value float64) error
	GetNumber(ctx context.Context, name string) (float64, error)

	SetOptions(ctx context.Context, name string, options []string) error
	GetOptions(ctx context.Context, name string) ([]string, error)

	// Reset restores every cell to its default so the mirrored view
	// never shows a stale conversation.
	Reset(ctx context.Context) error

	Close() error
}

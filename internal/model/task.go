package model

// Todoist priority constants. Note that the REST API treats 4 as the most
// urgent, but voicetask follows the app convention where 1 is "Very High"
// and 4 is "Low", matching the labels shown to the user.
const (
	PriorityVeryHigh = 1
	PriorityHigh     = 2
	PriorityMedium   = 3
	PriorityLow      = 4
)

// DefaultPriority is applied when no priority is supplied.
const DefaultPriority = PriorityMedium

// DefaultLabels are attached to every task created through the voice flow.
var DefaultLabels = []string{"voice", "ha"}

// PriorityName returns the display label for a priority level.
func PriorityName(priority int) string {
	switch priority {
	case PriorityVeryHigh:
		return "Very High"
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	default:
		return "Medium"
	}
}

// ClampPriority normalizes a priority value into the valid 1..4 range,
// falling back to the default for zero or out-of-range input.
func ClampPriority(priority int) int {
	if priority == 0 {
		return DefaultPriority
	}
	if priority < PriorityVeryHigh {
		return PriorityVeryHigh
	}
	if priority > PriorityLow {
		return PriorityLow
	}
	return priority
}

// Due is the due-date object attached to a Todoist task. Date holds a
// plain YYYY-MM-DD value; Datetime is set for time-of-day due dates.
type Due struct {
	Date        string `json:"date"`
	Datetime    string `json:"datetime,omitempty"`
	String      string `json:"string,omitempty"`
	IsRecurring bool   `json:"is_recurring,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

// Task is a Todoist task as returned by the REST API. Tasks share the
// snapshot-and-replace lifecycle of projects.
type Task struct {
	ID          string   `json:"id"`
	Content     string   `json:"content"`
	Description string   `json:"description,omitempty"`
	ProjectID   string   `json:"project_id,omitempty"`
	SectionID   string   `json:"section_id,omitempty"`
	ParentID    string   `json:"parent_id,omitempty"`
	Priority    int      `json:"priority,omitempty"`
	Due         *Due     `json:"due,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	IsCompleted bool     `json:"is_completed,omitempty"`
	Order       int      `json:"order,omitempty"`
	URL         string   `json:"url,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// DueDate returns the task's plain calendar due date, or "" when the task
// has no due date.
func (t Task) DueDate() string {
	if t.Due == nil {
		return ""
	}
	return t.Due.Date
}

// HasLabel reports whether the task carries the given label.
func (t Task) HasLabel(label string) bool {
	for _, l := range t.Labels {
		if l == label {
			return true
		}
	}
	return false
}

package coordinator

import (
	"time"

	"github.com/kweiss/voicetask/internal/model"
)

// Date filter keywords accepted by FilterTasksByDate.
const (
	DateFilterToday     = "today"
	DateFilterOverdue   = "overdue"
	DateFilterTomorrow  = "tomorrow"
	DateFilterThisWeek  = "this_week"
	DateFilterNextWeek  = "next_week"
	DateFilterUpcoming  = "upcoming"
	DateFilterNoDueDate = "no_due_date"
)

// FilterTasksByDate keeps the tasks whose due date falls inside the
// named window relative to now. Tasks with unparsable due dates are
// dropped; tasks without a due date only match "no_due_date".
func FilterTasksByDate(tasks []model.Task, filter string, now time.Time) []model.Task {
	today := truncateToDay(now)

	var filtered []model.Task
	for _, task := range tasks {
		due := task.DueDate()
		if due == "" {
			if filter == DateFilterNoDueDate {
				filtered = append(filtered, task)
			}
			continue
		}

		taskDate, err := time.ParseInLocation("2006-01-02", due, now.Location())
		if err != nil {
			continue
		}

		daysAhead := int(taskDate.Sub(today).Hours() / 24)

		keep := false
		switch filter {
		case DateFilterToday:
			keep = daysAhead == 0
		case DateFilterOverdue:
			keep = daysAhead < 0
		case DateFilterTomorrow:
			keep = daysAhead == 1
		case DateFilterThisWeek:
			keep = daysAhead >= 0 && daysAhead <= 7
		case DateFilterNextWeek:
			keep = daysAhead > 7 && daysAhead <= 14
		case DateFilterUpcoming:
			keep = daysAhead >= 0
		}

		if keep {
			filtered = append(filtered, task)
		}
	}
	return filtered
}

// FilterTasksByPriority keeps tasks with exactly the given priority.
func FilterTasksByPriority(tasks []model.Task, priority int) []model.Task {
	var filtered []model.Task
	for _, task := range tasks {
		if task.Priority == priority {
			filtered = append(filtered, task)
		}
	}
	return filtered
}

// FilterTasksByProject keeps tasks belonging to the given project.
func FilterTasksByProject(tasks []model.Task, projectID string) []model.Task {
	var filtered []model.Task
	for _, task := range tasks {
		if task.ProjectID == projectID {
			filtered = append(filtered, task)
		}
	}
	return filtered
}

// FilterTasksByLabels keeps tasks carrying any of the given labels.
// An empty label list keeps everything.
func FilterTasksByLabels(tasks []model.Task, labels []string) []model.Task {
	if len(labels) == 0 {
		return tasks
	}

	var filtered []model.Task
	for _, task := range tasks {
		for _, label := range labels {
			if task.HasLabel(label) {
				filtered = append(filtered, task)
				break
			}
		}
	}
	return filtered
}

// TaskSummary aggregates counts over a task list.
type TaskSummary struct {
	Total          int         `json:"total"`
	ByPriority     map[int]int `json:"by_priority"`
	WithDueDate    int         `json:"with_due_date"`
	WithoutDueDate int         `json:"without_due_date"`
	Overdue        int         `json:"overdue"`
	DueToday       int         `json:"due_today"`
	DueTomorrow    int         `json:"due_tomorrow"`
}

// SummarizeTasks computes summary statistics for a task list.
func SummarizeTasks(tasks []model.Task, now time.Time) TaskSummary {
	summary := TaskSummary{
		Total:      len(tasks),
		ByPriority: map[int]int{1: 0, 2: 0, 3: 0, 4: 0},
	}

	today := truncateToDay(now)

	for _, task := range tasks {
		priority := task.Priority
		if priority == 0 {
			priority = 1
		}
		summary.ByPriority[priority]++

		due := task.DueDate()
		if due == "" {
			summary.WithoutDueDate++
			continue
		}
		summary.WithDueDate++

		taskDate, err := time.ParseInLocation("2006-01-02", due, now.Location())
		if err != nil {
			continue
		}

		switch daysAhead := int(taskDate.Sub(today).Hours() / 24); {
		case daysAhead < 0:
			summary.Overdue++
		case daysAhead == 0:
			summary.DueToday++
		case daysAhead == 1:
			summary.DueTomorrow++
		}
	}

	return summary
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

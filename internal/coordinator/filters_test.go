package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kweiss/voicetask/internal/model"
)

// Wednesday, 10 January 2024.
var filterNow = time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)

func dueTask(id, date string) model.Task {
	task := model.Task{ID: id}
	if date != "" {
		task.Due = &model.Due{Date: date}
	}
	return task
}

func TestFilterTasksByDate(t *testing.T) {
	tasks := []model.Task{
		dueTask("overdue", "2024-01-08"),
		dueTask("today", "2024-01-10"),
		dueTask("tomorrow", "2024-01-11"),
		dueTask("this-week", "2024-01-15"),
		dueTask("next-week", "2024-01-19"),
		dueTask("far", "2024-03-01"),
		dueTask("none", ""),
	}

	ids := func(filtered []model.Task) []string {
		var out []string
		for _, task := range filtered {
			out = append(out, task.ID)
		}
		return out
	}

	tests := []struct {
		filter string
		want   []string
	}{
		{DateFilterToday, []string{"today"}},
		{DateFilterOverdue, []string{"overdue"}},
		{DateFilterTomorrow, []string{"tomorrow"}},
		{DateFilterThisWeek, []string{"today", "tomorrow", "this-week"}},
		{DateFilterNextWeek, []string{"next-week"}},
		{DateFilterUpcoming, []string{"today", "tomorrow", "this-week", "next-week", "far"}},
		{DateFilterNoDueDate, []string{"none"}},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterTasksByDate(tasks, tt.filter, filterNow)))
		})
	}
}

func TestFilterTasksByPriority(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Priority: 4},
		{ID: "b", Priority: 1},
		{ID: "c", Priority: 4},
	}

	filtered := FilterTasksByPriority(tasks, 4)
	assert.Len(t, filtered, 2)
}

func TestFilterTasksByLabels(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Labels: []string{"voice", "ha"}},
		{ID: "b", Labels: []string{"manual"}},
		{ID: "c"},
	}

	filtered := FilterTasksByLabels(tasks, []string{"voice"})
	assert.Len(t, filtered, 1)
	assert.Equal(t, "a", filtered[0].ID)

	// No labels keeps everything.
	assert.Len(t, FilterTasksByLabels(tasks, nil), 3)
}

func TestSummarizeTasks(t *testing.T) {
	tasks := []model.Task{
		dueTask("overdue", "2024-01-05"),
		dueTask("today", "2024-01-10"),
		dueTask("tomorrow", "2024-01-11"),
		dueTask("none", ""),
	}
	tasks[0].Priority = 4
	tasks[1].Priority = 1

	summary := SummarizeTasks(tasks, filterNow)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 3, summary.WithDueDate)
	assert.Equal(t, 1, summary.WithoutDueDate)
	assert.Equal(t, 1, summary.Overdue)
	assert.Equal(t, 1, summary.DueToday)
	assert.Equal(t, 1, summary.DueTomorrow)
	assert.Equal(t, 1, summary.ByPriority[4])
	// Unset priority is counted at the lowest tier.
	assert.Equal(t, 3, summary.ByPriority[1])
}

package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Wednesday, 10 January 2024.
var wednesday = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func TestDueDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"today", "2024-01-10"},
		{"Tomorrow", "2024-01-11"},
		// Friday of the current week.
		{"this week", "2024-01-12"},
		// Monday of the following week.
		{"next week", "2024-01-15"},
		{"in 3 days", "2024-01-13"},
		{"in 1 day", "2024-01-11"},
		{"friday", "2024-01-12"},
		{"next friday", "2024-01-12"},
		// The same weekday rolls a full week ahead.
		{"wednesday", "2024-01-17"},
		// A weekday earlier in the week resolves to next week.
		{"monday", "2024-01-15"},
		{"2024-03-05", "2024-03-05"},
		{"Jan 20, 2024", "2024-01-20"},
		{"definitely not a date", ""},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, DueDate(tt.input, wednesday))
		})
	}
}

func TestDueDateWeekKeywordsFromMonday(t *testing.T) {
	// Monday, 8 January 2024.
	monday := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-01-12", DueDate("this week", monday))
	assert.Equal(t, "2024-01-15", DueDate("next week", monday))
}

func TestDueDateNeverInPastForWeekdays(t *testing.T) {
	// Saturday, 13 January 2024: "friday" must land on the 19th.
	saturday := time.Date(2024, 1, 13, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-01-19", DueDate("friday", saturday))
}

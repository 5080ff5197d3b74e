package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampPriority(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultPriority},
		{-3, PriorityVeryHigh},
		{1, 1},
		{3, 3},
		{4, 4},
		{9, PriorityLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampPriority(tt.in))
	}
}

func TestPriorityName(t *testing.T) {
	assert.Equal(t, "Very High", PriorityName(PriorityVeryHigh))
	assert.Equal(t, "Low", PriorityName(PriorityLow))
	assert.Equal(t, "Medium", PriorityName(42))
}

func TestTaskDueDate(t *testing.T) {
	assert.Empty(t, Task{}.DueDate())
	assert.Equal(t, "2024-01-10", Task{Due: &Due{Date: "2024-01-10"}}.DueDate())
}

func TestTaskHasLabel(t *testing.T) {
	task := Task{Labels: []string{"voice", "ha"}}

	assert.True(t, task.HasLabel("voice"))
	assert.False(t, task.HasLabel("manual"))
	assert.False(t, Task{}.HasLabel("voice"))
}

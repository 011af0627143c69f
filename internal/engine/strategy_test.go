package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func TestNewStrategy(t *testing.T) {
	s, err := NewStrategy("", Options{})
	require.NoError(t, err)
	assert.Equal(t, StrategyGreedy, s.Name())

	s, err = NewStrategy(" Optimizer ", Options{})
	require.NoError(t, err)
	assert.Equal(t, StrategyOptimizer, s.Name())

	_, err = NewStrategy("tabu", Options{})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestSortSchedule(t *testing.T) {
	schedule := []models.Placement{
		{Day: "Thu", Time: "08:00-08:55", CourseID: "B"},
		{Day: "Mon", Time: "13:00-13:55", CourseID: "A"},
		{Day: "Mon", Time: "08:00-08:55", CourseID: "C"},
		{Day: "Mon", Time: "08:00-08:55", CourseID: "A"},
	}
	SortSchedule(schedule)

	got := make([]string, 0, len(schedule))
	for _, p := range schedule {
		got = append(got, p.Day+" "+p.Time+" "+p.CourseID)
	}
	assert.Equal(t, []string{
		"Mon 08:00-08:55 A",
		"Mon 08:00-08:55 C",
		"Mon 13:00-13:55 A",
		"Thu 08:00-08:55 B",
	}, got)
}

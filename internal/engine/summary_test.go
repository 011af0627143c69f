package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/timetable-api/internal/models"
)

func TestSummarizeCountsMeetings(t *testing.T) {
	schedule := []models.Placement{
		{Day: "Mon", Time: "08:00-08:55", CourseID: "A", Kind: models.KindLecture, RoomID: "R1", FacultyID: "F1", Pattern: []string{"Mon", "Wed", "Fri"}},
		{Day: "Tue", Time: "12:45-14:10", CourseID: "A", Kind: models.KindPractical, RoomID: "LAB1", FacultyID: "F2"},
		{Day: "Mon", Time: "17:10-18:05", CourseID: "B", Kind: models.KindTutorial, RoomID: "R2", Faculty: "Dr Who"},
		{Day: "Wed", Time: "15:10-16:05", CourseID: "C", Kind: models.KindLecture, RoomID: "R2", FacultyID: "F2"},
	}

	summary := Summarize(schedule)

	assert.Equal(t, 6, summary.Meetings)
	assert.Equal(t, 3, summary.Early)
	assert.Equal(t, 2, summary.Late)
	assert.Equal(t, []Count{{"Mon", 2}, {"Tue", 1}, {"Wed", 2}, {"Fri", 1}}, summary.ByDay)
	assert.Equal(t, []Count{{"L", 4}, {"T", 1}, {"P", 1}}, summary.ByKind)
	assert.Equal(t, []Count{{"R1", 3}, {"R2", 2}, {"LAB1", 1}}, summary.ByRoom)
	assert.Equal(t, []Count{{"F1", 3}, {"F2", 2}, {"Dr Who", 1}}, summary.ByFaculty)
}

func TestSummarizeIsOrderIndependent(t *testing.T) {
	a := models.Placement{Day: "Thu", Time: "09:35-10:30", CourseID: "A", Kind: models.KindLecture, RoomID: "R1", FacultyID: "F1"}
	b := models.Placement{Day: "Tue", Time: "09:35-10:30", CourseID: "B", Kind: models.KindLecture, RoomID: "R2", FacultyID: "F2"}

	assert.Equal(t, Summarize([]models.Placement{a, b}), Summarize([]models.Placement{b, a}))
	assert.Equal(t, []Count{{"R1", 1}, {"R2", 1}}, Summarize([]models.Placement{b, a}).ByRoom, "ties sort by key")
}

func TestSummarizeEmptySchedule(t *testing.T) {
	summary := Summarize(nil)

	assert.Zero(t, summary.Meetings)
	assert.Empty(t, summary.ByDay)
	assert.NotNil(t, summary.ByRoom)
}

func TestGreedyReportCarriesSummary(t *testing.T) {
	result := runGreedy(t, Input{
		Courses: []models.CourseComponent{lecture("A101", "F1", "G1"), lecture("B101", "F1", "G2")},
		Rooms:   []models.Room{{ID: "R1", Capacity: 60, Kind: models.RoomClassroom}},
	})

	assert.Equal(t, 2, result.Report.Summary.Meetings)
	assert.Equal(t, []Count{{"F1", 2}}, result.Report.Summary.ByFaculty)
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

var testRooms = []models.Room{
	{ID: "LAB1", Capacity: 30, Kind: models.RoomLab},
	{ID: "R1", Capacity: 60, Kind: models.RoomClassroom},
	{ID: "R2", Capacity: 60, Kind: models.RoomClassroom},
}

func TestSelectRoomPrefersDeclaredRoom(t *testing.T) {
	ledger := NewLedger()
	course := models.CourseComponent{ID: "CS101", PreferredRoomID: "R2"}
	first := mustSlot(t, "MWF_1_L")

	room, ok := SelectRoom(course, models.KindLecture, testRooms, "Mon", first, ledger)
	require.True(t, ok)
	assert.Equal(t, "R2", room)

	require.NoError(t, ledger.Commit("Mon", first, occupant("X", "R2", "", "")))
	room, ok = SelectRoom(course, models.KindLecture, testRooms, "Mon", first, ledger)
	require.True(t, ok)
	assert.Equal(t, "R1", room, "busy preferred room falls back to type match")
}

func TestSelectRoomMatchesType(t *testing.T) {
	ledger := NewLedger()
	course := models.CourseComponent{ID: "CS101"}

	room, ok := SelectRoom(course, models.KindPractical, testRooms, "Mon", mustSlot(t, "MWF_4_LAB"), ledger)
	require.True(t, ok)
	assert.Equal(t, "LAB1", room)

	room, ok = SelectRoom(course, models.KindTutorial, testRooms, "Mon", mustSlot(t, "MWF_8_T"), ledger)
	require.True(t, ok)
	assert.Equal(t, "R1", room)
}

func TestSelectRoomFallsBackToAnyFreeRoom(t *testing.T) {
	ledger := NewLedger()
	first := mustSlot(t, "MWF_1_L")
	require.NoError(t, ledger.Commit("Mon", first, occupant("A", "R1", "", "")))
	require.NoError(t, ledger.Commit("Mon", first, occupant("B", "R2", "", "")))

	room, ok := SelectRoom(models.CourseComponent{ID: "CS101"}, models.KindLecture, testRooms, "Mon", first, ledger)
	require.True(t, ok)
	assert.Equal(t, "LAB1", room)

	require.NoError(t, ledger.Commit("Mon", first, occupant("C", "LAB1", "", "")))
	_, ok = SelectRoom(models.CourseComponent{ID: "CS101"}, models.KindLecture, testRooms, "Mon", first, ledger)
	assert.False(t, ok)

	_, ok = FirstFreeRoom(testRooms, "Mon", first, ledger)
	assert.False(t, ok)
	room, ok = FirstFreeRoom(testRooms, "Wed", first, ledger)
	require.True(t, ok)
	assert.Equal(t, "LAB1", room)
}

func TestSelectRoomSkipsRoomHeldByIntersectingSlot(t *testing.T) {
	ledger := NewLedger()
	require.NoError(t, ledger.Commit("Mon", mustSlot(t, "MWF_4_LAB"), occupant("A", "R1", "", "")))

	room, ok := SelectRoom(models.CourseComponent{ID: "CS101"}, models.KindLecture, testRooms, "Mon", mustSlot(t, "MWF_5_L"), ledger)
	require.True(t, ok)
	assert.Equal(t, "R2", room, "13:00-14:55 still holds R1 at 14:05")
}

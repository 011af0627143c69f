package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func TestTimetablePlacementRepositoryUpsertBatch(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetablePlacementRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_placements")).
		WithArgs(sqlmock.AnyArg(), "tt-1", "Mon", "08:00-09:55", "MWF_1_LONG_L", "CS101", "L", "R1", "Dr. A", "F1", "G1", "Mon,Wed,Fri", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_placements")).
		WithArgs(sqlmock.AnyArg(), "tt-1", "Tue", "15:20-16:15", "TTH_7_T", "CS101", "T", "R2", "Dr. A", "F1", "G1", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rows := []models.TimetablePlacement{
		models.NewTimetablePlacement("tt-1", models.Placement{
			Day: "Mon", Time: "08:00-09:55", SlotID: "MWF_1_LONG_L", CourseID: "CS101", Kind: models.KindLecture,
			RoomID: "R1", Faculty: "Dr. A", FacultyID: "F1", Group: "G1", Pattern: []string{"Mon", "Wed", "Fri"},
		}),
		models.NewTimetablePlacement("tt-1", models.Placement{
			Day: "Tue", Time: "15:20-16:15", SlotID: "TTH_7_T", CourseID: "CS101", Kind: models.KindTutorial,
			RoomID: "R2", Faculty: "Dr. A", FacultyID: "F1", Group: "G1",
		}),
	}
	require.NoError(t, repo.UpsertBatch(context.Background(), nil, rows))
	assert.NotEmpty(t, rows[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetablePlacementRepositoryUpsertBatchError(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetablePlacementRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_placements")).
		WillReturnError(errors.New("boom"))

	err := repo.UpsertBatch(context.Background(), nil, []models.TimetablePlacement{{TimetableID: "tt-1", CourseID: "X", Component: models.KindLecture}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "X (L)")
	assert.NoError(t, repo.UpsertBatch(context.Background(), nil, nil))
}

func TestTimetablePlacementRepositoryListByTimetable(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetablePlacementRepository(db)

	rows := sqlmock.NewRows([]string{"id", "timetable_id", "day", "time_label", "slot_id", "course_id", "component", "room_id", "faculty", "faculty_id", "group_name", "pattern", "created_at"}).
		AddRow("p-1", "tt-1", "Tue", "08:00-09:20", "TTH_1_LONG_L", "MA201", "L", "R3", "Dr. B", "F2", "G2", "Tue,Thu", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_placements WHERE timetable_id = $1")).
		WithArgs("tt-1").
		WillReturnRows(rows)

	list, err := repo.ListByTimetable(context.Background(), "tt-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"Tue", "Thu"}, list[0].Placement().Pattern)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package csvio

import (
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/timetable-api/internal/models"
)

type placementRow struct {
	Day       string `csv:"day"`
	Time      string `csv:"time"`
	CourseID  string `csv:"course_id"`
	Component string `csv:"component"`
	RoomID    string `csv:"room_id"`
	Faculty   string `csv:"faculty"`
	Group     string `csv:"student_group"`
	Pattern   string `csv:"pattern"`
}

// WritePlacements writes the schedule in its given order with a header row.
func WritePlacements(out io.Writer, schedule []models.Placement) error {
	rows := make([]*placementRow, 0, len(schedule))
	for _, p := range schedule {
		rows = append(rows, &placementRow{
			Day:       p.Day,
			Time:      p.Time,
			CourseID:  p.CourseID,
			Component: string(p.Kind),
			RoomID:    p.RoomID,
			Faculty:   p.Faculty,
			Group:     p.Group,
			Pattern:   strings.Join(p.Pattern, "/"),
		})
	}
	if err := gocsv.Marshal(&rows, out); err != nil {
		return fmt.Errorf("write placements: %w", err)
	}
	return nil
}

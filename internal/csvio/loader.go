package csvio

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/timetable-api/internal/models"
)

type courseRow struct {
	CourseID      string  `csv:"course_id"`
	Component     string  `csv:"component"`
	DurationHours float64 `csv:"duration_hours"`
	StudentGroup  string  `csv:"student_group"`
	FacultyID     string  `csv:"faculty_id"`
	FacultyName   string  `csv:"faculty_name"`
	PreferredRoom string  `csv:"preferred_room"`
	SeatsNeeded   int     `csv:"seats_needed"`
	Elective      bool    `csv:"elective"`
}

type roomRow struct {
	RoomID   string `csv:"room_id"`
	Capacity int    `csv:"capacity"`
	RoomType string `csv:"room_type"`
}

type facultyRow struct {
	FacultyID       string `csv:"faculty_id"`
	Name            string `csv:"name"`
	MaxTeachingDays int    `csv:"max_teaching_days"`
	AllowBackToBack bool   `csv:"allow_back_to_back"`
}

type overrideRow struct {
	CourseID  string `csv:"course_id"`
	Component string `csv:"component"`
	Day       string `csv:"day"`
	Time      string `csv:"time"`
	Force     bool   `csv:"force"`
}

// ReadCourses parses course components. Each row needs course_id and component.
func ReadCourses(in io.Reader) ([]models.CourseComponent, error) {
	var rows []courseRow
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return nil, fmt.Errorf("parse courses: %w", err)
	}
	out := make([]models.CourseComponent, 0, len(rows))
	for i, row := range rows {
		id := strings.TrimSpace(row.CourseID)
		kind := strings.TrimSpace(row.Component)
		if id == "" || kind == "" {
			return nil, fmt.Errorf("courses row %d: course_id and component are required", i+2)
		}
		out = append(out, models.CourseComponent{
			ID:              id,
			Kind:            models.ComponentKind(kind),
			DurationHours:   row.DurationHours,
			StudentGroup:    strings.TrimSpace(row.StudentGroup),
			FacultyID:       strings.TrimSpace(row.FacultyID),
			FacultyName:     strings.TrimSpace(row.FacultyName),
			PreferredRoomID: strings.TrimSpace(row.PreferredRoom),
			SeatsNeeded:     row.SeatsNeeded,
			Elective:        row.Elective,
		})
	}
	return out, nil
}

// ReadRooms parses rooms, classifying each as Lab or Classroom.
func ReadRooms(in io.Reader) ([]models.Room, error) {
	var rows []roomRow
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return nil, fmt.Errorf("parse rooms: %w", err)
	}
	out := make([]models.Room, 0, len(rows))
	for i, row := range rows {
		id := strings.TrimSpace(row.RoomID)
		if id == "" {
			return nil, fmt.Errorf("rooms row %d: room_id is required", i+2)
		}
		out = append(out, models.Room{ID: id, Capacity: row.Capacity, Kind: models.NormalizeRoomKind(id, row.RoomType)})
	}
	return out, nil
}

// ReadFaculty parses faculty records.
func ReadFaculty(in io.Reader) ([]models.Faculty, error) {
	var rows []facultyRow
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return nil, fmt.Errorf("parse faculty: %w", err)
	}
	out := make([]models.Faculty, 0, len(rows))
	for i, row := range rows {
		id := strings.TrimSpace(row.FacultyID)
		if id == "" {
			return nil, fmt.Errorf("faculty row %d: faculty_id is required", i+2)
		}
		out = append(out, models.Faculty{
			ID:              id,
			Name:            strings.TrimSpace(row.Name),
			MaxTeachingDays: row.MaxTeachingDays,
			AllowBackToBack: row.AllowBackToBack,
		})
	}
	return out, nil
}

// ReadOverrides parses manual pins.
func ReadOverrides(in io.Reader) ([]models.Override, error) {
	var rows []overrideRow
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}
	out := make([]models.Override, 0, len(rows))
	for i, row := range rows {
		o := models.Override{
			CourseID:  strings.TrimSpace(row.CourseID),
			Component: strings.TrimSpace(row.Component),
			Day:       strings.TrimSpace(row.Day),
			Time:      strings.TrimSpace(row.Time),
			Force:     row.Force,
		}
		if o.CourseID == "" || o.Component == "" || o.Day == "" || o.Time == "" {
			return nil, fmt.Errorf("overrides row %d: course_id, component, day and time are required", i+2)
		}
		out = append(out, o)
	}
	return out, nil
}

// LoadFile opens path and decodes it with read.
func LoadFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return read(f)
}

package models

import (
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableStatus represents lifecycle phases for saved timetables.
type TimetableStatus string

const (
	TimetableStatusDraft     TimetableStatus = "DRAFT"
	TimetableStatusPublished TimetableStatus = "PUBLISHED"
)

// Timetable is a versioned schedule saved for a term. Verdict and Message carry the
// outcome of the run that produced it; Meta keeps the run report.
type Timetable struct {
	ID         string          `db:"id" json:"id"`
	Term       string          `db:"term" json:"term"`
	Version    int             `db:"version" json:"version"`
	Status     TimetableStatus `db:"status" json:"status"`
	Strategy   string          `db:"strategy" json:"strategy"`
	Verdict    string          `db:"verdict" json:"verdict"`
	Message    string          `db:"message" json:"message"`
	ProposalID string          `db:"proposal_id" json:"proposal_id"`
	Meta       types.JSONText  `db:"meta" json:"meta"`
	CreatedBy  *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// TimetablePlacement is one stored placement row. Pattern days are joined with ",".
type TimetablePlacement struct {
	ID          string        `db:"id" json:"id"`
	TimetableID string        `db:"timetable_id" json:"timetable_id"`
	Day         string        `db:"day" json:"day"`
	TimeLabel   string        `db:"time_label" json:"time"`
	SlotID      string        `db:"slot_id" json:"slot_id"`
	CourseID    string        `db:"course_id" json:"course"`
	Component   ComponentKind `db:"component" json:"component"`
	RoomID      string        `db:"room_id" json:"room"`
	Faculty     string        `db:"faculty" json:"faculty"`
	FacultyID   string        `db:"faculty_id" json:"faculty_id,omitempty"`
	GroupName   string        `db:"group_name" json:"group"`
	Pattern     string        `db:"pattern" json:"pattern,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// NewTimetablePlacement converts a placement into a storage row.
func NewTimetablePlacement(timetableID string, p Placement) TimetablePlacement {
	return TimetablePlacement{
		TimetableID: timetableID,
		Day:         p.Day,
		TimeLabel:   p.Time,
		SlotID:      p.SlotID,
		CourseID:    p.CourseID,
		Component:   p.Kind,
		RoomID:      p.RoomID,
		Faculty:     p.Faculty,
		FacultyID:   p.FacultyID,
		GroupName:   p.Group,
		Pattern:     strings.Join(p.Pattern, ","),
	}
}

// Placement converts a stored row back into a placement.
func (r TimetablePlacement) Placement() Placement {
	p := Placement{
		Day:       r.Day,
		Time:      r.TimeLabel,
		CourseID:  r.CourseID,
		Kind:      r.Component,
		RoomID:    r.RoomID,
		Faculty:   r.Faculty,
		FacultyID: r.FacultyID,
		Group:     r.GroupName,
		SlotID:    r.SlotID,
	}
	if r.Pattern != "" {
		p.Pattern = strings.Split(r.Pattern, ",")
	}
	return p
}

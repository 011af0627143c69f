package models

import "strings"

// ComponentKind is the canonical teaching activity type.
type ComponentKind string

const (
	KindLecture   ComponentKind = "L"
	KindTutorial  ComponentKind = "T"
	KindPractical ComponentKind = "P"
)

// Valid reports whether the kind is one of the canonical values.
func (k ComponentKind) Valid() bool {
	switch k {
	case KindLecture, KindTutorial, KindPractical:
		return true
	}
	return false
}

// CourseComponent is one teachable unit of a course. Kind may still hold the raw
// ingestion label ("LEC1", "Lab"); the engine canonicalizes it before use.
type CourseComponent struct {
	ID              string        `json:"id" validate:"required"`
	Kind            ComponentKind `json:"kind" validate:"required"`
	DurationHours   float64       `json:"duration_hours" validate:"omitempty,min=0"`
	StudentGroup    string        `json:"student_group"`
	FacultyID       string        `json:"faculty_id"`
	FacultyName     string        `json:"faculty_name"`
	PreferredRoomID string        `json:"preferred_room_id,omitempty"`
	SeatsNeeded     int           `json:"seats_needed" validate:"omitempty,min=0"`
	Elective        bool          `json:"elective,omitempty"`
}

// FacultyLabel is the human readable faculty value carried into placements.
func (c CourseComponent) FacultyLabel() string {
	if c.FacultyName != "" {
		return c.FacultyName
	}
	return c.FacultyID
}

// RoomKind distinguishes general classrooms from laboratories.
type RoomKind string

const (
	RoomClassroom RoomKind = "Classroom"
	RoomLab       RoomKind = "Lab"
)

// Room is a bookable teaching space.
type Room struct {
	ID       string   `json:"id" validate:"required"`
	Capacity int      `json:"capacity" validate:"omitempty,min=0"`
	Kind     RoomKind `json:"kind"`
}

// IsLab reports whether the room can host practicals.
func (r Room) IsLab() bool {
	return r.Kind == RoomLab
}

// NormalizeRoomKind maps a free-form room type to Lab or Classroom. Rooms whose id
// mentions "lab" are labs regardless of the declared type.
func NormalizeRoomKind(id, raw string) RoomKind {
	if strings.Contains(strings.ToLower(id), "lab") || strings.Contains(strings.ToLower(raw), "lab") {
		return RoomLab
	}
	return RoomClassroom
}

// DefaultMaxTeachingDays applies when a faculty record carries no cap.
const DefaultMaxTeachingDays = 5

// Faculty describes a teaching staff member.
type Faculty struct {
	ID              string `json:"id" validate:"required"`
	Name            string `json:"name"`
	MaxTeachingDays int    `json:"max_teaching_days" validate:"omitempty,min=0,max=7"`
	AllowBackToBack bool   `json:"allow_back_to_back"`
}

// TeachingDayCap returns the effective cap on teaching days.
func (f Faculty) TeachingDayCap() int {
	if f.MaxTeachingDays <= 0 {
		return DefaultMaxTeachingDays
	}
	return f.MaxTeachingDays
}

// Override pins a course component to a day and time.
type Override struct {
	CourseID  string `json:"course_id" validate:"required"`
	Component string `json:"component" validate:"required"`
	Day       string `json:"day" validate:"required"`
	Time      string `json:"time" validate:"required"`
	Force     bool   `json:"force"`
}

// Placement is one resolved assignment in a schedule. Pattern lists every day of a
// repeating meeting pattern (Mon/Wed/Fri, Tue/Thu); Day is its first day.
type Placement struct {
	Day       string        `json:"day"`
	Time      string        `json:"time"`
	CourseID  string        `json:"course"`
	Kind      ComponentKind `json:"component"`
	RoomID    string        `json:"room"`
	Faculty   string        `json:"faculty"`
	FacultyID string        `json:"faculty_id,omitempty"`
	Group     string        `json:"group"`
	SlotID    string        `json:"slot_id,omitempty"`
	Pattern   []string      `json:"pattern,omitempty"`
}

// Days returns every day the placement meets on.
func (p Placement) Days() []string {
	if len(p.Pattern) > 0 {
		return p.Pattern
	}
	return []string{p.Day}
}

// Key returns the (course, component) identity of the placement.
func (p Placement) Key() ComponentKey {
	return ComponentKey{CourseID: p.CourseID, Kind: p.Kind}
}

// ComponentKey identifies a course component for scheduling purposes.
type ComponentKey struct {
	CourseID string        `json:"course"`
	Kind     ComponentKind `json:"component"`
}

// String renders the key as "CS101 (L)".
func (k ComponentKey) String() string {
	return k.CourseID + " (" + string(k.Kind) + ")"
}

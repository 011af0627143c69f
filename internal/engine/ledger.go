package engine

import (
	"errors"

	"github.com/samber/lo"

	"github.com/noah-isme/timetable-api/internal/models"
)

// ErrIncompleteOccupant is returned when a commit lacks a course identity or room.
var ErrIncompleteOccupant = errors.New("occupant requires course id, component and room")

// SlotKey addresses one exclusivity cell: a day and an overlap group.
type SlotKey struct {
	Day   string
	Group string
}

// Occupant is everything a single placement holds on a slot key.
type Occupant struct {
	Key          models.ComponentKey
	RoomID       string
	FacultyID    string
	StudentGroup string
}

// held is an occupant together with the slot it was committed on.
type held struct {
	Occupant
	slot Slot
}

// Ledger tracks which rooms, faculty and student groups are committed per slot key.
// A slot is blocked by every occupant of its own group and by occupants of the groups
// it reaches whose slot intersects it. A ledger belongs to one run; Commit, Release
// and EvictAll are its only mutators.
type Ledger struct {
	cells map[SlotKey][]held
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{cells: make(map[SlotKey][]held)}
}

// Reset drops every commitment.
func (l *Ledger) Reset() {
	l.cells = make(map[SlotKey][]held)
}

// blocking calls fn for every occupant that clashes with the slot on the day and stops
// at the first true.
func (l *Ledger) blocking(day string, slot Slot, fn func(Occupant) bool) bool {
	return lo.SomeBy(slot.cells(), func(group string) bool {
		return lo.SomeBy(l.cells[SlotKey{Day: day, Group: group}], func(h held) bool {
			return slot.Clashes(h.slot) && fn(h.Occupant)
		})
	})
}

// IsFree reports whether the room, faculty member and student group are all free for
// the slot on the day. Empty faculty or group ids are not tracked.
func (l *Ledger) IsFree(day string, slot Slot, roomID, facultyID, studentGroup string) bool {
	return !l.blocking(day, slot, func(occ Occupant) bool {
		return occ.RoomID == roomID ||
			(facultyID != "" && occ.FacultyID == facultyID) ||
			(studentGroup != "" && occ.StudentGroup == studentGroup)
	})
}

// RoomBusy reports whether the room alone is committed against the slot on the day.
func (l *Ledger) RoomBusy(day string, slot Slot, roomID string) bool {
	return l.blocking(day, slot, func(occ Occupant) bool { return occ.RoomID == roomID })
}

// Commit records the occupant on the slot's key. An incomplete occupant writes nothing.
func (l *Ledger) Commit(day string, slot Slot, occ Occupant) error {
	if occ.Key.CourseID == "" || occ.Key.Kind == "" || occ.RoomID == "" {
		return ErrIncompleteOccupant
	}
	key := SlotKey{Day: day, Group: slot.Group}
	l.cells[key] = append(l.cells[key], held{Occupant: occ, slot: slot})
	return nil
}

// Release removes a single component from the key. It reports whether the component
// was present.
func (l *Ledger) Release(day, group string, key models.ComponentKey) bool {
	sk := SlotKey{Day: day, Group: group}
	cell := l.cells[sk]
	_, i, ok := lo.FindIndexOf(cell, func(h held) bool { return h.Key == key })
	if !ok {
		return false
	}
	l.store(sk, append(append([]held(nil), cell[:i]...), cell[i+1:]...))
	return true
}

// EvictAll clears every occupant that clashes with the slot on the day and returns
// their identities, own group first, each cell in commit order.
func (l *Ledger) EvictAll(day string, slot Slot) []models.ComponentKey {
	var evicted []models.ComponentKey
	for _, group := range slot.cells() {
		sk := SlotKey{Day: day, Group: group}
		clash := func(h held, _ int) bool { return slot.Clashes(h.slot) }
		evicted = append(evicted, lo.Map(lo.Filter(l.cells[sk], clash), func(h held, _ int) models.ComponentKey {
			return h.Key
		})...)
		l.store(sk, lo.Reject(l.cells[sk], clash))
	}
	return evicted
}

// store replaces the cell, dropping the key once it is empty.
func (l *Ledger) store(sk SlotKey, cell []held) {
	if len(cell) == 0 {
		delete(l.cells, sk)
		return
	}
	l.cells[sk] = cell
}

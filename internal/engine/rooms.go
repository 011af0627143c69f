package engine

import (
	"github.com/samber/lo"

	"github.com/noah-isme/timetable-api/internal/models"
)

// SelectRoom picks a free room for the component in the slot on the day. It tries the
// preferred room, then rooms of the matching type (labs for practicals, non-labs
// otherwise), then any free room. ok is false only when every room is taken.
func SelectRoom(course models.CourseComponent, kind models.ComponentKind, rooms []models.Room, day string, slot Slot, ledger *Ledger) (string, bool) {
	free := func(r models.Room) bool { return !ledger.RoomBusy(day, slot, r.ID) }

	if course.PreferredRoomID != "" {
		if r, ok := lo.Find(rooms, func(r models.Room) bool { return r.ID == course.PreferredRoomID && free(r) }); ok {
			return r.ID, true
		}
	}

	wantLab := kind == models.KindPractical
	if r, ok := lo.Find(rooms, func(r models.Room) bool { return r.IsLab() == wantLab && free(r) }); ok {
		return r.ID, true
	}

	return FirstFreeRoom(rooms, day, slot, ledger)
}

// FirstFreeRoom returns the first room in input order not committed against the slot.
func FirstFreeRoom(rooms []models.Room, day string, slot Slot, ledger *Ledger) (string, bool) {
	r, ok := lo.Find(rooms, func(r models.Room) bool { return !ledger.RoomBusy(day, slot, r.ID) })
	return r.ID, ok
}

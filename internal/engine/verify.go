package engine

import (
	"fmt"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Violation codes reported by Verify.
const (
	ViolationDuplicate   = "duplicate_component"
	ViolationUnknownSlot = "unknown_slot"
	ViolationIneligible  = "ineligible_slot"
	ViolationRoomClash   = "room_clash"
	ViolationFaculty     = "faculty_clash"
	ViolationGroup       = "group_clash"
)

// Violation is a broken schedule invariant.
type Violation struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Key     models.ComponentKey `json:"key"`
}

func (v Violation) Error() string { return v.Message }

// Verify checks a schedule against the catalog: every identity appears once, every
// placement sits in a slot eligible for its kind, and no two placements share a room,
// faculty member or student group in clashing slots on the same day.
func Verify(catalog *Catalog, schedule []models.Placement) []Violation {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	var out []Violation
	seen := make(map[models.ComponentKey]struct{}, len(schedule))
	type claimed struct {
		placement models.Placement
		slot      Slot
	}
	cells := make(map[SlotKey][]claimed)

	clash := func(day string, p, other models.Placement) {
		report := func(code, what, value string) {
			out = append(out, Violation{
				Code:    code,
				Key:     p.Key(),
				Message: fmt.Sprintf("%s %s double booked on %s by %s (%s) and %s (%s)", what, value, day, other.Key(), other.Time, p.Key(), p.Time),
			})
		}
		if p.RoomID != "" && p.RoomID == other.RoomID {
			report(ViolationRoomClash, "room", p.RoomID)
		}
		if p.FacultyID != "" && p.FacultyID == other.FacultyID {
			report(ViolationFaculty, "faculty", p.FacultyID)
		}
		if p.Group != "" && p.Group == other.Group {
			report(ViolationGroup, "group", p.Group)
		}
	}

	for _, p := range schedule {
		key := p.Key()
		if _, dup := seen[key]; dup {
			out = append(out, Violation{Code: ViolationDuplicate, Key: key, Message: fmt.Sprintf("%s placed more than once", key)})
			continue
		}
		seen[key] = struct{}{}

		slot, ok := placementSlot(catalog, p)
		if !ok {
			out = append(out, Violation{Code: ViolationUnknownSlot, Key: key, Message: fmt.Sprintf("%s: %s on %s is not a catalog slot", key, p.Time, p.Day)})
			continue
		}
		if !slot.Allows(p.Kind) {
			out = append(out, Violation{Code: ViolationIneligible, Key: key, Message: fmt.Sprintf("%s: slot %s does not allow %s", key, slot.ID, p.Kind)})
		}
		for _, day := range p.Days() {
			if !slot.On(day) {
				out = append(out, Violation{Code: ViolationUnknownSlot, Key: key, Message: fmt.Sprintf("%s: slot %s does not run on %s", key, slot.ID, day)})
				continue
			}
			for _, group := range slot.cells() {
				for _, c := range cells[SlotKey{Day: day, Group: group}] {
					if slot.Clashes(c.slot) {
						clash(day, p, c.placement)
					}
				}
			}
			sk := SlotKey{Day: day, Group: slot.Group}
			cells[sk] = append(cells[sk], claimed{placement: p, slot: slot})
		}
	}
	return out
}

// placementSlot prefers the recorded slot id and falls back to the label on the day.
func placementSlot(catalog *Catalog, p models.Placement) (Slot, bool) {
	if p.SlotID != "" {
		if slot, ok := catalog.Lookup(p.SlotID); ok && slot.Label() == p.Time {
			return slot, true
		}
	}
	for _, s := range catalog.slots {
		if s.Label() == p.Time && s.On(p.Day) && s.Allows(p.Kind) {
			return s, true
		}
	}
	return catalog.SlotByLabel(p.Day, p.Time)
}

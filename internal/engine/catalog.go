package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Weekdays lists the teaching days in calendar order.
var Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri"}

var dayOrder = map[string]int{"Mon": 0, "Tue": 1, "Wed": 2, "Thu": 3, "Fri": 4, "Sat": 5, "Sun": 6}

// DayIndex returns the calendar position of a short day name, or -1.
func DayIndex(day string) int {
	if idx, ok := dayOrder[day]; ok {
		return idx
	}
	return -1
}

// Slot is one teachable window of the institutional grid.
type Slot struct {
	ID    string                 `json:"slot_id"`
	Days  []string               `json:"days"`
	Start string                 `json:"start"`
	End   string                 `json:"end"`
	Kinds []models.ComponentKind `json:"allowed_components"`
	Group string                 `json:"overlap_group"`

	startMin int
	endMin   int
	// groups other than Group holding a slot that intersects this one on a shared day
	reach []string
}

// Label renders the slot as "HH:MM-HH:MM".
func (s Slot) Label() string {
	return s.Start + "-" + s.End
}

// Allows reports whether the slot may host the kind.
func (s Slot) Allows(kind models.ComponentKind) bool {
	return lo.Contains(s.Kinds, kind)
}

// On reports whether the slot runs on the day.
func (s Slot) On(day string) bool {
	return lo.Contains(s.Days, day)
}

// StartMinutes returns the start time as minutes since midnight.
func (s Slot) StartMinutes() int { return s.startMin }

// EndMinutes returns the end time as minutes since midnight.
func (s Slot) EndMinutes() int { return s.endMin }

// Catalog is the read-only slot grid with overlap groups computed at load time.
type Catalog struct {
	slots   []Slot
	byID    map[string]int
	groups  []string
	members map[string][]int
}

// NewCatalog validates the slots and assigns every slot its overlap group: the slot id
// with the LONG marker and kind suffix removed. Slots of one group are mutually
// exclusive. Each slot also records the other groups it intersects in wall-clock time
// on a shared day; those clashes are checked per slot and never merge groups.
func NewCatalog(slots []Slot) (*Catalog, error) {
	c := &Catalog{
		slots:   make([]Slot, len(slots)),
		byID:    make(map[string]int, len(slots)),
		members: make(map[string][]int),
	}
	copy(c.slots, slots)

	for i := range c.slots {
		s := &c.slots[i]
		if s.ID == "" {
			return nil, fmt.Errorf("slot %d: id is required", i)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("slot %s: duplicate id", s.ID)
		}
		start, err := ParseClock(s.Start)
		if err != nil {
			return nil, fmt.Errorf("slot %s: start: %w", s.ID, err)
		}
		end, err := ParseClock(s.End)
		if err != nil {
			return nil, fmt.Errorf("slot %s: end: %w", s.ID, err)
		}
		if end <= start {
			return nil, fmt.Errorf("slot %s: end %s not after start %s", s.ID, s.End, s.Start)
		}
		for _, day := range s.Days {
			if DayIndex(day) < 0 {
				return nil, fmt.Errorf("slot %s: unknown day %q", s.ID, day)
			}
		}
		for _, kind := range s.Kinds {
			if !kind.Valid() {
				return nil, fmt.Errorf("slot %s: unknown component %q", s.ID, kind)
			}
		}
		s.Days = append([]string(nil), s.Days...)
		s.Kinds = append([]models.ComponentKind(nil), s.Kinds...)
		s.startMin, s.endMin = start, end
		c.byID[s.ID] = i
	}

	c.assignGroups()
	return c, nil
}

func (c *Catalog) assignGroups() {
	for i := range c.slots {
		group := baseID(c.slots[i].ID)
		c.slots[i].Group = group
		if _, seen := c.members[group]; !seen {
			c.groups = append(c.groups, group)
		}
		c.members[group] = append(c.members[group], i)
	}

	// reach follows catalog group order
	for i := range c.slots {
		s := &c.slots[i]
		s.reach = nil
		for _, group := range c.groups {
			if group == s.Group {
				continue
			}
			for _, idx := range c.members[group] {
				if s.overlaps(c.slots[idx]) {
					s.reach = append(s.reach, group)
					break
				}
			}
		}
	}
}

// Clashes reports whether two slots may not hold the same room, faculty member or
// student group on a day both run: they share an overlap group, or their spans
// intersect.
func (s Slot) Clashes(o Slot) bool {
	if s.Group != "" && s.Group == o.Group {
		return true
	}
	return s.startMin < o.endMin && o.startMin < s.endMin
}

// Conflicts returns the overlap groups, other than its own, that hold a slot
// intersecting this one on a shared day.
func (s Slot) Conflicts() []string {
	return append([]string(nil), s.reach...)
}

// cells returns the slot's own group followed by the groups it reaches.
func (s Slot) cells() []string {
	return append([]string{s.Group}, s.reach...)
}

func (s Slot) overlaps(o Slot) bool {
	if s.startMin >= o.endMin || o.startMin >= s.endMin {
		return false
	}
	for _, day := range s.Days {
		if o.On(day) {
			return true
		}
	}
	return false
}

var kindSuffixes = []string{"_LAB", "_L", "_T", "_P"}

// baseID strips the extended-duration marker and the component suffix.
func baseID(id string) string {
	base := strings.Replace(id, "_LONG", "", 1)
	for _, suffix := range kindSuffixes {
		if strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix)
		}
	}
	return base
}

// Slots returns a copy of every slot in catalog order.
func (c *Catalog) Slots() []Slot {
	out := make([]Slot, len(c.slots))
	copy(out, c.slots)
	return out
}

// SlotsFor returns the slots that allow the kind, in catalog order.
func (c *Catalog) SlotsFor(kind models.ComponentKind) []Slot {
	return lo.Filter(c.slots, func(s Slot, _ int) bool { return s.Allows(kind) })
}

// OverlapGroup returns the exclusivity key of the slot.
func (c *Catalog) OverlapGroup(slot Slot) string {
	if idx, ok := c.byID[slot.ID]; ok {
		return c.slots[idx].Group
	}
	return baseID(slot.ID)
}

// Label returns the "start-end" label of the slot.
func (c *Catalog) Label(slot Slot) string {
	return slot.Label()
}

// Lookup finds a slot by id.
func (c *Catalog) Lookup(id string) (Slot, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Slot{}, false
	}
	return c.slots[idx], true
}

// SlotByLabel maps a day and "HH:MM-HH:MM" label back to the first matching slot.
func (c *Catalog) SlotByLabel(day, label string) (Slot, bool) {
	for _, s := range c.slots {
		if s.On(day) && s.Label() == label {
			return s, true
		}
	}
	return Slot{}, false
}

// GroupWindow is the wall-clock extent of an overlap group on a day.
type GroupWindow struct {
	Group string
	Start int
	End   int
}

// GroupsOn returns the teaching groups running on the day ordered by start time.
// Groups made only of blocked slots are left out.
func (c *Catalog) GroupsOn(day string) []GroupWindow {
	var windows []GroupWindow
	for _, group := range c.groups {
		w := GroupWindow{Group: group, Start: -1}
		for _, idx := range c.members[group] {
			s := c.slots[idx]
			if !s.On(day) || len(s.Kinds) == 0 {
				continue
			}
			if w.Start < 0 || s.startMin < w.Start {
				w.Start = s.startMin
			}
			if s.endMin > w.End {
				w.End = s.endMin
			}
		}
		if w.Start >= 0 {
			windows = append(windows, w)
		}
	}
	sort.SliceStable(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })
	return windows
}

// Days returns every day covered by the catalog in calendar order.
func (c *Catalog) Days() []string {
	seen := make(map[string]struct{})
	for _, s := range c.slots {
		for _, d := range s.Days {
			seen[d] = struct{}{}
		}
	}
	days := lo.Keys(seen)
	sort.Slice(days, func(i, j int) bool { return DayIndex(days[i]) < DayIndex(days[j]) })
	return days
}

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", raw)
	}
	return h*60 + m, nil
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the institutional grid. It panics only if the built-in table
// is malformed, which the tests guard against.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := NewCatalog(DefaultSlots())
		if err != nil {
			panic(fmt.Sprintf("engine: default slot table invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

var (
	mwf = []string{"Mon", "Wed", "Fri"}
	tth = []string{"Tue", "Thu"}

	lec  = []models.ComponentKind{models.KindLecture}
	tut  = []models.ComponentKind{models.KindTutorial}
	prac = []models.ComponentKind{models.KindPractical}
)

// DefaultSlots is the hand-curated teaching grid (Spring 2026 onwards).
func DefaultSlots() []Slot {
	return []Slot{
		// Mon/Wed/Fri mornings
		{ID: "MWF_1_L", Days: mwf, Start: "08:00", End: "08:55", Kinds: lec},
		{ID: "MWF_2_L", Days: mwf, Start: "09:05", End: "10:00", Kinds: lec},
		{ID: "MWF_3_L", Days: mwf, Start: "10:10", End: "11:05", Kinds: lec},
		{ID: "MWF_1_LONG_L", Days: mwf, Start: "08:00", End: "09:25", Kinds: lec},
		{ID: "MWF_3_LONG_L", Days: mwf, Start: "10:10", End: "11:35", Kinds: lec},

		// common curriculum band, no teaching
		{ID: "MWF_CCC", Days: mwf, Start: "11:45", End: "12:40"},

		// Mon/Wed/Fri afternoons
		{ID: "MWF_4_L", Days: mwf, Start: "13:00", End: "13:55", Kinds: lec},
		{ID: "MWF_4_LONG_L", Days: mwf, Start: "13:00", End: "14:25", Kinds: lec},
		{ID: "MWF_4_LAB", Days: mwf, Start: "13:00", End: "14:55", Kinds: prac},
		{ID: "MWF_5_L", Days: mwf, Start: "14:05", End: "15:00", Kinds: lec},
		{ID: "MWF_6_LAB", Days: mwf, Start: "15:05", End: "17:00", Kinds: prac},
		{ID: "MWF_6_L", Days: mwf, Start: "15:10", End: "16:05", Kinds: lec},
		{ID: "MWF_6_LONG_L", Days: mwf, Start: "15:10", End: "16:35", Kinds: lec},
		{ID: "MWF_7_L", Days: mwf, Start: "16:15", End: "17:10", Kinds: lec},

		// Mon/Wed/Fri evening tutorials
		{ID: "MWF_8_T", Days: mwf, Start: "17:10", End: "18:05", Kinds: tut},
		{ID: "MWF_9_T", Days: mwf, Start: "18:15", End: "19:10", Kinds: tut},

		// Tue/Thu
		{ID: "TTH_1_LONG_L", Days: tth, Start: "08:00", End: "09:25", Kinds: lec},
		{ID: "TTH_1_L", Days: tth, Start: "08:00", End: "08:55", Kinds: lec},
		{ID: "TTH_2_LONG_L", Days: tth, Start: "09:35", End: "11:00", Kinds: lec},
		{ID: "TTH_2_L", Days: tth, Start: "09:35", End: "10:30", Kinds: lec},
		{ID: "TTH_3_LONG_L", Days: tth, Start: "11:10", End: "12:35", Kinds: lec},
		{ID: "TTH_3_L", Days: tth, Start: "11:10", End: "12:05", Kinds: lec},
		// Thursday university slot also hosts practicals
		{ID: "TTH_4_LONG_L", Days: tth, Start: "12:45", End: "14:10", Kinds: []models.ComponentKind{models.KindLecture, models.KindPractical}},
		{ID: "TTH_4_L", Days: tth, Start: "12:45", End: "13:40", Kinds: lec},
		{ID: "TTH_5_LONG_L", Days: tth, Start: "14:10", End: "15:35", Kinds: lec},
		{ID: "TTH_5_L", Days: tth, Start: "14:10", End: "15:05", Kinds: lec},
		{ID: "TTH_6_LONG_L", Days: tth, Start: "15:45", End: "17:10", Kinds: lec},
		{ID: "TTH_6_L", Days: tth, Start: "15:45", End: "16:40", Kinds: lec},

		// Tue/Thu evening tutorials
		{ID: "TTH_7_T", Days: tth, Start: "17:20", End: "18:15", Kinds: tut},
		{ID: "TTH_8_T", Days: tth, Start: "18:25", End: "19:20", Kinds: tut},
	}
}

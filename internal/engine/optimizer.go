package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-air/gini/z"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
)

// SolverBudget bounds the wall-clock time of one optimizer run.
const SolverBudget = 15 * time.Second

// roomCandidateLimit caps the rooms offered to one component. Larger pools are
// sampled per component so the model stays linear in the number of rooms.
const roomCandidateLimit = 8

// errModelBudget stops model construction once the solver budget is spent.
var errModelBudget = errors.New("solver budget exhausted while building the model")

// adjacencyGap is the largest break between two overlap groups that still counts as
// back-to-back teaching.
const adjacencyGap = 15

var (
	patternMWF = []string{"Mon", "Wed", "Fri"}
	patternTTH = []string{"Tue", "Thu"}
)

// DiagGroupUnknown flags a component whose student group is missing from Input.Groups.
const DiagGroupUnknown = "group_unknown"

// Optimizer encodes the problem as SAT and searches for a complete assignment of
// minimum penalty. It never returns a partial schedule.
type Optimizer struct {
	logger           *zap.Logger
	forbidBackToBack bool
	budget           time.Duration
}

// NewOptimizer constructs the optimizer strategy.
func NewOptimizer(opts Options) *Optimizer {
	return &Optimizer{
		logger:           opts.logger(),
		forbidBackToBack: opts.ForbidBackToBack,
		budget:           SolverBudget,
	}
}

// Name implements Strategy.
func (o *Optimizer) Name() string { return StrategyOptimizer }

// option is one way to place a component: a slot and room on one day, or on every day
// of a meeting pattern.
type option struct {
	unit    int
	slot    Slot
	room    string
	days    []string
	lit     z.Lit
	dayLits []z.Lit
	penalty int
}

// usage is every literal that puts one resource into one cell, split by slot.
type usage struct {
	lits   []z.Lit
	slots  []Slot
	bySlot map[string][]z.Lit
	held   map[string]z.Lit
}

// occupancy is one (day, overlap group) cell. Resources are namespaced keys such as
// "room:R1" and keep first-seen order.
type occupancy struct {
	order []string
	uses  map[string]*usage
}

func (o *occupancy) add(resource string, slot Slot, lit z.Lit) {
	u := o.uses[resource]
	if u == nil {
		u = &usage{bySlot: make(map[string][]z.Lit), held: make(map[string]z.Lit)}
		o.uses[resource] = u
		o.order = append(o.order, resource)
	}
	if _, seen := u.bySlot[slot.ID]; !seen {
		u.slots = append(u.slots, slot)
	}
	u.lits = append(u.lits, lit)
	u.bySlot[slot.ID] = append(u.bySlot[slot.ID], lit)
}

// override selector; forced overrides are hard clauses, the rest are assumed and
// dropped when they turn out to conflict.
type selector struct {
	lit   z.Lit
	key   models.ComponentKey
	label string
}

type model struct {
	ctx       context.Context
	deadline  time.Time
	cnf       *cnf
	catalog   *Catalog
	units     []unit
	options   []option
	byUnit    [][]int
	occupied  map[SlotKey]*occupancy
	cellOrder []SlotKey
	selectors []selector
	penalties []z.Lit
	first     map[string]string
	last      map[string]string
	diags     []Diagnostic
	snapped   int
}

// Solve implements Strategy.
func (o *Optimizer) Solve(ctx context.Context, in Input) (*Result, error) {
	started := time.Now()
	catalog := in.catalog()
	canon := NewCanonicalizer()
	all, keys := prepare(in.Courses, canon)

	// the first record of every identity is the one scheduled
	units := lo.UniqBy(all, func(u unit) models.ComponentKey { return u.key() })

	m := &model{
		ctx:      ctx,
		deadline: started.Add(o.budget),
		cnf:      newCNF(),
		catalog:  catalog,
		units:    units,
		byUnit:   make([][]int, len(units)),
		occupied: make(map[SlotKey]*occupancy),
	}
	m.checkGroups(in.Groups)

	result := &Result{
		Schedule: []models.Placement{},
		Report: Report{
			Strategy:        StrategyOptimizer,
			Total:           len(keys),
			Defaulted:       canon.Defaulted(),
			DefaultedLabels: canon.DefaultedLabels(),
		},
	}
	for _, label := range canon.DefaultedLabels() {
		m.diags = append(m.diags, Diagnostic{
			Code:    DiagComponentDefaulted,
			Message: fmt.Sprintf("component label %q not recognised, treated as lecture", label),
		})
	}
	finish := func(status Status, message string) (*Result, error) {
		result.Status = status
		result.Message = message
		result.Diagnostics = m.diags
		result.Report.Snapped = m.snapped
		result.Report.Duration = time.Since(started)
		result.Report.Summary = Summarize(result.Schedule)
		if !status.Usable() {
			result.Missing = keys
		}
		o.logger.Debug("optimizer run finished",
			zap.String("status", string(status)),
			zap.Int("options", len(m.options)),
			zap.Int("penalty", result.Report.Penalty),
			zap.Duration("duration", result.Report.Duration),
		)
		return result, nil
	}

	if len(units) == 0 {
		return finish(StatusFail, "No course components to schedule.")
	}

	if err := m.buildOptions(in.Rooms); err != nil {
		return o.halt(err, finish)
	}
	if empty := m.unplaceable(); len(empty) > 0 {
		names := lo.Map(empty, func(k models.ComponentKey, _ int) string { return k.String() })
		return finish(StatusNoResult, fmt.Sprintf("NO RESULT: no eligible slot and room for %s", joinPreview(names)))
	}

	steps := []func() error{
		m.encodePlacement,
		func() error { return m.encodeFacultyDays(in.Faculty) },
	}
	if o.forbidBackToBack {
		steps = append(steps, func() error { return m.encodeBackToBack(in.Faculty) })
	}
	steps = append(steps,
		func() error { return m.encodeOverrides(in.Overrides) },
		m.encodePenalties,
	)
	for _, step := range steps {
		if err := step(); err != nil {
			return o.halt(err, finish)
		}
	}

	deadline := m.deadline
	active := lo.Map(m.selectors, func(s selector, _ int) z.Lit { return s.lit })

	// feasibility, dropping conflicting non-forced overrides one batch at a time
	var best []bool
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := m.solve(deadline, active)
		if res == 1 {
			best = m.snapshot()
			break
		}
		if res == 0 {
			return finish(StatusNoResult, "NO RESULT: solver budget exhausted before a feasible timetable was found.")
		}
		var dropped bool
		active, dropped = m.dropSelectors(active, m.cnf.g.Why(nil))
		if !dropped {
			return finish(StatusNoResult, "NO RESULT: the hard constraints admit no complete timetable.")
		}
	}

	// tighten the penalty bound until the solver proves optimality or runs out of time
	cost := m.cost(best)
	if cost > 0 && len(m.penalties) > 0 {
		bound := m.cnf.counter(m.penalties, cost)
		for cost > 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res := m.solve(deadline, append(append([]z.Lit(nil), active...), bound[cost-1].Not()))
			if res != 1 {
				break
			}
			best = m.snapshot()
			cost = m.cost(best)
		}
	}

	result.Schedule = m.decode(best)
	SortSchedule(result.Schedule)
	result.Report.Placed = len(result.Schedule)
	result.Report.Penalty = cost
	placed := lo.SliceToMap(result.Schedule, func(p models.Placement) (models.ComponentKey, bool) { return p.Key(), true })
	status, message, missing := verdict(keys, placed, len(result.Schedule))
	result.Missing = missing
	return finish(status, message)
}

// halt turns a construction stop into the caller's error or a budget verdict.
func (o *Optimizer) halt(err error, finish func(Status, string) (*Result, error)) (*Result, error) {
	if errors.Is(err, errModelBudget) {
		return finish(StatusNoResult, "NO RESULT: "+err.Error()+".")
	}
	return nil, err
}

// halted reports why model construction must stop, if it must.
func (m *model) halted() error {
	if err := m.ctx.Err(); err != nil {
		return err
	}
	if !time.Now().Before(m.deadline) {
		return errModelBudget
	}
	return nil
}

func (m *model) checkGroups(groups []string) {
	if len(groups) == 0 {
		return
	}
	known := lo.SliceToMap(groups, func(g string) (string, struct{}) { return g, struct{}{} })
	reported := make(map[string]struct{})
	for _, u := range m.units {
		g := u.course.StudentGroup
		if g == "" {
			continue
		}
		if _, ok := known[g]; ok {
			continue
		}
		if _, ok := reported[g]; ok {
			continue
		}
		reported[g] = struct{}{}
		m.diags = append(m.diags, Diagnostic{
			Code:     DiagGroupUnknown,
			Message:  fmt.Sprintf("student group %q is not in the declared group list", g),
			CourseID: u.course.ID,
			Kind:     u.kind,
		})
	}
}

// eligibleRooms applies kind and capacity rules. A capacity or seat count of zero is
// treated as unknown and never excludes a room.
func eligibleRooms(u unit, rooms []models.Room) []models.Room {
	fits := func(r models.Room) bool {
		return u.course.SeatsNeeded <= 0 || r.Capacity <= 0 || r.Capacity >= u.course.SeatsNeeded
	}
	if u.kind == models.KindPractical {
		return lo.Filter(rooms, func(r models.Room, _ int) bool { return r.IsLab() && fits(r) })
	}
	classrooms := lo.Filter(rooms, func(r models.Room, _ int) bool { return !r.IsLab() && fits(r) })
	if len(classrooms) > 0 {
		return classrooms
	}
	return lo.Filter(rooms, func(r models.Room, _ int) bool { return fits(r) })
}

// meetingPattern returns the fixed days a lecture must repeat on, or nil.
func meetingPattern(u unit) []string {
	if u.kind != models.KindLecture {
		return nil
	}
	switch {
	case u.course.DurationHours >= 3:
		return patternMWF
	case u.course.DurationHours >= 1.5:
		return patternTTH
	}
	return nil
}

// candidateRooms narrows the eligible rooms to roomCandidateLimit: the preferred room
// first, then a window over the rest that starts at an offset derived from the unit
// index so components spread over the whole pool.
func candidateRooms(ui int, u unit, rooms []models.Room) []models.Room {
	eligible := eligibleRooms(u, rooms)
	if len(eligible) <= roomCandidateLimit {
		return eligible
	}
	out := make([]models.Room, 0, roomCandidateLimit)
	rest := eligible
	if pref, idx, ok := lo.FindIndexOf(eligible, func(r models.Room) bool { return r.ID == u.course.PreferredRoomID }); ok {
		out = append(out, pref)
		rest = append(append([]models.Room(nil), eligible[:idx]...), eligible[idx+1:]...)
	}
	offset := (ui * roomCandidateLimit) % len(rest)
	for k := 0; len(out) < roomCandidateLimit; k++ {
		out = append(out, rest[(offset+k)%len(rest)])
	}
	return out
}

func (m *model) buildOptions(rooms []models.Room) error {
	for ui, u := range m.units {
		if err := m.halted(); err != nil {
			return err
		}
		candidates := candidateRooms(ui, u, rooms)
		pattern := meetingPattern(u)
		for _, slot := range m.catalog.SlotsFor(u.kind) {
			if pattern != nil {
				if !lo.Every(slot.Days, pattern) {
					continue
				}
				for _, r := range candidates {
					m.addOption(ui, slot, r.ID, pattern)
				}
				continue
			}
			for _, day := range slot.Days {
				for _, r := range candidates {
					m.addOption(ui, slot, r.ID, []string{day})
				}
			}
		}
	}
	return nil
}

func (m *model) addOption(ui int, slot Slot, roomID string, days []string) {
	opt := option{unit: ui, slot: slot, room: roomID, days: days, lit: m.cnf.lit()}
	if len(days) == 1 {
		opt.dayLits = []z.Lit{opt.lit}
	} else {
		for range days {
			d := m.cnf.lit()
			m.cnf.equal(opt.lit, d)
			opt.dayLits = append(opt.dayLits, d)
		}
		// same slot and room on consecutive pattern days
		for i := 1; i < len(opt.dayLits); i++ {
			m.cnf.equal(opt.dayLits[i-1], opt.dayLits[i])
		}
	}
	m.byUnit[ui] = append(m.byUnit[ui], len(m.options))
	m.options = append(m.options, opt)
}

func (m *model) unplaceable() []models.ComponentKey {
	var out []models.ComponentKey
	for ui, idx := range m.byUnit {
		if len(idx) == 0 {
			out = append(out, m.units[ui].key())
		}
	}
	return out
}

func (m *model) cell(day, group string) *occupancy {
	key := SlotKey{Day: day, Group: group}
	occ := m.occupied[key]
	if occ == nil {
		occ = &occupancy{uses: make(map[string]*usage)}
		m.occupied[key] = occ
		m.cellOrder = append(m.cellOrder, key)
	}
	return occ
}

// heldBy returns the literal that is true whenever any option puts the resource into
// the slot on the cell's day.
func (m *model) heldBy(u *usage, slot Slot) z.Lit {
	if lit, ok := u.held[slot.ID]; ok {
		return lit
	}
	lit := m.cnf.lit()
	for _, x := range u.bySlot[slot.ID] {
		m.cnf.implies(x, lit)
	}
	u.held[slot.ID] = lit
	return lit
}

// encodePlacement places every component exactly once and keeps rooms, faculty and
// student groups single-booked: at most one use per (day, overlap group), and never
// two uses in intersecting slots of different groups.
func (m *model) encodePlacement() error {
	for ui, idx := range m.byUnit {
		if err := m.halted(); err != nil {
			return err
		}
		m.cnf.exactlyOne(lo.Map(idx, func(i int, _ int) z.Lit { return m.options[i].lit }))
		u := m.units[ui]
		for _, i := range idx {
			opt := m.options[i]
			for di, day := range opt.days {
				occ := m.cell(day, opt.slot.Group)
				lit := opt.dayLits[di]
				occ.add("room:"+opt.room, opt.slot, lit)
				if u.course.FacultyID != "" {
					occ.add("faculty:"+u.course.FacultyID, opt.slot, lit)
				}
				if u.course.StudentGroup != "" {
					occ.add("group:"+u.course.StudentGroup, opt.slot, lit)
				}
			}
		}
	}
	for _, key := range m.cellOrder {
		if err := m.halted(); err != nil {
			return err
		}
		occ := m.occupied[key]
		for _, resource := range occ.order {
			m.cnf.atMostOne(occ.uses[resource].lits)
		}
		for _, resource := range occ.order {
			use := occ.uses[resource]
			for _, slot := range use.slots {
				for _, group := range slot.reach {
					// each unordered pair of groups is encoded once
					if group < key.Group {
						continue
					}
					other := m.occupied[SlotKey{Day: key.Day, Group: group}]
					if other == nil || other.uses[resource] == nil {
						continue
					}
					peer := other.uses[resource]
					for _, peerSlot := range peer.slots {
						if slot.Clashes(peerSlot) {
							m.cnf.clause(m.heldBy(use, slot).Not(), m.heldBy(peer, peerSlot).Not())
						}
					}
				}
			}
		}
	}
	return nil
}

// facultyLoad is, per day, every literal that puts one faculty member in front of a
// class. days keeps first-seen order.
type facultyLoad struct {
	id    string
	days  []string
	byDay map[string][]z.Lit
}

// teachingLits collects the load of every faculty member in first-seen order.
func (m *model) teachingLits() []*facultyLoad {
	var out []*facultyLoad
	index := make(map[string]*facultyLoad)
	for _, opt := range m.options {
		fid := m.units[opt.unit].course.FacultyID
		if fid == "" {
			continue
		}
		load := index[fid]
		if load == nil {
			load = &facultyLoad{id: fid, byDay: make(map[string][]z.Lit)}
			index[fid] = load
			out = append(out, load)
		}
		for di, day := range opt.days {
			if _, seen := load.byDay[day]; !seen {
				load.days = append(load.days, day)
			}
			load.byDay[day] = append(load.byDay[day], opt.dayLits[di])
		}
	}
	return out
}

func (m *model) encodeFacultyDays(faculty []models.Faculty) error {
	caps := lo.SliceToMap(faculty, func(f models.Faculty) (string, int) { return f.ID, f.TeachingDayCap() })
	for _, load := range m.teachingLits() {
		if err := m.halted(); err != nil {
			return err
		}
		limit, ok := caps[load.id]
		if !ok {
			limit = models.DefaultMaxTeachingDays
		}
		if limit >= len(load.days) {
			continue
		}
		indicators := make([]z.Lit, 0, len(load.days))
		for _, day := range load.days {
			t := m.cnf.lit()
			for _, lit := range load.byDay[day] {
				m.cnf.implies(lit, t)
			}
			indicators = append(indicators, t)
		}
		m.cnf.atMostK(indicators, limit)
	}
	return nil
}

func (m *model) encodeBackToBack(faculty []models.Faculty) error {
	restricted := make(map[string]bool)
	for _, f := range faculty {
		if !f.AllowBackToBack {
			restricted[f.ID] = true
		}
	}
	if len(restricted) == 0 {
		return nil
	}
	type busyCells struct {
		order []SlotKey
		lits  map[SlotKey][]z.Lit
	}
	var fids []string
	busy := make(map[string]*busyCells)
	for _, opt := range m.options {
		fid := m.units[opt.unit].course.FacultyID
		if !restricted[fid] {
			continue
		}
		cells := busy[fid]
		if cells == nil {
			cells = &busyCells{lits: make(map[SlotKey][]z.Lit)}
			busy[fid] = cells
			fids = append(fids, fid)
		}
		for di, day := range opt.days {
			key := SlotKey{Day: day, Group: opt.slot.Group}
			if _, seen := cells.lits[key]; !seen {
				cells.order = append(cells.order, key)
			}
			cells.lits[key] = append(cells.lits[key], opt.dayLits[di])
		}
	}
	for _, fid := range fids {
		if err := m.halted(); err != nil {
			return err
		}
		cells := busy[fid]
		indicator := make(map[SlotKey]z.Lit, len(cells.order))
		for _, key := range cells.order {
			occ := m.cnf.lit()
			for _, lit := range cells.lits[key] {
				m.cnf.implies(lit, occ)
			}
			indicator[key] = occ
		}
		for _, day := range m.catalog.Days() {
			windows := m.catalog.GroupsOn(day)
			for i := 1; i < len(windows); i++ {
				if windows[i].Start-windows[i-1].End > adjacencyGap {
					continue
				}
				a, okA := indicator[SlotKey{Day: day, Group: windows[i-1].Group}]
				b, okB := indicator[SlotKey{Day: day, Group: windows[i].Group}]
				if okA && okB {
					m.cnf.clause(a.Not(), b.Not())
				}
			}
		}
	}
	return nil
}

func (m *model) encodeOverrides(overrides []models.Override) error {
	resolver := NewResolver(m.catalog)
	for _, ov := range overrides {
		if err := m.halted(); err != nil {
			return err
		}
		if ov.CourseID == "" || ov.Component == "" || ov.Day == "" || ov.Time == "" {
			m.diags = append(m.diags, Diagnostic{
				Code:     DiagOverrideIncomplete,
				Message:  "override ignored: course_id, component, day and time are required",
				CourseID: ov.CourseID,
			})
			continue
		}
		kind, _ := Canonicalize(ov.Component)
		key := models.ComponentKey{CourseID: ov.CourseID, Kind: kind}
		slot, match, ok := resolver.Resolve(ov.Day, ov.Time, kind)
		if !ok {
			m.diag(DiagOverrideUnresolved, key, "override for %s: time slot %s on %s not found in the catalog", key, ov.Time, ov.Day)
			continue
		}
		_, ui, found := lo.FindIndexOf(m.units, func(u unit) bool { return u.key() == key })
		if !found {
			m.diag(DiagOverrideUnknownCourse, key, "override ignored: %s not found in course data", key)
			continue
		}
		if match == MatchFuzzy {
			m.snapped++
			m.diag(DiagOverrideSnapped, key, "override for %s: %s snapped to %s on %s", key, ov.Time, slot.Label(), ov.Day)
		}
		var lits []z.Lit
		for _, i := range m.byUnit[ui] {
			opt := m.options[i]
			if opt.slot.ID == slot.ID && lo.Contains(opt.days, ov.Day) {
				lits = append(lits, opt.lit)
			}
		}
		if len(lits) == 0 {
			m.diag(DiagOverrideNoRoom, key, "override for %s: no eligible room at %s %s", key, ov.Day, slot.Label())
			continue
		}
		if ov.Force {
			m.cnf.clause(lits...)
			continue
		}
		sel := m.cnf.lit()
		m.cnf.clause(append([]z.Lit{sel.Not()}, lits...)...)
		m.selectors = append(m.selectors, selector{lit: sel, key: key, label: ov.Day + " " + slot.Label()})
	}
	return nil
}

// dropSelectors removes the failed assumptions from active and reports the overrides
// behind them. It returns false when none of the failed literals is an override.
func (m *model) dropSelectors(active, failed []z.Lit) ([]z.Lit, bool) {
	vars := lo.SliceToMap(failed, func(l z.Lit) (z.Var, struct{}) { return l.Var(), struct{}{} })
	dropped := false
	kept := active[:0]
	for _, lit := range active {
		if _, bad := vars[lit.Var()]; !bad {
			kept = append(kept, lit)
			continue
		}
		dropped = true
		if s, ok := lo.Find(m.selectors, func(s selector) bool { return s.lit == lit }); ok {
			m.diag(DiagOverrideConflict, s.key, "override skipped for %s at %s: conflicts with other constraints, use force to overwrite", s.key, s.label)
		}
	}
	return kept, dropped
}

// penalty weights of an option
func (m *model) penaltyOf(opt option) int {
	u := m.units[opt.unit]
	weight := 0
	for _, day := range opt.days {
		if u.course.Elective && m.first[day] == opt.slot.Group {
			weight++
		}
		if day == "Fri" && m.last[day] == opt.slot.Group {
			weight++
		}
	}
	if u.course.PreferredRoomID != "" && opt.room != u.course.PreferredRoomID {
		weight++
	}
	return weight
}

// encodePenalties gives every component one indicator per penalty unit it can incur.
func (m *model) encodePenalties() error {
	m.first = make(map[string]string)
	m.last = make(map[string]string)
	for _, day := range m.catalog.Days() {
		if windows := m.catalog.GroupsOn(day); len(windows) > 0 {
			m.first[day] = windows[0].Group
			m.last[day] = windows[len(windows)-1].Group
		}
	}
	for _, idx := range m.byUnit {
		if err := m.halted(); err != nil {
			return err
		}
		var indicators []z.Lit
		for _, i := range idx {
			opt := &m.options[i]
			opt.penalty = m.penaltyOf(*opt)
			for len(indicators) < opt.penalty {
				indicators = append(indicators, m.cnf.lit())
			}
			for w := 0; w < opt.penalty; w++ {
				m.cnf.implies(opt.lit, indicators[w])
			}
		}
		m.penalties = append(m.penalties, indicators...)
	}
	return nil
}

func (m *model) solve(deadline time.Time, assumptions []z.Lit) int {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return 0
	}
	if len(assumptions) > 0 {
		m.cnf.g.Assume(assumptions...)
	}
	return m.cnf.g.GoSolve().Try(remaining)
}

func (m *model) snapshot() []bool {
	out := make([]bool, len(m.options))
	for i, opt := range m.options {
		out[i] = m.cnf.g.Value(opt.lit)
	}
	return out
}

func (m *model) cost(chosen []bool) int {
	total := 0
	for i, on := range chosen {
		if on {
			total += m.options[i].penalty
		}
	}
	return total
}

func (m *model) decode(chosen []bool) []models.Placement {
	schedule := make([]models.Placement, 0, len(m.units))
	for i, on := range chosen {
		if !on {
			continue
		}
		opt := m.options[i]
		u := m.units[opt.unit]
		p := models.Placement{
			Day:       opt.days[0],
			Time:      opt.slot.Label(),
			CourseID:  u.course.ID,
			Kind:      u.kind,
			RoomID:    opt.room,
			Faculty:   u.course.FacultyLabel(),
			FacultyID: u.course.FacultyID,
			Group:     u.course.StudentGroup,
			SlotID:    opt.slot.ID,
		}
		if len(opt.days) > 1 {
			p.Pattern = append([]string(nil), opt.days...)
		}
		schedule = append(schedule, p)
	}
	return schedule
}

func (m *model) diag(code string, key models.ComponentKey, format string, args ...interface{}) {
	m.diags = append(m.diags, Diagnostic{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		CourseID: key.CourseID,
		Kind:     key.Kind,
	})
}

func joinPreview(items []string) string {
	if len(items) <= MissingPreviewLimit {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s, ... (+%d more)", strings.Join(items[:MissingPreviewLimit], ", "), len(items)-MissingPreviewLimit)
}

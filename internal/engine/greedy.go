package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
)

// GreedyScheduler applies overrides in input order and then places every remaining
// component into the first free (slot, day, room) in catalog order.
type GreedyScheduler struct {
	logger *zap.Logger
}

// NewGreedyScheduler constructs the greedy strategy.
func NewGreedyScheduler(opts Options) *GreedyScheduler {
	return &GreedyScheduler{logger: opts.logger()}
}

// Name implements Strategy.
func (g *GreedyScheduler) Name() string { return StrategyGreedy }

// greedyRun holds the mutable state of one Solve call.
type greedyRun struct {
	catalog  *Catalog
	resolver *Resolver
	ledger   *Ledger
	rooms    []models.Room
	units    []unit

	schedule []models.Placement
	where    map[models.ComponentKey]SlotKey
	diags    []Diagnostic
	evicted  int
	snapped  int
}

// Solve implements Strategy. The only error it returns is the context's.
func (g *GreedyScheduler) Solve(ctx context.Context, in Input) (*Result, error) {
	started := time.Now()
	catalog := in.catalog()
	canon := NewCanonicalizer()
	units, keys := prepare(in.Courses, canon)

	run := &greedyRun{
		catalog:  catalog,
		resolver: NewResolver(catalog),
		ledger:   NewLedger(),
		rooms:    in.Rooms,
		units:    units,
		where:    make(map[models.ComponentKey]SlotKey, len(keys)),
	}

	for _, ov := range in.Overrides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		run.applyOverride(ov)
	}

	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, done := run.where[u.key()]; done {
			continue
		}
		run.placeFirstFit(u)
	}

	placed := make(map[models.ComponentKey]bool, len(run.where))
	for key := range run.where {
		placed[key] = true
	}
	status, message, missing := verdict(keys, placed, len(run.schedule))

	for _, label := range canon.DefaultedLabels() {
		run.diags = append(run.diags, Diagnostic{
			Code:    DiagComponentDefaulted,
			Message: fmt.Sprintf("component label %q not recognised, treated as lecture", label),
		})
	}

	result := &Result{
		Status:      status,
		Message:     message,
		Missing:     missing,
		Diagnostics: run.diags,
		Schedule:    []models.Placement{},
		Report: Report{
			Strategy:        StrategyGreedy,
			Total:           len(keys),
			Placed:          len(placed),
			Evicted:         run.evicted,
			Snapped:         run.snapped,
			Defaulted:       canon.Defaulted(),
			DefaultedLabels: canon.DefaultedLabels(),
			Duration:        time.Since(started),
		},
	}
	if status.Usable() {
		result.Schedule = run.schedule
		SortSchedule(result.Schedule)
	}
	result.Report.Summary = Summarize(result.Schedule)

	g.logger.Debug("greedy run finished",
		zap.String("status", string(status)),
		zap.Int("placed", result.Report.Placed),
		zap.Int("total", result.Report.Total),
		zap.Int("evicted", run.evicted),
		zap.Duration("duration", result.Report.Duration),
	)
	return result, nil
}

func (r *greedyRun) diag(code string, key models.ComponentKey, format string, args ...interface{}) {
	r.diags = append(r.diags, Diagnostic{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		CourseID: key.CourseID,
		Kind:     key.Kind,
	})
}

func (r *greedyRun) applyOverride(ov models.Override) {
	if ov.CourseID == "" || ov.Component == "" || ov.Day == "" || ov.Time == "" {
		r.diags = append(r.diags, Diagnostic{
			Code:     DiagOverrideIncomplete,
			Message:  "override ignored: course_id, component, day and time are required",
			CourseID: ov.CourseID,
		})
		return
	}
	kind, _ := Canonicalize(ov.Component)
	key := models.ComponentKey{CourseID: ov.CourseID, Kind: kind}

	slot, match, ok := r.resolver.Resolve(ov.Day, ov.Time, kind)
	if !ok {
		r.diag(DiagOverrideUnresolved, key, "override for %s: time slot %s on %s not found in the catalog", key, ov.Time, ov.Day)
		return
	}

	target, found := r.findUnit(key)
	if !found {
		r.diag(DiagOverrideUnknownCourse, key, "override ignored: %s not found in course data", key)
		return
	}

	if match == MatchFuzzy {
		r.snapped++
		r.diag(DiagOverrideSnapped, key, "override for %s: %s snapped to %s on %s", key, ov.Time, slot.Label(), ov.Day)
	}

	if prev, pinned := r.where[key]; pinned {
		if !ov.Force {
			r.diag(DiagOverrideConflict, key, "override skipped for %s: already placed on %s", key, prev.Day)
			return
		}
		r.ledger.Release(prev.Day, prev.Group, key)
		r.remove(key)
	}

	if ov.Force {
		for _, victim := range r.ledger.EvictAll(ov.Day, slot) {
			r.remove(victim)
			r.evicted++
			r.diag(DiagOverrideEvicted, victim, "%s evicted by forced override of %s on %s %s", victim, key, ov.Day, slot.Label())
		}
	}

	roomID, ok := SelectRoom(target.course, kind, r.rooms, ov.Day, slot, r.ledger)
	if !ok {
		r.diag(DiagOverrideNoRoom, key, "override failed for %s: no rooms available at %s %s", key, ov.Day, ov.Time)
		return
	}
	if !r.ledger.IsFree(ov.Day, slot, roomID, target.course.FacultyID, target.course.StudentGroup) {
		r.diag(DiagOverrideConflict, key, "override skipped for %s: faculty or student group busy at %s %s, use force to overwrite", key, ov.Day, slot.Label())
		return
	}

	if r.commit(target, slot, ov.Day, roomID) {
		r.diag(DiagOverrideApplied, key, "override applied: %s at %s %s", key, ov.Day, slot.Label())
	}
}

func (r *greedyRun) placeFirstFit(u unit) {
	for _, slot := range r.catalog.SlotsFor(u.kind) {
		for _, day := range slot.Days {
			roomID, ok := SelectRoom(u.course, u.kind, r.rooms, day, slot, r.ledger)
			if !ok {
				continue
			}
			if !r.ledger.IsFree(day, slot, roomID, u.course.FacultyID, u.course.StudentGroup) {
				continue
			}
			if r.commit(u, slot, day, roomID) {
				return
			}
		}
	}
}

func (r *greedyRun) commit(u unit, slot Slot, day, roomID string) bool {
	err := r.ledger.Commit(day, slot, Occupant{
		Key:          u.key(),
		RoomID:       roomID,
		FacultyID:    u.course.FacultyID,
		StudentGroup: u.course.StudentGroup,
	})
	if err != nil {
		return false
	}
	r.schedule = append(r.schedule, models.Placement{
		Day:       day,
		Time:      slot.Label(),
		CourseID:  u.course.ID,
		Kind:      u.kind,
		RoomID:    roomID,
		Faculty:   u.course.FacultyLabel(),
		FacultyID: u.course.FacultyID,
		Group:     u.course.StudentGroup,
		SlotID:    slot.ID,
	})
	r.where[u.key()] = SlotKey{Day: day, Group: slot.Group}
	return true
}

func (r *greedyRun) remove(key models.ComponentKey) {
	kept := r.schedule[:0]
	for _, p := range r.schedule {
		if p.Key() != key {
			kept = append(kept, p)
		}
	}
	r.schedule = kept
	delete(r.where, key)
}

// findUnit returns the first course record carrying the identity.
func (r *greedyRun) findUnit(key models.ComponentKey) (unit, bool) {
	for _, u := range r.units {
		if u.key() == key {
			return u, true
		}
	}
	return unit{}, false
}

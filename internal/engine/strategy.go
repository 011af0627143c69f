package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Status is the verdict of a scheduling run.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusPartial  Status = "partial"
	StatusFail     Status = "fail"
	StatusNoResult Status = "no_result"
)

// Usable reports whether the schedule carried by the verdict may be consumed.
func (s Status) Usable() bool {
	return s == StatusSuccess || s == StatusPartial
}

// Strategy names.
const (
	StrategyGreedy    = "greedy"
	StrategyOptimizer = "optimizer"
)

// ErrUnknownStrategy is returned by NewStrategy for unsupported names.
var ErrUnknownStrategy = errors.New("unknown scheduling strategy")

// MissingPreviewLimit caps how many unplaced components the message lists.
const MissingPreviewLimit = 25

// Diagnostic codes.
const (
	DiagOverrideIncomplete    = "override_incomplete"
	DiagOverrideUnresolved    = "override_unresolved"
	DiagOverrideUnknownCourse = "override_unknown_course"
	DiagOverrideConflict      = "override_conflict"
	DiagOverrideNoRoom        = "override_no_room"
	DiagOverrideSnapped       = "override_snapped"
	DiagOverrideEvicted       = "override_evicted"
	DiagOverrideApplied       = "override_applied"
	DiagComponentDefaulted    = "component_defaulted"
)

// Diagnostic is a non-fatal condition raised during a run.
type Diagnostic struct {
	Code     string               `json:"code"`
	Message  string               `json:"message"`
	CourseID string               `json:"course_id,omitempty"`
	Kind     models.ComponentKind `json:"component,omitempty"`
}

// Input is one snapshot of scheduling data.
type Input struct {
	Courses   []models.CourseComponent
	Rooms     []models.Room
	Faculty   []models.Faculty
	Groups    []string
	Overrides []models.Override
	Catalog   *Catalog
}

func (in Input) catalog() *Catalog {
	if in.Catalog != nil {
		return in.Catalog
	}
	return DefaultCatalog()
}

// Report summarises a run.
type Report struct {
	Strategy        string        `json:"strategy"`
	Total           int           `json:"total"`
	Placed          int           `json:"placed"`
	Evicted         int           `json:"evicted"`
	Snapped         int           `json:"snapped"`
	Defaulted       int           `json:"defaulted_components"`
	DefaultedLabels []string      `json:"defaulted_labels,omitempty"`
	Penalty         int           `json:"penalty,omitempty"`
	Duration        time.Duration `json:"duration_ns"`
	Summary         Summary       `json:"summary"`
}

// Result is the outcome of a run. Schedule is empty unless Status is usable.
type Result struct {
	Status      Status                `json:"status"`
	Schedule    []models.Placement    `json:"schedule"`
	Message     string                `json:"message"`
	Missing     []models.ComponentKey `json:"missing,omitempty"`
	Diagnostics []Diagnostic          `json:"diagnostics,omitempty"`
	Report      Report                `json:"report"`
}

// Strategy produces a schedule from one input snapshot.
type Strategy interface {
	Name() string
	Solve(ctx context.Context, in Input) (*Result, error)
}

// Options configures strategies.
type Options struct {
	Logger *zap.Logger
	// ForbidBackToBack enables the optimizer's adjacency rule for faculty that do not
	// allow back-to-back teaching.
	ForbidBackToBack bool
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// NewStrategy returns the strategy registered under name; an empty name selects greedy.
func NewStrategy(name string, opts Options) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyGreedy:
		return NewGreedyScheduler(opts), nil
	case StrategyOptimizer:
		return NewOptimizer(opts), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// unit is a course component paired with its canonical kind.
type unit struct {
	course models.CourseComponent
	kind   models.ComponentKind
}

func (u unit) key() models.ComponentKey {
	return models.ComponentKey{CourseID: u.course.ID, Kind: u.kind}
}

// prepare canonicalizes every course once and returns the units plus the distinct
// identities in input order.
func prepare(courses []models.CourseComponent, canon *Canonicalizer) ([]unit, []models.ComponentKey) {
	units := make([]unit, 0, len(courses))
	seen := make(map[models.ComponentKey]struct{}, len(courses))
	keys := make([]models.ComponentKey, 0, len(courses))
	for _, c := range courses {
		u := unit{course: c, kind: canon.Kind(string(c.Kind))}
		units = append(units, u)
		if _, ok := seen[u.key()]; ok {
			continue
		}
		seen[u.key()] = struct{}{}
		keys = append(keys, u.key())
	}
	return units, keys
}

// verdict derives status, message and missing list from the placed set.
func verdict(keys []models.ComponentKey, placed map[models.ComponentKey]bool, scheduled int) (Status, string, []models.ComponentKey) {
	var missing []models.ComponentKey
	for _, key := range keys {
		if !placed[key] {
			missing = append(missing, key)
		}
	}
	if scheduled == 0 {
		return StatusFail, "Solver could not place ANY course in the strict university timeslots. Check the slot catalog or relax constraints.", missing
	}
	if len(missing) == 0 {
		return StatusSuccess, "ALL courses placed successfully.", nil
	}
	preview := make([]string, 0, MissingPreviewLimit)
	for i, key := range missing {
		if i == MissingPreviewLimit {
			break
		}
		preview = append(preview, key.String())
	}
	text := strings.Join(preview, ", ")
	if len(missing) > MissingPreviewLimit {
		text += fmt.Sprintf(", ... (+%d more)", len(missing)-MissingPreviewLimit)
	}
	return StatusPartial, fmt.Sprintf("PARTIAL schedule: placed %d/%d. Missing: %s", len(keys)-len(missing), len(keys), text), missing
}

// SortSchedule orders placements by day, start time, course and component.
func SortSchedule(schedule []models.Placement) {
	sort.SliceStable(schedule, func(i, j int) bool {
		a, b := schedule[i], schedule[j]
		if da, db := DayIndex(a.Day), DayIndex(b.Day); da != db {
			return da < db
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if a.CourseID != b.CourseID {
			return a.CourseID < b.CourseID
		}
		return a.Kind < b.Kind
	})
}

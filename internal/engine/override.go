package engine

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/noah-isme/timetable-api/internal/models"
)

// SnapTolerance bounds how far a requested start may sit from a catalog start and
// still be snapped to it. The difference must be strictly below it.
const SnapTolerance = 45

// MatchKind reports how an override was resolved.
type MatchKind string

const (
	MatchNone  MatchKind = ""
	MatchExact MatchKind = "exact"
	MatchFuzzy MatchKind = "fuzzy"
)

// Resolver maps requested (day, time, kind) triples onto catalog slots.
type Resolver struct {
	catalog *Catalog
}

// NewResolver binds a resolver to the catalog.
func NewResolver(catalog *Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve finds the slot for the request. An exact label match wins; otherwise the
// eligible slot on that day with the nearest start under SnapTolerance is used, ties
// going to catalog order.
func (r *Resolver) Resolve(day, timeString string, kind models.ComponentKind) (Slot, MatchKind, bool) {
	eligible := lo.Filter(r.catalog.slots, func(s Slot, _ int) bool { return s.Allows(kind) && s.On(day) })
	if len(eligible) == 0 {
		return Slot{}, MatchNone, false
	}

	if want, ok := normalizeLabel(timeString); ok {
		exact, found := lo.Find(eligible, func(s Slot) bool {
			got, _ := normalizeLabel(s.Label())
			return got == want
		})
		if found {
			return exact, MatchExact, true
		}
	}

	start := strings.TrimSpace(strings.SplitN(timeString, "-", 2)[0])
	target, err := ParseClock(keepClockChars(start))
	if err != nil {
		return Slot{}, MatchNone, false
	}
	best := -1
	bestDiff := SnapTolerance
	for i, s := range eligible {
		diff := s.startMin - target
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best < 0 {
		return Slot{}, MatchNone, false
	}
	return eligible[best], MatchFuzzy, true
}

// normalizeLabel reduces "8:00 - 8:55" and "08:00-08:55" to the same form.
func normalizeLabel(raw string) (string, bool) {
	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return "", false
	}
	out := make([]string, 0, 2)
	for _, part := range parts {
		mins, err := ParseClock(keepClockChars(part))
		if err != nil {
			return "", false
		}
		out = append(out, fmt.Sprintf("%02d:%02d", mins/60, mins%60))
	}
	return out[0] + "-" + out[1], true
}

func keepClockChars(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == ':' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

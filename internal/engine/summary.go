package engine

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/noah-isme/timetable-api/internal/models"
)

const (
	earlyBefore = 10 * 60
	lateFrom    = 15 * 60
)

// Count is the number of weekly meetings attributed to one key.
type Count struct {
	Key      string `json:"key"`
	Meetings int    `json:"meetings"`
}

// Summary describes how a schedule spreads over the week. A placement with a meeting
// pattern counts once per pattern day.
type Summary struct {
	Meetings  int     `json:"meetings"`
	Early     int     `json:"early_meetings"`
	Late      int     `json:"late_meetings"`
	ByDay     []Count `json:"by_day"`
	ByKind    []Count `json:"by_component"`
	ByRoom    []Count `json:"by_room"`
	ByFaculty []Count `json:"by_faculty"`
}

// Summarize derives the load summary of a schedule. Days are in calendar order,
// components in lecture, tutorial, practical order, and rooms and faculty by load
// with ties broken by key, so equal schedules always summarise identically.
func Summarize(schedule []models.Placement) Summary {
	days := make(map[string]int)
	kinds := make(map[string]int)
	rooms := make(map[string]int)
	faculty := make(map[string]int)
	var out Summary

	for _, p := range schedule {
		meetings := p.Days()
		n := len(meetings)
		out.Meetings += n
		for _, day := range meetings {
			days[day]++
		}
		kinds[string(p.Kind)] += n
		if p.RoomID != "" {
			rooms[p.RoomID] += n
		}
		who := p.FacultyID
		if who == "" {
			who = p.Faculty
		}
		if who != "" {
			faculty[who] += n
		}
		start, err := ParseClock(strings.SplitN(p.Time, "-", 2)[0])
		if err != nil {
			continue
		}
		switch {
		case start < earlyBefore:
			out.Early += n
		case start >= lateFrom:
			out.Late += n
		}
	}

	out.ByDay = ordered(days, func(a, b string) bool { return DayIndex(a) < DayIndex(b) })
	kindOrder := map[string]int{string(models.KindLecture): 0, string(models.KindTutorial): 1, string(models.KindPractical): 2}
	out.ByKind = ordered(kinds, func(a, b string) bool { return kindOrder[a] < kindOrder[b] })
	out.ByRoom = byLoad(rooms)
	out.ByFaculty = byLoad(faculty)
	return out
}

func ordered(counts map[string]int, less func(a, b string) bool) []Count {
	keys := lo.Keys(counts)
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	return lo.Map(keys, func(k string, _ int) Count { return Count{Key: k, Meetings: counts[k]} })
}

func byLoad(counts map[string]int) []Count {
	out := lo.MapToSlice(counts, func(k string, v int) Count { return Count{Key: k, Meetings: v} })
	sort.Slice(out, func(i, j int) bool {
		if out[i].Meetings != out[j].Meetings {
			return out[i].Meetings > out[j].Meetings
		}
		return out[i].Key < out[j].Key
	})
	return out
}

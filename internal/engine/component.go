package engine

import (
	"strings"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Canonicalize maps a free-form activity label to a canonical kind. Unrecognised input
// falls back to Lecture and reports defaulted = true; it never fails.
func Canonicalize(raw string) (kind models.ComponentKind, defaulted bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(s, "lec"):
		return models.KindLecture, false
	case strings.HasPrefix(s, "tut"):
		return models.KindTutorial, false
	case strings.HasPrefix(s, "prac"), strings.HasPrefix(s, "lab"):
		return models.KindPractical, false
	}
	if s != "" {
		switch s[0] {
		case 'l':
			return models.KindLecture, false
		case 't':
			return models.KindTutorial, false
		case 'p':
			return models.KindPractical, false
		}
	}
	return models.KindLecture, true
}

// Canonicalizer wraps Canonicalize and keeps count of the labels that had to default.
type Canonicalizer struct {
	defaulted int
	labels    []string
	seen      map[string]struct{}
}

// NewCanonicalizer returns an empty canonicalizer for one run.
func NewCanonicalizer() *Canonicalizer {
	return &Canonicalizer{seen: make(map[string]struct{})}
}

// Kind canonicalizes raw and records it when it defaulted.
func (c *Canonicalizer) Kind(raw string) models.ComponentKind {
	kind, defaulted := Canonicalize(raw)
	if defaulted {
		c.defaulted++
		if _, ok := c.seen[raw]; !ok {
			c.seen[raw] = struct{}{}
			c.labels = append(c.labels, raw)
		}
	}
	return kind
}

// Defaulted returns how many labels fell back to Lecture.
func (c *Canonicalizer) Defaulted() int {
	return c.defaulted
}

// DefaultedLabels returns the distinct raw labels that fell back, in first-seen order.
func (c *Canonicalizer) DefaultedLabels() []string {
	return append([]string(nil), c.labels...)
}

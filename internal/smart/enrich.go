// Package smart derives task metadata from free text. Everything here is a
// pure function over ordered keyword tables: same input, same output.
package smart

import (
	"math"
	"strings"
)

const baseDuration = 30

type durationModifier struct {
	keyword string
	delta   int
}

// Accumulated on top of the base duration. The meeting, call, and email
// entries are shadowed by the fixed special cases in EstimateDuration and
// never fire.
var durationModifiers = []durationModifier{
	{"quick", -15},
	{"simple", -15},
	{"easy", -10},
	{"complex", 60},
	{"complicated", 60},
	{"research", 60},
	{"investigate", 45},
	{"meeting", 60},
	{"call", 30},
	{"email", 15},
	{"review", 45},
	{"refactor", 90},
	{"implement", 120},
	{"design", 90},
	{"test", 60},
	{"debug", 45},
	{"fix", 30},
}

var highPriorityKeywords = []string{
	"urgent", "asap", "critical", "bug", "fix", "error", "broken",
	"immediately", "emergency", "hotfix", "crash", "down", "failing",
}

var lowPriorityKeywords = []string{
	"maybe", "someday", "later", "eventually", "nice to have",
	"optional", "backlog", "future", "consider", "idea",
}

type category struct {
	name     string
	keywords []string
}

// Evaluated top to bottom; the first category with any keyword hit wins.
var categories = []category{
	{"bug", []string{"bug", "error", "fix", "broken", "issue", "problem", "crash"}},
	{"meeting", []string{"meeting", "call", "standup", "demo", "presentation", "discussion"}},
	{"development", []string{"implement", "code", "develop", "build", "create", "feature", "function"}},
	{"design", []string{"design", "ui", "ux", "mockup", "wireframe", "prototype", "layout"}},
	{"documentation", []string{"document", "readme", "docs", "write", "manual", "guide"}},
	{"research", []string{"research", "investigate", "analyze", "study", "explore", "learn"}},
	{"testing", []string{"test", "testing", "qa", "verify", "validate", "check"}},
}

const DefaultCategory = "general"

func combined(title, description string) string {
	return strings.ToLower(title + " " + description)
}

// EstimateDuration returns the estimated minutes for a task: meetings and
// calls are a fixed hour, email-sized work a fixed quarter hour, everything
// else starts at 30 minutes and accumulates keyword deltas. The result is
// clamped to at least 15 and rounded to the nearest multiple of 15.
func EstimateDuration(title, description string) int {
	text := combined(title, description)

	duration := baseDuration
	switch {
	case strings.Contains(text, "meeting") || strings.Contains(text, "call"):
		duration = 60
	case strings.Contains(text, "email") || strings.Contains(text, "message"):
		duration = 15
	default:
		for _, m := range durationModifiers {
			if strings.Contains(text, m.keyword) {
				duration += m.delta
			}
		}
	}

	if duration < 15 {
		duration = 15
	}
	return int(math.Round(float64(duration)/15)) * 15
}

// SuggestPriority scans the high-priority keyword set before the low-priority
// one, so text matching both comes out high. No match means medium.
func SuggestPriority(title, description string) string {
	text := combined(title, description)

	for _, kw := range highPriorityKeywords {
		if strings.Contains(text, kw) {
			return "high"
		}
	}
	for _, kw := range lowPriorityKeywords {
		if strings.Contains(text, kw) {
			return "low"
		}
	}
	return "medium"
}

// Categorize returns the first category whose keyword set matches, in fixed
// table order, or DefaultCategory.
func Categorize(title, description string) string {
	text := combined(title, description)

	for _, c := range categories {
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				return c.name
			}
		}
	}
	return DefaultCategory
}

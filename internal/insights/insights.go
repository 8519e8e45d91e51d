// Package insights aggregates a user's task history into an ephemeral
// productivity snapshot. Nothing here is persisted; every value is
// recomputed from the live task set on each call.
package insights

import (
	"math"
	"time"

	"github.com/Marcvolkov/task-management-system/internal/tasks"
)

const (
	defaultProductiveHour = 9
	streakScanDays        = 30
	velocityWindowDays    = 7
)

type Snapshot struct {
	CompletionRate     int         `json:"completionRate"`
	TasksPerDay        float64     `json:"tasksPerDay"`
	MostProductiveHour int         `json:"mostProductiveHour"`
	CurrentStreak      int         `json:"currentStreak"`
	Recommendations    []string    `json:"recommendations"`
	Stats              tasks.Stats `json:"stats"`
}

type metrics struct {
	completionRate int
	tasksPerDay    float64
	currentStreak  int
	stats          tasks.Stats
}

type recommendation struct {
	applies func(m metrics) bool
	advice  string
}

// Evaluated top to bottom; every rule whose condition holds contributes,
// independently of the others.
var recommendations = []recommendation{
	{
		applies: func(m metrics) bool { return m.completionRate < 30 },
		advice:  "Try breaking tasks into smaller pieces",
	},
	{
		applies: func(m metrics) bool { return m.stats.HighPriority > 5 },
		advice:  "Too many high priority tasks",
	},
	{
		applies: func(m metrics) bool { return m.stats.InProgress > m.stats.Completed },
		advice:  "Focus on completing current tasks",
	},
	{
		applies: func(m metrics) bool { return m.currentStreak == 0 },
		advice:  "Start building a daily completion habit",
	},
	{
		applies: func(m metrics) bool { return m.tasksPerDay < 1 },
		advice:  "Consider setting daily task goals",
	},
}

// Compute builds the snapshot for one user's full task set. The caller
// passes the clock so results are reproducible.
func Compute(list []tasks.Task, stats tasks.Stats, now time.Time) Snapshot {
	m := metrics{
		completionRate: completionRate(stats),
		tasksPerDay:    tasksPerDay(list, now),
		currentStreak:  currentStreak(list, now),
		stats:          stats,
	}

	advice := make([]string, 0)
	for _, r := range recommendations {
		if r.applies(m) {
			advice = append(advice, r.advice)
		}
	}

	return Snapshot{
		CompletionRate:     m.completionRate,
		TasksPerDay:        m.tasksPerDay,
		MostProductiveHour: mostProductiveHour(list, now.Location()),
		CurrentStreak:      m.currentStreak,
		Recommendations:    advice,
		Stats:              stats,
	}
}

func completionRate(stats tasks.Stats) int {
	if stats.Total == 0 {
		return 0
	}
	return int(math.Round(float64(stats.Completed) / float64(stats.Total) * 100))
}

// tasksPerDay is the creation velocity over the trailing 7 days, one decimal
// place. The window includes the instant exactly 7 days ago.
func tasksPerDay(list []tasks.Task, now time.Time) float64 {
	cutoff := now.AddDate(0, 0, -velocityWindowDays)

	recent := 0
	for _, t := range list {
		if !t.CreatedAt.Before(cutoff) {
			recent++
		}
	}
	return math.Round(float64(recent)/velocityWindowDays*10) / 10
}

// mostProductiveHour buckets completed tasks by the hour of their last
// update in loc and picks the busiest one. Ties go to the lowest hour; with
// no completed tasks it defaults to 9. Timestamps come back from the
// database in UTC, so they must be shifted into the caller's location
// before bucketing.
func mostProductiveHour(list []tasks.Task, loc *time.Location) int {
	var counts [24]int
	completed := 0
	for _, t := range list {
		if t.Status != tasks.StatusCompleted || t.UpdatedAt.IsZero() {
			continue
		}
		counts[t.UpdatedAt.In(loc).Hour()]++
		completed++
	}
	if completed == 0 {
		return defaultProductiveHour
	}

	best := 0
	for hour := 1; hour < 24; hour++ {
		if counts[hour] > counts[best] {
			best = hour
		}
	}
	return best
}

// currentStreak counts consecutive calendar days ending today on which at
// least one task was completed, scanning back at most 30 days. Day
// boundaries are local midnight.
func currentStreak(list []tasks.Task, now time.Time) int {
	today := midnight(now)

	streak := 0
	for i := 0; i < streakScanDays; i++ {
		day := today.AddDate(0, 0, -i)
		if !completedOn(list, day) {
			break
		}
		streak++
	}
	return streak
}

func completedOn(list []tasks.Task, day time.Time) bool {
	for _, t := range list {
		if t.Status != tasks.StatusCompleted || t.UpdatedAt.IsZero() {
			continue
		}
		// Shift into day's location first so UTC timestamps land on the
		// right calendar day.
		if midnight(t.UpdatedAt.In(day.Location())).Equal(day) {
			return true
		}
	}
	return false
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

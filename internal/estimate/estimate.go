// Package estimate derives analyzer-record attributes from a task's
// free text and the current time when no richer signal is available.
package estimate

import (
	"math"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/ClearHead/internal/behavior"
	"github.com/MikeSquared-Agency/ClearHead/internal/task"
)

const (
	// DefaultIdleMinutes is used until the app reports real completion history.
	DefaultIdleMinutes = 60.0
	baseComplexity     = 5
)

// Keywords holds the substring lists used by the text heuristics.
type Keywords struct {
	Complex []string
	Simple  []string
	Routine []string
}

// DefaultKeywords returns the stock keyword lists.
func DefaultKeywords() Keywords {
	return Keywords{
		Complex: []string{"analyze", "research", "plan", "design", "implement", "review", "budget", "presentation"},
		Simple:  []string{"call", "email", "clean", "organize", "buy", "schedule"},
		Routine: []string{"daily", "weekly", "routine", "regular", "habit", "medication", "exercise"},
	}
}

// Length maps the word count of title+description to minutes.
func Length(title, description string) int {
	words := len(strings.Fields(title + " " + description))
	switch {
	case words <= 5:
		return 15
	case words <= 15:
		return 30
	case words <= 30:
		return 60
	default:
		return 90
	}
}

// Estimator converts external tasks to analyzer records.
type Estimator struct {
	profile  behavior.Profile
	keywords Keywords
}

func New(profile behavior.Profile, keywords Keywords) *Estimator {
	return &Estimator{profile: profile, keywords: keywords}
}

// Complexity starts at 5, adds one per complex keyword found in the
// lowercased text and subtracts one per simple keyword, clamped to [1,10].
func (e *Estimator) Complexity(title, description string) int {
	text := strings.ToLower(title + " " + description)
	c := baseComplexity
	for _, kw := range e.keywords.Complex {
		if strings.Contains(text, kw) {
			c++
		}
	}
	for _, kw := range e.keywords.Simple {
		if strings.Contains(text, kw) {
			c--
		}
	}
	return min(10, max(1, c))
}

// Energy returns the energy level for an hour from the profile's bands.
func (e *Estimator) Energy(hour int) int {
	return e.profile.EnergyAt(hour)
}

// Routine reports whether the title contains a routine keyword.
func (e *Estimator) Routine(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range e.keywords.Routine {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Record builds the analyzer record for t as of now.
func (e *Estimator) Record(t *task.Task, now time.Time) task.Record {
	return task.Record{
		Hour:             now.Hour(),
		Weekday:          task.Weekday(now.Weekday()),
		Priority:         task.ParsePriority(t.Priority),
		Category:         task.ParseCategory(t.Category),
		LengthMinutes:    float64(Length(t.Text, t.Description)),
		Energy:           float64(e.Energy(now.Hour())),
		Complexity:       float64(e.Complexity(t.Text, t.Description)),
		Routine:          e.Routine(t.Text),
		DaysSinceCreated: DaysSince(t.Created(), now),
		Momentum:         0,
		IdleMinutes:      DefaultIdleMinutes,
		Task:             t,
	}
}

// DaysSince returns whole days elapsed from created to now, floored.
// Tasks created in the future count as zero days old.
func DaysSince(created, now time.Time) float64 {
	days := math.Floor(now.Sub(created).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

package task

import (
	"slices"
	"strings"
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists the priority levels in feature order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

type Category string

const (
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
	CategoryHealth   Category = "Health"
	CategoryLearning Category = "Learning"
	CategoryErrands  Category = "Errands"
	CategoryHome     Category = "Home"
	CategoryFinance  Category = "Finance"
)

// Categories lists the fixed category enumeration in feature order.
var Categories = []Category{
	CategoryWork, CategoryPersonal, CategoryHealth, CategoryLearning,
	CategoryErrands, CategoryHome, CategoryFinance,
}

// ParsePriority normalizes a raw priority. Empty input maps to medium;
// unknown values are returned as-is and encode to an all-zero one-hot.
func ParsePriority(s string) Priority {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityMedium
	}
	return Priority(s)
}

// ParseCategory matches a raw category against the enumeration
// case-insensitively. Empty input maps to Personal.
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	if s == "" {
		return CategoryPersonal
	}
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c
		}
	}
	return Category(s)
}

// KnownCategory reports whether c is one of the fixed categories.
func KnownCategory(c Category) bool {
	return slices.Contains(Categories, c)
}

// Task is a to-do item as supplied by the mobile application.
type Task struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	Completed   bool   `json:"completed"`
	CreatedAt   int64  `json:"createdAt"` // epoch milliseconds
}

// Created returns the creation timestamp.
func (t *Task) Created() time.Time {
	return time.UnixMilli(t.CreatedAt)
}

// Record is the analyzer-format view of a task under current conditions.
type Record struct {
	Hour             int      `json:"hour_of_day"`
	Weekday          int      `json:"day_of_week"` // 0 = Monday
	Priority         Priority `json:"priority"`
	Category         Category `json:"category"`
	LengthMinutes    float64  `json:"task_length_minutes"`
	Energy           float64  `json:"energy_level"`
	Complexity       float64  `json:"task_complexity"`
	Routine          bool     `json:"is_routine"`
	DaysSinceCreated float64  `json:"days_since_created"`
	Momentum         int      `json:"consecutive_completions"`
	IdleMinutes      float64  `json:"time_since_last_completion"`

	// Task points back at the originating task; nil for synthetic rows.
	Task *Task `json:"-"`
}

// Weekday converts a time.Weekday (Sunday = 0) to a Monday-based index.
func Weekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

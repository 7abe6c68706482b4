// Package features maps analyzer records to the fixed 19-dimension
// vector consumed by the classifier.
package features

import (
	"math"

	"github.com/MikeSquared-Agency/ClearHead/internal/task"
)

// Dimensions is the length of every encoded vector.
const Dimensions = 19

// Names lists the feature dimensions in encoding order.
var Names = []string{
	"hour_of_day", "day_of_week",
	"priority_high", "priority_medium", "priority_low",
	"category_work", "category_personal", "category_health", "category_learning",
	"category_errands", "category_home", "category_finance",
	"task_length_minutes", "energy_level", "task_complexity", "is_routine",
	"days_since_created", "consecutive_completions", "time_since_last_completion",
}

// Encode converts a record to its normalized feature vector.
//
// Length is divided by 120 minutes without clipping; age is log-scaled;
// momentum and idle time saturate through tanh.
func Encode(r task.Record) []float64 {
	v := make([]float64, 0, Dimensions)
	v = append(v, float64(r.Hour)/23.0, float64(r.Weekday)/6.0)
	for _, p := range task.Priorities {
		v = append(v, indicator(r.Priority == p))
	}
	for _, c := range task.Categories {
		v = append(v, indicator(r.Category == c))
	}
	v = append(v,
		r.LengthMinutes/120.0,
		r.Energy/10.0,
		r.Complexity/10.0,
		indicator(r.Routine),
		math.Log1p(r.DaysSinceCreated)/5.0,
		math.Tanh(float64(r.Momentum)/5.0),
		math.Tanh(r.IdleMinutes/480.0),
	)
	return v
}

// EncodeBatch encodes records preserving their order.
func EncodeBatch(records []task.Record) [][]float64 {
	out := make([][]float64, len(records))
	for i, r := range records {
		out[i] = Encode(r)
	}
	return out
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

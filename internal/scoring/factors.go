package scoring

import (
	"github.com/MikeSquared-Agency/ClearHead/internal/behavior"
	"github.com/MikeSquared-Agency/ClearHead/internal/task"
)

// FactorResult captures one rule's contribution to the friendliness score.
type FactorResult struct {
	Name    string  `json:"name"`
	Delta   float64 `json:"delta"`
	Applied bool    `json:"applied"`
	Reason  string  `json:"reason"`
}

// FactorContext bundles the inputs needed to score one record.
type FactorContext struct {
	Record  *task.Record
	Hour    int
	Profile behavior.Profile
	Adj     Adjustments
}

// --- Individual factor calculators ---

// TimeOfDayFactor rewards peak-focus hours and penalizes low-energy hours.
func TimeOfDayFactor(fc *FactorContext) FactorResult {
	switch {
	case fc.Profile.IsPeak(fc.Hour):
		return FactorResult{Name: "time_of_day", Delta: fc.Adj.Peak, Applied: true, Reason: "peak focus hour"}
	case fc.Profile.IsLowEnergy(fc.Hour):
		return FactorResult{Name: "time_of_day", Delta: fc.Adj.LowEnergy, Applied: true, Reason: "low energy hour"}
	default:
		return FactorResult{Name: "time_of_day", Reason: "neutral hour"}
	}
}

// LengthFactor favours short tasks over long ones.
func LengthFactor(fc *FactorContext) FactorResult {
	l := fc.Record.LengthMinutes
	switch {
	case l <= fc.Adj.ShortMaxMinutes:
		return FactorResult{Name: "length", Delta: fc.Adj.Short, Applied: true, Reason: "short task"}
	case l > fc.Adj.LongMinMinutes:
		return FactorResult{Name: "length", Delta: fc.Adj.Long, Applied: true, Reason: "long task"}
	default:
		return FactorResult{Name: "length", Reason: "medium length"}
	}
}

// ComplexityFactor favours simple tasks over complex ones.
func ComplexityFactor(fc *FactorContext) FactorResult {
	c := fc.Record.Complexity
	switch {
	case c <= fc.Adj.SimpleMax:
		return FactorResult{Name: "complexity", Delta: fc.Adj.Simple, Applied: true, Reason: "simple task"}
	case c > fc.Adj.ComplexMin:
		return FactorResult{Name: "complexity", Delta: fc.Adj.Complex, Applied: true, Reason: "complex task"}
	default:
		return FactorResult{Name: "complexity", Reason: "moderate complexity"}
	}
}

func RoutineFactor(fc *FactorContext) FactorResult {
	if fc.Record.Routine {
		return FactorResult{Name: "routine", Delta: fc.Adj.Routine, Applied: true, Reason: "routine task"}
	}
	return FactorResult{Name: "routine", Reason: "not routine"}
}

// CategoryFactor applies category affinity from the profile.
func CategoryFactor(fc *FactorContext) FactorResult {
	switch {
	case fc.Profile.IsPreferred(fc.Record.Category):
		return FactorResult{Name: "category", Delta: fc.Adj.Preferred, Applied: true, Reason: "preferred: " + string(fc.Record.Category)}
	case fc.Profile.IsAvoided(fc.Record.Category):
		return FactorResult{Name: "category", Delta: fc.Adj.Avoided, Applied: true, Reason: "avoided: " + string(fc.Record.Category)}
	default:
		return FactorResult{Name: "category", Reason: "neutral category"}
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

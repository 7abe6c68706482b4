package behavior

import (
	"fmt"
	"slices"

	"github.com/MikeSquared-Agency/ClearHead/internal/task"
)

// EnergyBand assigns an estimated energy level to a set of hours.
type EnergyBand struct {
	Hours []int
	Level int
}

// HourWeights are the relative sampling weights for synthetic hours.
type HourWeights struct {
	Base      float64
	Peak      float64
	LowEnergy float64
}

// Profile is the behavioral model shared by the synthetic generator,
// the attribute estimators, the friendliness score and the reasoning
// generator. Every component reads hour bands and category affinity
// from the same Profile value.
type Profile struct {
	PeakHours           []int
	LowEnergyHours      []int
	PreferredCategories []task.Category
	AvoidedCategories   []task.Category
	OptimalTaskLength   float64 // minutes
	ComplexityThreshold float64

	// Synthetic hours are drawn from [FirstHour, LastHour].
	FirstHour   int
	LastHour    int
	HourWeights HourWeights

	EnergyBands   []EnergyBand
	DefaultEnergy int
}

// DefaultProfile returns the stock behavioral profile.
func DefaultProfile() Profile {
	return Profile{
		PeakHours:           []int{9, 10, 11, 20, 21, 22},
		LowEnergyHours:      []int{13, 14, 15, 16},
		PreferredCategories: []task.Category{task.CategoryLearning, task.CategoryPersonal},
		AvoidedCategories:   []task.Category{task.CategoryFinance, task.CategoryErrands},
		OptimalTaskLength:   25,
		ComplexityThreshold: 6,
		FirstHour:           8,
		LastHour:            22,
		HourWeights: HourWeights{
			Base:      0.5,
			Peak:      2.0,
			LowEnergy: 0.2,
		},
		EnergyBands: []EnergyBand{
			{Hours: []int{9, 10, 11}, Level: 8},
			{Hours: []int{14, 15}, Level: 7},
			{Hours: []int{20, 21}, Level: 6},
			{Hours: []int{13, 16, 17}, Level: 4},
		},
		DefaultEnergy: 5,
	}
}

// IsPeak reports whether hour is a peak-focus hour.
func (p Profile) IsPeak(hour int) bool {
	return slices.Contains(p.PeakHours, hour)
}

// IsLowEnergy reports whether hour is a low-energy hour. Peak wins
// when an hour appears in both sets.
func (p Profile) IsLowEnergy(hour int) bool {
	return !p.IsPeak(hour) && slices.Contains(p.LowEnergyHours, hour)
}

func (p Profile) IsPreferred(c task.Category) bool {
	return slices.Contains(p.PreferredCategories, c)
}

// IsAvoided reports whether c is avoided. Preferred wins on overlap.
func (p Profile) IsAvoided(c task.Category) bool {
	return !p.IsPreferred(c) && slices.Contains(p.AvoidedCategories, c)
}

// EnergyAt returns the estimated energy level for an hour: the level of
// the first band containing it, or DefaultEnergy.
func (p Profile) EnergyAt(hour int) int {
	for _, b := range p.EnergyBands {
		if slices.Contains(b.Hours, hour) {
			return b.Level
		}
	}
	return p.DefaultEnergy
}

// Validate checks hour ranges, energy levels and positive lengths.
func (p Profile) Validate() error {
	for _, h := range append(slices.Clone(p.PeakHours), p.LowEnergyHours...) {
		if h < 0 || h > 23 {
			return fmt.Errorf("hour %d out of range [0,23]", h)
		}
	}
	if p.FirstHour < 0 || p.LastHour > 23 || p.FirstHour > p.LastHour {
		return fmt.Errorf("invalid active hours %d..%d", p.FirstHour, p.LastHour)
	}
	hw := p.HourWeights
	if hw.Base <= 0 || hw.Peak <= 0 || hw.LowEnergy <= 0 {
		return fmt.Errorf("hour weights must be positive")
	}
	if p.OptimalTaskLength <= 0 {
		return fmt.Errorf("optimal task length must be positive, got %f", p.OptimalTaskLength)
	}
	if p.ComplexityThreshold < 1 || p.ComplexityThreshold > 10 {
		return fmt.Errorf("complexity threshold %f out of range [1,10]", p.ComplexityThreshold)
	}
	for _, b := range p.EnergyBands {
		if b.Level < 1 || b.Level > 10 {
			return fmt.Errorf("energy level %d out of range [1,10]", b.Level)
		}
		for _, h := range b.Hours {
			if h < 0 || h > 23 {
				return fmt.Errorf("energy band hour %d out of range [0,23]", h)
			}
		}
	}
	if p.DefaultEnergy < 1 || p.DefaultEnergy > 10 {
		return fmt.Errorf("default energy %d out of range [1,10]", p.DefaultEnergy)
	}
	return nil
}

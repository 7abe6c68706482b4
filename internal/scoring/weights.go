package scoring

import (
	"fmt"
)

// Adjustments defines the signed contribution of each friendliness rule
// and the thresholds at which the length and complexity rules fire.
type Adjustments struct {
	Base      float64 `yaml:"base"`
	Peak      float64 `yaml:"peak"`
	LowEnergy float64 `yaml:"low_energy"`
	Short     float64 `yaml:"short"`
	Long      float64 `yaml:"long"`
	Simple    float64 `yaml:"simple"`
	Complex   float64 `yaml:"complex"`
	Routine   float64 `yaml:"routine"`
	Preferred float64 `yaml:"preferred"`
	Avoided   float64 `yaml:"avoided"`

	ShortMaxMinutes float64 `yaml:"short_max_minutes"`
	LongMinMinutes  float64 `yaml:"long_min_minutes"`
	SimpleMax       float64 `yaml:"simple_max"`
	ComplexMin      float64 `yaml:"complex_min"`
}

// DefaultAdjustments returns the stock friendliness rules.
func DefaultAdjustments() Adjustments {
	return Adjustments{
		Base:      0.5,
		Peak:      0.3,
		LowEnergy: -0.2,
		Short:     0.2,
		Long:      -0.3,
		Simple:    0.2,
		Complex:   -0.3,
		Routine:   0.2,
		Preferred: 0.2,
		Avoided:   -0.1,

		ShortMaxMinutes: 25,
		LongMinMinutes:  60,
		SimpleMax:       5,
		ComplexMin:      7,
	}
}

// Validate checks the base score and that thresholds do not overlap.
func (a Adjustments) Validate() error {
	if a.Base < 0 || a.Base > 1 {
		return fmt.Errorf("base score %.2f out of range [0,1]", a.Base)
	}
	if a.ShortMaxMinutes <= 0 || a.LongMinMinutes < a.ShortMaxMinutes {
		return fmt.Errorf("length thresholds invalid: short <= %.0f, long > %.0f", a.ShortMaxMinutes, a.LongMinMinutes)
	}
	if a.ComplexMin < a.SimpleMax {
		return fmt.Errorf("complexity thresholds invalid: simple <= %.0f, complex > %.0f", a.SimpleMax, a.ComplexMin)
	}
	return nil
}

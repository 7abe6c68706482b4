// Package synth produces labeled task-interaction rows from a behavioral
// profile, for training the completion classifier.
package synth

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/MikeSquared-Agency/ClearHead/internal/behavior"
	"github.com/MikeSquared-Agency/ClearHead/internal/task"
)

// DefaultSeed is the seed used for model training.
const DefaultSeed uint64 = 42

const (
	lengthStdDev    = 15.0
	minLength       = 5.0
	routineRate     = 0.3
	meanAgeDays     = 2.0
	meanIdleMinutes = 60.0
	momentumLambda  = 1.0
)

var priorityWeights = []float64{0.2, 0.3, 0.5} // high, medium, low

// Sample is one synthetic row: a record plus its completion label.
type Sample struct {
	task.Record
	Probability float64 `json:"completion_probability"`
	Completed   bool    `json:"completed"`
}

// Generator draws independent samples. Two generators built from the
// same profile and seed produce identical sequences. Every distribution
// draws from the one seeded source.
type Generator struct {
	profile behavior.Profile
	rng     *rand.Rand

	hours    []int
	hour     distuv.Categorical
	priority distuv.Categorical
	category distuv.Categorical
	momentum distuv.Poisson
}

func NewGenerator(profile behavior.Profile, seed uint64) *Generator {
	src := rand.NewPCG(seed, seed)
	g := &Generator{
		profile:  profile,
		rng:      rand.New(src),
		priority: distuv.NewCategorical(priorityWeights, src),
		momentum: distuv.Poisson{Lambda: momentumLambda, Src: src},
	}
	var hourWeights, catWeights []float64
	for h := profile.FirstHour; h <= profile.LastHour; h++ {
		w := profile.HourWeights.Base
		switch {
		case profile.IsPeak(h):
			w = profile.HourWeights.Peak
		case profile.IsLowEnergy(h):
			w = profile.HourWeights.LowEnergy
		}
		g.hours = append(g.hours, h)
		hourWeights = append(hourWeights, w)
	}
	for _, c := range task.Categories {
		w := 1.0
		switch {
		case profile.IsPreferred(c):
			w = 3.0
		case profile.IsAvoided(c):
			w = 0.5
		}
		catWeights = append(catWeights, w)
	}
	g.hour = distuv.NewCategorical(hourWeights, src)
	g.category = distuv.NewCategorical(catWeights, src)
	return g
}

// Generate returns n samples.
func (g *Generator) Generate(n int) []Sample {
	out := make([]Sample, 0, n)
	for range n {
		out = append(out, g.next())
	}
	return out
}

func (g *Generator) next() Sample {
	p := g.profile
	hour := g.hours[int(g.hour.Rand())]
	r := task.Record{
		Hour:             hour,
		Weekday:          g.rng.IntN(7),
		Priority:         task.Priorities[int(g.priority.Rand())],
		Category:         task.Categories[int(g.category.Rand())],
		LengthMinutes:    math.Max(minLength, p.OptimalTaskLength+g.rng.NormFloat64()*lengthStdDev),
		Energy:           g.energy(hour),
		Complexity:       1 + 9*g.rng.Float64(),
		Routine:          g.rng.Float64() < routineRate,
		DaysSinceCreated: g.rng.ExpFloat64() * meanAgeDays,
		Momentum:         int(g.momentum.Rand()),
		IdleMinutes:      g.rng.ExpFloat64() * meanIdleMinutes,
	}
	prob := CompletionProbability(r, p)
	return Sample{
		Record:      r,
		Probability: prob,
		Completed:   g.rng.Float64() < prob,
	}
}

// energy models an elevated level at peak hours, a depressed level at
// low-energy hours and a wider neutral spread otherwise, clamped to [1,10].
func (g *Generator) energy(hour int) float64 {
	const base = 5.0
	var e float64
	switch {
	case g.profile.IsPeak(hour):
		e = base + 3 + g.rng.NormFloat64()
	case g.profile.IsLowEnergy(hour):
		e = base - 2 + g.rng.NormFloat64()
	default:
		e = base + 1.5*g.rng.NormFloat64()
	}
	return clamp(e, 1, 10)
}

// CompletionProbability is the labeling heuristic: signed adjustments
// against a base of 0.5, clamped to [0.05, 0.95].
func CompletionProbability(r task.Record, p behavior.Profile) float64 {
	prob := 0.5

	switch {
	case p.IsPeak(r.Hour):
		prob += 0.3
	case p.IsLowEnergy(r.Hour):
		prob -= 0.3
	}

	prob += (r.Energy - 5) * 0.08

	lengthPenalty := math.Abs(r.LengthMinutes-p.OptimalTaskLength) / p.OptimalTaskLength
	prob -= lengthPenalty * 0.4

	if r.Complexity > p.ComplexityThreshold {
		prob -= (r.Complexity - p.ComplexityThreshold) * 0.1
	}

	preferred := p.IsPreferred(r.Category)
	avoided := p.IsAvoided(r.Category)
	switch {
	case preferred:
		prob += 0.2
	case avoided:
		prob -= 0.3
	}

	switch {
	case r.Priority == task.PriorityHigh && avoided:
		prob -= 0.2
	case r.Priority == task.PriorityLow && preferred:
		prob += 0.1
	}

	if r.Routine {
		prob += 0.15
	}

	prob += math.Min(0.3, float64(r.Momentum)*0.1)

	return clamp(prob, 0.05, 0.95)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

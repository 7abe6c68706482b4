package scoring

import (
	"time"

	"github.com/MikeSquared-Agency/ClearHead/internal/behavior"
	"github.com/MikeSquared-Agency/ClearHead/internal/task"
)

// Friendliness is the rule-based score for one record at one moment.
type Friendliness struct {
	Score   float64        `json:"score"`
	Factors []FactorResult `json:"factors"`
}

// Scorer computes friendliness scores and reasoning text. It holds no
// mutable state and is safe for concurrent use.
type Scorer struct {
	profile behavior.Profile
	adj     Adjustments
}

func NewScorer(profile behavior.Profile, adj Adjustments) *Scorer {
	return &Scorer{profile: profile, adj: adj}
}

// Friendliness scores rec against the hour of now. The record's own
// hour field is ignored.
func (s *Scorer) Friendliness(rec *task.Record, now time.Time) Friendliness {
	fc := &FactorContext{
		Record:  rec,
		Hour:    now.Hour(),
		Profile: s.profile,
		Adj:     s.adj,
	}

	factors := []FactorResult{
		TimeOfDayFactor(fc),
		LengthFactor(fc),
		ComplexityFactor(fc),
		RoutineFactor(fc),
		CategoryFactor(fc),
	}

	total := s.adj.Base
	for _, f := range factors {
		total += f.Delta
	}

	return Friendliness{
		Score:   clamp(total, 0.0, 1.0),
		Factors: factors,
	}
}

// Reasons returns up to MaxReasons sentences explaining a recommendation.
func (s *Scorer) Reasons(rec *task.Record, probability float64, now time.Time) []string {
	return Reasons(rec, probability, now.Hour(), s.profile)
}

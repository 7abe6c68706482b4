package scoring

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/MikeSquared-Agency/ClearHead/internal/task"
)

// DefaultLimit is the number of recommendations returned per batch.
const DefaultLimit = 3

// Predictor returns a completion probability per record, in order.
type Predictor interface {
	Predict(records []task.Record) ([]float64, error)
}

// Recommendation is one ranked record.
type Recommendation struct {
	Record       *task.Record   `json:"-"`
	Probability  float64        `json:"completion_probability"`
	Friendliness float64        `json:"friendliness"`
	Reasons      []string       `json:"reasons"`
	Factors      []FactorResult `json:"factors"`
	Rank         int            `json:"rank"`
}

// Ranker combines classifier probability with the friendliness score.
type Ranker struct {
	scorer    *Scorer
	predictor Predictor
	limit     int
	logger    *slog.Logger
}

func NewRanker(scorer *Scorer, predictor Predictor, logger *slog.Logger) *Ranker {
	return &Ranker{
		scorer:    scorer,
		predictor: predictor,
		limit:     DefaultLimit,
		logger:    logger,
	}
}

// Rank scores every record, sorts by friendliness then probability, both
// descending, and returns the top entries with 1-based ranks. Ties on
// both keys keep input order.
func (r *Ranker) Rank(records []task.Record, now time.Time) ([]Recommendation, error) {
	if len(records) == 0 {
		return []Recommendation{}, nil
	}

	probs, err := r.predictor.Predict(records)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(probs) != len(records) {
		return nil, fmt.Errorf("predict: got %d probabilities for %d records", len(probs), len(records))
	}

	recs := make([]Recommendation, len(records))
	for i := range records {
		rec := &records[i]
		f := r.scorer.Friendliness(rec, now)
		recs[i] = Recommendation{
			Record:       rec,
			Probability:  probs[i],
			Friendliness: f.Score,
			Reasons:      r.scorer.Reasons(rec, probs[i], now),
			Factors:      f.Factors,
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Friendliness != recs[j].Friendliness {
			return recs[i].Friendliness > recs[j].Friendliness
		}
		return recs[i].Probability > recs[j].Probability
	})

	if len(recs) > r.limit {
		recs = recs[:r.limit]
	}
	for i := range recs {
		recs[i].Rank = i + 1
	}

	r.logger.Debug("ranked records", "candidates", len(records), "returned", len(recs))
	return recs, nil
}

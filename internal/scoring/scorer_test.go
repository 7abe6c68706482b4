package scoring

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/ClearHead/internal/behavior"
	"github.com/MikeSquared-Agency/ClearHead/internal/synth"
	"github.com/MikeSquared-Agency/ClearHead/internal/task"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func at(hour int) time.Time {
	return time.Date(2025, 3, 12, hour, 15, 0, 0, time.UTC)
}

func defaultScorer() *Scorer {
	return NewScorer(behavior.DefaultProfile(), DefaultAdjustments())
}

func TestDefaultAdjustmentsValid(t *testing.T) {
	if err := DefaultAdjustments().Validate(); err != nil {
		t.Errorf("default adjustments invalid: %v", err)
	}
}

func TestAdjustmentsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Adjustments)
	}{
		{"base above one", func(a *Adjustments) { a.Base = 1.5 }},
		{"negative base", func(a *Adjustments) { a.Base = -0.1 }},
		{"zero short threshold", func(a *Adjustments) { a.ShortMaxMinutes = 0 }},
		{"long below short", func(a *Adjustments) { a.LongMinMinutes = 10 }},
		{"complex below simple", func(a *Adjustments) { a.ComplexMin = 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := DefaultAdjustments()
			tt.mutate(&a)
			if err := a.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestFriendliness(t *testing.T) {
	tests := []struct {
		name string
		hour int
		rec  task.Record
		want float64
	}{
		{
			name: "everything favourable clamps to one",
			hour: 10,
			rec:  task.Record{LengthMinutes: 15, Complexity: 3, Routine: true, Category: task.CategoryLearning},
			want: 1.0,
		},
		{
			name: "everything unfavourable clamps to zero",
			hour: 14,
			rec:  task.Record{LengthMinutes: 90, Complexity: 9, Category: task.CategoryFinance},
			want: 0.0,
		},
		{
			name: "neutral",
			hour: 8,
			rec:  task.Record{LengthMinutes: 30, Complexity: 6, Category: task.CategoryWork},
			want: 0.5,
		},
		{
			name: "low energy offset by short task",
			hour: 14,
			rec:  task.Record{LengthMinutes: 15, Complexity: 6, Category: task.CategoryWork},
			want: 0.5,
		},
		{
			name: "boundaries are inclusive for short and simple",
			hour: 8,
			rec:  task.Record{LengthMinutes: 25, Complexity: 5, Category: task.CategoryHome},
			want: 0.9,
		},
		{
			name: "boundaries are exclusive for long and complex",
			hour: 8,
			rec:  task.Record{LengthMinutes: 60, Complexity: 7, Category: task.CategoryHome},
			want: 0.5,
		},
		{
			name: "avoided category",
			hour: 8,
			rec:  task.Record{LengthMinutes: 30, Complexity: 6, Category: task.CategoryErrands},
			want: 0.4,
		},
		{
			name: "peak hour with long complex task",
			hour: 21,
			rec:  task.Record{LengthMinutes: 90, Complexity: 8, Category: task.CategoryWork},
			want: 0.2,
		},
	}

	s := defaultScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Friendliness(&tt.rec, at(tt.hour))
			if math.Abs(got.Score-tt.want) > 1e-9 {
				t.Errorf("got %f, want %f", got.Score, tt.want)
			}
			if len(got.Factors) != 5 {
				t.Errorf("expected 5 factors, got %d", len(got.Factors))
			}
		})
	}
}

func TestFriendlinessUsesReferenceHour(t *testing.T) {
	s := defaultScorer()
	rec := task.Record{Hour: 14, LengthMinutes: 45, Complexity: 6, Category: task.CategoryWork}
	got := s.Friendliness(&rec, at(10))
	if math.Abs(got.Score-0.8) > 1e-9 {
		t.Errorf("expected record hour to be ignored, got %f", got.Score)
	}
}

func TestFriendlinessPureAndBounded(t *testing.T) {
	s := defaultScorer()
	samples := synth.NewGenerator(behavior.DefaultProfile(), 7).Generate(300)
	for hour := 0; hour < 24; hour++ {
		for i := range samples {
			rec := samples[i].Record
			a := s.Friendliness(&rec, at(hour)).Score
			b := s.Friendliness(&rec, at(hour)).Score
			if a != b {
				t.Fatalf("friendliness not deterministic: %f vs %f", a, b)
			}
			if a < 0 || a > 1 {
				t.Fatalf("friendliness %f out of [0,1]", a)
			}
		}
	}
}

func TestFactorReasons(t *testing.T) {
	s := defaultScorer()
	rec := task.Record{LengthMinutes: 15, Complexity: 9, Category: task.CategoryFinance}
	f := s.Friendliness(&rec, at(9))

	want := map[string]bool{
		"time_of_day": true,
		"length":      true,
		"complexity":  true,
		"routine":     false,
		"category":    true,
	}
	for _, fr := range f.Factors {
		if fr.Applied != want[fr.Name] {
			t.Errorf("factor %s applied=%v, want %v", fr.Name, fr.Applied, want[fr.Name])
		}
		if !fr.Applied && fr.Delta != 0 {
			t.Errorf("factor %s not applied but delta=%f", fr.Name, fr.Delta)
		}
	}
}

func TestReasons(t *testing.T) {
	tests := []struct {
		name string
		hour int
		rec  task.Record
		prob float64
		want []string
	}{
		{
			name: "truncated to first three in checklist order",
			hour: 10,
			rec:  task.Record{Energy: 8, Complexity: 3, Routine: true, LengthMinutes: 15, Category: task.CategoryLearning},
			prob: 0.9,
			want: []string{ReasonFocusTime, ReasonGoodMatch, ReasonRoutine},
		},
		{
			name: "nothing fires",
			hour: 8,
			rec:  task.Record{Energy: 5, Complexity: 5, LengthMinutes: 45, Category: task.CategoryWork},
			prob: 0.5,
			want: []string{},
		},
		{
			name: "afternoon dip with a heavy task",
			hour: 14,
			rec:  task.Record{Energy: 3, Complexity: 9, LengthMinutes: 90, Category: task.CategoryFinance},
			prob: 0.1,
			want: []string{ReasonEnergyDip, ReasonPoorMatch, ReasonLongTask},
		},
		{
			name: "category and probability only",
			hour: 8,
			rec:  task.Record{Energy: 5, Complexity: 5, LengthMinutes: 45, Category: task.CategoryErrands},
			prob: 0.2,
			want: []string{ReasonAdministrative, ReasonChallenging},
		},
		{
			name: "short task at thirty minutes",
			hour: 18,
			rec:  task.Record{Energy: 5, Complexity: 5, LengthMinutes: 30, Category: task.CategoryPersonal},
			prob: 0.75,
			want: []string{ReasonShortTask, ReasonInterestDriven, ReasonHighLikelihood},
		},
	}

	p := behavior.DefaultProfile()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reasons(&tt.rec, tt.prob, tt.hour, p)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("reason %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

type stubPredictor struct {
	probs []float64
	err   error
}

func (s stubPredictor) Predict(records []task.Record) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.probs, nil
}

func sampleRecords(n int) []task.Record {
	samples := synth.NewGenerator(behavior.DefaultProfile(), 11).Generate(n)
	out := make([]task.Record, n)
	for i, s := range samples {
		out[i] = s.Record
	}
	return out
}

func assertSorted(t *testing.T, recs []Recommendation) {
	t.Helper()
	for i := 1; i < len(recs); i++ {
		a, b := recs[i-1], recs[i]
		if a.Friendliness < b.Friendliness ||
			(a.Friendliness == b.Friendliness && a.Probability < b.Probability) {
			t.Errorf("entries %d and %d out of order: (%f,%f) before (%f,%f)",
				i-1, i, a.Friendliness, a.Probability, b.Friendliness, b.Probability)
		}
	}
	for i, r := range recs {
		if r.Rank != i+1 {
			t.Errorf("entry %d has rank %d", i, r.Rank)
		}
	}
}

func TestRankReturnsTopThree(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	for _, n := range []int{4, 5, 10, 50} {
		records := sampleRecords(n)
		probs := make([]float64, n)
		for i := range probs {
			probs[i] = rng.Float64()
		}
		r := NewRanker(defaultScorer(), stubPredictor{probs: probs}, discardLogger())
		recs, err := r.Rank(records, at(10))
		if err != nil {
			t.Fatalf("Rank: %v", err)
		}
		if len(recs) != 3 {
			t.Fatalf("n=%d: expected 3 recommendations, got %d", n, len(recs))
		}
		assertSorted(t, recs)
		for _, rec := range recs {
			if len(rec.Reasons) > MaxReasons {
				t.Errorf("too many reasons: %v", rec.Reasons)
			}
			if rec.Record == nil {
				t.Error("recommendation lost its record")
			}
		}
	}
}

func TestRankTieBreakOnProbability(t *testing.T) {
	rec := task.Record{LengthMinutes: 30, Complexity: 6, Category: task.CategoryWork}
	records := []task.Record{rec, rec, rec, rec}
	for i := range records {
		records[i].Task = &task.Task{ID: string(rune('a' + i))}
	}
	r := NewRanker(defaultScorer(), stubPredictor{probs: []float64{0.2, 0.9, 0.5, 0.7}}, discardLogger())

	recs, err := r.Rank(records, at(8))
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	got := []string{recs[0].Record.Task.ID, recs[1].Record.Task.ID, recs[2].Record.Task.ID}
	want := []string{"b", "d", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got order %v, want %v", got, want)
		}
	}
}

func TestRankFriendlinessIsPrimaryKey(t *testing.T) {
	friendly := task.Record{LengthMinutes: 15, Complexity: 3, Category: task.CategoryWork}
	hostile := task.Record{LengthMinutes: 90, Complexity: 9, Category: task.CategoryWork}
	r := NewRanker(defaultScorer(), stubPredictor{probs: []float64{0.99, 0.01}}, discardLogger())

	recs, err := r.Rank([]task.Record{hostile, friendly}, at(8))
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if recs[0].Probability != 0.01 {
		t.Errorf("expected the friendlier task first despite lower probability")
	}
}

func TestRankFewerThanLimit(t *testing.T) {
	r := NewRanker(defaultScorer(), stubPredictor{probs: []float64{0.4, 0.6}}, discardLogger())
	recs, err := r.Rank(sampleRecords(2), at(12))
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("expected 2, got %d", len(recs))
	}
	assertSorted(t, recs)
}

func TestRankEmpty(t *testing.T) {
	r := NewRanker(defaultScorer(), stubPredictor{err: errors.New("must not be called")}, discardLogger())
	recs, err := r.Rank(nil, at(12))
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if recs == nil || len(recs) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", recs)
	}
}

func TestRankPredictorErrors(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		r := NewRanker(defaultScorer(), stubPredictor{err: errors.New("boom")}, discardLogger())
		if _, err := r.Rank(sampleRecords(4), at(12)); err == nil {
			t.Error("expected error")
		}
	})
	t.Run("length mismatch", func(t *testing.T) {
		r := NewRanker(defaultScorer(), stubPredictor{probs: []float64{0.5}}, discardLogger())
		if _, err := r.Rank(sampleRecords(4), at(12)); err == nil {
			t.Error("expected error")
		}
	})
}

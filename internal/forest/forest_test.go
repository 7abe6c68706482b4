package forest

import (
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blocks builds a dataset where the label depends on features 0 and 1
// and feature 2 is noise.
func blocks(n int, seed uint64) ([][]float64, []bool) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := make([][]float64, n)
	y := make([]bool, n)
	for i := range n {
		a, b := rng.Float64(), rng.Float64()
		X[i] = []float64{a, b, rng.Float64()}
		y[i] = a > 0.5 && b > 0.3
	}
	return X, y
}

func smallParams() Params {
	p := DefaultParams()
	p.Trees = 20
	p.MaxFeatures = 2
	return p
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.Trees = 0
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.MinSamplesSplit = 1
	assert.Error(t, p.Validate())
}

func TestFitErrors(t *testing.T) {
	_, err := Fit(nil, nil, DefaultParams())
	assert.ErrorIs(t, err, ErrNoData)

	_, err = Fit([][]float64{{1}, {2}}, []bool{true}, DefaultParams())
	assert.Error(t, err)

	_, err = Fit([][]float64{{1, 2}, {2}}, []bool{true, false}, DefaultParams())
	assert.Error(t, err)
}

func TestFitLearnsBlocks(t *testing.T) {
	X, y := blocks(800, 1)
	f, err := Fit(X, y, smallParams())
	require.NoError(t, err)
	require.NoError(t, f.Validate())

	Xt, yt := blocks(200, 2)
	var correct int
	for i, x := range Xt {
		p := f.PredictProba(x)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		if (p > 0.5) == yt[i] {
			correct++
		}
	}
	assert.Greater(t, float64(correct)/float64(len(Xt)), 0.85)

	// noise feature should matter least
	assert.Less(t, f.Importances[2], f.Importances[0])
	assert.Less(t, f.Importances[2], f.Importances[1])
	var sum float64
	for _, v := range f.Importances {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestFitDeterministic(t *testing.T) {
	X, y := blocks(300, 3)
	a, err := Fit(X, y, smallParams())
	require.NoError(t, err)
	b, err := Fit(X, y, smallParams())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFitSingleClass(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []bool{true, true, true, true}
	f, err := Fit(X, y, smallParams())
	require.NoError(t, err)
	assert.Equal(t, 1.0, f.PredictProba([]float64{2.5}))
}

func TestMaxDepthRespected(t *testing.T) {
	X, y := blocks(400, 4)
	p := smallParams()
	p.MaxDepth = 1
	f, err := Fit(X, y, p)
	require.NoError(t, err)
	for _, tr := range f.Trees {
		assert.LessOrEqual(t, len(tr.Nodes), 3)
	}
}

func TestJSONRoundTripPredictsIdentically(t *testing.T) {
	X, y := blocks(300, 5)
	f, err := Fit(X, y, smallParams())
	require.NoError(t, err)

	data, err := json.Marshal(f)
	require.NoError(t, err)
	var restored Forest
	require.NoError(t, json.Unmarshal(data, &restored))
	require.NoError(t, restored.Validate())

	for _, x := range X {
		assert.Equal(t, f.PredictProba(x), restored.PredictProba(x))
	}
}

func TestValidateRejectsCorruptForest(t *testing.T) {
	X, y := blocks(100, 6)
	f, err := Fit(X, y, smallParams())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(f *Forest)
	}{
		{"no trees", func(f *Forest) { f.Trees = nil }},
		{"empty tree", func(f *Forest) { f.Trees[0].Nodes = nil }},
		{"importances mismatch", func(f *Forest) { f.Importances = f.Importances[:1] }},
		{"feature out of range", func(f *Forest) { f.Trees[0].Nodes[0].Feature = 99 }},
		{"self loop", func(f *Forest) { f.Trees[0].Nodes[0].Left = 0 }},
		{"leaf value out of range", func(f *Forest) {
			f.Trees[0].Nodes = []Node{{Feature: -1, Value: 2}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(f)
			require.NoError(t, err)
			var c Forest
			require.NoError(t, json.Unmarshal(data, &c))
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestScaler(t *testing.T) {
	X := [][]float64{{1, 5}, {3, 5}, {5, 5}}
	s, err := FitScaler(X)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, s.Mean[0], 1e-12)
	assert.InDelta(t, 1.632993161855452, s.Scale[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[1], "constant column keeps unit scale")
	require.NoError(t, s.Validate(2))

	out := s.Transform([][]float64{{3, 5}})
	assert.InDelta(t, 0.0, out[0][0], 1e-12)
	assert.InDelta(t, 0.0, out[0][1], 1e-12)

	// input untouched
	assert.Equal(t, []float64{1, 5}, X[0])

	assert.Error(t, s.Validate(3))
	_, err = FitScaler(nil)
	assert.ErrorIs(t, err, ErrNoData)
}

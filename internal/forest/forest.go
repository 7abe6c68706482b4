// Package forest implements a binary random-forest classifier over dense
// float64 feature vectors, and the standard scaler used in front of it.
package forest

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

// Params are the forest hyperparameters.
type Params struct {
	Trees           int    `json:"trees"`
	MaxDepth        int    `json:"max_depth"`
	MinSamplesSplit int    `json:"min_samples_split"`
	MinSamplesLeaf  int    `json:"min_samples_leaf"`
	MaxFeatures     int    `json:"max_features"` // 0 means floor(sqrt(d))
	Balanced        bool   `json:"balanced"`
	Seed            uint64 `json:"seed"`
}

// DefaultParams returns the fixed configuration used for completion models.
func DefaultParams() Params {
	return Params{
		Trees:           100,
		MaxDepth:        12,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  2,
		Balanced:        true,
		Seed:            42,
	}
}

func (p Params) Validate() error {
	if p.Trees < 1 {
		return fmt.Errorf("trees must be >= 1, got %d", p.Trees)
	}
	if p.MaxDepth < 1 {
		return fmt.Errorf("max depth must be >= 1, got %d", p.MaxDepth)
	}
	if p.MinSamplesSplit < 2 {
		return fmt.Errorf("min samples split must be >= 2, got %d", p.MinSamplesSplit)
	}
	if p.MinSamplesLeaf < 1 {
		return fmt.Errorf("min samples leaf must be >= 1, got %d", p.MinSamplesLeaf)
	}
	if p.MaxFeatures < 0 {
		return fmt.Errorf("max features must be >= 0, got %d", p.MaxFeatures)
	}
	return nil
}

// Node is a tree node. Leaves have Feature == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"` // weighted fraction of positive samples
}

// Tree is a flattened decision tree; Nodes[0] is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict returns the positive-class probability of the leaf x falls in.
// Samples with x[f] <= threshold go left.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Forest is a fitted ensemble.
type Forest struct {
	Params      Params    `json:"params"`
	Features    int       `json:"features"`
	Trees       []Tree    `json:"trees"`
	Importances []float64 `json:"importances"`
}

var ErrNoData = errors.New("no training data")

// Fit grows a forest on X with binary labels y. Each tree sees a
// bootstrap sample; with Balanced set, samples are weighted by
// n / (2 * count(class)).
func Fit(X [][]float64, y []bool, p Params) (*Forest, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(X) == 0 {
		return nil, ErrNoData
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("got %d rows and %d labels", len(X), len(y))
	}
	d := len(X[0])
	for i, row := range X {
		if len(row) != d {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), d)
		}
	}

	classWeight := [2]float64{1, 1}
	if p.Balanced {
		var pos int
		for _, v := range y {
			if v {
				pos++
			}
		}
		n := float64(len(y))
		if neg := len(y) - pos; neg > 0 {
			classWeight[0] = n / (2 * float64(neg))
		}
		if pos > 0 {
			classWeight[1] = n / (2 * float64(pos))
		}
	}

	mtry := p.MaxFeatures
	if mtry == 0 {
		mtry = int(math.Sqrt(float64(d)))
	}
	mtry = max(1, min(mtry, d))

	rng := rand.New(rand.NewPCG(p.Seed, p.Seed))
	f := &Forest{
		Params:      p,
		Features:    d,
		Trees:       make([]Tree, 0, p.Trees),
		Importances: make([]float64, d),
	}
	for range p.Trees {
		b := &builder{
			X:          X,
			y:          y,
			w:          make([]float64, len(X)),
			p:          p,
			mtry:       mtry,
			rng:        rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())),
			importance: make([]float64, d),
		}
		var idx []int
		for range len(X) {
			i := b.rng.IntN(len(X))
			if b.w[i] == 0 {
				idx = append(idx, i)
			}
			b.w[i] += classWeight[label(y[i])]
		}
		slices.Sort(idx)
		b.build(idx, 0)
		f.Trees = append(f.Trees, Tree{Nodes: b.nodes})

		normalize(b.importance)
		for j, v := range b.importance {
			f.Importances[j] += v
		}
	}
	normalize(f.Importances)
	return f, nil
}

// PredictProba averages the trees' positive-class probabilities.
func (f *Forest) PredictProba(x []float64) float64 {
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].Predict(x)
	}
	return sum / float64(len(f.Trees))
}

// Validate checks structural integrity of a forest, typically one
// decoded from storage.
func (f *Forest) Validate() error {
	if f.Features < 1 {
		return fmt.Errorf("forest has %d features", f.Features)
	}
	if len(f.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	if len(f.Importances) != f.Features {
		return fmt.Errorf("forest has %d importances for %d features", len(f.Importances), f.Features)
	}
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Feature < 0 {
				if n.Value < 0 || n.Value > 1 || math.IsNaN(n.Value) {
					return fmt.Errorf("tree %d node %d: leaf value %f out of range", ti, ni, n.Value)
				}
				continue
			}
			if n.Feature >= f.Features {
				return fmt.Errorf("tree %d node %d: feature %d out of range", ti, ni, n.Feature)
			}
			// children are always stored after their parent, so this
			// also rules out cycles
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d: bad child index", ti, ni)
			}
		}
	}
	return nil
}

type builder struct {
	X    [][]float64
	y    []bool
	w    []float64
	p    Params
	mtry int
	rng  *rand.Rand

	nodes      []Node
	importance []float64
}

type split struct {
	feature   int
	threshold float64
	impurity  float64 // weighted child impurity
}

func (b *builder) build(idx []int, depth int) int {
	var wTot, wPos float64
	for _, i := range idx {
		wTot += b.w[i]
		if b.y[i] {
			wPos += b.w[i]
		}
	}
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Value: wPos / wTot})

	if depth >= b.p.MaxDepth || len(idx) < b.p.MinSamplesSplit || len(idx) < 2*b.p.MinSamplesLeaf || wPos == 0 || wPos == wTot {
		return id
	}
	s, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	b.importance[s.feature] += wTot*gini(wPos, wTot) - s.impurity

	var left, right []int
	for _, i := range idx {
		if b.X[i][s.feature] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[id] = Node{
		Feature:   s.feature,
		Threshold: s.threshold,
		Left:      l,
		Right:     r,
		Value:     wPos / wTot,
	}
	return id
}

// bestSplit scans a random subset of features, continuing past the
// subset only while no valid split has been found.
func (b *builder) bestSplit(idx []int) (split, bool) {
	d := len(b.X[0])
	order := b.rng.Perm(d)
	best := split{impurity: math.Inf(1)}
	found := false
	sorted := make([]int, len(idx))

	for visited, f := range order {
		if visited >= b.mtry && found {
			break
		}
		copy(sorted, idx)
		slices.SortStableFunc(sorted, func(i, j int) int {
			return cmp.Compare(b.X[i][f], b.X[j][f])
		})
		if b.X[sorted[0]][f] == b.X[sorted[len(sorted)-1]][f] {
			continue
		}

		var wTot, wPos float64
		for _, i := range sorted {
			wTot += b.w[i]
			if b.y[i] {
				wPos += b.w[i]
			}
		}

		var wL, wLPos float64
		minLeaf := b.p.MinSamplesLeaf
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			wL += b.w[i]
			if b.y[i] {
				wLPos += b.w[i]
			}
			if k+1 < minLeaf || len(sorted)-(k+1) < minLeaf {
				continue
			}
			cur, next := b.X[i][f], b.X[sorted[k+1]][f]
			if cur == next {
				continue
			}
			wR := wTot - wL
			imp := wL*gini(wLPos, wL) + wR*gini(wPos-wLPos, wR)
			if imp < best.impurity {
				threshold := cur + (next-cur)/2
				if threshold == next {
					threshold = cur
				}
				best = split{feature: f, threshold: threshold, impurity: imp}
				found = true
			}
		}
	}
	return best, found
}

func gini(pos, total float64) float64 {
	if total <= 0 {
		return 0
	}
	p := pos / total
	return 2 * p * (1 - p)
}

func label(v bool) int {
	if v {
		return 1
	}
	return 0
}

func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x
	}
	if sum <= 0 {
		return
	}
	for i := range v {
		v[i] /= sum
	}
}

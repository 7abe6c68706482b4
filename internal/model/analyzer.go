// Package model wraps the completion classifier: a standard scaler and a
// random forest fitted together over the encoded feature schema.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/ClearHead/internal/artifact"
	"github.com/MikeSquared-Agency/ClearHead/internal/features"
	"github.com/MikeSquared-Agency/ClearHead/internal/forest"
	"github.com/MikeSquared-Agency/ClearHead/internal/synth"
	"github.com/MikeSquared-Agency/ClearHead/internal/task"
)

var (
	ErrUntrained       = errors.New("model not trained")
	ErrArtifactCorrupt = errors.New("model artifact corrupt")
)

const (
	Type = "RandomForest ADHD-Optimized"

	bundleVersion = 1
	splitSeed     = 42
	testFraction  = 0.2
)

// TrainMetrics reports the outcome of a training run.
type TrainMetrics struct {
	Samples           int                `json:"samples"`
	TrainAccuracy     float64            `json:"train_accuracy"`
	TestAccuracy      float64            `json:"test_accuracy"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	TrainedAt         time.Time          `json:"trained_at"`
}

// Info describes the model in output documents.
type Info struct {
	Type           string `json:"type"`
	Features       int    `json:"features"`
	TrainedLocally bool   `json:"trained_locally"`
}

// bundle is the persisted form. Scaler, forest and feature names are
// written and read as one unit.
type bundle struct {
	Version      int            `json:"version"`
	Type         string         `json:"type"`
	FeatureNames []string       `json:"feature_names"`
	Scaler       *forest.Scaler `json:"scaler"`
	Forest       *forest.Forest `json:"forest"`
}

// Analyzer holds the fitted scaler and classifier. It is safe for
// concurrent Predict calls; Train and Load replace the model atomically.
type Analyzer struct {
	params forest.Params
	logger *slog.Logger

	mu      sync.RWMutex
	scaler  *forest.Scaler
	forest  *forest.Forest
	names   []string
	metrics *TrainMetrics
}

func NewAnalyzer(logger *slog.Logger) *Analyzer {
	return &Analyzer{
		params: forest.DefaultParams(),
		logger: logger,
		names:  slices.Clone(features.Names),
	}
}

// Trained reports whether a model has been fitted or loaded.
func (a *Analyzer) Trained() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.forest != nil
}

func (a *Analyzer) FeatureNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.names)
}

// Metrics returns the last training report, or nil when the model was
// loaded from an artifact or never trained.
func (a *Analyzer) Metrics() *TrainMetrics {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.metrics
}

func (a *Analyzer) Info() Info {
	return Info{Type: Type, Features: len(a.FeatureNames()), TrainedLocally: true}
}

// Train encodes the samples, fits the scaler on all rows, splits 80/20
// with a fixed seed, fits the forest on the training partition and
// reports accuracy on both partitions.
func (a *Analyzer) Train(samples []synth.Sample) (*TrainMetrics, error) {
	b, m, err := a.fit(samples)
	if err != nil {
		return nil, err
	}
	a.install(b, m)
	a.logTrained(m)
	return m, nil
}

// TrainAndSave fits like Train but only installs the new model once it
// has been stored under key. On a save failure the previous model keeps
// serving.
func (a *Analyzer) TrainAndSave(ctx context.Context, samples []synth.Sample, store artifact.Store, key string) (*TrainMetrics, error) {
	b, m, err := a.fit(samples)
	if err != nil {
		return nil, err
	}
	if err := a.put(ctx, store, key, b); err != nil {
		return nil, err
	}
	a.install(b, m)
	a.logTrained(m)
	return m, nil
}

func (a *Analyzer) fit(samples []synth.Sample) (*bundle, *TrainMetrics, error) {
	n := len(samples)
	nTest := int(math.Ceil(float64(n) * testFraction))
	if n-nTest < 1 {
		return nil, nil, fmt.Errorf("train: need at least 2 samples, got %d", n)
	}

	records := make([]task.Record, n)
	y := make([]bool, n)
	for i, s := range samples {
		records[i] = s.Record
		y[i] = s.Completed
	}
	X := features.EncodeBatch(records)

	scaler, err := forest.FitScaler(X)
	if err != nil {
		return nil, nil, fmt.Errorf("fit scaler: %w", err)
	}
	Xs := scaler.Transform(X)

	perm := rand.New(rand.NewPCG(splitSeed, splitSeed)).Perm(n)
	testIdx, trainIdx := perm[:nTest], perm[nTest:]
	Xtrain, ytrain := subset(Xs, y, trainIdx)
	Xtest, ytest := subset(Xs, y, testIdx)

	f, err := forest.Fit(Xtrain, ytrain, a.params)
	if err != nil {
		return nil, nil, fmt.Errorf("fit forest: %w", err)
	}

	importance := make(map[string]float64, len(features.Names))
	for i, name := range features.Names {
		importance[name] = f.Importances[i]
	}
	m := &TrainMetrics{
		Samples:           n,
		TrainAccuracy:     accuracy(f, Xtrain, ytrain),
		TestAccuracy:      accuracy(f, Xtest, ytest),
		FeatureImportance: importance,
		TrainedAt:         time.Now().UTC(),
	}
	b := &bundle{
		Version:      bundleVersion,
		Type:         Type,
		FeatureNames: slices.Clone(features.Names),
		Scaler:       scaler,
		Forest:       f,
	}
	return b, m, nil
}

func (a *Analyzer) install(b *bundle, m *TrainMetrics) {
	a.mu.Lock()
	a.scaler = b.Scaler
	a.forest = b.Forest
	a.names = b.FeatureNames
	a.metrics = m
	a.mu.Unlock()
}

func (a *Analyzer) logTrained(m *TrainMetrics) {
	a.logger.Info("model trained",
		"samples", m.Samples,
		"train_accuracy", m.TrainAccuracy,
		"test_accuracy", m.TestAccuracy,
	)
}

// Predict returns the completion probability for each record, in order.
// The fitted scaler is applied as-is.
func (a *Analyzer) Predict(records []task.Record) ([]float64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.forest == nil {
		return nil, ErrUntrained
	}
	X := a.scaler.Transform(features.EncodeBatch(records))
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = a.forest.PredictProba(x)
	}
	return out, nil
}

// Save writes the scaler, forest and feature names under key.
func (a *Analyzer) Save(ctx context.Context, store artifact.Store, key string) error {
	a.mu.RLock()
	if a.forest == nil {
		a.mu.RUnlock()
		return ErrUntrained
	}
	b := &bundle{
		Version:      bundleVersion,
		Type:         Type,
		FeatureNames: a.names,
		Scaler:       a.scaler,
		Forest:       a.forest,
	}
	a.mu.RUnlock()
	return a.put(ctx, store, key, b)
}

func (a *Analyzer) put(ctx context.Context, store artifact.Store, key string, b *bundle) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	a.logger.Info("model saved", "key", key, "bytes", len(data))
	return nil
}

// Load restores a model saved under key. It returns false with a nil
// error when nothing is stored there. The analyzer is only modified
// once the whole bundle has decoded and validated.
func (a *Analyzer) Load(ctx context.Context, store artifact.Store, key string) (bool, error) {
	data, err := store.Get(ctx, key)
	if errors.Is(err, artifact.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load model: %w", err)
	}

	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return false, fmt.Errorf("%w: %w", ErrArtifactCorrupt, err)
	}
	if err := b.validate(); err != nil {
		return false, fmt.Errorf("%w: %w", ErrArtifactCorrupt, err)
	}

	a.install(&b, nil)

	a.logger.Info("model loaded", "key", key, "trees", len(b.Forest.Trees))
	return true, nil
}

func (b *bundle) validate() error {
	if b.Version != bundleVersion {
		return fmt.Errorf("unsupported bundle version %d", b.Version)
	}
	if !slices.Equal(b.FeatureNames, features.Names) {
		return errors.New("feature schema does not match encoder")
	}
	if b.Scaler == nil || b.Forest == nil {
		return errors.New("bundle missing scaler or forest")
	}
	if err := b.Scaler.Validate(len(b.FeatureNames)); err != nil {
		return err
	}
	if b.Forest.Features != len(b.FeatureNames) {
		return fmt.Errorf("forest has %d features, schema has %d", b.Forest.Features, len(b.FeatureNames))
	}
	return b.Forest.Validate()
}

func subset(X [][]float64, y []bool, idx []int) ([][]float64, []bool) {
	xs := make([][]float64, len(idx))
	ys := make([]bool, len(idx))
	for k, i := range idx {
		xs[k] = X[i]
		ys[k] = y[i]
	}
	return xs, ys
}

func accuracy(f *forest.Forest, X [][]float64, y []bool) float64 {
	if len(X) == 0 {
		return 0
	}
	var correct int
	for i, x := range X {
		if (f.PredictProba(x) > 0.5) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X))
}

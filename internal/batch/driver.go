// Package batch turns an input task document into a ranked
// recommendation document: estimate attributes, load or train the
// classifier, rank and write the result.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/ClearHead/internal/artifact"
	"github.com/MikeSquared-Agency/ClearHead/internal/behavior"
	"github.com/MikeSquared-Agency/ClearHead/internal/estimate"
	"github.com/MikeSquared-Agency/ClearHead/internal/hermes"
	"github.com/MikeSquared-Agency/ClearHead/internal/metrics"
	"github.com/MikeSquared-Agency/ClearHead/internal/model"
	"github.com/MikeSquared-Agency/ClearHead/internal/scoring"
	"github.com/MikeSquared-Agency/ClearHead/internal/store"
	"github.com/MikeSquared-Agency/ClearHead/internal/synth"
	"github.com/MikeSquared-Agency/ClearHead/internal/task"
)

const (
	DefaultSamples  = 2000
	DefaultModelKey = "clearhead_model.json"

	// MaxTrainSamples bounds externally requested training runs.
	MaxTrainSamples = 100_000
)

// Options configures a Driver. Events, Runs and Metrics are optional.
type Options struct {
	Profile     behavior.Profile
	Keywords    estimate.Keywords
	Adjustments scoring.Adjustments

	Artifacts artifact.Store
	ModelKey  string
	Backend   string
	Samples   int
	Seed      uint64

	// Source tags run history rows, e.g. "cli" or "api".
	Source string

	Events  hermes.Client
	Runs    store.Store
	Metrics *metrics.Metrics
	Clock   func() time.Time
}

type Driver struct {
	analyzer  *model.Analyzer
	estimator *estimate.Estimator
	ranker    *scoring.Ranker
	opts      Options
	logger    *slog.Logger

	trainMu sync.Mutex
}

func NewDriver(analyzer *model.Analyzer, opts Options, logger *slog.Logger) *Driver {
	if opts.ModelKey == "" {
		opts.ModelKey = DefaultModelKey
	}
	if opts.Samples <= 0 {
		opts.Samples = DefaultSamples
	}
	if opts.Seed == 0 {
		opts.Seed = synth.DefaultSeed
	}
	if opts.Source == "" {
		opts.Source = "cli"
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	scorer := scoring.NewScorer(opts.Profile, opts.Adjustments)
	return &Driver{
		analyzer:  analyzer,
		estimator: estimate.New(opts.Profile, opts.Keywords),
		ranker:    scoring.NewRanker(scorer, analyzer, logger),
		opts:      opts,
		logger:    logger,
	}
}

func (d *Driver) Analyzer() *model.Analyzer {
	return d.analyzer
}

// EnsureModel loads the persisted model, or trains and saves a fresh
// one when nothing is stored. A corrupt artifact is returned as an
// error rather than silently replaced.
func (d *Driver) EnsureModel(ctx context.Context) error {
	if d.analyzer.Trained() {
		return nil
	}
	d.trainMu.Lock()
	defer d.trainMu.Unlock()
	if d.analyzer.Trained() {
		return nil
	}

	ok, err := d.analyzer.Load(ctx, d.opts.Artifacts, d.opts.ModelKey)
	switch {
	case errors.Is(err, model.ErrArtifactCorrupt):
		d.observeLoad(metrics.LoadCorrupt)
		return fmt.Errorf("%w (run `clearhead train` to replace it)", err)
	case err != nil:
		d.observeLoad(metrics.LoadError)
		return err
	case ok:
		d.observeLoad(metrics.LoadLoaded)
		return nil
	}

	d.observeLoad(metrics.LoadMissing)
	d.logger.Info("no saved model, training", "key", d.opts.ModelKey, "samples", d.opts.Samples)
	_, err = d.train(ctx, d.opts.Samples, d.opts.Seed)
	return err
}

// Train fits a new model unconditionally and overwrites the artifact.
// Zero samples or seed fall back to the configured values.
func (d *Driver) Train(ctx context.Context, samples int, seed uint64) (*model.TrainMetrics, error) {
	if samples <= 0 {
		samples = d.opts.Samples
	}
	if seed == 0 {
		seed = d.opts.Seed
	}
	d.trainMu.Lock()
	defer d.trainMu.Unlock()
	return d.train(ctx, samples, seed)
}

func (d *Driver) train(ctx context.Context, samples int, seed uint64) (*model.TrainMetrics, error) {
	start := time.Now()
	rows := synth.NewGenerator(d.opts.Profile, seed).Generate(samples)
	m, err := d.analyzer.TrainAndSave(ctx, rows, d.opts.Artifacts, d.opts.ModelKey)
	if err != nil {
		return nil, fmt.Errorf("train model: %w", err)
	}
	if d.opts.Metrics != nil {
		d.opts.Metrics.ObserveTraining(m.TrainAccuracy, m.TestAccuracy, time.Since(start))
	}
	d.publish(hermes.SubjectModelTrained, hermes.ModelTrainedEvent{
		Samples:       m.Samples,
		TrainAccuracy: m.TrainAccuracy,
		TestAccuracy:  m.TestAccuracy,
		Backend:       d.opts.Backend,
		Key:           d.opts.ModelKey,
		Timestamp:     m.TrainedAt,
	})
	return m, nil
}

// Run executes one batch: make sure a model exists, read inPath, rank
// and write outPath. The output document is always written. The
// returned error is nil for success and for an empty task list.
func (d *Driver) Run(ctx context.Context, inPath, outPath string) (*Output, error) {
	out, err := d.run(ctx, inPath)
	if werr := WriteOutput(outPath, out); werr != nil {
		return out, errors.Join(err, werr)
	}
	if errors.Is(err, ErrNoTasks) {
		return out, nil
	}
	return out, err
}

func (d *Driver) run(ctx context.Context, inPath string) (*Output, error) {
	if err := d.EnsureModel(ctx); err != nil {
		started := d.opts.Clock()
		out := failureOutput(err)
		d.finish(ctx, uuid.New(), started, 0, out, err)
		return out, err
	}
	in, err := ReadInput(inPath)
	if err != nil {
		started := d.opts.Clock()
		out := failureOutput(err)
		d.finish(ctx, uuid.New(), started, 0, out, err)
		return out, err
	}
	return d.Process(ctx, *in, d.opts.Clock())
}

// Process ranks the incomplete tasks in, as of now. It always returns
// a document; the error is ErrNoTasks when nothing is left to rank, or
// the failure that produced a failure-shaped document.
func (d *Driver) Process(ctx context.Context, in Input, now time.Time) (*Output, error) {
	runID := uuid.New()
	started := d.opts.Clock()

	pending := Pending(in.Tasks)
	if len(pending) == 0 {
		out := noTasksOutput()
		d.finish(ctx, runID, started, 0, out, ErrNoTasks)
		return out, ErrNoTasks
	}

	out, err := d.recommend(ctx, pending, now)
	if err != nil {
		out = failureOutput(err)
	}
	d.finish(ctx, runID, started, len(pending), out, err)
	return out, err
}

func (d *Driver) recommend(ctx context.Context, pending []*task.Task, now time.Time) (*Output, error) {
	if err := d.EnsureModel(ctx); err != nil {
		return nil, err
	}

	records := make([]task.Record, len(pending))
	for i, t := range pending {
		records[i] = d.estimator.Record(t, now)
	}

	ranked, err := d.ranker.Rank(records, now)
	if err != nil {
		return nil, err
	}

	recs := make([]Recommendation, len(ranked))
	for i, r := range ranked {
		recs[i] = Recommendation{
			TaskID:                r.Record.Task.ID,
			CompletionProbability: r.Probability,
			ADHDScore:             r.Friendliness,
			Reasoning:             r.Reasons,
			SuggestedOrder:        r.Rank,
		}
	}

	info := d.analyzer.Info()
	return &Output{
		Success:         true,
		Message:         fmt.Sprintf("Analyzed %d incomplete tasks", len(pending)),
		Recommendations: recs,
		Timestamp:       now.Format(time.RFC3339Nano),
		ModelInfo:       &info,
	}, nil
}

// Pending returns pointers to the tasks not yet completed, in order.
func Pending(tasks []task.Task) []*task.Task {
	out := make([]*task.Task, 0, len(tasks))
	for i := range tasks {
		if !tasks[i].Completed {
			out = append(out, &tasks[i])
		}
	}
	return out
}

// finish logs the run and reports it to metrics, events and run
// history. Reporting failures are logged and never change the result.
func (d *Driver) finish(ctx context.Context, runID uuid.UUID, started time.Time, taskCount int, out *Output, err error) {
	finished := d.opts.Clock()
	elapsed := finished.Sub(started)

	status := metrics.StatusSuccess
	switch {
	case errors.Is(err, ErrNoTasks):
		status = metrics.StatusNoTasks
	case err != nil:
		status = metrics.StatusFailed
	}

	if status == metrics.StatusFailed {
		d.logger.Error("batch run failed", "run_id", runID, "error", err)
		d.publish(hermes.SubjectRunFailed(runID.String()), hermes.RunFailedEvent{
			RunID:     runID.String(),
			Error:     err.Error(),
			Timestamp: finished,
		})
	} else {
		d.logger.Info("batch run complete",
			"run_id", runID,
			"tasks", taskCount,
			"recommendations", len(out.Recommendations),
		)
		ev := hermes.RunCompletedEvent{
			RunID:           runID.String(),
			TaskCount:       taskCount,
			Recommendations: len(out.Recommendations),
			DurationMs:      elapsed.Milliseconds(),
			Timestamp:       finished,
		}
		if len(out.Recommendations) > 0 {
			ev.TopTaskID = out.Recommendations[0].TaskID
		}
		d.publish(hermes.SubjectRunCompleted(runID.String()), ev)
	}

	if d.opts.Metrics != nil {
		d.opts.Metrics.ObserveRun(status, taskCount, len(out.Recommendations), elapsed)
	}

	if d.opts.Runs != nil {
		recs, merr := json.Marshal(out.Recommendations)
		if merr != nil {
			d.logger.Warn("failed to encode recommendations for history", "error", merr)
		}
		run := &store.Run{
			ID:              runID,
			Source:          d.opts.Source,
			StartedAt:       started,
			FinishedAt:      finished,
			Success:         out.Success,
			Message:         out.Message,
			TaskCount:       taskCount,
			Recommendations: recs,
		}
		if rerr := d.opts.Runs.CreateRun(ctx, run); rerr != nil {
			d.logger.Warn("failed to record run", "run_id", runID, "error", rerr)
		}
	}
}

func (d *Driver) publish(subject string, event interface{}) {
	if d.opts.Events == nil {
		return
	}
	if err := d.opts.Events.Publish(subject, event); err != nil {
		d.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

func (d *Driver) observeLoad(result string) {
	if d.opts.Metrics != nil {
		d.opts.Metrics.ObserveLoad(result)
	}
}

// Package metrics holds the Prometheus collectors for batch runs, model
// lifecycle and the HTTP API.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "clearhead"

// Run outcomes used as the status label.
const (
	StatusSuccess = "success"
	StatusNoTasks = "no_tasks"
	StatusFailed  = "failed"
)

// Model load outcomes used as the result label.
const (
	LoadLoaded  = "loaded"
	LoadMissing = "missing"
	LoadCorrupt = "corrupt"
	LoadError   = "error"
)

type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	TasksAnalyzed   prometheus.Counter
	Recommendations prometheus.Counter

	ModelTrainings     prometheus.Counter
	ModelLoads         *prometheus.CounterVec
	ModelTrainAccuracy prometheus.Gauge
	ModelTestAccuracy  prometheus.Gauge
	TrainDuration      prometheus.Histogram

	RequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates the collectors on a private registry. Process and Go
// runtime collectors are included so /metrics is useful on its own.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Batch runs by outcome",
			},
			[]string{"status"},
		),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a batch run",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		TasksAnalyzed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_analyzed_total",
			Help:      "Incomplete tasks scored across all runs",
		}),
		Recommendations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendations written across all runs",
		}),
		ModelTrainings: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "trainings_total",
			Help:      "Completed model training runs",
		}),
		ModelLoads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "model",
				Name:      "loads_total",
				Help:      "Model artifact load attempts by result",
			},
			[]string{"result"},
		),
		ModelTrainAccuracy: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "train_accuracy",
			Help:      "Accuracy on the training partition of the last fit",
		}),
		ModelTestAccuracy: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "test_accuracy",
			Help:      "Accuracy on the held-out partition of the last fit",
		}),
		TrainDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "train_duration_seconds",
			Help:      "Wall time of model training",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route", "status"},
		),
		registry: reg,
	}
}

// ObserveRun records the outcome of one batch run.
func (m *Metrics) ObserveRun(status string, tasks, recommendations int, d time.Duration) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(d.Seconds())
	m.TasksAnalyzed.Add(float64(tasks))
	m.Recommendations.Add(float64(recommendations))
}

// ObserveTraining records a completed fit.
func (m *Metrics) ObserveTraining(trainAcc, testAcc float64, d time.Duration) {
	m.ModelTrainings.Inc()
	m.ModelTrainAccuracy.Set(trainAcc)
	m.ModelTestAccuracy.Set(testAcc)
	m.TrainDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveLoad(result string) {
	m.ModelLoads.WithLabelValues(result).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the private registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Push sends the current values to a Pushgateway. Batch invocations are
// too short-lived to be scraped.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	err := push.New(url, job).
		Gatherer(m.registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun(StatusSuccess, 5, 3, 20*time.Millisecond)
	m.ObserveRun(StatusNoTasks, 0, 0, time.Millisecond)
	m.ObserveRun(StatusSuccess, 2, 2, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(StatusNoTasks)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.TasksAnalyzed))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Recommendations))
}

func TestObserveTraining(t *testing.T) {
	m := New()
	m.ObserveTraining(0.91, 0.74, 2*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelTrainings))
	assert.InDelta(t, 0.91, testutil.ToFloat64(m.ModelTrainAccuracy), 1e-12)
	assert.InDelta(t, 0.74, testutil.ToFloat64(m.ModelTestAccuracy), 1e-12)
}

func TestObserveLoad(t *testing.T) {
	m := New()
	m.ObserveLoad(LoadMissing)
	m.ObserveLoad(LoadLoaded)
	m.ObserveLoad(LoadLoaded)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ModelLoads.WithLabelValues(LoadLoaded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelLoads.WithLabelValues(LoadMissing)))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ModelTrainings.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ModelTrainings))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveRun(StatusFailed, 1, 0, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `clearhead_runs_total{status="failed"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestPush(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.ObserveRun(StatusSuccess, 1, 1, time.Millisecond)
	require.NoError(t, m.Push(context.Background(), srv.URL, "clearhead_batch"))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.True(t, strings.HasSuffix(gotPath, "/metrics/job/clearhead_batch"), gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestPushError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New().Push(context.Background(), srv.URL, "clearhead_batch")
	assert.Error(t, err)
}

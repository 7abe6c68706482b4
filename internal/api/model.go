package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/MikeSquared-Agency/ClearHead/internal/batch"
	"github.com/MikeSquared-Agency/ClearHead/internal/hermes"
	"github.com/MikeSquared-Agency/ClearHead/internal/model"
)

type ModelHandler struct {
	driver *batch.Driver
}

func NewModelHandler(d *batch.Driver) *ModelHandler {
	return &ModelHandler{driver: d}
}

type modelResponse struct {
	model.Info
	Trained      bool                `json:"trained"`
	FeatureNames []string            `json:"feature_names"`
	Metrics      *model.TrainMetrics `json:"metrics,omitempty"`
}

func (h *ModelHandler) Get(w http.ResponseWriter, r *http.Request) {
	a := h.driver.Analyzer()
	writeJSON(w, http.StatusOK, modelResponse{
		Info:         a.Info(),
		Trained:      a.Trained(),
		FeatureNames: a.FeatureNames(),
		Metrics:      a.Metrics(),
	})
}

// Train retrains from fresh synthetic data and overwrites the stored
// model. The body is optional.
func (h *ModelHandler) Train(w http.ResponseWriter, r *http.Request) {
	var req hermes.RetrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Samples < 0 || req.Samples > batch.MaxTrainSamples {
		writeError(w, http.StatusBadRequest, "samples out of range")
		return
	}

	m, err := h.driver.Train(r.Context(), req.Samples, req.Seed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, m)
}

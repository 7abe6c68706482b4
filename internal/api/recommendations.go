package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/ClearHead/internal/batch"
)

const maxInputBytes = 1 << 20

type RecommendationsHandler struct {
	driver *batch.Driver
	clock  func() time.Time
}

func NewRecommendationsHandler(d *batch.Driver) *RecommendationsHandler {
	return &RecommendationsHandler{driver: d, clock: time.Now}
}

// Create accepts an input document and answers with the output document.
// The optional `at` query parameter (RFC 3339) overrides the reference time.
func (h *RecommendationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	if at := r.URL.Query().Get("at"); at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid at: must be RFC 3339")
			return
		}
		now = t
	}

	var in batch.Input
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInputBytes)).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, &batch.Output{
			Message:         fmt.Sprintf("Error processing tasks: %v", err),
			Recommendations: []batch.Recommendation{},
		})
		return
	}

	out, err := h.driver.Process(r.Context(), in, now)
	switch {
	case err == nil, errors.Is(err, batch.ErrNoTasks):
		writeJSON(w, http.StatusOK, out)
	default:
		writeJSON(w, http.StatusInternalServerError, out)
	}
}

package batch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MikeSquared-Agency/ClearHead/internal/hermes"
)

// SubscribeRetrain retrains the model whenever a request arrives on the
// retrain subject. An empty payload uses the configured sample count and
// seed.
func (d *Driver) SubscribeRetrain(client hermes.Client) error {
	if client == nil {
		return nil
	}
	err := client.Subscribe(hermes.SubjectModelRetrain, func(_ string, data []byte) {
		var req hermes.RetrainRequest
		if len(data) > 0 {
			if err := json.Unmarshal(data, &req); err != nil {
				d.logger.Warn("invalid retrain request", "error", err)
				return
			}
		}
		if req.Samples < 0 || req.Samples > MaxTrainSamples {
			d.logger.Warn("invalid retrain request", "samples", req.Samples)
			return
		}
		m, err := d.Train(context.Background(), req.Samples, req.Seed)
		if err != nil {
			d.logger.Error("retrain from event failed", "error", err)
			return
		}
		d.logger.Info("model retrained from event",
			"samples", m.Samples,
			"test_accuracy", m.TestAccuracy)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", hermes.SubjectModelRetrain, err)
	}
	return nil
}

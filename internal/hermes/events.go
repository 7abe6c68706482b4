package hermes

import "time"

type RunCompletedEvent struct {
	RunID           string    `json:"run_id"`
	TaskCount       int       `json:"task_count"`
	Recommendations int       `json:"recommendations"`
	TopTaskID       string    `json:"top_task_id,omitempty"`
	DurationMs      int64     `json:"duration_ms"`
	Timestamp       time.Time `json:"timestamp"`
}

type RunFailedEvent struct {
	RunID     string    `json:"run_id"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

type ModelTrainedEvent struct {
	Samples       int       `json:"samples"`
	TrainAccuracy float64   `json:"train_accuracy"`
	TestAccuracy  float64   `json:"test_accuracy"`
	Backend       string    `json:"backend"`
	Key           string    `json:"key"`
	Timestamp     time.Time `json:"timestamp"`
}

// RetrainRequest is the optional payload on SubjectModelRetrain.
type RetrainRequest struct {
	Samples int    `json:"samples,omitempty"`
	Seed    uint64 `json:"seed,omitempty"`
}

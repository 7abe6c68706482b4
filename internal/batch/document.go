package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/MikeSquared-Agency/ClearHead/internal/artifact"
	"github.com/MikeSquared-Agency/ClearHead/internal/model"
	"github.com/MikeSquared-Agency/ClearHead/internal/task"
)

var (
	ErrInputRead = errors.New("input read failed")
	ErrNoTasks   = errors.New("no tasks to analyze")
)

const (
	MessageNoTasks     = "No tasks to analyze"
	messageErrorPrefix = "Error processing tasks: "
)

// Input is the document written by the mobile application.
type Input struct {
	Tasks []task.Task `json:"tasks"`
}

// Output is the document read back by the mobile application.
type Output struct {
	Success         bool             `json:"success"`
	Message         string           `json:"message"`
	Recommendations []Recommendation `json:"recommendations"`
	Timestamp       string           `json:"timestamp,omitempty"`
	ModelInfo       *model.Info      `json:"model_info,omitempty"`
}

type Recommendation struct {
	TaskID                string   `json:"taskId"`
	CompletionProbability float64  `json:"completionProbability"`
	ADHDScore             float64  `json:"adhdScore"`
	Reasoning             []string `json:"reasoning"`
	SuggestedOrder        int      `json:"suggestedOrder"`
}

func noTasksOutput() *Output {
	return &Output{Message: MessageNoTasks, Recommendations: []Recommendation{}}
}

// failureOutput renders err as a failure-shaped document.
func failureOutput(err error) *Output {
	return &Output{Message: messageErrorPrefix + err.Error(), Recommendations: []Recommendation{}}
}

// ReadInput decodes the input document at path. Every failure wraps
// ErrInputRead along with the underlying cause.
func ReadInput(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputRead, err)
	}
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputRead, err)
	}
	return &in, nil
}

// WriteOutput writes out as indented JSON. The file is replaced
// atomically so readers never see a partial document.
func WriteOutput(path string, out *Output) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if err := artifact.WriteFileAtomic(path, append(data, '\n')); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// WriteFailure writes the failure-shaped document for err to path. It
// serves callers that fail before a Driver exists.
func WriteFailure(path string, err error) error {
	return WriteOutput(path, failureOutput(err))
}

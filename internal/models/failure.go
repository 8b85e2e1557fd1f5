// Package models defines the shared data types that flow through the
// failure-analysis pipeline: failures, analysis results, validation
// verdicts, routing decisions, and the aggregate report.
package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Conclusion is the terminal state of a CI job that the pipeline accepts.
// Jobs with any other conclusion are filtered out by the caller.
type Conclusion string

const (
	ConclusionFailure   Conclusion = "failure"
	ConclusionCancelled Conclusion = "cancelled"
)

// Failure represents a single CI job failure reported by a failure source.
// It is immutable once created except for CompressedLogs, which the
// pipeline attaches after log compression.
type Failure struct {
	// ID is an opaque identifier. Derived via uuid if the caller supplies none.
	ID string `json:"id"`

	// Repository is the owner/name pair, e.g. "acme/widgets".
	Repository string `json:"repository"`

	// JobName is the failed CI job name.
	JobName string `json:"job_name"`

	// WorkflowName is the workflow the job belongs to.
	WorkflowName string `json:"workflow_name"`

	// RunID identifies the CI run, when known.
	RunID string `json:"run_id,omitempty"`

	// Conclusion is either "failure" or "cancelled".
	Conclusion Conclusion `json:"conclusion"`

	// RawLogs holds the unbounded log text fetched by the failure source.
	RawLogs string `json:"raw_logs,omitempty"`

	// CompressedLogs is the bounded, error-centered excerpt produced by the
	// token optimizer. Attached by the pipeline; empty means no actionable
	// signal was found in the raw logs.
	CompressedLogs string `json:"compressed_logs,omitempty"`
}

// NewFailure constructs a Failure, deriving an ID when none is given.
func NewFailure(id, repository, jobName, workflowName string, conclusion Conclusion) Failure {
	if id == "" {
		id = uuid.NewString()
	}
	return Failure{
		ID:           id,
		Repository:   repository,
		JobName:      jobName,
		WorkflowName: workflowName,
		Conclusion:   conclusion,
	}
}

// Validate rejects malformed failure descriptors early (missing job name,
// unsupported conclusion). Input errors are distinguished from analysis
// failures: the pipeline never coerces them into low-confidence guesses.
func (f *Failure) Validate() error {
	if strings.TrimSpace(f.JobName) == "" {
		return fmt.Errorf("failure %s: job name is required", f.ID)
	}
	if strings.TrimSpace(f.Repository) == "" {
		return fmt.Errorf("failure %s: repository is required", f.ID)
	}
	switch f.Conclusion {
	case ConclusionFailure, ConclusionCancelled:
		return nil
	default:
		return fmt.Errorf("failure %s: unsupported conclusion %q", f.ID, f.Conclusion)
	}
}

// CombinedText returns the text used for pattern matching and
// categorization: job name, workflow name, and the best available logs.
func (f *Failure) CombinedText() string {
	logs := f.CompressedLogs
	if logs == "" {
		logs = f.RawLogs
	}
	return strings.ToLower(f.JobName + " " + f.WorkflowName + " " + logs)
}

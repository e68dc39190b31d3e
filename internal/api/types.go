package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// RenderRequest asks the service to render a video for username.
type RenderRequest struct {
	InputProps json.RawMessage `json:"inputProps"`
	Username   string          `json:"username"`
}

// Validate reports a request the service must reject with 400.
func (r RenderRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return errors.New("username is required")
	}
	trimmed := bytes.TrimSpace(r.InputProps)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return errors.New("inputProps is required")
	}
	return nil
}

// RenderAck acknowledges an accepted render request.
type RenderAck struct {
	JobID    string   `json:"jobId"`
	Username string   `json:"username"`
	State    JobState `json:"state"`
	Reused   bool     `json:"reused,omitempty"`
}

// ProgressRequest identifies a job by id or, failing that, by username.
type ProgressRequest struct {
	Username string `json:"username,omitempty"`
	JobID    string `json:"jobId,omitempty"`
}

// Validate requires at least one identifier.
func (r ProgressRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" && strings.TrimSpace(r.JobID) == "" {
		return errors.New("username or jobId is required")
	}
	return nil
}

// JobState is the externally visible lifecycle state of a render job.
type JobState string

const (
	StatePending   JobState = "pending"
	StateRendering JobState = "rendering"
	StateDone      JobState = "done"
	StateFailed    JobState = "failed"
)

// IsTerminal reports whether the state ends polling.
func (s JobState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// JobStatus is the reply of a progress query.
type JobStatus struct {
	State    JobState `json:"state"`
	Progress *float64 `json:"progress,omitempty"`
	URL      string   `json:"url,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Pending returns a pending status.
func Pending() JobStatus { return JobStatus{State: StatePending} }

// Rendering returns a rendering status with a progress fraction.
func Rendering(progress float64) JobStatus {
	return JobStatus{State: StateRendering, Progress: &progress}
}

// Done returns a finished status pointing at the video.
func Done(url string) JobStatus { return JobStatus{State: StateDone, URL: url} }

// Failed returns a failed status carrying the reason.
func Failed(reason string) JobStatus { return JobStatus{State: StateFailed, Error: reason} }

// Fraction returns the progress value, zero when absent.
func (s JobStatus) Fraction() float64 {
	if s.Progress == nil {
		return 0
	}
	return *s.Progress
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JobSummary describes a render job for operator tooling.
type JobSummary struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	State        JobState        `json:"state"`
	Progress     float64         `json:"progress"`
	URL          string          `json:"url,omitempty"`
	OutputPath   string          `json:"outputPath,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	Fingerprint  string          `json:"fingerprint,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
	StartedAt    string          `json:"startedAt,omitempty"`
	FinishedAt   string          `json:"finishedAt,omitempty"`
	Params       json.RawMessage `json:"params,omitempty"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job JobSummary `json:"job"`
}

// WorkflowStatus summarizes the render worker.
type WorkflowStatus struct {
	Running    bool           `json:"running"`
	JobStats   map[string]int `json:"jobStats"`
	LastError  string         `json:"lastError,omitempty"`
	CurrentJob *JobSummary    `json:"currentJob,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DatabaseStatus reports job database health.
type DatabaseStatus struct {
	SchemaVersion int    `json:"schemaVersion"`
	Integrity     bool   `json:"integrity"`
	TotalJobs     int    `json:"totalJobs"`
	Error         string `json:"error,omitempty"`
}

// DaemonStatus aggregates service runtime information.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	APIBind      string             `json:"apiBind"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Database     DatabaseStatus     `json:"database"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

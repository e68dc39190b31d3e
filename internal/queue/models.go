package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle state of a render job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRendering Status = "rendering"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{StatusPending, StatusRendering, StatusDone, StatusFailed}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Job is a persisted render request.
type Job struct {
	ID                 string
	Username           string
	LowercasedUsername string
	Fingerprint        string
	ParamsJSON         string
	Status             Status
	Progress           float64
	OutputPath         string
	URL                string
	ErrorMessage       string
	CreatedAt          time.Time
	// RequestedAt is the last time a client asked for this job, either by
	// enqueueing it or by being handed it as a reused job.
	RequestedAt        time.Time
	UpdatedAt          time.Time
	StartedAt          *time.Time
	FinishedAt         *time.Time
	LastHeartbeat      *time.Time
}

// NewJob describes a job to enqueue.
type NewJob struct {
	Username    string
	Fingerprint string
	ParamsJSON  string
}

// ListFilter restricts List results.
type ListFilter struct {
	Username string
	Statuses []Status
	Limit    int
}

// HealthSummary aggregates job counts for status output.
type HealthSummary struct {
	Total     int
	Pending   int
	Rendering int
	Done      int
	Failed    int
}

// DatabaseHealth captures diagnostic information about the job database.
type DatabaseHealth struct {
	DBPath         string
	SchemaVersion  int
	IntegrityCheck bool
	TotalJobs      int
	Error          string
}

package api

import (
	"encoding/json"
	"time"

	"unwrapped/internal/queue"
)

// StatusFromJob projects a job onto the progress reply shape.
func StatusFromJob(job *queue.Job) JobStatus {
	if job == nil {
		return Pending()
	}
	switch job.Status {
	case queue.StatusRendering:
		return Rendering(job.Progress)
	case queue.StatusDone:
		return Done(job.URL)
	case queue.StatusFailed:
		reason := job.ErrorMessage
		if reason == "" {
			reason = "render failed"
		}
		return Failed(reason)
	default:
		return Pending()
	}
}

// FromJob converts a job record to its API representation.
func FromJob(job *queue.Job) JobSummary {
	if job == nil {
		return JobSummary{}
	}
	dto := JobSummary{
		ID:           job.ID,
		Username:     job.Username,
		State:        JobState(job.Status),
		Progress:     job.Progress,
		URL:          job.URL,
		OutputPath:   job.OutputPath,
		ErrorMessage: job.ErrorMessage,
		Fingerprint:  job.Fingerprint,
		CreatedAt:    formatTime(job.CreatedAt),
		UpdatedAt:    formatTime(job.UpdatedAt),
	}
	if job.StartedAt != nil {
		dto.StartedAt = formatTime(*job.StartedAt)
	}
	if job.FinishedAt != nil {
		dto.FinishedAt = formatTime(*job.FinishedAt)
	}
	if job.ParamsJSON != "" && json.Valid([]byte(job.ParamsJSON)) {
		dto.Params = json.RawMessage(job.ParamsJSON)
	}
	return dto
}

// FromJobs converts a slice of job records into API DTOs.
func FromJobs(jobs []*queue.Job) []JobSummary {
	out := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// MergeJobStats converts store status counts into a map keyed by status string,
// listing every status even when its count is zero.
func MergeJobStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = 0
	}
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

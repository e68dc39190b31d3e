package render

import (
	"context"
	"encoding/json"
)

// Job is one render request handed to a Renderer.
type Job struct {
	ID       string
	Username string
	Props    json.RawMessage
}

// Result locates the finished video.
type Result struct {
	OutputPath string
	URL        string
}

// ProgressFunc receives progress fractions in [0,1].
type ProgressFunc func(fraction float64)

// Renderer produces a video for a job.
type Renderer interface {
	Render(ctx context.Context, job Job, progress ProgressFunc) (Result, error)
}

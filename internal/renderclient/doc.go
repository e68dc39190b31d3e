// Package renderclient talks to the render service over HTTP.
//
// Submit posts a RenderRequest to /api/render and Progress queries
// /api/progress. Submission failures are tagged with services.ErrSubmission
// and unknown jobs with services.ErrJobNotFound so callers can classify them
// with errors.Is. SubmitBestEffort logs a failed submission and lets the
// caller continue to polling, which then observes whether the job exists.
package renderclient

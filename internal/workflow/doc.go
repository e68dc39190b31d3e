// Package workflow runs the render worker.
//
// Manager pulls pending jobs from the queue one at a time, marks them
// rendering, drives the configured render.Renderer, records throttled
// progress, and finishes each job as done or failed. A HeartbeatMonitor keeps
// the in-flight job's heartbeat fresh and fails jobs whose heartbeat went
// stale, so a crashed render never leaves clients polling forever.
//
// Notifications fire on completion and failure through the notifications
// Service; a nil notifier is treated as disabled.
package workflow

// Package api defines the wire-format types of the render service and the
// service logic behind its endpoints.
//
// # Key Types
//
// RenderRequest / RenderAck: body and acknowledgement of POST /api/render.
//
// ProgressRequest / JobStatus: body and reply of POST /api/progress. JobStatus
// marshals to exactly one of {state:"pending"}, {state:"rendering",progress},
// {state:"done",url}, or {state:"failed",error}.
//
// JobSummary / DaemonStatus: operator views served by /api/jobs and
// /api/status.
//
// # Services
//
// RenderService validates incoming parameters, reuses an identical
// non-failed job, and otherwise enqueues a new one. JobService exposes
// read-only job listings.
//
// DTOs use camelCase JSON tags for the browser client. Timestamps use RFC3339
// with milliseconds.
package api

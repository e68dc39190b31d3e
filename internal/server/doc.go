// Package server exposes the render service over HTTP.
//
// The public surface is POST /api/render and POST /api/progress, plus the
// finished videos under /videos/. Operator endpoints (GET /api/status,
// GET /api/jobs, GET /api/jobs/{id}) require the configured bearer token when
// one is set. Render submissions are rate limited per client IP.
package server

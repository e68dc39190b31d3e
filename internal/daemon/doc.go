// Package daemon coordinates the long-running render service process.
//
// It wires configuration, the render job store, the workflow manager and the
// HTTP server into a single lifecycle with flock-based locking to prevent
// multiple instances writing the same job database. The daemon also reports
// runtime status for GET /api/status and owns the notification test hook.
//
// Keep orchestration logic here: rendering lives in render and workflow, the
// wire surface in server and api.
package daemon

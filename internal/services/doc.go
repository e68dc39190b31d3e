// Package services defines shared utilities consumed by the render worker,
// the HTTP surface, and the client-side session flow.
//
// Key responsibilities:
//   - Context helpers that stamp render job IDs, usernames, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so failures keep their
//     category (submission, job failure, not found, timeout) across package
//     boundaries and can be matched with errors.Is.
package services

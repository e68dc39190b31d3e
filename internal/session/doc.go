// Package session runs one viewer's render flow.
//
// A Context holds the statistics record for a single identity. It is loaded
// once with Load, read-only afterwards, and discarded with Close. Run derives
// the composition parameters from it, submits one render request, and polls
// the job until it settles, returning a View the caller can always display:
// NotFound, Pending, Failed, or Succeeded.
//
// Submission and polling are separate tasks. With OrderConcurrent both start
// together and polling does not wait for the submission outcome; a failed
// submission is logged and polling then reports whatever the service knows.
// OrderAfterSubmit waits for the submission to settle first and polls by the
// acknowledged job id when one was returned.
package session

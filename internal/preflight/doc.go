// Package preflight provides readiness checks for the paths, data sources and
// binaries the render service depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failed check.
//   - The CLI "unwrapped doctor" command prints every result.
//
// Checks never return errors; failures are reported in Result.Detail.
package preflight

// Package queue persists render jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages the database connection, schema initialization, stats
// queries, heartbeat tracking, stale-job recovery, and status transitions
// (pending, rendering, done, failed). Jobs carry the derived parameters, the
// parameter fingerprint used for dedupe, progress, and the final URL or error
// so the API and the worker coordinate without additional state.
//
// The database is transient storage for in-flight and recent renders rather
// than a long-term archive. Schema changes bump the version in schema.go;
// operators clear the database to adopt the new schema.
//
// Terminal jobs are immutable: every mutating call refuses rows that are
// already done or failed and reports ErrTerminal.
package queue

// Package profile models the upstream coding-activity statistics record and
// the sources that serve it.
//
// Records are produced by an external collector; this package only reads
// them. Two sources are provided: a directory of JSON documents (one per
// user) and a Postgres table holding the same documents as jsonb. Lookups
// return (nil, nil) when the user is unknown so callers can render a
// not-found view without treating absence as a failure.
package profile

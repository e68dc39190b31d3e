// Package notifications delivers render events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Per-event toggles
// in [notifications] suppress individual events without touching callers.
//
// All workflow code depends only on the small Service interface.
package notifications

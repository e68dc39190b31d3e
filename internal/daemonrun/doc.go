// Package daemonrun hosts the foreground runtime of `unwrapped serve`: it
// builds the logger, store, renderer, worker and daemon, then blocks until
// SIGINT or SIGTERM.
package daemonrun

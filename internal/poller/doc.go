// Package poller tracks a render job until it reaches a terminal state.
//
// A Poller moves Idle -> Polling -> Succeeded|Failed. While polling it
// queries the progress source immediately and then at a fixed interval,
// updating the exposed progress on pending and rendering replies. Terminal
// states are final: once Succeeded or Failed the loop returns and no further
// queries are made. Cancellation is cooperative; the owning context is checked
// before every query and again before a reply is applied.
package poller

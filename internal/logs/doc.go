// Package logs reads the service log files written by unwrapped serve.
//
// Last returns the trailing lines of a file with bounded memory, and Follow
// keeps emitting lines as the file grows until its context ends. Both accept
// a missing file and treat it as empty, since the service may not have
// started yet.
package logs

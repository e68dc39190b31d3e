// Package main implements the unwrapped command-line interface.
//
// The binary runs the render service (serve), derives composition parameters
// for a user (derive), drives a viewer session against a running service
// (render), and offers maintenance commands for the job database, config,
// notifications, and environment checks.
package main

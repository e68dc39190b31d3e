// Package scene computes layout values the composition derives from its
// parameters: the spiral entry direction for a corner, and the grid used to
// place one UFO per issue. They are reported by `unwrapped derive --explain`
// and never sent on the wire.
package scene

// Package composition derives the visual parameters of a personalized
// year-in-review video from a user's statistics record.
//
// Derivation is a pure projection: the same record always produces the same
// Parameters, byte for byte once marshalled. Every "random" visual choice
// (accent color, rocket, corner, opening angle, Rust artwork) is a seedrand
// draw keyed on the lowercased username plus a per-attribute discriminator,
// so casing variants of one identity share a look and attributes are drawn
// independently of each other.
//
// Unknown languages never fail derivation; they degrade to the "other"
// variant carrying the upstream name and color.
package composition

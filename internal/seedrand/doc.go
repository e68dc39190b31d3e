// Package seedrand maps seed strings to reproducible floats in [0,1).
//
// The mapping is a stable contract: the same seed yields the same value in
// every process, on every platform, forever. Derived visuals for every user
// depend on it, so any change to the algorithm must bump Version.
package seedrand

// Package render turns derived composition parameters into a video file.
//
// CommandRenderer writes the parameters to a props file and runs the
// configured renderer command (npx remotion render by default), translating
// "Rendered N/M" and "Encoded N/M" output lines into a progress fraction.
// The Executor seam keeps tests free of real renderer installs.
package render

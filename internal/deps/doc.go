// Package deps reports whether the external binaries the render worker runs
// are installed.
package deps

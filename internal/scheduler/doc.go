// Package scheduler runs the periodic dashboard refresh and tells connected
// browsers when fresh numbers are available.
package scheduler

// Package output renders transcript and summary markdown documents and
// keeps generated files inside the configured output directory.
package output

// Package transcribe turns audio files into timed transcript segments.
//
// A single Engine handles short inputs directly. Long inputs go through
// the Chunker, which splits audio into overlapping windows, transcribes
// each one, and stitches the results back into one segment sequence
// with boundary duplicates removed.
package transcribe

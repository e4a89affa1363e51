// Command scribe turns YouTube videos into markdown transcripts and
// summaries. It hosts the long-running daemon (serve), a one-shot
// pipeline run (process), and utilities for configuration and the job
// history archive.
package main

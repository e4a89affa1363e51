// Package download wraps the yt-dlp command line tool for metadata
// lookup, audio download, and auto-caption retrieval.
package download

// Package extract produces markdown summaries of transcripts through an
// OpenAI-compatible chat completion API.
//
// The client retries transient failures with exponential backoff and
// honors Retry-After headers on rate limit responses.
package extract

// Package api exposes the HTTP surface: job submission, point-in-time
// queries, server-sent event streams, document retrieval, and health
// and config introspection.
package api

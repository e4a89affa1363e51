// Package daemon assembles the long-running service: the in-memory job
// registry, the worker pool, the retention sweeper, the history
// archive, and the HTTP API, under a single-instance file lock.
package daemon

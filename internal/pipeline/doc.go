// Package pipeline drives the per-job state machine: fetch metadata,
// produce a transcript (captions first with audio fallback under the
// auto strategy), optionally summarize, and publish every transition
// through the job store and broadcaster.
//
// The orchestrator is single-threaded per job. Only it decides terminal
// status; collaborators report results or typed failures.
package pipeline

// Package planner is the client for the remote installation planner
// service.
//
// The planner owns the source of truth for an installation: it allocates
// a plan (ordered steps, each an ordered list of shell commands) bound to
// a terminal session, and it records every command execution and result.
// This client exposes the three calls the orchestrator needs:
//
//   - AllocatePlan: one call yielding {session id, plan, environment name}
//   - Execute: announces "a command is about to run", guarded by an
//     idempotency token so duplicate dispatch is rejected remotely
//   - Report: submits a command's exit code and receives the directive
//     for what happens next (next command, completed, failed, or
//     already_executing for duplicate submissions)
//
// Transport is JSON over HTTP via resty, with retryablehttp underneath.
// Retries are safe because every mutating call carries an idempotency
// token; the planner deduplicates on its side.
package planner

// Package orchestrator drives an installation plan through a live shell
// session, one command at a time.
//
// The orchestrator consumes the decoded lifecycle event stream from a
// terminal session and pairs it with the remote planner's
// execute/report protocol:
//
//	PromptStart  → dispatch the next command (or report a queued result)
//	CommandFinished → queue the result, wait for the next prompt
//	next prompt  → stabilization delay, then report; planner directs
//	               the next command, completion, or failure
//
// The deliberate "wait for the next prompt before reporting" step avoids
// racing the shell's own prompt redraw: the prompt marker is the reliable
// signal that the shell is interactive again and safe to feed. A safety
// timeout force-reports the pending result when no prompt marker arrives
// (shells without the integration script emit no markers).
//
// All state transitions run on a single event loop goroutine; the only
// suspension points are waiting for events, waiting for planner HTTP
// responses, and the stabilization delay. Commands are strictly
// serialized: a new command is never dispatched while one is executing or
// a result is pending, and the remote planner's idempotency check backs
// this up against duplicate dispatch.
package orchestrator

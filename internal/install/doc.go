// Package install manages installation runs end to end.
//
// A run binds together everything one installation needs: a plan
// allocated from the remote planner, a transport session to a shell
// (local PTY or remote over WebSocket), the shell-integration decoder
// feeding lifecycle events, and the orchestrator state machine that
// drives the plan through the shell.
//
// Wiring per run:
//
//	transport receive path → extractor → decoder → orchestrator.Feed
//	orchestrator → transport.SendInput (keystrokes)
//	orchestrator → planner execute/report calls
//
// The decoder and orchestrator are fed from the transport's single
// receive goroutine, so lifecycle event ordering is preserved without
// extra synchronization. Abandoning a run cancels its context; the
// remote step record stays in whatever state it was last reported as.
package install

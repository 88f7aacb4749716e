// Package terminal hosts interactive PTY shell sessions.
//
// Each session spawns a shell under a pseudo-terminal (creack/pty) and
// fans its output out to any number of subscribers: the WebSocket
// endpoint streaming bytes to a renderer, and the installation
// orchestrator's local transport feeding the shell-integration decoder.
//
// Features:
//   - PTY support for full terminal emulation
//   - Multiple concurrent sessions
//   - Ring-buffered scrollback for late subscriber replay
//   - Terminal resizing
//   - Per-session subscriber fan-out with exactly-once close notification
//
// Sessions are torn down when the shell process exits or Kill is called;
// subscribers observe teardown as a closed channel.
package terminal

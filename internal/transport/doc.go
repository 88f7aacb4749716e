// Package transport provides duplex byte-stream channels to terminal
// sessions.
//
// A Session sends structured input/resize frames toward a shell and
// delivers the shell's raw output bytes to a single sequential receive
// callback, which keeps the shell-integration decoder's event ordering
// intact. Disconnects are reported exactly once; no implementation
// reconnects on its own. An installation run whose transport drops is
// abandoned, not silently resumed.
//
// Implementations:
//   - Local: attaches to a PTY session hosted in-process by the terminal
//     manager
//   - WS: dials a remote session host over WebSocket (gorilla/websocket)
//
// Sent frames are JSON with a "type" discriminator ("input" | "resize").
// Received traffic is raw bytes, not JSON-wrapped.
package transport

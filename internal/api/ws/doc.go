// Package ws serves terminal sessions over WebSocket.
//
// A client connects to one session and exchanges:
//
// Client → Server (JSON frames with a "type" discriminator):
//   - input: keystrokes for the shell
//   - resize: new viewport dimensions
//
// Server → Client:
//   - raw output bytes as binary messages, not JSON-wrapped; buffered
//     scrollback is replayed first, then live output
//
// The connection is bound to the session's lifetime: when the shell
// exits or the session is killed, the server sends a close frame and the
// client is not reconnected automatically.
//
// Example Usage:
//
//	handler := ws.NewHandler(terminalManager, logger, metrics)
//	router.GET("/ws/terminal/:session_id", handler.HandleSession)
package ws

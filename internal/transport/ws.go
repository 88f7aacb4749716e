package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// dialTimeout bounds the websocket handshake.
const dialTimeout = 10 * time.Second

// WS is a transport session over a WebSocket connection to a remote
// session host.
type WS struct {
	sessionID string
	conn      *websocket.Conn
	handlers  Handlers

	writeMu    sync.Mutex
	closeOnce  sync.Once
	notifyOnce sync.Once
}

// DialWS connects to a remote terminal session at url and sends the
// initial resize frame sized to the current viewport.
func DialWS(url, sessionID string, cols, rows int, handlers Handlers) (*WS, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}

	w := &WS{
		sessionID: sessionID,
		conn:      conn,
		handlers:  handlers,
	}

	if err := w.Resize(cols, rows); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initial resize failed: %w", err)
	}

	go w.readLoop()

	return w, nil
}

// readLoop is the session's single sequential receive path.
func (w *WS) readLoop() {
	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			w.notifyOnce.Do(func() {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					w.handlers.disconnect(nil)
				} else {
					w.handlers.disconnect(err)
				}
			})
			return
		}
		w.handlers.output(data)
	}
}

// SessionID returns the bound terminal session identifier.
func (w *WS) SessionID() string {
	return w.sessionID
}

// SendInput delivers keystrokes to the shell.
func (w *WS) SendInput(data string) error {
	return w.writeJSON(InputFrame{Type: FrameInput, Data: data})
}

// Resize announces new viewport dimensions.
func (w *WS) Resize(cols, rows int) error {
	return w.writeJSON(ResizeFrame{Type: FrameResize, Cols: cols, Rows: rows})
}

func (w *WS) writeJSON(frame interface{}) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteJSON(frame)
}

// Close tears the connection down. The read loop observes the close and
// fires the disconnect notification if it has not already.
func (w *WS) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.writeMu.Lock()
		w.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		w.writeMu.Unlock()
		err = w.conn.Close()
	})
	return err
}

package transport

// Frame type discriminators. Both ends are co-deployed, so frames are
// kept minimal and versionless.
const (
	FrameInput  = "input"
	FrameResize = "resize"
)

// InputFrame carries keystrokes toward the shell.
type InputFrame struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// ResizeFrame announces a viewport size change.
type ResizeFrame struct {
	Type string `json:"type"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
}

// Session is a duplex byte-stream channel bound to one terminal session.
type Session interface {
	// SessionID returns the bound terminal session identifier.
	SessionID() string
	// SendInput delivers keystrokes to the shell.
	SendInput(data string) error
	// Resize announces new viewport dimensions.
	Resize(cols, rows int) error
	// Close tears the channel down. Idempotent.
	Close() error
}

// Handlers receives a session's inbound traffic. OnOutput is invoked from
// a single goroutine per session, preserving byte order; OnDisconnect
// fires exactly once, with nil on orderly teardown.
type Handlers struct {
	OnOutput     func([]byte)
	OnDisconnect func(error)
}

func (h Handlers) output(p []byte) {
	if h.OnOutput != nil && len(p) > 0 {
		h.OnOutput(p)
	}
}

func (h Handlers) disconnect(err error) {
	if h.OnDisconnect != nil {
		h.OnDisconnect(err)
	}
}

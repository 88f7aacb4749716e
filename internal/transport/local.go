package transport

import (
	"fmt"
	"sync"

	"github.com/GriffinCanCode/InstallOS/backend/internal/terminal"
)

// Local attaches to a PTY session hosted by the in-process terminal
// manager.
type Local struct {
	manager   *terminal.Manager
	sessionID string
	handlers  Handlers

	cancelSub  func()
	closeOnce  sync.Once
	notifyOnce sync.Once
}

// AttachLocal binds a transport session to an existing terminal session.
// The initial viewport size is applied before any output is delivered,
// and buffered scrollback is replayed through the output handler.
func AttachLocal(manager *terminal.Manager, sessionID string, cols, rows int, handlers Handlers) (*Local, error) {
	l := &Local{
		manager:   manager,
		sessionID: sessionID,
		handlers:  handlers,
	}

	if err := manager.Resize(sessionID, cols, rows); err != nil {
		return nil, fmt.Errorf("initial resize failed: %w", err)
	}

	replay, ch, cancel, err := manager.Subscribe(sessionID)
	if err != nil {
		return nil, fmt.Errorf("subscribe failed: %w", err)
	}
	l.cancelSub = cancel

	go func() {
		l.handlers.output(replay)
		for chunk := range ch {
			l.handlers.output(chunk)
		}
		l.notifyOnce.Do(func() {
			l.handlers.disconnect(nil)
		})
	}()

	return l, nil
}

// SessionID returns the bound terminal session identifier.
func (l *Local) SessionID() string {
	return l.sessionID
}

// SendInput delivers keystrokes to the shell.
func (l *Local) SendInput(data string) error {
	return l.manager.Write(l.sessionID, []byte(data))
}

// Resize announces new viewport dimensions.
func (l *Local) Resize(cols, rows int) error {
	return l.manager.Resize(l.sessionID, cols, rows)
}

// Close detaches from the session. The underlying PTY session is owned by
// the terminal manager and keeps running.
func (l *Local) Close() error {
	l.closeOnce.Do(func() {
		if l.cancelSub != nil {
			l.cancelSub()
		}
	})
	return nil
}

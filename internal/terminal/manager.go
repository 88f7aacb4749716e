package terminal

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/InstallOS/backend/internal/logging"
	"github.com/GriffinCanCode/InstallOS/backend/internal/shared/id"
)

// scrollbackSize is the per-session replay buffer (1MB)
const scrollbackSize = 1024 * 1024

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls this far behind starts losing chunks rather than blocking the
// PTY read loop.
const subscriberBuffer = 256

// Manager manages terminal sessions
type Manager struct {
	sessions sync.Map // map[string]*Session
	logger   *logging.Logger
}

// NewManager creates a new session manager
func NewManager(logger *logging.Logger) *Manager {
	return &Manager{logger: logger.Named("terminal")}
}

// CreateSession creates a new terminal session with PTY
func (m *Manager) CreateSession(opts CreateOptions) (*SessionInfo, error) {
	shell := opts.Shell
	if shell == "" {
		shell = os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/bash"
		}
	}

	workingDir := opts.WorkingDir
	if workingDir == "" {
		workingDir = os.Getenv("HOME")
		if workingDir == "" {
			workingDir = "/tmp"
		}
	}

	cols, rows := opts.Cols, opts.Rows
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}

	sessionID := string(id.NewSessionID())

	cmd := exec.Command(shell)
	cmd.Dir = workingDir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	for key, value := range opts.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	session := &Session{
		ID:          sessionID,
		Shell:       shell,
		WorkingDir:  workingDir,
		Cols:        cols,
		Rows:        rows,
		StartedAt:   time.Now(),
		cmd:         cmd,
		ptmx:        ptmx,
		scrollback:  NewBuffer(scrollbackSize),
		subscribers: make(map[int]chan []byte),
	}

	m.sessions.Store(sessionID, session)

	go m.readOutput(session)
	go m.monitorProcess(session)

	m.logger.Info("session created",
		zap.String("session_id", sessionID),
		zap.String("shell", shell),
		zap.Int("cols", cols),
		zap.Int("rows", rows),
	)

	return &SessionInfo{
		ID:         session.ID,
		Shell:      session.Shell,
		WorkingDir: session.WorkingDir,
		Cols:       session.Cols,
		Rows:       session.Rows,
		StartedAt:  session.StartedAt,
		Active:     true,
	}, nil
}

// readOutput continuously reads from PTY, buffers scrollback, and fans
// chunks out to subscribers
func (m *Manager) readOutput(session *Session) {
	buf := make([]byte, 4096)
	for {
		n, err := session.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			session.scrollback.Write(chunk)
			m.broadcast(session, chunk)
		}
		if err != nil {
			if err != io.EOF {
				m.logger.Debug("PTY read ended",
					zap.String("session_id", session.ID),
					zap.Error(err),
				)
			}
			break
		}
	}
}

func (m *Manager) broadcast(session *Session, chunk []byte) {
	session.subMu.Lock()
	defer session.subMu.Unlock()

	for subID, ch := range session.subscribers {
		select {
		case ch <- chunk:
		default:
			m.logger.Warn("subscriber lagging, dropping chunk",
				zap.String("session_id", session.ID),
				zap.Int("subscriber", subID),
			)
		}
	}
}

// monitorProcess waits for process exit and tears the session down
func (m *Manager) monitorProcess(session *Session) {
	err := session.cmd.Wait()

	session.mu.Lock()
	alreadyClosed := session.closed
	session.closed = true
	session.mu.Unlock()

	session.ptmx.Close()
	m.closeSubscribers(session)

	if !alreadyClosed {
		m.logger.Info("session process exited",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
}

func (m *Manager) closeSubscribers(session *Session) {
	session.subMu.Lock()
	defer session.subMu.Unlock()

	for subID, ch := range session.subscribers {
		close(ch)
		delete(session.subscribers, subID)
	}
}

// Subscribe attaches to a session's live output. The returned channel
// carries output chunks and is closed exactly once when the session ends
// or the cancel function is called. Scrollback accumulated before the
// subscription is returned for replay.
func (m *Manager) Subscribe(sessionID string) (replay []byte, ch <-chan []byte, cancel func(), err error) {
	session, err := m.get(sessionID)
	if err != nil {
		return nil, nil, nil, err
	}

	out := make(chan []byte, subscriberBuffer)

	// The closed check and the registration must be atomic with respect
	// to closeSubscribers: teardown sets closed before it takes subMu,
	// so a registration that saw closed=false under subMu is guaranteed
	// to be visible to the subsequent closeSubscribers sweep.
	session.subMu.Lock()
	session.mu.RLock()
	closed := session.closed
	session.mu.RUnlock()
	if closed {
		session.subMu.Unlock()
		return nil, nil, nil, fmt.Errorf("session is closed: %s", sessionID)
	}
	subID := session.nextSubID
	session.nextSubID++
	session.subscribers[subID] = out
	session.subMu.Unlock()

	cancel = func() {
		session.subMu.Lock()
		defer session.subMu.Unlock()
		if ch, ok := session.subscribers[subID]; ok {
			close(ch)
			delete(session.subscribers, subID)
		}
	}

	return session.scrollback.Snapshot(), out, cancel, nil
}

// Write sends input to a session
func (m *Manager) Write(sessionID string, input []byte) error {
	session, err := m.get(sessionID)
	if err != nil {
		return err
	}

	session.mu.RLock()
	closed := session.closed
	session.mu.RUnlock()

	if closed {
		return fmt.Errorf("session is closed: %s", sessionID)
	}

	_, err = session.ptmx.Write(input)
	return err
}

// Resize changes terminal dimensions
func (m *Manager) Resize(sessionID string, cols, rows int) error {
	session, err := m.get(sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.closed {
		return fmt.Errorf("session is closed: %s", sessionID)
	}

	session.Cols = cols
	session.Rows = rows

	return pty.Setsize(session.ptmx, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
}

// Kill terminates a session
func (m *Manager) Kill(sessionID string) error {
	session, err := m.get(sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	if session.closed {
		session.mu.Unlock()
		return nil // Already closed
	}
	session.closed = true
	session.mu.Unlock()

	if session.cmd.Process != nil {
		session.cmd.Process.Kill()
	}
	session.ptmx.Close()
	m.closeSubscribers(session)

	m.sessions.Delete(sessionID)

	m.logger.Info("session killed", zap.String("session_id", sessionID))
	return nil
}

// ListSessions returns all known sessions
func (m *Manager) ListSessions() []SessionInfo {
	var sessions []SessionInfo

	m.sessions.Range(func(key, value interface{}) bool {
		session := value.(*Session)

		session.mu.RLock()
		active := !session.closed
		session.mu.RUnlock()

		sessions = append(sessions, SessionInfo{
			ID:         session.ID,
			Shell:      session.Shell,
			WorkingDir: session.WorkingDir,
			Cols:       session.Cols,
			Rows:       session.Rows,
			StartedAt:  session.StartedAt,
			Active:     active,
		})
		return true
	})

	return sessions
}

// GetSession retrieves session info
func (m *Manager) GetSession(sessionID string) (*SessionInfo, error) {
	session, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.RLock()
	active := !session.closed
	session.mu.RUnlock()

	return &SessionInfo{
		ID:         session.ID,
		Shell:      session.Shell,
		WorkingDir: session.WorkingDir,
		Cols:       session.Cols,
		Rows:       session.Rows,
		StartedAt:  session.StartedAt,
		Active:     active,
	}, nil
}

func (m *Manager) get(sessionID string) (*Session, error) {
	value, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	return value.(*Session), nil
}

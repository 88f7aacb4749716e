package terminal

import (
	"os"
	"os/exec"
	"sync"
	"time"
)

// Session represents an active terminal session
type Session struct {
	ID         string
	Shell      string
	WorkingDir string
	Cols       int
	Rows       int
	StartedAt  time.Time

	// Process management
	cmd  *exec.Cmd
	ptmx *os.File

	// Scrollback for late subscribers
	scrollback *Buffer

	// Output fan-out
	subMu       sync.Mutex
	subscribers map[int]chan []byte
	nextSubID   int

	// Lifecycle
	mu     sync.RWMutex
	closed bool
}

// Buffer is a thread-safe circular buffer for terminal output
type Buffer struct {
	data []byte
	size int
	head int
	tail int
	full bool
	mu   sync.RWMutex
}

// NewBuffer creates a new circular buffer
func NewBuffer(size int) *Buffer {
	return &Buffer{
		data: make([]byte, size),
		size: size,
	}
}

// Write writes data to the buffer, overwriting the oldest bytes when full
func (b *Buffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range p {
		b.data[b.tail] = c
		b.tail = (b.tail + 1) % b.size

		if b.full {
			b.head = b.tail
		} else if b.tail == b.head {
			b.full = true
		}
	}

	return len(p), nil
}

// Snapshot returns a copy of the buffered bytes without draining them
func (b *Buffer) Snapshot() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.full && b.head == b.tail {
		return nil
	}

	if b.full {
		result := make([]byte, b.size)
		copy(result, b.data[b.head:])
		copy(result[b.size-b.head:], b.data[:b.tail])
		return result
	}

	result := make([]byte, b.tail-b.head)
	copy(result, b.data[b.head:b.tail])
	return result
}

// Len returns the number of buffered bytes
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.full {
		return b.size
	}
	return b.tail - b.head
}

// SessionInfo is the public representation of a session
type SessionInfo struct {
	ID         string    `json:"id"`
	Shell      string    `json:"shell"`
	WorkingDir string    `json:"working_dir"`
	Cols       int       `json:"cols"`
	Rows       int       `json:"rows"`
	StartedAt  time.Time `json:"started_at"`
	Active     bool      `json:"active"`
}

// CreateOptions configures a new session. Zero values fall back to the
// manager defaults.
type CreateOptions struct {
	Shell      string
	WorkingDir string
	Cols       int
	Rows       int
	Env        map[string]string
}

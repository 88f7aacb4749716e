package shellseq

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/InstallOS/backend/internal/logging"
)

// Opcodes recognized in field[0] of an OSC 633 payload.
const (
	opPromptStart = "A"
	opInputStart  = "B"
	opCommandRun  = "C"
	opCommandDone = "D"
	opCommandLine = "E"
	opProperty    = "P"
)

// propertyCwd is the only P-opcode key the decoder interprets.
const propertyCwd = "Cwd"

// Decoder interprets tokenized shell-integration payloads against small
// internal state and emits typed lifecycle events.
//
// One decoder serves one terminal session and must be invoked from exactly
// one sequential feed to preserve event ordering.
type Decoder struct {
	emit   func(Event)
	logger *logging.Logger
	now    func() time.Time

	pendingCommandLine string
	commandStartedAt   time.Time
	commandRunning     bool
}

// NewDecoder creates a decoder that passes events to emit.
func NewDecoder(emit func(Event), logger *logging.Logger) *Decoder {
	return &Decoder{
		emit:   emit,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the decoder's time source. Useful for testing
// duration computation deterministically.
func (d *Decoder) WithClock(now func() time.Time) *Decoder {
	d.now = now
	return d
}

// HandlePayload decodes one isolated OSC 633 payload.
//
// Any failure while interpreting the payload is caught and logged; the
// decoder never lets a malformed control sequence crash the session. On
// such a failure the command-running flag is reset and no event is
// emitted.
func (d *Decoder) HandlePayload(payload string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("shell sequence decode failed",
				zap.String("payload", payload),
				zap.Any("panic", r),
			)
			d.commandRunning = false
		}
	}()

	fields := SplitPayload(payload)
	now := d.now()

	switch fields[0] {
	case opPromptStart:
		d.emit(Event{Type: EventPromptStart, Time: now})

	case opInputStart:
		d.emit(Event{Type: EventInputStart, Time: now})

	case opCommandLine:
		// The command line itself may contain ';', so everything after
		// the opcode is rejoined verbatim.
		d.pendingCommandLine = strings.Join(fields[1:], ";")

	case opCommandRun:
		if d.commandRunning {
			// Two starts with no finish between them. Keeping the first
			// command's start time preserves strict start/finish
			// alternation for consumers.
			d.logger.Warn("command start marker while a command is running",
				zap.String("payload", payload),
			)
			return
		}
		d.commandRunning = true
		d.commandStartedAt = now
		d.emit(Event{Type: EventCommandStart, Time: now, CommandLine: d.pendingCommandLine})
		d.emit(Event{Type: EventCommandOutput, Time: now})

	case opCommandDone:
		if !d.commandRunning {
			// The shell says a command ended but we never saw it start.
			// Dropped as a recoverable inconsistency, but logged because
			// it can indicate shell/decoder desynchronization.
			d.logger.Warn("command finished marker with no running command",
				zap.String("payload", payload),
			)
			return
		}
		exitCode := -1
		if len(fields) > 1 {
			if code, err := strconv.Atoi(fields[1]); err == nil {
				exitCode = code
			}
		}
		d.emit(Event{
			Type:     EventCommandFinished,
			Time:     now,
			ExitCode: exitCode,
			Duration: now.Sub(d.commandStartedAt),
		})
		d.commandRunning = false
		d.pendingCommandLine = ""

	case opProperty:
		if len(fields) > 1 {
			if key, value := ParseProperty(fields[1]); key == propertyCwd {
				d.emit(Event{Type: EventCwdUpdate, Time: now, Cwd: value})
			}
		}

	default:
		// Unknown opcodes are ignored to stay forward-compatible with
		// newer shell integration scripts.
	}
}

// CommandRunning reports whether the decoder believes a command is in flight.
func (d *Decoder) CommandRunning() bool {
	return d.commandRunning
}

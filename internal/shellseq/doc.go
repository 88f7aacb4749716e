// Package shellseq decodes shell-integration escape sequences into
// discrete command lifecycle events.
//
// Shells with the integration script installed annotate their output with
// OSC 633 control sequences marking prompt/input/command boundaries. This
// package turns that continuous, byte-oriented stream into a strictly
// ordered sequence of typed events that the installation orchestrator can
// consume.
//
// Pipeline:
//   - Extractor: scans the raw PTY byte stream, isolates OSC 633 payloads,
//     and passes all other bytes through untouched for rendering
//   - Tokenizer: splits an isolated payload on ';' into ordered fields
//   - Decoder: maps single-letter opcodes to lifecycle transitions and
//     emits events
//
// Opcodes:
//   - A: prompt start (shell ready for a new command line)
//   - B: input start
//   - E: command line text (stored, no event)
//   - C: command execution started
//   - D: command finished, optional integer exit code
//   - P: property update, only Cwd=<path> is interpreted
//
// The decoder owns small mutable state (pending command line, running
// flag, start time) and must be fed from exactly one sequential stream;
// it is not safe for concurrent use. Malformed payloads never crash the
// session: they are logged and produce no event.
package shellseq

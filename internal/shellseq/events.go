package shellseq

import "time"

// EventType discriminates lifecycle events.
type EventType string

const (
	// EventPromptStart signals the shell is ready to accept a new command line.
	EventPromptStart EventType = "prompt_start"
	// EventInputStart signals input begins being read.
	EventInputStart EventType = "input_start"
	// EventCommandStart signals a command line was submitted.
	EventCommandStart EventType = "command_start"
	// EventCommandOutput marks the beginning of a command's output region.
	EventCommandOutput EventType = "command_output"
	// EventCommandFinished signals the running command returned control to the shell.
	EventCommandFinished EventType = "command_finished"
	// EventCwdUpdate signals the shell's working directory changed.
	EventCwdUpdate EventType = "cwd_update"
)

// Event is a single decoded lifecycle event.
//
// Only the fields relevant to the event type are populated: CommandLine for
// command_start, ExitCode and Duration for command_finished, Cwd for
// cwd_update.
type Event struct {
	Type        EventType     `json:"type"`
	Time        time.Time     `json:"time"`
	CommandLine string        `json:"command_line,omitempty"`
	ExitCode    int           `json:"exit_code,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Cwd         string        `json:"cwd,omitempty"`
}

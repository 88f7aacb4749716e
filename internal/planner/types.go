package planner

// Step is a named, ordered group of shell commands.
type Step struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Commands []string `json:"commands"`
}

// Plan is an ordered list of steps. Immutable once allocated.
type Plan struct {
	Steps []Step `json:"steps"`
}

// Allocation is the planner's response to a plan request.
type Allocation struct {
	SessionID       string `json:"session_id"`
	Plan            Plan   `json:"plan"`
	EnvironmentName string `json:"environment_name"`
}

// Report statuses returned by the planner.
const (
	StatusAlreadyExecuting = "already_executing"
	StatusNext             = "next"
	StatusCompleted        = "completed"
	StatusFailed           = "failed"
)

// NextStep directs the orchestrator at the next command to dispatch.
type NextStep struct {
	StepID       string `json:"step_id"`
	StepIndex    int    `json:"step_index"`
	TotalSteps   int    `json:"total_steps"`
	CommandIndex int    `json:"command_index"`
	Command      string `json:"command"`
	Name         string `json:"name"`
}

// ReportResponse is the planner's directive after a result report.
type ReportResponse struct {
	Status   string    `json:"status"`
	NextStep *NextStep `json:"next_step,omitempty"`
	Error    string    `json:"error,omitempty"`
}

type allocateRequest struct {
	Environment string `json:"environment"`
}

type executeRequest struct {
	StepID       string `json:"step_id"`
	CommandIndex int    `json:"command_index"`
	ExecutionID  string `json:"execution_id"`
}

type reportRequest struct {
	StepID       string `json:"step_id"`
	CommandIndex int    `json:"command_index"`
	ExitCode     int    `json:"exit_code"`
	ExecutionID  string `json:"execution_id"`
}

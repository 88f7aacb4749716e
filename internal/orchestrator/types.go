package orchestrator

import (
	"context"
	"time"

	"github.com/GriffinCanCode/InstallOS/backend/internal/planner"
	"github.com/GriffinCanCode/InstallOS/backend/internal/shared/id"
)

// StepStatus tracks a single step's progress.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepSuccess StepStatus = "success"
	StepError   StepStatus = "error"
)

// Lifecycle is the run's externally observable state.
type Lifecycle string

const (
	LifecycleIdle    Lifecycle = "idle"
	LifecycleRunning Lifecycle = "running"
	LifecycleSuccess Lifecycle = "success"
	LifecycleFailed  Lifecycle = "failed"
)

// Planner is the subset of the planner client the orchestrator uses.
type Planner interface {
	Execute(ctx context.Context, stepID string, commandIndex int, executionID id.ExecutionID) error
	Report(ctx context.Context, stepID string, commandIndex, exitCode int, executionID id.ExecutionID) (*planner.ReportResponse, error)
}

// Transport is the subset of the transport session the orchestrator uses.
type Transport interface {
	SendInput(data string) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// pendingResult holds a finished command's result during the interval
// between the finish event and the moment it is actually reported.
// At most one exists at a time; commands are strictly serialized.
type pendingResult struct {
	stepID       string
	commandIndex int
	exitCode     int
}

// stepState is the orchestrator's view of one plan step.
type stepState struct {
	id       string
	name     string
	commands []string
	status   StepStatus
}

// StepSnapshot is the public representation of a step's progress.
type StepSnapshot struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Commands []string   `json:"commands"`
	Status   StepStatus `json:"status"`
}

// Snapshot is a point-in-time view of a run, safe to serialize.
type Snapshot struct {
	SessionID       string         `json:"session_id"`
	EnvironmentName string         `json:"environment_name"`
	Lifecycle       Lifecycle      `json:"lifecycle"`
	Steps           []StepSnapshot `json:"steps"`
	CurrentStep     int            `json:"current_step"`
	CurrentCommand  int            `json:"current_command"`
	Cwd             string         `json:"cwd,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// Config holds the orchestrator's timing policy. Both values are policy
// constants, not protocol requirements, and may be tuned.
type Config struct {
	// StabilizeDelay lets the shell's input buffer settle after a prompt
	// before a queued result is reported.
	StabilizeDelay time.Duration
	// SafetyTimeout force-reports a pending result when no prompt marker
	// arrives in time.
	SafetyTimeout time.Duration
}

// DefaultConfig returns the standard timing policy.
func DefaultConfig() Config {
	return Config{
		StabilizeDelay: time.Second,
		SafetyTimeout:  2 * time.Second,
	}
}

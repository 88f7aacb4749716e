package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/InstallOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/InstallOS/backend/internal/logging"
	"github.com/GriffinCanCode/InstallOS/backend/internal/planner"
	"github.com/GriffinCanCode/InstallOS/backend/internal/shared/id"
	"github.com/GriffinCanCode/InstallOS/backend/internal/shellseq"
)

// Orchestrator executes one installation run. All state transitions are
// applied from a single event loop; see Run.
type Orchestrator struct {
	cfg       Config
	planner   Planner
	transport Transport
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	clock     Clock

	// Safety timer hooks, bound by the event loop. The timer is armed
	// when a result becomes pending and cancelled the instant the result
	// is reported.
	armTimer    func()
	cancelTimer func()

	events      chan shellseq.Event
	disconnects chan error
	done        chan struct{}

	// Run state. Mutated only by the event loop goroutine.
	sessionID             string
	environmentName       string
	steps                 []stepState
	currentStepIndex      int
	currentCommandIndex   int
	currentStepID         string
	currentCommand        string
	isExecuting           bool
	pending               *pendingResult
	waitingForFirstPrompt bool
	lifecycle             Lifecycle
	lastError             string
	cwd                   string

	// Published view for concurrent readers.
	snapMu   sync.RWMutex
	snapshot Snapshot
}

// New creates an orchestrator. The transport must be bound to the same
// terminal session the planner allocated.
func New(cfg Config, p Planner, t Transport, logger *logging.Logger, metrics *monitoring.Metrics) *Orchestrator {
	o := &Orchestrator{
		cfg:         cfg,
		planner:     p,
		transport:   t,
		logger:      logger.Named("orchestrator"),
		metrics:     metrics,
		clock:       realClock{},
		armTimer:    func() {},
		cancelTimer: func() {},
		events:      make(chan shellseq.Event, 64),
		disconnects: make(chan error, 1),
		done:        make(chan struct{}),
		lifecycle:   LifecycleIdle,
	}
	o.publish()
	return o
}

// WithClock overrides the time source. Useful for deterministic tests.
func (o *Orchestrator) WithClock(c Clock) *Orchestrator {
	o.clock = c
	return o
}

// Initialize seeds the run from a plan allocation. The first command is
// not dispatched yet: the shell must finish its own startup banner and
// prompt first, so execution is deferred until the first prompt marker.
func (o *Orchestrator) Initialize(allocation *planner.Allocation) error {
	if o.lifecycle != LifecycleIdle {
		return fmt.Errorf("orchestrator already initialized")
	}

	o.sessionID = allocation.SessionID
	o.environmentName = allocation.EnvironmentName

	steps := allocation.Plan.Steps
	if len(steps) == 0 {
		// Nothing to install.
		o.lifecycle = LifecycleSuccess
		o.publish()
		return nil
	}

	o.steps = make([]stepState, len(steps))
	for i, s := range steps {
		o.steps[i] = stepState{
			id:       s.ID,
			name:     s.Name,
			commands: s.Commands,
			status:   StepPending,
		}
	}
	if len(steps[0].Commands) == 0 {
		return fmt.Errorf("step %q has no commands", steps[0].ID)
	}

	o.steps[0].status = StepRunning
	o.currentStepIndex = 0
	o.currentCommandIndex = 0
	o.currentStepID = steps[0].ID
	o.currentCommand = steps[0].Commands[0]
	o.waitingForFirstPrompt = true
	o.lifecycle = LifecycleRunning
	o.publish()

	o.logger.Info("run initialized",
		zap.String("session_id", o.sessionID),
		zap.String("environment", o.environmentName),
		zap.Int("steps", len(steps)),
	)
	return nil
}

// handleEvent applies one lifecycle event. Called only from the event loop.
func (o *Orchestrator) handleEvent(ctx context.Context, ev shellseq.Event) {
	if o.lifecycle != LifecycleRunning {
		return
	}

	switch ev.Type {
	case shellseq.EventPromptStart:
		o.onPromptStart(ctx)

	case shellseq.EventCommandFinished:
		o.onCommandFinished(ev)

	case shellseq.EventCwdUpdate:
		o.cwd = ev.Cwd
		o.publish()
	}
}

// onPromptStart handles the shell becoming interactive. A queued result
// takes priority over first-command dispatch.
func (o *Orchestrator) onPromptStart(ctx context.Context) {
	if o.pending != nil {
		// Let the shell's input buffer settle before reporting; the
		// report's directive may feed the next command immediately.
		o.clock.Sleep(ctx, o.cfg.StabilizeDelay)
		if ctx.Err() != nil {
			return
		}
		o.report(ctx)
		return
	}

	if o.waitingForFirstPrompt {
		o.waitingForFirstPrompt = false
		o.dispatch(ctx)
	}
}

// onCommandFinished queues a finished command's result. The result is
// deliberately not reported yet: the next prompt marker is the reliable
// signal that the shell has fully returned to an interactive state.
func (o *Orchestrator) onCommandFinished(ev shellseq.Event) {
	if !o.isExecuting {
		// Not a command this orchestrator issued.
		o.logger.Debug("stale command finish ignored",
			zap.Int("exit_code", ev.ExitCode),
		)
		return
	}

	o.isExecuting = false
	o.pending = &pendingResult{
		stepID:       o.currentStepID,
		commandIndex: o.currentCommandIndex,
		exitCode:     ev.ExitCode,
	}
	o.armTimer()
	o.publish()

	if o.metrics != nil {
		o.metrics.RecordCommandFinished(ev.ExitCode, ev.Duration)
	}

	o.logger.Info("command finished",
		zap.String("step_id", o.currentStepID),
		zap.Int("command_index", o.currentCommandIndex),
		zap.Int("exit_code", ev.ExitCode),
		zap.Duration("duration", ev.Duration),
	)
}

// onSafetyTimeout force-reports the pending result when no prompt marker
// arrived in time, e.g. a shell without the integration script's prompt
// markers. Reporting is identical to the prompt path.
func (o *Orchestrator) onSafetyTimeout(ctx context.Context) {
	if o.lifecycle != LifecycleRunning || o.pending == nil {
		return
	}
	o.logger.Warn("no prompt marker after command finish, force-reporting",
		zap.String("step_id", o.pending.stepID),
		zap.Int("command_index", o.pending.commandIndex),
	)
	o.report(ctx)
}

// report submits the pending result and applies the planner's directive.
func (o *Orchestrator) report(ctx context.Context) {
	pr := o.pending
	o.cancelTimer()

	execID := id.NewExecutionID(o.sessionID)
	resp, err := o.planner.Report(ctx, pr.stepID, pr.commandIndex, pr.exitCode, execID)
	if err != nil {
		o.fail(err.Error())
		return
	}
	o.pending = nil

	switch resp.Status {
	case planner.StatusAlreadyExecuting:
		// A concurrent submission beat this one. The result stays
		// queued so the next prompt (or the safety timer) retries the
		// report until the planner issues a definitive directive.
		o.pending = pr
		o.armTimer()
		o.logger.Info("report deduplicated by planner",
			zap.String("step_id", pr.stepID),
			zap.Int("command_index", pr.commandIndex),
		)
		o.publish()

	case planner.StatusNext:
		o.advance(ctx, resp.NextStep)

	case planner.StatusCompleted:
		if o.currentStepIndex < len(o.steps) {
			o.steps[o.currentStepIndex].status = StepSuccess
		}
		o.lifecycle = LifecycleSuccess
		o.publish()
		o.recordOutcome()
		o.logger.Info("installation completed",
			zap.String("environment", o.environmentName),
		)

	case planner.StatusFailed:
		if o.currentStepIndex < len(o.steps) {
			o.steps[o.currentStepIndex].status = StepError
		}
		o.lifecycle = LifecycleFailed
		o.lastError = resp.Error
		o.publish()
		o.recordOutcome()
		o.logger.Error("installation failed",
			zap.String("step_id", pr.stepID),
			zap.String("error", resp.Error),
		)

	default:
		o.fail(fmt.Sprintf("unknown report status: %q", resp.Status))
	}
}

// advance moves to the planner's next command and dispatches it
// immediately; the shell is already at a known-interactive prompt.
func (o *Orchestrator) advance(ctx context.Context, next *planner.NextStep) {
	if next == nil {
		o.fail("planner returned next with no next_step")
		return
	}
	// Validated before any use: currentStepIndex must stay a valid index
	// even when the directive keeps the current step.
	if next.StepIndex < 0 || next.StepIndex >= len(o.steps) {
		o.fail(fmt.Sprintf("planner step index %d out of range", next.StepIndex))
		return
	}

	if next.StepID != o.currentStepID {
		o.steps[o.currentStepIndex].status = StepSuccess
		o.steps[next.StepIndex].status = StepRunning
	}

	o.currentStepID = next.StepID
	o.currentStepIndex = next.StepIndex
	o.currentCommandIndex = next.CommandIndex
	o.currentCommand = next.Command
	if o.currentCommand == "" {
		step := o.steps[next.StepIndex]
		if next.CommandIndex >= len(step.commands) {
			o.fail(fmt.Sprintf("planner command index %d out of range for step %q", next.CommandIndex, next.StepID))
			return
		}
		o.currentCommand = step.commands[next.CommandIndex]
	}
	o.publish()

	o.dispatch(ctx)
}

// dispatch announces the current command to the planner, then feeds its
// keystrokes into the shell.
func (o *Orchestrator) dispatch(ctx context.Context) {
	if o.isExecuting || o.pending != nil {
		// Commands are strictly serial; this indicates a logic error
		// upstream rather than a recoverable condition.
		o.logger.Error("dispatch blocked: command already in flight",
			zap.String("step_id", o.currentStepID),
			zap.Int("command_index", o.currentCommandIndex),
		)
		return
	}

	execID := id.NewExecutionID(o.sessionID)
	if err := o.planner.Execute(ctx, o.currentStepID, o.currentCommandIndex, execID); err != nil {
		o.fail(err.Error())
		return
	}
	o.isExecuting = true
	o.publish()

	if err := o.transport.SendInput(o.currentCommand + "\n"); err != nil {
		o.fail(fmt.Sprintf("sending command to shell: %v", err))
		return
	}

	if o.metrics != nil {
		o.metrics.RecordCommandDispatched()
	}

	o.logger.Info("command dispatched",
		zap.String("step_id", o.currentStepID),
		zap.Int("command_index", o.currentCommandIndex),
		zap.String("command", o.currentCommand),
	)
}

// onDisconnect handles transport teardown. A run whose channel drops is
// abandoned, never silently resumed.
func (o *Orchestrator) onDisconnect(err error) {
	if o.lifecycle != LifecycleRunning {
		return
	}
	if err != nil {
		o.fail(fmt.Sprintf("transport disconnected: %v", err))
	} else {
		o.fail("transport disconnected")
	}
}

// fail transitions the run to Failed and surfaces the error.
func (o *Orchestrator) fail(msg string) {
	o.cancelTimer()
	if o.currentStepIndex < len(o.steps) && o.steps[o.currentStepIndex].status == StepRunning {
		o.steps[o.currentStepIndex].status = StepError
	}
	o.lifecycle = LifecycleFailed
	o.lastError = msg
	o.publish()
	o.recordOutcome()
	o.logger.Error("run failed", zap.String("error", msg))
}

func (o *Orchestrator) recordOutcome() {
	if o.metrics != nil {
		o.metrics.RecordRunOutcome(string(o.lifecycle))
	}
}

// publish refreshes the snapshot visible to concurrent readers.
func (o *Orchestrator) publish() {
	steps := make([]StepSnapshot, len(o.steps))
	for i, s := range o.steps {
		steps[i] = StepSnapshot{
			ID:       s.id,
			Name:     s.name,
			Commands: s.commands,
			Status:   s.status,
		}
	}

	o.snapMu.Lock()
	o.snapshot = Snapshot{
		SessionID:       o.sessionID,
		EnvironmentName: o.environmentName,
		Lifecycle:       o.lifecycle,
		Steps:           steps,
		CurrentStep:     o.currentStepIndex,
		CurrentCommand:  o.currentCommandIndex,
		Cwd:             o.cwd,
		Error:           o.lastError,
	}
	o.snapMu.Unlock()
}

// Snapshot returns a point-in-time view of the run. Safe for concurrent use.
func (o *Orchestrator) Snapshot() Snapshot {
	o.snapMu.RLock()
	defer o.snapMu.RUnlock()
	return o.snapshot
}

// Lifecycle returns the run's current lifecycle. Safe for concurrent use.
func (o *Orchestrator) Lifecycle() Lifecycle {
	o.snapMu.RLock()
	defer o.snapMu.RUnlock()
	return o.snapshot.Lifecycle
}

package orchestrator

import (
	"context"
	"time"

	"github.com/GriffinCanCode/InstallOS/backend/internal/shellseq"
)

// Feed delivers a decoded lifecycle event to the run. Events must come
// from a single sequential source (the transport's receive path) so
// ordering is preserved. Events after the run finishes are dropped.
func (o *Orchestrator) Feed(ev shellseq.Event) {
	select {
	case o.events <- ev:
	case <-o.done:
	}
}

// NotifyDisconnect reports transport teardown to the run.
func (o *Orchestrator) NotifyDisconnect(err error) {
	select {
	case o.disconnects <- err:
	default:
		// A single disconnect is enough to terminate the run.
	}
}

// Done is closed when the run reaches a terminal lifecycle or its
// context is cancelled.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// Run is the run's single thread of control: it serializes lifecycle
// events, the safety timeout, and disconnect notifications, so every
// state transition is applied atomically relative to event handling.
// It returns when the run reaches Success or Failed, or when ctx is
// cancelled (the caller abandoning the run).
func (o *Orchestrator) Run(ctx context.Context) {
	defer close(o.done)

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}

	stop := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
	o.armTimer = func() {
		stop()
		timer.Reset(o.cfg.SafetyTimeout)
	}
	o.cancelTimer = stop
	defer stop()

	for {
		if lc := o.Lifecycle(); lc == LifecycleSuccess || lc == LifecycleFailed {
			return
		}

		select {
		case ev := <-o.events:
			o.handleEvent(ctx, ev)
		case <-timer.C:
			o.onSafetyTimeout(ctx)
		case err := <-o.disconnects:
			o.onDisconnect(err)
		case <-ctx.Done():
			return
		}
	}
}

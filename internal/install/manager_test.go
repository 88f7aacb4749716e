package install

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/InstallOS/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/InstallOS/backend/internal/logging"
	"github.com/GriffinCanCode/InstallOS/backend/internal/orchestrator"
	"github.com/GriffinCanCode/InstallOS/backend/internal/planner"
	"github.com/GriffinCanCode/InstallOS/backend/internal/shared/id"
	"github.com/GriffinCanCode/InstallOS/backend/internal/terminal"
)

type scriptedPlanner struct {
	mu         sync.Mutex
	allocation *planner.Allocation
	reports    []*planner.ReportResponse

	executed []string
	reported []int
}

func (p *scriptedPlanner) AllocatePlan(ctx context.Context, environment string) (*planner.Allocation, error) {
	return p.allocation, nil
}

func (p *scriptedPlanner) Execute(ctx context.Context, stepID string, commandIndex int, executionID id.ExecutionID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.executed = append(p.executed, stepID)
	return nil
}

func (p *scriptedPlanner) Report(ctx context.Context, stepID string, commandIndex, exitCode int, executionID id.ExecutionID) (*planner.ReportResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reported = append(p.reported, exitCode)
	resp := p.reports[0]
	p.reports = p.reports[1:]
	return resp, nil
}

func (p *scriptedPlanner) calls() (executed []string, reported []int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.executed...), append([]int(nil), p.reported...)
}

// sessionHost fakes a remote terminal over websocket: it greets with a
// prompt marker and answers every input frame with a full command
// lifecycle (start, output, finish, next prompt).
type sessionHost struct {
	srv *httptest.Server

	mu     sync.Mutex
	inputs []string

	exitCode string
	// respond gates whether input frames produce a finish sequence.
	respond bool
}

func newSessionHost(t *testing.T, exitCode string, respond bool) *sessionHost {
	h := &sessionHost{exitCode: exitCode, respond: respond}
	upgrader := websocket.Upgrader{}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if err := conn.WriteMessage(websocket.BinaryMessage, []byte("$ \x1b]633;A\x07")); err != nil {
			return
		}

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame struct {
				Type string `json:"type"`
				Data string `json:"data"`
			}
			if err := json.Unmarshal(data, &frame); err != nil || frame.Type != "input" {
				continue
			}
			h.mu.Lock()
			h.inputs = append(h.inputs, frame.Data)
			h.mu.Unlock()
			if !h.respond {
				continue
			}
			reply := "\x1b]633;C\x07output\r\n\x1b]633;D;" + h.exitCode + "\x07$ \x1b]633;A\x07"
			if err := conn.WriteMessage(websocket.BinaryMessage, []byte(reply)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(h.srv.Close)
	return h
}

func (h *sessionHost) wsURL() string {
	return "ws" + strings.TrimPrefix(h.srv.URL, "http")
}

func (h *sessionHost) receivedInputs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.inputs...)
}

func newTestManager(p Planner, wsURL string) *Manager {
	logger := logging.NewNop()
	cfg := config.InstallConfig{
		Transport:      TransportWS,
		SessionWSURL:   wsURL,
		StabilizeDelay: time.Millisecond,
		SafetyTimeout:  50 * time.Millisecond,
	}
	termCfg := config.TerminalConfig{Cols: 80, Rows: 24}
	return NewManager(cfg, termCfg, p, terminal.NewManager(logger), logger, nil)
}

func waitForLifecycle(t *testing.T, m *Manager, runID id.RunID, want orchestrator.Lifecycle) RunInfo {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		info, err := m.GetRun(runID)
		require.NoError(t, err)
		if info.State.Lifecycle == want {
			return *info
		}
		select {
		case <-deadline:
			t.Fatalf("run stuck in %q, want %q", info.State.Lifecycle, want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStartRunCompletesOverWebSocket(t *testing.T) {
	host := newSessionHost(t, "0", true)
	p := &scriptedPlanner{
		allocation: &planner.Allocation{
			SessionID:       "sess_remote",
			EnvironmentName: "dev",
			Plan: planner.Plan{Steps: []planner.Step{
				{ID: "step-1", Name: "Install", Commands: []string{"apt-get install -y curl"}},
			}},
		},
		reports: []*planner.ReportResponse{{Status: planner.StatusCompleted}},
	}
	m := newTestManager(p, host.wsURL())
	defer m.Close()

	info, err := m.StartRun(context.Background(), "dev")
	require.NoError(t, err)
	assert.Equal(t, orchestrator.LifecycleRunning, info.State.Lifecycle)

	final := waitForLifecycle(t, m, info.ID, orchestrator.LifecycleSuccess)
	assert.Equal(t, orchestrator.StepSuccess, final.State.Steps[0].Status)
	assert.Equal(t, []string{"apt-get install -y curl\n"}, host.receivedInputs())
	executed, reported := p.calls()
	assert.Equal(t, []string{"step-1"}, executed)
	assert.Equal(t, []int{0}, reported)
}

func TestStartRunFailsOnNonzeroExit(t *testing.T) {
	host := newSessionHost(t, "127", true)
	p := &scriptedPlanner{
		allocation: &planner.Allocation{
			SessionID:       "sess_remote",
			EnvironmentName: "dev",
			Plan: planner.Plan{Steps: []planner.Step{
				{ID: "step-1", Name: "Install", Commands: []string{"no-such-binary"}},
			}},
		},
		reports: []*planner.ReportResponse{{Status: planner.StatusFailed, Error: "command not found"}},
	}
	m := newTestManager(p, host.wsURL())
	defer m.Close()

	info, err := m.StartRun(context.Background(), "dev")
	require.NoError(t, err)

	final := waitForLifecycle(t, m, info.ID, orchestrator.LifecycleFailed)
	assert.Equal(t, "command not found", final.State.Error)
	_, reported := p.calls()
	assert.Equal(t, []int{127}, reported)
}

func TestAbandonRun(t *testing.T) {
	// The host accepts input but never reports a finish, so the run
	// stays running until abandoned.
	host := newSessionHost(t, "0", false)
	p := &scriptedPlanner{
		allocation: &planner.Allocation{
			SessionID:       "sess_remote",
			EnvironmentName: "dev",
			Plan: planner.Plan{Steps: []planner.Step{
				{ID: "step-1", Name: "Install", Commands: []string{"sleep 9999"}},
			}},
		},
	}
	m := newTestManager(p, host.wsURL())
	defer m.Close()

	info, err := m.StartRun(context.Background(), "dev")
	require.NoError(t, err)

	require.NoError(t, m.AbandonRun(info.ID))

	_, err = m.GetRun(info.ID)
	assert.Error(t, err)
	assert.Error(t, m.AbandonRun(info.ID))
}

func TestListRuns(t *testing.T) {
	host := newSessionHost(t, "0", false)
	p := &scriptedPlanner{
		allocation: &planner.Allocation{
			SessionID:       "sess_remote",
			EnvironmentName: "dev",
			Plan:            planner.Plan{Steps: []planner.Step{{ID: "s", Name: "s", Commands: []string{"true"}}}},
		},
	}
	m := newTestManager(p, host.wsURL())
	defer m.Close()

	assert.Empty(t, m.ListRuns())

	info, err := m.StartRun(context.Background(), "dev")
	require.NoError(t, err)

	runs := m.ListRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, info.ID, runs[0].ID)
	assert.Equal(t, "dev", runs[0].Environment)
}

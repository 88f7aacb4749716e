package install

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/InstallOS/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/InstallOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/InstallOS/backend/internal/logging"
	"github.com/GriffinCanCode/InstallOS/backend/internal/orchestrator"
	"github.com/GriffinCanCode/InstallOS/backend/internal/planner"
	"github.com/GriffinCanCode/InstallOS/backend/internal/shared/id"
	"github.com/GriffinCanCode/InstallOS/backend/internal/shellseq"
	"github.com/GriffinCanCode/InstallOS/backend/internal/terminal"
	"github.com/GriffinCanCode/InstallOS/backend/internal/transport"
)

// Transport modes. Local drives an in-process PTY; ws dials a remote
// session host.
const (
	TransportLocal = "local"
	TransportWS    = "ws"
)

// Planner is the planner surface the run manager needs: plan allocation
// plus the orchestrator's execute/report subset.
type Planner interface {
	orchestrator.Planner
	AllocatePlan(ctx context.Context, environment string) (*planner.Allocation, error)
}

// boundTransport lets the orchestrator be constructed before its
// transport exists. The orchestrator never sends input before the first
// prompt marker, which can only arrive after the transport is bound.
type boundTransport struct {
	mu sync.RWMutex
	s  transport.Session
}

func (b *boundTransport) bind(s transport.Session) {
	b.mu.Lock()
	b.s = s
	b.mu.Unlock()
}

func (b *boundTransport) SendInput(data string) error {
	b.mu.RLock()
	s := b.s
	b.mu.RUnlock()
	if s == nil {
		return fmt.Errorf("transport not bound")
	}
	return s.SendInput(data)
}

// Run is one installation run and the resources it owns.
type Run struct {
	ID          id.RunID
	Environment string
	CreatedAt   time.Time

	orch      *orchestrator.Orchestrator
	transport transport.Session
	cancel    context.CancelFunc

	// localSessionID is set when the run owns an in-process PTY session.
	localSessionID string
}

// RunInfo is the public representation of a run.
type RunInfo struct {
	ID          id.RunID              `json:"id"`
	Environment string                `json:"environment"`
	CreatedAt   time.Time             `json:"created_at"`
	State       orchestrator.Snapshot `json:"state"`
}

// Manager creates, tracks, and abandons installation runs.
type Manager struct {
	cfg      config.InstallConfig
	termCfg  config.TerminalConfig
	planner  Planner
	terminal *terminal.Manager
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	mu   sync.RWMutex
	runs map[id.RunID]*Run
}

// NewManager creates a run manager.
func NewManager(cfg config.InstallConfig, termCfg config.TerminalConfig, p Planner, term *terminal.Manager, logger *logging.Logger, metrics *monitoring.Metrics) *Manager {
	return &Manager{
		cfg:      cfg,
		termCfg:  termCfg,
		planner:  p,
		terminal: term,
		logger:   logger.Named("install"),
		metrics:  metrics,
		runs:     make(map[id.RunID]*Run),
	}
}

// StartRun allocates a plan for the environment and starts driving it.
// The returned info reflects the run's initial state; poll GetRun for
// progress.
func (m *Manager) StartRun(ctx context.Context, environment string) (*RunInfo, error) {
	allocation, err := m.planner.AllocatePlan(ctx, environment)
	if err != nil {
		return nil, fmt.Errorf("allocating plan: %w", err)
	}

	bound := &boundTransport{}
	orch := orchestrator.New(orchestrator.Config{
		StabilizeDelay: m.cfg.StabilizeDelay,
		SafetyTimeout:  m.cfg.SafetyTimeout,
	}, m.planner, bound, m.logger, m.metrics)

	decoder := shellseq.NewDecoder(orch.Feed, m.logger)
	extractor := shellseq.NewExtractor(decoder.HandlePayload, nil)
	handlers := transport.Handlers{
		OnOutput:     extractor.Feed,
		OnDisconnect: orch.NotifyDisconnect,
	}

	ts, localSessionID, err := m.openTransport(allocation.SessionID, handlers)
	if err != nil {
		return nil, err
	}
	bound.bind(ts)

	if err := orch.Initialize(allocation); err != nil {
		ts.Close()
		m.closeLocalSession(localSessionID)
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	run := &Run{
		ID:             id.NewRunID(),
		Environment:    environment,
		CreatedAt:      time.Now(),
		orch:           orch,
		transport:      ts,
		cancel:         cancel,
		localSessionID: localSessionID,
	}

	m.mu.Lock()
	m.runs[run.ID] = run
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordRunStarted()
	}

	go orch.Run(runCtx)
	go m.reap(run)

	m.logger.Info("run started",
		zap.String("run_id", run.ID.String()),
		zap.String("environment", environment),
		zap.String("session_id", allocation.SessionID),
		zap.String("transport", m.cfg.Transport),
	)

	info := m.info(run)
	return &info, nil
}

// openTransport binds a shell channel for the allocated session. In
// local mode the run owns a fresh PTY session; the planner's session ID
// only scopes execution IDs.
func (m *Manager) openTransport(sessionID string, handlers transport.Handlers) (transport.Session, string, error) {
	switch m.cfg.Transport {
	case TransportWS:
		url := strings.TrimRight(m.cfg.SessionWSURL, "/") + "/" + sessionID
		ts, err := transport.DialWS(url, sessionID, m.termCfg.Cols, m.termCfg.Rows, handlers)
		if err != nil {
			return nil, "", fmt.Errorf("dialing session host: %w", err)
		}
		return ts, "", nil

	case TransportLocal, "":
		info, err := m.terminal.CreateSession(terminal.CreateOptions{
			Shell:      m.termCfg.Shell,
			WorkingDir: m.termCfg.WorkingDir,
			Cols:       m.termCfg.Cols,
			Rows:       m.termCfg.Rows,
		})
		if err != nil {
			return nil, "", fmt.Errorf("creating terminal session: %w", err)
		}
		if m.metrics != nil {
			m.metrics.RecordSessionCreated()
		}
		ts, err := transport.AttachLocal(m.terminal, info.ID, m.termCfg.Cols, m.termCfg.Rows, handlers)
		if err != nil {
			m.closeLocalSession(info.ID)
			return nil, "", fmt.Errorf("attaching to terminal session: %w", err)
		}
		return ts, info.ID, nil

	default:
		return nil, "", fmt.Errorf("unknown transport mode: %q", m.cfg.Transport)
	}
}

// reap tears the run's resources down once it finishes.
func (m *Manager) reap(run *Run) {
	<-run.orch.Done()

	run.transport.Close()
	m.closeLocalSession(run.localSessionID)

	m.logger.Info("run finished",
		zap.String("run_id", run.ID.String()),
		zap.String("lifecycle", string(run.orch.Lifecycle())),
	)
}

func (m *Manager) closeLocalSession(sessionID string) {
	if sessionID == "" {
		return
	}
	if err := m.terminal.Kill(sessionID); err != nil {
		m.logger.Warn("killing terminal session",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return
	}
	if m.metrics != nil {
		m.metrics.RecordSessionClosed()
	}
}

// GetRun returns a run's current state.
func (m *Manager) GetRun(runID id.RunID) (*RunInfo, error) {
	m.mu.RLock()
	run, ok := m.runs[runID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	info := m.info(run)
	return &info, nil
}

// ListRuns returns all known runs.
func (m *Manager) ListRuns() []RunInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]RunInfo, 0, len(m.runs))
	for _, run := range m.runs {
		infos = append(infos, m.info(run))
	}
	return infos
}

// AbandonRun cancels a run's event loop and forgets it. The transport
// and any local session are released by the reaper; the remote step
// record stays as last reported.
func (m *Manager) AbandonRun(runID id.RunID) error {
	m.mu.Lock()
	run, ok := m.runs[runID]
	if ok {
		delete(m.runs, runID)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
	}

	run.cancel()
	m.logger.Info("run abandoned", zap.String("run_id", runID.String()))
	return nil
}

// Close abandons every run. Used at server shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	runs := make([]*Run, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	m.runs = make(map[id.RunID]*Run)
	m.mu.Unlock()

	for _, run := range runs {
		run.cancel()
	}
}

func (m *Manager) info(run *Run) RunInfo {
	return RunInfo{
		ID:          run.ID,
		Environment: run.Environment,
		CreatedAt:   run.CreatedAt,
		State:       run.orch.Snapshot(),
	}
}

package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Terminal session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Installation metrics
	RunsActive         prometheus.Gauge
	RunsTotal          *prometheus.CounterVec
	CommandsDispatched prometheus.Counter
	CommandDuration    prometheus.Histogram
	CommandExitCodes   *prometheus.CounterVec
	PlannerCalls       *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

// NewMetricsForTest creates a collector on a private registry so tests
// never collide on duplicate registration.
func NewMetricsForTest() *Metrics {
	return newMetrics(prometheus.NewRegistry())
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "installd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "installd_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "installd_terminal_sessions_active",
				Help: "Number of active terminal sessions",
			},
		),
		SessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "installd_terminal_sessions_created_total",
				Help: "Total number of terminal sessions created",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "installd_ws_connections_active",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "installd_ws_messages_total",
				Help: "Total WebSocket messages by frame type",
			},
			[]string{"type"},
		),

		RunsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "installd_install_runs_active",
				Help: "Number of installation runs in progress",
			},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "installd_install_runs_total",
				Help: "Total installation runs by outcome",
			},
			[]string{"outcome"},
		),
		CommandsDispatched: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "installd_commands_dispatched_total",
				Help: "Total commands dispatched to shells",
			},
		),
		CommandDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "installd_command_duration_seconds",
				Help:    "Shell command execution duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
			},
		),
		CommandExitCodes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "installd_command_exit_codes_total",
				Help: "Command completions by exit code",
			},
			[]string{"exit_code"},
		),

		PlannerCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "installd_planner_calls_total",
				Help: "Planner API calls by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "installd_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSessionCreated records a new terminal session
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionClosed records a terminal session teardown
func (m *Metrics) RecordSessionClosed() {
	m.SessionsActive.Dec()
}

// RecordWSMessage records a WebSocket frame by type
func (m *Metrics) RecordWSMessage(frameType string) {
	m.WSMessages.WithLabelValues(frameType).Inc()
}

// RecordRunStarted records an installation run starting
func (m *Metrics) RecordRunStarted() {
	m.RunsActive.Inc()
}

// RecordRunOutcome records an installation run reaching a terminal state
func (m *Metrics) RecordRunOutcome(outcome string) {
	m.RunsActive.Dec()
	m.RunsTotal.WithLabelValues(outcome).Inc()
}

// RecordCommandDispatched records a command being fed to a shell
func (m *Metrics) RecordCommandDispatched() {
	m.CommandsDispatched.Inc()
}

// RecordPlannerCall records a planner API call
func (m *Metrics) RecordPlannerCall(endpoint, status string) {
	m.PlannerCalls.WithLabelValues(endpoint, status).Inc()
}

// RecordCommandFinished records a command completion
func (m *Metrics) RecordCommandFinished(exitCode int, duration time.Duration) {
	m.CommandDuration.Observe(duration.Seconds())
	m.CommandExitCodes.WithLabelValues(strconv.Itoa(exitCode)).Inc()
}

// UpdateUptime refreshes the uptime gauge
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

package planner

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/GriffinCanCode/InstallOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/InstallOS/backend/internal/shared/id"
)

// Client calls the remote planner service.
type Client struct {
	resty   *resty.Client
	metrics *monitoring.Metrics
}

// NewClient creates a planner client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil // Disable logging

	restyClient := resty.New()
	restyClient.
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "InstallOS-Orchestrator/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	return &Client{resty: restyClient}
}

// WithMetrics enables per-call instrumentation.
func (c *Client) WithMetrics(m *monitoring.Metrics) *Client {
	c.metrics = m
	return c
}

func (c *Client) record(endpoint string, resp *resty.Response, err error) {
	if c.metrics == nil {
		return
	}
	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode())
	}
	c.metrics.RecordPlannerCall(endpoint, status)
}

// AllocatePlan requests an installation plan for an environment. The
// planner allocates a terminal session alongside the plan.
func (c *Client) AllocatePlan(ctx context.Context, environment string) (*Allocation, error) {
	var allocation Allocation

	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(allocateRequest{Environment: environment}).
		SetResult(&allocation).
		Post("/v1/plans")
	c.record("plans", resp, err)
	if err != nil {
		return nil, fmt.Errorf("plan allocation failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("plan allocation failed: %s: %s", resp.Status(), resp.String())
	}

	return &allocation, nil
}

// Execute announces that a command is about to run. The actual keystrokes
// are delivered to the shell separately via the transport session; this
// call only records intent with the planner, which may reject duplicate
// dispatch via its idempotency check.
func (c *Client) Execute(ctx context.Context, stepID string, commandIndex int, executionID id.ExecutionID) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(executeRequest{
			StepID:       stepID,
			CommandIndex: commandIndex,
			ExecutionID:  executionID.String(),
		}).
		Post("/v1/execute")
	c.record("execute", resp, err)
	if err != nil {
		return fmt.Errorf("execute call failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("execute call failed: %s: %s", resp.Status(), resp.String())
	}

	return nil
}

// Report submits a command's result and returns the planner's directive.
func (c *Client) Report(ctx context.Context, stepID string, commandIndex, exitCode int, executionID id.ExecutionID) (*ReportResponse, error) {
	var report ReportResponse

	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(reportRequest{
			StepID:       stepID,
			CommandIndex: commandIndex,
			ExitCode:     exitCode,
			ExecutionID:  executionID.String(),
		}).
		SetResult(&report).
		Post("/v1/report")
	c.record("report", resp, err)
	if err != nil {
		return nil, fmt.Errorf("report call failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("report call failed: %s: %s", resp.Status(), resp.String())
	}

	return &report, nil
}

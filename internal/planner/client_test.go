package planner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/InstallOS/backend/internal/shared/id"
)

func TestAllocatePlan(t *testing.T) {
	var gotBody allocateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/plans", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Allocation{
			SessionID: "sess_01ABC",
			Plan: Plan{Steps: []Step{
				{ID: "step-1", Name: "Install tools", Commands: []string{"apt-get update", "apt-get install -y git"}},
				{ID: "step-2", Name: "Clone repo", Commands: []string{"git clone https://example.com/repo"}},
			}},
			EnvironmentName: "dev-env",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	allocation, err := client.AllocatePlan(context.Background(), "dev-env")

	require.NoError(t, err)
	assert.Equal(t, "dev-env", gotBody.Environment)
	assert.Equal(t, "sess_01ABC", allocation.SessionID)
	assert.Equal(t, "dev-env", allocation.EnvironmentName)
	require.Len(t, allocation.Plan.Steps, 2)
	assert.Equal(t, "Install tools", allocation.Plan.Steps[0].Name)
	assert.Len(t, allocation.Plan.Steps[0].Commands, 2)
}

func TestExecute(t *testing.T) {
	var gotBody executeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/execute", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	execID := id.NewExecutionID("sess_01ABC")
	err := client.Execute(context.Background(), "step-1", 0, execID)

	require.NoError(t, err)
	assert.Equal(t, "step-1", gotBody.StepID)
	assert.Equal(t, 0, gotBody.CommandIndex)
	assert.Equal(t, execID.String(), gotBody.ExecutionID)
}

func TestReportStatuses(t *testing.T) {
	tests := []struct {
		name     string
		response string
		check    func(t *testing.T, r *ReportResponse)
	}{
		{
			name:     "already executing",
			response: `{"status":"already_executing"}`,
			check: func(t *testing.T, r *ReportResponse) {
				assert.Equal(t, StatusAlreadyExecuting, r.Status)
			},
		},
		{
			name:     "next",
			response: `{"status":"next","next_step":{"step_id":"step-2","step_index":1,"total_steps":2,"command_index":0,"command":"echo bye","name":"Second"}}`,
			check: func(t *testing.T, r *ReportResponse) {
				assert.Equal(t, StatusNext, r.Status)
				require.NotNil(t, r.NextStep)
				assert.Equal(t, "step-2", r.NextStep.StepID)
				assert.Equal(t, 1, r.NextStep.StepIndex)
				assert.Equal(t, "echo bye", r.NextStep.Command)
			},
		},
		{
			name:     "completed",
			response: `{"status":"completed"}`,
			check: func(t *testing.T, r *ReportResponse) {
				assert.Equal(t, StatusCompleted, r.Status)
				assert.Nil(t, r.NextStep)
			},
		},
		{
			name:     "failed",
			response: `{"status":"failed","error":"non-zero exit"}`,
			check: func(t *testing.T, r *ReportResponse) {
				assert.Equal(t, StatusFailed, r.Status)
				assert.Equal(t, "non-zero exit", r.Error)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/v1/report", r.URL.Path)
				var body reportRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.NotEmpty(t, body.ExecutionID)
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, 5*time.Second)
			resp, err := client.Report(context.Background(), "step-1", 0, 0, id.NewExecutionID("sess_01ABC"))

			require.NoError(t, err)
			tt.check(t, resp)
		})
	}
}

func TestReportServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	_, err := client.Report(context.Background(), "step-1", 0, 0, id.NewExecutionID("sess_01ABC"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "report call failed")
}

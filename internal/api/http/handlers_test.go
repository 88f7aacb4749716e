package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/InstallOS/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/InstallOS/backend/internal/install"
	"github.com/GriffinCanCode/InstallOS/backend/internal/logging"
	"github.com/GriffinCanCode/InstallOS/backend/internal/planner"
	"github.com/GriffinCanCode/InstallOS/backend/internal/shared/id"
	"github.com/GriffinCanCode/InstallOS/backend/internal/terminal"
)

type failingPlanner struct{}

func (failingPlanner) AllocatePlan(ctx context.Context, environment string) (*planner.Allocation, error) {
	return nil, errors.New("planner unavailable")
}

func (failingPlanner) Execute(ctx context.Context, stepID string, commandIndex int, executionID id.ExecutionID) error {
	return errors.New("planner unavailable")
}

func (failingPlanner) Report(ctx context.Context, stepID string, commandIndex, exitCode int, executionID id.ExecutionID) (*planner.ReportResponse, error) {
	return nil, errors.New("planner unavailable")
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logging.NewNop()
	termMgr := terminal.NewManager(logger)
	installMgr := install.NewManager(config.InstallConfig{
		Transport:      install.TransportLocal,
		StabilizeDelay: time.Millisecond,
		SafetyTimeout:  50 * time.Millisecond,
	}, config.TerminalConfig{Cols: 80, Rows: 24}, failingPlanner{}, termMgr, logger, nil)

	h := NewHandlers(installMgr, termMgr, logger)

	router := gin.New()
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.POST("/v1/install/runs", h.StartRun)
	router.GET("/v1/install/runs", h.ListRuns)
	router.GET("/v1/install/runs/:id", h.GetRun)
	router.DELETE("/v1/install/runs/:id", h.AbandonRun)
	return router
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestHealth(t *testing.T) {
	router := newTestRouter()

	w := do(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestRoot(t *testing.T) {
	router := newTestRouter()

	w := do(router, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "installos-backend")
}

func TestStartRunValidation(t *testing.T) {
	router := newTestRouter()

	w := do(router, http.MethodPost, "/v1/install/runs", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/v1/install/runs", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartRunPlannerUnavailable(t *testing.T) {
	router := newTestRouter()

	w := do(router, http.MethodPost, "/v1/install/runs", `{"environment":"dev"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "planner unavailable")
}

func TestRunNotFound(t *testing.T) {
	router := newTestRouter()

	w := do(router, http.MethodGet, "/v1/install/runs/run_missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodDelete, "/v1/install/runs/run_missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRunsEmpty(t *testing.T) {
	router := newTestRouter()

	w := do(router, http.MethodGet, "/v1/install/runs", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"runs":[]`)
}

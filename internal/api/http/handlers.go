package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/InstallOS/backend/internal/install"
	"github.com/GriffinCanCode/InstallOS/backend/internal/logging"
	"github.com/GriffinCanCode/InstallOS/backend/internal/shared/id"
	"github.com/GriffinCanCode/InstallOS/backend/internal/terminal"
)

// Handlers holds HTTP endpoint dependencies
type Handlers struct {
	install  *install.Manager
	terminal *terminal.Manager
	logger   *logging.Logger
}

// NewHandlers creates the HTTP handler set
func NewHandlers(installMgr *install.Manager, terminalMgr *terminal.Manager, logger *logging.Logger) *Handlers {
	return &Handlers{
		install:  installMgr,
		terminal: terminalMgr,
		logger:   logger.Named("http"),
	}
}

// Root returns service identification
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "installos-backend",
		"status":  "running",
	})
}

// Health returns service health
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": len(h.terminal.ListSessions()),
		"runs":     len(h.install.ListRuns()),
	})
}

// StartRun allocates a plan and begins an installation run
func (h *Handlers) StartRun(c *gin.Context) {
	var req struct {
		Environment string `json:"environment" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}

	info, err := h.install.StartRun(c.Request.Context(), req.Environment)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"run":     info,
	})
}

// ListRuns lists all installation runs
func (h *Handlers) ListRuns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"runs":    h.install.ListRuns(),
	})
}

// GetRun returns one run's current state
func (h *Handlers) GetRun(c *gin.Context) {
	info, err := h.install.GetRun(id.RunID(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"run":     info,
	})
}

// AbandonRun cancels a run
func (h *Handlers) AbandonRun(c *gin.Context) {
	if err := h.install.AbandonRun(id.RunID(c.Param("id"))); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Run abandoned",
	})
}

// CreateTerminalSession spawns a PTY session
func (h *Handlers) CreateTerminalSession(c *gin.Context) {
	var req struct {
		Shell      string `json:"shell"`
		WorkingDir string `json:"working_dir"`
		Cols       int    `json:"cols"`
		Rows       int    `json:"rows"`
	}
	// An empty body means all defaults.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}

	info, err := h.terminal.CreateSession(terminal.CreateOptions{
		Shell:      req.Shell,
		WorkingDir: req.WorkingDir,
		Cols:       req.Cols,
		Rows:       req.Rows,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"session": info,
	})
}

// ListTerminalSessions lists active PTY sessions
func (h *Handlers) ListTerminalSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": h.terminal.ListSessions(),
	})
}

// GetTerminalSession returns one session's info
func (h *Handlers) GetTerminalSession(c *gin.Context) {
	info, err := h.terminal.GetSession(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": info,
	})
}

// ResizeTerminalSession updates a session's viewport dimensions
func (h *Handlers) ResizeTerminalSession(c *gin.Context) {
	var req struct {
		Cols int `json:"cols" binding:"required"`
		Rows int `json:"rows" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}

	if err := h.terminal.Resize(c.Param("id"), req.Cols, req.Rows); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// KillTerminalSession terminates a session's shell process
func (h *Handlers) KillTerminalSession(c *gin.Context) {
	if err := h.terminal.Kill(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Session terminated",
	})
}

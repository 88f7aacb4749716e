package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/InstallOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/InstallOS/backend/internal/logging"
	"github.com/GriffinCanCode/InstallOS/backend/internal/terminal"
	"github.com/GriffinCanCode/InstallOS/backend/internal/transport"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Co-deployed frontend; origin checks belong to the proxy
	},
}

// frame is the inbound message shape; only the fields matching the
// discriminator are read.
type frame struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
	Cols int    `json:"cols,omitempty"`
	Rows int    `json:"rows,omitempty"`
}

// Handler streams terminal sessions over WebSocket connections.
type Handler struct {
	terminal *terminal.Manager
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler.
func NewHandler(manager *terminal.Manager, logger *logging.Logger, metrics *monitoring.Metrics) *Handler {
	return &Handler{
		terminal: manager,
		logger:   logger.Named("ws"),
		metrics:  metrics,
	}
}

// HandleSession upgrades the connection and binds it to one terminal
// session: raw output bytes flow out, input/resize frames flow in.
func (h *Handler) HandleSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
		defer h.metrics.WSConnections.Dec()
	}

	replay, output, cancel, err := h.terminal.Subscribe(sessionID)
	if err != nil {
		h.logger.Warn("subscribe failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
		return
	}
	defer cancel()

	// Writer: scrollback replay first, then live output. Exits when the
	// subscription channel closes (session ended or we cancelled).
	go func() {
		if len(replay) > 0 {
			if err := conn.WriteMessage(websocket.BinaryMessage, replay); err != nil {
				return
			}
		}
		for chunk := range output {
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "session ended"))
	}()

	// Reader: input and resize frames until the client goes away.
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read ended",
					zap.String("session_id", sessionID),
					zap.Error(err),
				)
			}
			return
		}

		if h.metrics != nil {
			h.metrics.RecordWSMessage(f.Type)
		}

		switch f.Type {
		case transport.FrameInput:
			if err := h.terminal.Write(sessionID, []byte(f.Data)); err != nil {
				h.logger.Warn("input write failed",
					zap.String("session_id", sessionID),
					zap.Error(err),
				)
			}
		case transport.FrameResize:
			if err := h.terminal.Resize(sessionID, f.Cols, f.Rows); err != nil {
				h.logger.Warn("resize failed",
					zap.String("session_id", sessionID),
					zap.Error(err),
				)
			}
		default:
			// Unknown frame types are ignored, not fatal.
		}
	}
}

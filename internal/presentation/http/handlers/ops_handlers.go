package handlers

import (
	"net/http"
	"time"

	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/messaging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	opsWriteWait  = 10 * time.Second
	opsPongWait   = 60 * time.Second
	opsPingPeriod = 45 * time.Second
)

var opsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard is served from a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// OpsHandlers serves the operations dashboard surface: the live aggregate
// feed over websocket and the health probe.
type OpsHandlers struct {
	broadcaster *messaging.OpsBroadcaster
	logger      *logging.ChanneledLogger
	tracker     *performance.Tracker
}

// NewOpsHandlers creates ops handlers with injected dependencies.
func NewOpsHandlers(broadcaster *messaging.OpsBroadcaster, logger *logging.ChanneledLogger, tracker *performance.Tracker) *OpsHandlers {
	return &OpsHandlers{
		broadcaster: broadcaster,
		logger:      logger,
		tracker:     tracker,
	}
}

// Feed upgrades the connection and streams periodic system snapshots until
// the client disconnects.
func (h *OpsHandlers) Feed(c *gin.Context) {
	conn, err := opsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.System().Error("Ops feed upgrade failed", "error", err)
		return
	}

	client := &messaging.OpsClient{
		Conn: conn,
		Send: make(chan []byte, 8),
	}
	h.broadcaster.Register(client)

	go h.writePump(client)
	go h.readPump(client)
}

// writePump ships snapshots and pings to one client. It owns all writes on
// the connection.
func (h *OpsHandlers) writePump(client *messaging.OpsClient) {
	ticker := time.NewTicker(opsPingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(opsWriteWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(opsWriteWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and unregisters on disconnect.
func (h *OpsHandlers) readPump(client *messaging.OpsClient) {
	defer func() {
		h.broadcaster.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(512)
	client.Conn.SetReadDeadline(time.Now().Add(opsPongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(opsPongWait))
		return nil
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Health reports process liveness and a performance snapshot.
func (h *OpsHandlers) Health(c *gin.Context) {
	stats := h.tracker.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"performance": stats,
		"timestamp":   time.Now().UTC(),
	})
}

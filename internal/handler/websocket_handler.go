package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/linomassaro/SyncStream/internal/service"
	"go.uber.org/zap"
)

// SyncWSHandler handles WebSocket connections for GET /ws.
type SyncWSHandler struct {
	mux        *service.Multiplexer
	protocol   *service.Protocol
	sessions   *service.SessionService
	upgrader   websocket.Upgrader
	maxMsg     int64
	maxViewers int
	logger     *zap.Logger
}

// NewSyncWSHandler creates the WebSocket sync handler. maxViewers <= 0 means
// unlimited.
func NewSyncWSHandler(mux *service.Multiplexer, protocol *service.Protocol, sessions *service.SessionService,
	readBuf, writeBuf int, maxMsgSize int64, maxViewers int, logger *zap.Logger) *SyncWSHandler {
	return &SyncWSHandler{
		mux:      mux,
		protocol: protocol,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBuf,
			WriteBufferSize: writeBuf,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		maxMsg:     maxMsgSize,
		maxViewers: maxViewers,
		logger:     logger,
	}
}

// ServeWS upgrades the request and runs the sync loop.
// Path: /ws?sessionId=..&viewerId=..
// Missing identifiers close the connection with policy violation (1008).
func (h *SyncWSHandler) ServeWS(c *gin.Context) {
	sessionID := c.Query("sessionId")
	viewerID := c.Query("viewerId")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if sessionID == "" || viewerID == "" {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "sessionId and viewerId required")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		return
	}
	if h.maxMsg > 0 {
		conn.SetReadLimit(h.maxMsg)
	}
	if h.maxViewers > 0 && h.mux.CountOpen(sessionID) >= h.maxViewers {
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "session is full")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		return
	}

	// Create-on-demand: unknown ids get a default session before the engine
	// sees the join (the engine itself never creates sessions).
	h.sessions.CreateOrGet(sessionID, "")

	connID := uuid.NewString()
	cn := h.mux.Register(connID, conn, sessionID, viewerID)
	defer func() {
		h.mux.Unregister(connID)
		h.protocol.HandleLeave(cn)
	}()

	go h.writePump(cn, conn)

	h.protocol.HandleJoin(cn)
	h.readPump(cn, conn)
}

func (h *SyncWSHandler) readPump(cn *service.Conn, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Debug("read error", zap.String("conn_id", cn.ID), zap.Error(err))
			}
			return
		}
		h.protocol.HandleMessage(cn, data)
	}
}

func (h *SyncWSHandler) writePump(cn *service.Conn, conn *websocket.Conn) {
	defer conn.Close()
	for {
		select {
		case data := <-cn.Outbox():
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-cn.Done():
			return
		}
	}
}

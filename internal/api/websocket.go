package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsReadLimit  = 64 * 1024
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame is one inbound chat message on the websocket
type Frame struct {
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
}

// wsConn maintains the websocket connection of one chat session
type wsConn struct {
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	server    *Server
	logger    *zap.Logger
}

// handleWebSocket upgrades the request and serves chat frames for the
// session named by the session_id query parameter (or the token subject).
func (s *Server) handleWebSocket(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = subject(c)
	}
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}
	if !ownsSession(c, sessionID) {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ws := &wsConn{
		conn:      conn,
		send:      make(chan []byte, 16),
		sessionID: sessionID,
		server:    s,
		logger:    s.logger.With(zap.String("session_id", sessionID)),
	}

	go ws.writePump()
	go ws.readPump()
}

// readPump handles frames in arrival order until the client goes away
func (c *wsConn) readPump() {
	defer func() {
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		c.handleFrame(message)
		// time spent in dispatch does not count against the pong wait
		_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	}
}

// writePump sends replies and keeps the connection alive with pings
func (c *wsConn) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsConn) handleFrame(message []byte) {
	var frame Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		c.sendJSON(gin.H{"error": "invalid message frame"})
		return
	}
	// the registry may have expired the session since connect
	sess := c.server.sessions.GetOrCreate(c.sessionID)
	reply := c.server.dispatcher.Handle(context.Background(), sess, frame.MessageID, frame.Message)
	c.sendJSON(reply)
}

func (c *wsConn) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("marshal websocket reply", zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("websocket buffer full, dropping reply")
	}
}

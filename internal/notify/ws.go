package notify

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// Authenticator resolves a bearer token to the user id it was issued for.
type Authenticator func(token string) (userID string, err error)

// clientFrame is what a client may send. Only "join" is understood.
type clientFrame struct {
	Event  string `json:"event"`
	UserID string `json:"userId"`
}

// WSHandler upgrades GET /ws?token=... and subscribes the connection to the
// caller's room once it sends {"event":"join","userId":"..."}. A join for any
// other user id is refused.
type WSHandler struct {
	hub      *Hub
	auth     Authenticator
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates the websocket endpoint. allowedOrigins of "*" (or
// empty) accepts any origin.
func NewWSHandler(hub *Hub, auth Authenticator, allowedOrigins []string, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = true
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subject, err := h.auth(r.URL.Query().Get("token"))
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		http.Error(w, `{"code":"UNAUTHORIZED","message":"invalid or missing token"}`, http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &session{
		ws:      ws,
		conn:    &Conn{ID: uuid.NewString(), UserID: subject, Send: make(chan []byte, sendBuffer)},
		control: make(chan []byte, 4),
		done:    make(chan struct{}),
	}
	h.logger.Debug("websocket connected", "conn_id", c.conn.ID, "user_id", subject)

	go h.writePump(c)
	h.readPump(c)
}

// session is the per-connection state shared by the two pumps.
type session struct {
	ws      *websocket.Conn
	conn    *Conn
	control chan []byte // handler-originated frames; never closed by the hub
	done    chan struct{}
	room    string
}

func (h *WSHandler) readPump(c *session) {
	defer func() {
		if c.room != "" {
			h.hub.Leave(c.room, c.conn.ID)
		}
		close(c.done)
		c.ws.Close()
		h.logger.Debug("websocket disconnected", "conn_id", c.conn.ID, "user_id", c.conn.UserID)
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", "conn_id", c.conn.ID, "error", err)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.reply(c, "error", map[string]string{"code": "VALIDATION_ERROR", "message": "invalid frame"})
			continue
		}

		switch frame.Event {
		case "join":
			if frame.UserID != c.conn.UserID {
				h.reply(c, "error", map[string]string{"code": "FORBIDDEN", "message": "cannot join another user's channel"})
				continue
			}
			if c.room == "" {
				c.room = RoomFor(c.conn.UserID)
				h.hub.Join(c.room, c.conn)
			}
			h.reply(c, "joined", map[string]string{"userId": c.conn.UserID})
		default:
			h.reply(c, "error", map[string]string{"code": "VALIDATION_ERROR", "message": "unknown event"})
		}
	}
}

func (h *WSHandler) reply(c *session, event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		return
	}
	select {
	case c.control <- payload:
	default:
	}
}

func (h *WSHandler) writePump(c *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.conn.Send:
			if !ok {
				// hub shut down
				_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if err := h.write(c, msg); err != nil {
				return
			}
		case msg := <-c.control:
			if err := h.write(c, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *WSHandler) write(c *session, msg []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
		h.logger.Debug("websocket write failed", "conn_id", c.conn.ID, "error", err)
		return err
	}
	return nil
}

package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jsMelius/Gleisure/internal/config"
	"github.com/jsMelius/Gleisure/internal/notifier"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Handler upgrades client connections and bridges them onto the notifier hub.
type Handler struct {
	hub      *notifier.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler constructs a websocket Handler gated on the configured origin
// allow-list.
func NewHandler(hub *notifier.Hub, cfg config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.Notifier.AllowedOrigins),
		},
		logger: logger,
	}
}

// originChecker admits any origin when no allow-list is configured (the
// development default) and only the listed origins otherwise. Requests
// without an Origin header come from non-browser clients and pass.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, candidate := range allowed {
			if strings.EqualFold(candidate, origin) {
				return true
			}
		}
		return false
	}
}

// Register mounts the notification endpoint on the Echo router.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/notifications", h.subscribe)
}

// subscribe registers the connection with the hub. The new subscriber
// receives only broadcasts that happen after it connects; there is no replay
// of the current snapshot.
func (h *Handler) subscribe(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return nil
	}

	sub := h.hub.Subscribe()

	go h.writePump(conn, sub)
	go h.readPump(conn, sub)
	return nil
}

// readPump drains inbound frames solely to detect disconnects; subscribers
// never send application data.
func (h *Handler) readPump(conn *websocket.Conn, sub *notifier.Subscriber) {
	defer func() {
		sub.Close()
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
	}
}

// writePump forwards hub broadcasts to the connection with bounded write
// deadlines and keepalive pings. A failed delivery drops the connection; it
// never propagates back to the broadcaster.
func (h *Handler) writePump(conn *websocket.Conn, sub *notifier.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Close()
		_ = conn.Close()
	}()

	for {
		select {
		case payload, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

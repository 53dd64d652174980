package api

import (
	"net/http"

	"SentiFlow/internal/broadcast"
	xlogger "SentiFlow/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WSHandler upgrades subscription connections and hands them to the
// broadcaster.
type WSHandler struct {
	logger      *xlogger.Logger
	broadcaster *broadcast.Broadcaster
	upgrader    websocket.Upgrader
}

func NewWSHandler(logger *xlogger.Logger, b *broadcast.Broadcaster) *WSHandler {
	return &WSHandler{
		logger:      logger,
		broadcaster: b,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/sentiment", h.Subscribe)
}

// Subscribe serves one WebSocket connection for its whole lifetime.
func (h *WSHandler) Subscribe(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", xlogger.Error(err))
		return err
	}
	h.broadcaster.Handle(conn)
	return nil
}

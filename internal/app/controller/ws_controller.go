package controller

import (
	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	apperrors "github.com/ikkim/bookstore-backend/internal/errors"
	"github.com/ikkim/bookstore-backend/internal/middleware"
	ws "github.com/ikkim/bookstore-backend/internal/websocket"
)

// WSController pushes order events to connected users.
type WSController struct {
	hub      *ws.Hub
	upgrader gorillaws.Upgrader
}

func NewWSController(hub *ws.Hub, allowedOrigins []string) *WSController {
	return &WSController{
		hub:      hub,
		upgrader: ws.NewUpgrader(allowedOrigins),
	}
}

// OrderUpdates upgrades the connection and subscribes it to the user's order events.
// GET /ws/orders?token=...
// The token is accepted as a query parameter and must not be logged.
func (ctrl *WSController) OrderUpdates(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, userID)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("WebSocket connection established", map[string]interface{}{
		"user_id": userID,
	})
}

package ws

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	pkgws "github.com/stackvault/stackvault-backend/internal/pkg/ws"
)

type wsHandler struct {
	notificationHub *pkgws.WebSocketNotificationHub
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// RegisterRoutes exposes the transaction status feed: clients subscribe to
// the address they care about and receive broadcast/status events.
func RegisterRoutes(rg *gin.RouterGroup, hub *pkgws.WebSocketNotificationHub, auth gin.HandlerFunc) {
	handler := wsHandler{notificationHub: hub}

	routes := rg.Group("/ws")
	routes.GET("/transactions/:address", auth, handler.serveWs)
}

func (wsh *wsHandler) serveWs(c *gin.Context) {
	topic := "transactions/" + c.Param("address")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Error upgrading ws connection")
		return
	}
	defer wsh.notificationHub.UnregisterListener(topic, conn)

	wsh.notificationHub.RegisterListener(topic, conn)

	for {
		var buffer any
		if err := conn.ReadJSON(&buffer); err != nil {
			return
		}
	}
}

package sync

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/stolpe22/plano-jornada/pkg/logger"
)

// WSHandler upgrades /ws requests and keeps the socket registered until the
// client goes away. Same-host requests and allowedOrigins may connect; an
// empty allowedOrigins accepts any origin.
func WSHandler(hub *Hub, allowedOrigins []string, log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 {
				return true
			}
			return slices.Contains(allowedOrigins, origin) || origin == "http://"+r.Host || origin == "https://"+r.Host
		},
	}

	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Debug("ws upgrade", "error", err)
			return
		}

		hub.AddWS(ws)
		log.Debug("ws client connected", "remote", c.ClientIP())

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(ws)
		log.Debug("ws client disconnected", "remote", c.ClientIP())
	}
}

package ws

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/vnkhanh/podstream-backend/middleware"
)

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

// NewHandler accepts connections from the listed origins, or from any
// origin when the list is empty.
func NewHandler(hub *Hub, origins []string, log *logrus.Entry) *Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return &Handler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

func (h *Handler) upgrade(c *gin.Context) (*Client, bool) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return nil, false
	}
	return newClient(conn, middleware.UserID(c)), true
}

func (h *Handler) HandlePodcastWebSocket(c *gin.Context) {
	podcastID := c.Param("id")
	client, ok := h.upgrade(c)
	if !ok {
		return
	}
	h.hub.Register(podcastID, client)
	client.Send <- h.hub.encode(Event{Type: "connected", PodcastID: podcastID, Message: "Connected to podcast " + podcastID})

	entry := h.log.WithFields(logrus.Fields{"podcast_id": podcastID, "user_id": client.UserID})
	entry.Debug("podcast ws connected")
	go writePump(client)
	readPump(client, func() {
		h.hub.Unregister(podcastID, client)
		entry.Debug("podcast ws disconnected")
	})
}

func (h *Handler) HandleGlobalWebSocket(c *gin.Context) {
	client, ok := h.upgrade(c)
	if !ok {
		return
	}
	h.hub.RegisterGlobal(client)
	client.Send <- h.hub.encode(Event{Type: "connected", Message: "Connected to global WebSocket"})

	entry := h.log.WithField("user_id", client.UserID)
	entry.Debug("global ws connected")
	go writePump(client)
	readPump(client, func() {
		h.hub.UnregisterGlobal(client)
		entry.Debug("global ws disconnected")
	})
}

package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/vnkhanh/podstream-backend/models"
)

const (
	sendBuffer = 256
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type Client struct {
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string
}

// Hub fans events out to clients watching one podcast and to global clients.
type Hub struct {
	Clients       map[string]map[*Client]bool // by podcast id
	GlobalClients map[*Client]bool
	Mutex         sync.RWMutex
	log           *logrus.Entry
}

func NewHub(log *logrus.Entry) *Hub {
	return &Hub{
		Clients:       make(map[string]map[*Client]bool),
		GlobalClients: make(map[*Client]bool),
		log:           log,
	}
}

type Event struct {
	Type      string              `json:"type"`
	PodcastID string              `json:"podcastId,omitempty"`
	Liked     *bool               `json:"liked,omitempty"`
	LikeCount *int64              `json:"likeCount,omitempty"`
	Comment   *models.CommentView `json:"comment,omitempty"`
	Title     string              `json:"title,omitempty"`
	Message   string              `json:"message,omitempty"`
}

func newClient(conn *websocket.Conn, userID string) *Client {
	return &Client{Conn: conn, Send: make(chan []byte, sendBuffer), UserID: userID}
}

// Register adds a client to the room of podcastID.
func (h *Hub) Register(podcastID string, c *Client) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if _, ok := h.Clients[podcastID]; !ok {
		h.Clients[podcastID] = make(map[*Client]bool)
	}
	h.Clients[podcastID][c] = true
}

func (h *Hub) RegisterGlobal(c *Client) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()
	h.GlobalClients[c] = true
}

func (h *Hub) Unregister(podcastID string, c *Client) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if clients, ok := h.Clients[podcastID]; ok {
		if clients[c] {
			close(c.Send)
			delete(clients, c)
		}
		if len(clients) == 0 {
			delete(h.Clients, podcastID)
		}
	}
}

func (h *Hub) UnregisterGlobal(c *Client) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if h.GlobalClients[c] {
		close(c.Send)
		delete(h.GlobalClients, c)
	}
}

// Broadcast queues data for every client of podcastID. Slow clients drop
// messages rather than block the sender.
func (h *Hub) Broadcast(podcastID string, data []byte) {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	for client := range h.Clients[podcastID] {
		select {
		case client.Send <- data:
		default:
		}
	}
}

func (h *Hub) BroadcastGlobal(data []byte) {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	for client := range h.GlobalClients {
		select {
		case client.Send <- data:
		default:
		}
	}
}

func (h *Hub) encode(ev Event) []byte {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Error("ws event marshal failed")
		return nil
	}
	return data
}

// PodcastLiked goes to the podcast room.
func (h *Hub) PodcastLiked(podcastID string, liked bool, likeCount int64) {
	if data := h.encode(Event{Type: "podcast_liked", PodcastID: podcastID, Liked: &liked, LikeCount: &likeCount}); data != nil {
		h.Broadcast(podcastID, data)
	}
}

func (h *Hub) CommentAdded(podcastID string, comment models.CommentView) {
	if data := h.encode(Event{Type: "comment_added", PodcastID: podcastID, Comment: &comment}); data != nil {
		h.Broadcast(podcastID, data)
	}
}

// PodcastCreated goes to global clients.
func (h *Hub) PodcastCreated(podcastID, title string) {
	if data := h.encode(Event{Type: "podcast_created", PodcastID: podcastID, Title: title}); data != nil {
		h.BroadcastGlobal(data)
	}
}

type Stats struct {
	Rooms         int `json:"rooms"`
	RoomClients   int `json:"roomClients"`
	GlobalClients int `json:"globalClients"`
}

func (h *Hub) GetStats() Stats {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	st := Stats{Rooms: len(h.Clients), GlobalClients: len(h.GlobalClients)}
	for _, clients := range h.Clients {
		st.RoomClients += len(clients)
	}
	return st
}

// readPump drains incoming frames until the peer goes away, then calls done.
func readPump(c *Client, done func()) {
	defer done()
	c.Conn.SetReadLimit(4096)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only writer on the connection.
func writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

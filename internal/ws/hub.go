package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 32
)

// Client is one subscribed websocket connection.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// NewClient wraps an upgraded connection.
func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
	}
}

// WritePump drains the send channel onto the connection. It returns when
// the channel closes or a write fails.
func (c *Client) WritePump() {
	defer c.Conn.Close()
	for msg := range c.Send {
		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Hub fans events out to clients subscribed by topic (a conversation or an
// assignment id).
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Client]bool
	refs   map[*Client]int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[*Client]bool),
		refs:   make(map[*Client]int),
	}
}

// Subscribe registers a client on a topic.
func (h *Hub) Subscribe(topic string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]bool)
	}
	if !h.topics[topic][c] {
		h.topics[topic][c] = true
		h.refs[c]++
	}
}

// Unsubscribe removes a client from a topic and closes its send channel
// when it leaves its last topic. A client may sit on several topics at
// once; the send channel stays open until the final one is gone.
func (h *Hub) Unsubscribe(topic string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.topics[topic]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.topics, topic)
	}
	h.refs[c]--
	if h.refs[c] <= 0 {
		delete(h.refs, c)
		close(c.Send)
	}
}

// Publish sends the payload to every client on the topic.
func (h *Hub) Publish(topic string, payload interface{}) {
	h.publish(topic, "", payload)
}

// PublishExcept sends the payload to every client on the topic except
// connections owned by skipUserID. The author of a message already has it
// locally; echoing it back would double the entry on their screen.
func (h *Hub) PublishExcept(topic, skipUserID string, payload interface{}) {
	h.publish(topic, skipUserID, payload)
}

func (h *Hub) publish(topic, skipUserID string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ws: failed to marshal payload for %s: %v", topic, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.topics[topic] {
		if skipUserID != "" && c.UserID == skipUserID {
			continue
		}
		select {
		case c.Send <- data:
		default:
			// Slow consumer; drop the event rather than block the hub.
		}
	}
}

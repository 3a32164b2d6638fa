package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one websocket subscriber bound to a single channel
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	channel string
	send    chan []byte
}

// Hub fans published events out to channel subscribers. Subscribers
// that fall behind are dropped rather than blocking the publisher.
type Hub struct {
	channels   map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	log        *zap.Logger
}

type broadcastMsg struct {
	channel string
	data    []byte
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		channels:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg, 64),
		log:        log,
	}
}

// Run processes subscription and broadcast events until the process exits
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			subs := h.channels[client.channel]
			if subs == nil {
				subs = make(map[*Client]bool)
				h.channels[client.channel] = subs
			}
			subs[client] = true
			h.log.Debug("WS client subscribed", zap.String("channel", client.channel))

		case client := <-h.unregister:
			if subs, ok := h.channels[client.channel]; ok {
				if _, ok := subs[client]; ok {
					delete(subs, client)
					close(client.send)
					if len(subs) == 0 {
						delete(h.channels, client.channel)
					}
				}
			}

		case msg := <-h.broadcast:
			for client := range h.channels[msg.channel] {
				select {
				case client.send <- msg.data:
				default:
					// Slow consumer; drop it
					delete(h.channels[msg.channel], client)
					close(client.send)
				}
			}
		}
	}
}

// Publish broadcasts an event to a channel's subscribers
func (h *Hub) Publish(channel string, message map[string]interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error("Failed to marshal WS event", zap.Error(err))
		return
	}
	h.broadcast <- broadcastMsg{channel: channel, data: data}
}

// Serve upgrades the request and subscribes the connection to channel
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, channel string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WS upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		channel: channel,
		send:    make(chan []byte, sendBuffer),
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Subscribers never send application messages; drain until close
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

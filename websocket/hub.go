package websocket

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Client struct {
	UserID uuid.UUID
	Conn   Conn
}

// Hub fans reallocation events out to connected admin dashboards. One
// connection is kept per admin; a newer one replaces the older.
type Hub struct {
	clients   map[uuid.UUID]Conn
	clientsMu sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan interface{}
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan interface{}, 256),
		done:       make(chan struct{}),
	}
}

// Register hands client to the hub. Once Run has returned the connection is
// closed instead.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Conn.Close()
	}
}

// Unregister is a no-op once Run has returned.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues msg for every connected admin. It never blocks; when the
// queue is full the message is dropped.
func (h *Hub) Broadcast(msg interface{}) {
	select {
	case h.broadcast <- msg:
	default:
		log.Println("⚠️ Websocket broadcast queue full, dropping message")
	}
}

func (h *Hub) Count() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every connection. Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.clientsMu.Lock()
			for id, conn := range h.clients {
				conn.Close()
				delete(h.clients, id)
			}
			h.clientsMu.Unlock()
			return
		case client := <-h.register:
			log.Printf("Client registered: %s", client.UserID)
			h.clientsMu.Lock()
			if old, ok := h.clients[client.UserID]; ok && old != client.Conn {
				old.Close()
			}
			h.clients[client.UserID] = client.Conn
			h.clientsMu.Unlock()
		case client := <-h.unregister:
			log.Printf("Client unregistered: %s", client.UserID)
			h.clientsMu.Lock()
			if conn, ok := h.clients[client.UserID]; ok && conn == client.Conn {
				delete(h.clients, client.UserID)
			}
			h.clientsMu.Unlock()
		case msg := <-h.broadcast:
			h.send(msg)
		}
	}
}

func (h *Hub) send(msg interface{}) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for id, conn := range h.clients {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("Error sending message to client %s: %v", id, err)
			conn.Close()
			delete(h.clients, id)
		}
	}
}

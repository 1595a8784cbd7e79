package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/voicecheck/api/internal/model"
)

// Client represents a WebSocket feed subscriber. Send is never closed;
// Done is closed once the hub has dropped the client.
type Client struct {
	Conn *websocket.Conn
	Send chan []byte

	done     chan struct{}
	doneOnce sync.Once
}

// NewClient creates a subscriber with a buffered send queue
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		Conn: conn,
		Send: make(chan []byte, 256),
		done: make(chan struct{}),
	}
}

// Done is closed when the hub stops delivering to the client
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) close() {
	c.doneOnce.Do(func() { close(c.done) })
}

// Hub fans completed analyses out to feed subscribers
type Hub struct {
	// Registered clients; owned by Run
	clients map[*Client]bool

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	// Messages for all subscribers
	broadcast chan []byte

	done chan struct{}
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			log.Printf("Feed client registered (%d connected)", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
				log.Printf("Feed client unregistered (%d connected)", len(h.clients))
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- msg:
				default:
					// Slow subscriber; drop it rather than stall the feed
					client.close()
					delete(h.clients, client)
				}
			}

		case <-h.done:
			for client := range h.clients {
				client.close()
				delete(h.clients, client)
			}
			return
		}
	}
}

// Stop terminates Run and disconnects all subscribers
func (h *Hub) Stop() {
	close(h.done)
}

// Register adds a new client
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues an analysis event for all subscribers. It never blocks: when
// the queue is full the event is dropped.
func (h *Hub) Publish(event model.AnalysisEvent) {
	msg := model.WSAnalysisMessage{
		Type:          model.WSMessageTypeAnalysis,
		AnalysisEvent: event,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal analysis message: %v", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		log.Printf("Feed queue full, dropping analysis event %s", event.ID)
	}
}

// HandleConnection handles a WebSocket connection. It returns only after the
// writer goroutine has exited, since c is recycled once the handler returns.
func (h *Hub) HandleConnection(c *websocket.Conn) {
	client := NewClient(c)
	writerDone := make(chan struct{})

	h.Register(client)

	// Writer goroutine; pongs are queued on Send so only it writes to the conn
	go func() {
		defer close(writerDone)

		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-client.Done():
				c.WriteMessage(websocket.CloseMessage, []byte{})
				return

			case message := <-client.Send:
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				// Send ping for keep-alive
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			pong := model.WSMessage{Type: model.WSMessageTypePong}
			data, _ := json.Marshal(pong)
			select {
			case client.Send <- data:
			default:
			}
		}
	}

	h.Unregister(client)
	// The hub may already be stopped, in which case nobody else closes it
	client.close()
	<-writerDone
}

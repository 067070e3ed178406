package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Daskott/enablex/server/alert"
	"github.com/Daskott/enablex/server/logger"
	"github.com/Daskott/enablex/server/medication"
	"github.com/Daskott/enablex/server/speech"
	"github.com/gorilla/websocket"
)

const (
	ALERT_MESSAGE      = "alert"
	REMINDER_MESSAGE   = "reminder"
	TRANSCRIPT_MESSAGE = "transcript"
	DASHBOARD_MESSAGE  = "dashboard"

	// Asks the UI for one position, posted back to /api/v1/location
	LOCATION_REQUEST_MESSAGE = "location_request"

	SEND_BUFFER = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var logg = logger.NewLogger("realtime")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The listener is bound to loopback, the device UI may be served from anywhere
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes state changes to every connected device UI
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// ServeWS upgrades the request & registers the connection
func (hub *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logg.Errorf("unable to upgrade connection: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, SEND_BUFFER)}

	hub.mu.Lock()
	hub.clients[c] = struct{}{}
	count := len(hub.clients)
	hub.mu.Unlock()

	logg.Infof("client connected, %v connected", count)

	go hub.writePump(c)
	go hub.readPump(c)
}

// Broadcast sends a message to every client, slow clients are dropped
func (hub *Hub) Broadcast(kind string, data interface{}) {
	message, err := json.Marshal(Message{Type: kind, Data: data, Timestamp: time.Now()})
	if err != nil {
		logg.Errorf("unable to marshal %v message: %v", kind, err)
		return
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()

	for c := range hub.clients {
		select {
		case c.send <- message:
		default:
			hub.remove(c)
		}
	}
}

func (hub *Hub) Clients() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients)
}

// Close disconnects every client
func (hub *Hub) Close() {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for c := range hub.clients {
		hub.remove(c)
	}
}

func (hub *Hub) Notify(update alert.Update) {
	hub.Broadcast(ALERT_MESSAGE, update)
}

func (hub *Hub) Remind(reminder *medication.Reminder) {
	hub.Broadcast(REMINDER_MESSAGE, reminder)
}

type LocationRequest struct {
	TimeoutMs int64 `json:"timeoutMs"`
}

func (hub *Hub) RequestLocation(timeout time.Duration) {
	hub.Broadcast(LOCATION_REQUEST_MESSAGE, LocationRequest{TimeoutMs: timeout.Milliseconds()})
}

func (hub *Hub) Transcribed(transcript speech.Transcript) {
	hub.Broadcast(TRANSCRIPT_MESSAGE, transcript)
}

// remove must be called with mu held
func (hub *Hub) remove(c *client) {
	if _, ok := hub.clients[c]; !ok {
		return
	}
	delete(hub.clients, c)
	close(c.send)
}

func (hub *Hub) unregister(c *client) {
	hub.mu.Lock()
	hub.remove(c)
	hub.mu.Unlock()
}

// readPump only handles control frames, the UI sends commands over HTTP
func (hub *Hub) readPump(c *client) {
	defer func() {
		hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logg.Warnf("connection closed: %v", err)
			}
			return
		}
	}
}

func (hub *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

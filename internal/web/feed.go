package web

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Feed is the registry of live WebSocket sessions and the broadcast fan-out.
// Clients are push-only consumers: everything they send is drained and
// discarded, serving only to detect disconnects.
type Feed struct {
	writeTimeout time.Duration
	upgrader     websocket.Upgrader

	mu      sync.Mutex
	clients map[*feedClient]struct{}
	closed  bool
}

type feedClient struct {
	conn   *websocket.Conn
	remote string

	// mu serializes writes to conn; gorilla allows at most one concurrent
	// writer per connection.
	mu sync.Mutex
}

func NewFeed(writeTimeout time.Duration) *Feed {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Feed{
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The feed serves EFB apps and scripts across the LAN, not
			// browsers on a fixed origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*feedClient]struct{}),
	}
}

// Handler upgrades the request and keeps the session registered until it
// closes. The handler blocks for the life of the connection.
func (f *Feed) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := f.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the HTTP error response.
			log.Printf("feed: upgrade from %s failed: %v", r.RemoteAddr, err)
			return
		}

		c := &feedClient{conn: conn, remote: r.RemoteAddr}

		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			_ = conn.Close()
			return
		}
		f.clients[c] = struct{}{}
		n := len(f.clients)
		f.mu.Unlock()
		log.Printf("feed: client %s connected (%d total)", c.remote, n)

		f.drain(c)
	})
}

// drain consumes inbound frames until the connection errors or closes.
func (f *Feed) drain(c *feedClient) {
	c.conn.SetReadLimit(1024)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("feed: client %s read error: %v", c.remote, err)
			}
			break
		}
		if len(msg) > 0 {
			log.Printf("feed: ignoring %d byte message from %s", len(msg), c.remote)
		}
	}
	f.remove(c)
}

// remove unregisters and closes a session. Safe to call more than once per
// client; only the first call logs the disconnect.
func (f *Feed) remove(c *feedClient) {
	f.mu.Lock()
	_, ok := f.clients[c]
	if ok {
		delete(f.clients, c)
	}
	n := len(f.clients)
	f.mu.Unlock()

	_ = c.conn.Close()
	if ok {
		log.Printf("feed: client %s disconnected (%d total)", c.remote, n)
	}
}

// Broadcast sends payload to every connected session and reports how many
// sends succeeded. A session whose send fails is dropped on the spot; one
// stuck client never blocks the rest past the write timeout.
func (f *Feed) Broadcast(payload []byte) int {
	f.mu.Lock()
	targets := make([]*feedClient, 0, len(f.clients))
	for c := range f.clients {
		targets = append(targets, c)
	}
	f.mu.Unlock()

	sent := 0
	for _, c := range targets {
		if err := c.send(f.writeTimeout, payload); err != nil {
			log.Printf("feed: send to %s failed: %v", c.remote, err)
			f.remove(c)
			continue
		}
		sent++
	}
	return sent
}

func (c *feedClient) send(timeout time.Duration, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (f *Feed) ClientCount() int {
	if f == nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// CloseAll says goodbye to every session and refuses new ones. Used on
// shutdown.
func (f *Feed) CloseAll() {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.closed = true
	targets := make([]*feedClient, 0, len(f.clients))
	for c := range f.clients {
		targets = append(targets, c)
	}
	f.clients = make(map[*feedClient]struct{})
	f.mu.Unlock()

	goodbye := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
	for _, c := range targets {
		_ = c.conn.WriteControl(websocket.CloseMessage, goodbye, time.Now().Add(time.Second))
		_ = c.conn.Close()
	}
}

package changestream

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Broadcaster relays a Bus's published events to connected websocket
// viewers, JSON-encoded. Adapted from the teacher's
// pkg/transport/websocket.go hub (upgrade-on-connect, per-client send
// channel, ping-keepalive writePump); generalized to a typed Bus source
// instead of a hand-rolled Message/Metadata envelope, and read-only: it
// relays changes out, it never accepts edits back in.
type Broadcaster[T any] struct {
	mu      sync.RWMutex
	clients map[string]chan T
	closeCh chan struct{}

	unsubscribe func()
}

// NewBroadcaster attaches to bus and starts relaying every published event
// to every currently connected client.
func NewBroadcaster[T any](bus *Bus[T]) *Broadcaster[T] {
	b := &Broadcaster[T]{
		clients: make(map[string]chan T),
		closeCh: make(chan struct{}),
	}
	b.unsubscribe = bus.Subscribe(b.fanOut)
	return b
}

func (b *Broadcaster[T]) fanOut(event T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.clients {
		select {
		case ch <- event:
		default:
			log.Printf("[changestream] client %s is slow, dropping event", id)
		}
	}
}

// ServeHTTP upgrades the request to a websocket and streams every future
// bus event to it as JSON until the connection closes. It never reads
// client messages beyond what is needed to detect disconnection.
func (b *Broadcaster[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[changestream] upgrade failed: %v", err)
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = fmt.Sprintf("viewer-%d", time.Now().UnixNano())
	}

	send := make(chan T, 64)
	b.mu.Lock()
	b.clients[clientID] = send
	b.mu.Unlock()

	go b.readUntilClosed(conn, clientID)
	b.writeLoop(conn, clientID, send)
}

// readUntilClosed drains (and discards) client frames purely to notice
// when the connection drops; viewers are not expected to send anything.
func (b *Broadcaster[T]) readUntilClosed(conn *websocket.Conn, clientID string) {
	defer func() {
		conn.Close()
		b.mu.Lock()
		if ch, ok := b.clients[clientID]; ok {
			delete(b.clients, clientID)
			close(ch)
		}
		b.mu.Unlock()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Broadcaster[T]) writeLoop(conn *websocket.Conn, clientID string, send chan T) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-send:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("[changestream] %s: marshal error: %v", clientID, err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-b.closeCh:
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			conn.Close()
			return
		}
	}
}

// Close detaches from the source bus and disconnects every client.
func (b *Broadcaster[T]) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	select {
	case <-b.closeCh:
	default:
		close(b.closeCh)
	}
}

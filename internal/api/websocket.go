package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// progressEvent is one message pushed to a connected optimize-progress client.
type progressEvent struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Message   string `json:"message"`
}

// ProgressBroadcaster fans an optimize.ProgressFunc out to every connected
// websocket client, so a long grid search's progress can be watched live
// instead of only via the terminal's own progress log.
type ProgressBroadcaster struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewProgressBroadcaster constructs an empty broadcaster.
func NewProgressBroadcaster() *ProgressBroadcaster {
	return &ProgressBroadcaster{clients: make(map[*websocket.Conn]struct{})}
}

// Publish sends completed/total/message to every connected client. A client
// whose write fails is dropped rather than blocking the rest.
func (b *ProgressBroadcaster) Publish(completed, total int, message string) {
	event := progressEvent{Completed: completed, Total: total, Message: message}

	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.clients {
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(b.clients, conn)
		}
	}
}

func (b *ProgressBroadcaster) add(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[conn] = struct{}{}
}

func (b *ProgressBroadcaster) remove(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, conn)
	conn.Close()
}

// handleOptimizeProgress upgrades the connection and keeps it registered
// with the server's broadcaster until the client disconnects. The server
// never reads application messages from the client on this socket; it is a
// one-way progress feed.
func (s *Server) handleOptimizeProgress(w http.ResponseWriter, r *http.Request) {
	if s.broadcaster == nil {
		http.Error(w, "progress streaming not configured", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.broadcaster.add(conn)
	defer s.broadcaster.remove(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

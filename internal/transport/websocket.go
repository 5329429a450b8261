// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	applog "pulseviz/internal/log"
)

// defaultMinSendInterval rate-limits broadcasts so a fast analysis loop
// cannot flood slow clients.
const defaultMinSendInterval = 16 * time.Millisecond

// WebSocketTransport broadcasts analysis snapshots as JSON to all clients
// connected on /analysis.
//
// Thread Safety:
// - Mutex-guarded client map and rate-limit state
// - Disconnected clients removed on write failure
type WebSocketTransport struct {
	clients         map[*websocket.Conn]bool
	clientsMutex    sync.Mutex
	upgrader        websocket.Upgrader
	server          *http.Server
	lastSend        time.Time
	minSendInterval time.Duration
}

// NewWebSocketTransport starts an HTTP server on addr (e.g. ":8080")
// serving WebSocket upgrades at /analysis. The server runs in its own
// goroutine until Close.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	t := &WebSocketTransport{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // renderers connect from anywhere on the host
			},
		},
		minSendInterval: defaultMinSendInterval,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/analysis", t.handleWebSocket)
	t.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		applog.Infof("transport: WebSocket server listening on %s", addr)
		if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
			applog.Errorf("transport: WebSocket server error: %v", err)
		}
	}()

	return t
}

// handleWebSocket upgrades the connection, registers the client, and
// watches for disconnect.
func (t *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("transport: WebSocket upgrade error: %v", err)
		return
	}

	t.clientsMutex.Lock()
	t.clients[conn] = true
	total := len(t.clients)
	t.clientsMutex.Unlock()
	applog.Infof("transport: client connected, total: %d", total)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				t.clientsMutex.Lock()
				delete(t.clients, conn)
				t.clientsMutex.Unlock()
				conn.Close()
				return
			}
		}
	}()
}

// Send broadcasts data to all connected clients, dropping the frame when
// the rate limit has not elapsed. Safe for concurrent use.
func (t *WebSocketTransport) Send(data any) error {
	now := time.Now()
	t.clientsMutex.Lock()
	if now.Sub(t.lastSend) < t.minSendInterval {
		t.clientsMutex.Unlock()
		return nil // drop this frame
	}
	t.lastSend = now
	t.clientsMutex.Unlock()

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	t.clientsMutex.Lock()
	for client := range t.clients {
		if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
			client.Close()
			delete(t.clients, client)
		}
	}
	t.clientsMutex.Unlock()
	return nil
}

// Close disconnects all clients and shuts down the HTTP server.
// Idempotent.
func (t *WebSocketTransport) Close() error {
	t.clientsMutex.Lock()
	for client := range t.clients {
		client.Close()
		delete(t.clients, client)
	}
	t.clientsMutex.Unlock()

	return t.server.Close()
}

var _ Transport = (*WebSocketTransport)(nil)

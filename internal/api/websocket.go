package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"tile-engine/internal/game"
	"tile-engine/internal/game/collision"
	"tile-engine/internal/game/spatial"

	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	wsWriteTimeout = 5 * time.Second
)

// Broadcast event names
const (
	EventSnapshot      = "engine:snapshot"
	EventTerrainEffect = "terrain:effect"
)

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn *websocket.Conn
	ip   string
}

// wsCommand is a client request. Steer uses ID with Cell or Target;
// navigate uses ID with Cell; edit uses X, Y and Code.
type wsCommand struct {
	Type   string         `json:"type"`
	ID     string         `json:"id,omitempty"`
	Target *spatial.Vec2  `json:"target,omitempty"`
	Cell   *spatial.Point `json:"cell,omitempty"`
	Thrust bool           `json:"thrust,omitempty"`
	X      int            `json:"x,omitempty"`
	Y      int            `json:"y,omitempty"`
	Code   int            `json:"code,omitempty"`
}

// WebSocketHub manages all WebSocket connections with DoS protection
type WebSocketHub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	stopChan   chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex

	engine   EngineInterface
	upgrader websocket.Upgrader

	// Connection limiting per IP
	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a hub that accepts connections from origins and
// forwards client commands to engine.
func NewWebSocketHub(engine EngineInterface, origins []string) *WebSocketHub {
	if origins == nil {
		origins = DefaultAllowedOrigins
	}

	h := &WebSocketHub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		stopChan:   make(chan struct{}),
		engine:     engine,
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if IsAllowedOrigin(origin, origins) {
				return true
			}

			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run starts the hub. It returns after Stop, closing every connection.
func (h *WebSocketHub) Run() {
	for {
		select {
		case <-h.stopChan:
			h.mu.Lock()
			for conn, client := range h.clients {
				h.wsLimiter.Release(client.ip)
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			h.drop(conn)
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case message := <-h.broadcast:
			var failed []*websocket.Conn

			h.mu.RLock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					failed = append(failed, conn)
				}
			}
			h.mu.RUnlock()

			if len(failed) > 0 {
				h.mu.Lock()
				for _, conn := range failed {
					h.drop(conn)
				}
				UpdateWSConnections(len(h.clients))
				h.mu.Unlock()
			}
			IncrementWSMessages()
		}
	}
}

// drop closes and forgets conn. Caller holds h.mu.
func (h *WebSocketHub) drop(conn *websocket.Conn) {
	if client, ok := h.clients[conn]; ok {
		h.wsLimiter.Release(client.ip)
		delete(h.clients, conn)
		conn.Close()
	}
}

// Stop ends Run and closes all connections.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

// Broadcast sends a message to all connected clients
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	msg := map[string]interface{}{
		"event": event,
		"data":  data,
	}

	jsonBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case h.broadcast <- jsonBytes:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop broadcasts the latest snapshot every period until Stop.
// Snapshots are skipped when nobody is listening or the tick has not moved.
func (h *WebSocketHub) StartBroadcastLoop(period time.Duration) {
	ticker := time.NewTicker(period)

	go func() {
		defer ticker.Stop()

		var lastTick uint64
		for {
			select {
			case <-h.stopChan:
				return
			case <-ticker.C:
			}

			if h.ClientCount() == 0 {
				continue
			}
			snap := h.engine.GetSnapshot()
			if snap == nil || (snap.TickNumber == lastTick && lastTick != 0) {
				continue
			}
			lastTick = snap.TickNumber
			h.Broadcast(EventSnapshot, snap)
		}
	}()
}

// ForwardEffect is an effect listener that relays terrain effects to clients.
func (h *WebSocketHub) ForwardEffect(entityID string, ev collision.EffectEvent) {
	if h.ClientCount() == 0 {
		return
	}
	h.Broadcast(EventTerrainEffect, game.EffectSnapshot{EntityID: entityID, Effect: ev})
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if total := h.ClientCount(); total >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip) // Release the slot we reserved
		return
	}

	select {
	case h.register <- &wsClient{conn: conn, ip: ip}:
	case <-h.stopChan:
		h.wsLimiter.Release(ip)
		conn.Close()
		return
	}

	go h.readLoop(conn, ip)
}

// readLoop applies client commands until the connection fails.
func (h *WebSocketHub) readLoop(conn *websocket.Conn, ip string) {
	defer func() {
		select {
		case h.unregister <- conn:
		case <-h.stopChan:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd wsCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			continue
		}
		if err := h.apply(cmd); err != nil {
			log.Printf("📨 WebSocket %s command from %s failed: %v", cmd.Type, ip, err)
		}
	}
}

func (h *WebSocketHub) apply(cmd wsCommand) error {
	switch cmd.Type {
	case "steer":
		if cmd.Cell != nil {
			return h.engine.SteerToCell(cmd.ID, *cmd.Cell, cmd.Thrust)
		}
		if cmd.Target != nil {
			return h.engine.Steer(cmd.ID, *cmd.Target, cmd.Thrust)
		}
		return errMissingTarget
	case "navigate":
		if cmd.Cell == nil {
			return errMissingGoal
		}
		return h.engine.Navigate(cmd.ID, *cmd.Cell, cmd.Thrust)
	case "edit":
		if !collision.IsKnown(cmd.Code) {
			return errUnknownCode
		}
		return h.engine.QueueEdit(cmd.X, cmd.Y, cmd.Code)
	}
	return nil
}

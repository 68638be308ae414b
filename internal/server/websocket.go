package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// wsConn is one long-lived client connection. Outbound traffic goes through
// a bounded send channel drained by a single writer goroutine, so a slow
// client can never block a room broadcast; overflowing the buffer drops the
// connection instead.
type wsConn struct {
	id   string
	sock *websocket.Conn
	send chan []byte

	mu       sync.Mutex
	gameCode string
	playerID int
	lastSeen time.Time
}

func newWSConn(sock *websocket.Conn, bufferSize int) *wsConn {
	return &wsConn{
		id:       uuid.NewString(),
		sock:     sock,
		send:     make(chan []byte, bufferSize),
		lastSeen: timeNowUTC(),
	}
}

func (c *wsConn) bindIdentity(gameCode string, playerID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gameCode = gameCode
	c.playerID = playerID
}

func (c *wsConn) identity() (string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameCode, c.playerID
}

func (c *wsConn) touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen = timeNowUTC()
}

func (c *wsConn) idle(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastSeen)
}

func (c *wsConn) writePump() {
	defer c.sock.Close()
	for data := range c.send {
		_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.sock.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.sock.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// wsHub tracks registered connections and their room bindings. The hub lock
// covers membership and channel pushes only; it is never held across a
// network write.
type wsHub struct {
	mu    sync.Mutex
	conns map[*wsConn]struct{}
	rooms map[string]map[*wsConn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		conns: make(map[*wsConn]struct{}),
		rooms: make(map[string]map[*wsConn]struct{}),
	}
}

func (h *wsHub) Add(conn *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *wsHub) Bind(conn *wsConn, gameCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; !ok {
		return
	}
	group := h.rooms[gameCode]
	if group == nil {
		group = make(map[*wsConn]struct{})
		h.rooms[gameCode] = group
	}
	group[conn] = struct{}{}
}

// Unbind detaches the connection from its room group without closing it.
// Used when a player leaves a game but keeps the connection open.
func (h *wsHub) Unbind(conn *wsConn, gameCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if group := h.rooms[gameCode]; group != nil {
		delete(group, conn)
		if len(group) == 0 {
			delete(h.rooms, gameCode)
		}
	}
}

// Remove unregisters the connection, closes its send channel and socket.
// Safe to call more than once.
func (h *wsHub) Remove(conn *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(conn)
}

func (h *wsHub) removeLocked(conn *wsConn) {
	if _, ok := h.conns[conn]; !ok {
		return
	}
	delete(h.conns, conn)
	gameCode, _ := conn.identity()
	if group := h.rooms[gameCode]; group != nil {
		delete(group, conn)
		if len(group) == 0 {
			delete(h.rooms, gameCode)
		}
	}
	close(conn.send)
	_ = conn.sock.Close()
}

// Send pushes a payload to a single registered connection without blocking.
func (h *wsHub) Send(conn *wsConn, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; !ok {
		return
	}
	select {
	case conn.send <- data:
	default:
		log.Printf("ws send buffer full, dropping connection conn_id=%s", conn.id)
		h.removeLocked(conn)
	}
}

// Broadcast fans a payload out to every connection bound to the room. A full
// buffer on one connection drops that connection and never stalls the rest.
func (h *wsHub) Broadcast(gameCode string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[gameCode]
	if len(group) == 0 {
		return
	}
	var dropped []*wsConn
	for conn := range group {
		select {
		case conn.send <- data:
		default:
			dropped = append(dropped, conn)
		}
	}
	for _, conn := range dropped {
		log.Printf("ws send buffer full, dropping connection conn_id=%s game_code=%s", conn.id, gameCode)
		h.removeLocked(conn)
	}
}

func (h *wsHub) CloseRoom(gameCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.rooms[gameCode] {
		h.removeLocked(conn)
	}
}

func (h *wsHub) Connections() []*wsConn {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := make([]*wsConn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	return conns
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := newWSConn(sock, s.cfg.SendBufferSize)
	log.Printf("ws connected conn_id=%s remote=%s", conn.id, r.RemoteAddr)
	s.hub.Add(conn)
	go conn.writePump()
	go s.readWS(conn)
}

func (s *Server) readWS(conn *wsConn) {
	defer s.disconnect(conn)
	conn.sock.SetReadLimit(maxMessageSize)
	for {
		_, data, err := conn.sock.ReadMessage()
		if err != nil {
			log.Printf("ws disconnected conn_id=%s error=%v", conn.id, err)
			return
		}
		conn.touch()
		s.handleMessage(conn, data)
	}
}

// disconnect unregisters the connection and flips the bound player offline.
// Room state beyond the connection flag is untouched: the player's score and
// guesses survive for a later resume.
func (s *Server) disconnect(conn *wsConn) {
	gameCode, playerID := conn.identity()
	s.hub.Remove(conn)
	if gameCode == "" || playerID == 0 {
		return
	}
	if rm, ok := s.registry.lookup(gameCode); ok {
		rm.SetOffline(playerID)
	}
}

// livenessLoop enforces the heartbeat contract: a connection silent for
// longer than interval times multiplier is treated as gone.
func (s *Server) livenessLoop() {
	interval := time.Duration(s.cfg.HeartbeatSeconds) * time.Second
	window := interval * time.Duration(s.cfg.LivenessMultiplier)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			for _, conn := range s.hub.Connections() {
				if conn.idle(now.UTC()) <= window {
					continue
				}
				log.Printf("ws liveness timeout conn_id=%s idle=%s", conn.id, conn.idle(now.UTC()))
				s.disconnect(conn)
			}
		case <-s.quit:
			return
		}
	}
}

// reapLoop discards abandoned rooms: a room with nobody online, or already
// ended, is removed once it has been idle longer than the configured
// threshold.
func (s *Server) reapLoop() {
	ticker := time.NewTicker(time.Duration(s.cfg.RoomSweepSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			idle := time.Duration(s.cfg.RoomIdleSeconds) * time.Second
			for _, rm := range s.registry.all() {
				summary := rm.Summary()
				if summary.Online > 0 && summary.Status != statusEnded {
					continue
				}
				if now.UTC().Sub(summary.LastActive) < idle {
					continue
				}
				log.Printf("room reaped game_code=%s status=%s idle=%s", summary.Code, summary.Status, now.UTC().Sub(summary.LastActive))
				s.removeRoom(summary.Code)
			}
		case <-s.quit:
			return
		}
	}
}

func (s *Server) removeRoom(code string) {
	if rm, ok := s.registry.remove(code); ok {
		rm.stop()
	}
	s.hub.CloseRoom(code)
	s.sessions.DropGame(code)
}

// broadcastRoom serializes one snapshot and fans it out. Called only from a
// room's actor, which is what keeps broadcast order equal to mutation order.
func (s *Server) broadcastRoom(code string, game *Game) {
	if s.hub == nil {
		return
	}
	data, err := json.Marshal(envelope{Type: msgSnapshot, Payload: mustMarshal(snapshotGame(game))})
	if err != nil {
		return
	}
	s.hub.Broadcast(code, data)
}

func mustMarshal(payload any) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

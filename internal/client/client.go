// Package client keeps a local mirror of one game session. It owns the
// websocket connection, replaces its cached snapshot wholesale on every
// SNAPSHOT frame, and resumes the session after a dropped connection.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	msgCreateGame  = "CREATE_GAME"
	msgJoinGame    = "JOIN_GAME"
	msgResumeGame  = "RESUME_GAME"
	msgLeaveGame   = "LEAVE_GAME"
	msgStartGame   = "START_GAME"
	msgSubmitGuess = "SUBMIT_GUESS"
	msgEndRound    = "END_ROUND"
	msgNextRound   = "NEXT_ROUND"
	msgEndGame     = "END_GAME"
	msgHeartbeat   = "HEARTBEAT"
	msgSnapshot    = "SNAPSHOT"
	msgWelcome     = "WELCOME"
	msgError       = "ERROR"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerError is an ERROR frame relayed by the server.
type ServerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ServerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type welcomePayload struct {
	PlayerID     int    `json:"playerId"`
	SessionToken string `json:"sessionToken"`
	GameCode     string `json:"gameCode"`
}

// Options configures a Client. URL is the websocket endpoint, for example
// ws://localhost:8080/ws.
type Options struct {
	URL               string
	HeartbeatInterval time.Duration
	ReconnectAttempts int
	ReconnectBackoff  time.Duration
}

func (o *Options) fill() {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 15 * time.Second
	}
	if o.ReconnectAttempts <= 0 {
		o.ReconnectAttempts = 5
	}
	if o.ReconnectBackoff <= 0 {
		o.ReconnectBackoff = 2 * time.Second
	}
}

// Client synchronizes local game state with the server. All exported methods
// are safe for concurrent use.
type Client struct {
	opts Options

	mu           sync.Mutex
	conn         *websocket.Conn
	snapshot     map[string]any
	playerID     int
	sessionToken string
	gameCode     string
	pending      [][]byte
	closed       bool

	snapshots chan map[string]any
	errs      chan ServerError
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the server and starts the read and heartbeat loops.
func Dial(opts Options) (*Client, error) {
	opts.fill()
	conn, _, err := websocket.DefaultDialer.Dial(opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.URL, err)
	}
	c := &Client{
		opts:      opts,
		conn:      conn,
		snapshots: make(chan map[string]any, 16),
		errs:      make(chan ServerError, 16),
		done:      make(chan struct{}),
	}
	go c.readLoop(conn)
	go c.heartbeatLoop()
	return c, nil
}

// Snapshots delivers every state snapshot the server pushes. Slow consumers
// lose intermediate snapshots, never the latest cached one.
func (c *Client) Snapshots() <-chan map[string]any { return c.snapshots }

// Errors delivers ERROR frames from the server.
func (c *Client) Errors() <-chan ServerError { return c.errs }

// Done is closed once the client gives up on the connection for good.
func (c *Client) Done() <-chan struct{} { return c.done }

// Snapshot returns the most recently cached game state, or nil before the
// first SNAPSHOT arrives.
func (c *Client) Snapshot() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Identity returns the player id and session token granted by WELCOME.
func (c *Client) Identity() (playerID int, sessionToken string, gameCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID, c.sessionToken, c.gameCode
}

func (c *Client) CreateGame(username, roomName, password string, totalRounds, timerSeconds int) error {
	return c.send(msgCreateGame, map[string]any{
		"username":     username,
		"roomName":     roomName,
		"password":     password,
		"totalRounds":  totalRounds,
		"timerSeconds": timerSeconds,
	})
}

func (c *Client) JoinGame(username, gameCode, password string) error {
	return c.send(msgJoinGame, map[string]any{
		"username": username,
		"gameCode": gameCode,
		"password": password,
	})
}

func (c *Client) StartGame(prompt string) error {
	return c.send(msgStartGame, map[string]any{"gameId": c.gameRef(), "prompt": prompt})
}

func (c *Client) SubmitGuess(roundID, text string) error {
	return c.send(msgSubmitGuess, map[string]any{"gameId": c.gameRef(), "roundId": roundID, "text": text})
}

func (c *Client) NextRound(prompt string) error {
	return c.send(msgNextRound, map[string]any{"gameId": c.gameRef(), "prompt": prompt})
}

func (c *Client) EndRound() error  { return c.send(msgEndRound, map[string]any{"gameId": c.gameRef()}) }
func (c *Client) EndGame() error   { return c.send(msgEndGame, map[string]any{"gameId": c.gameRef()}) }
func (c *Client) LeaveGame() error { return c.send(msgLeaveGame, map[string]any{"gameId": c.gameRef()}) }

func (c *Client) gameRef() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameCode
}

// Close tears the connection down without attempting to reconnect.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}
	c.closeOnce.Do(func() { close(c.done) })
}

// send marshals one action frame. While disconnected the frame is queued and
// replayed after a successful resume.
func (c *Client) send(msgType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(envelope{Type: msgType, Payload: raw})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("client is closed")
	}
	if c.conn == nil {
		c.pending = append(c.pending, frame)
		return nil
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.pending = append(c.pending, frame)
		return nil
	}
	return nil
}

func (c *Client) heartbeatLoop() {
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = c.send(msgHeartbeat, map[string]any{})
		case <-c.done:
			return
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			if closed {
				return
			}
			c.reconnect()
			return
		}
		c.handleFrame(data)
	}
}

func (c *Client) handleFrame(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("client: malformed frame err=%v", err)
		return
	}
	switch env.Type {
	case msgWelcome:
		var welcome welcomePayload
		if err := json.Unmarshal(env.Payload, &welcome); err != nil {
			log.Printf("client: malformed welcome err=%v", err)
			return
		}
		c.mu.Lock()
		c.playerID = welcome.PlayerID
		c.sessionToken = welcome.SessionToken
		c.gameCode = welcome.GameCode
		c.mu.Unlock()
	case msgSnapshot:
		var state map[string]any
		if err := json.Unmarshal(env.Payload, &state); err != nil {
			log.Printf("client: malformed snapshot err=%v", err)
			return
		}
		c.mu.Lock()
		c.snapshot = state
		c.mu.Unlock()
		select {
		case c.snapshots <- state:
		default:
		}
	case msgError:
		var serr ServerError
		if err := json.Unmarshal(env.Payload, &serr); err != nil {
			log.Printf("client: malformed error frame err=%v", err)
			return
		}
		select {
		case c.errs <- serr:
		default:
		}
	}
}

// reconnect redials with a fixed backoff, resumes the previous session, and
// replays any actions queued while offline.
func (c *Client) reconnect() {
	c.mu.Lock()
	token := c.sessionToken
	code := c.gameCode
	c.mu.Unlock()
	if token == "" {
		c.closeOnce.Do(func() { close(c.done) })
		return
	}

	for attempt := 1; attempt <= c.opts.ReconnectAttempts; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(c.opts.ReconnectBackoff):
		}
		conn, _, err := websocket.DefaultDialer.Dial(c.opts.URL, nil)
		if err != nil {
			log.Printf("client: reconnect attempt=%d err=%v", attempt, err)
			continue
		}

		resume, _ := json.Marshal(map[string]any{"sessionToken": token, "gameCode": code})
		frame, _ := json.Marshal(envelope{Type: msgResumeGame, Payload: resume})
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			conn.Close()
			continue
		}

		c.mu.Lock()
		c.conn = conn
		queued := c.pending
		c.pending = nil
		c.mu.Unlock()

		go c.readLoop(conn)
		for _, action := range queued {
			c.mu.Lock()
			live := c.conn
			var err error
			if live != nil {
				err = live.WriteMessage(websocket.TextMessage, action)
			}
			c.mu.Unlock()
			if live == nil || err != nil {
				break
			}
		}
		return
	}
	log.Printf("client: giving up after %d reconnect attempts", c.opts.ReconnectAttempts)
	c.closeOnce.Do(func() { close(c.done) })
}
